package server

import (
	"sync"
	"time"

	"raft-coordinator/internal/raft"
)

// serverState holds every mutable field of a node. A single mutex guards all of them: handlers and state transitions
// hold it for their whole read-modify-write, and never while waiting on the network.
//
// Nothing here is persisted. A restarted node starts again from term 0 with an empty log.
type serverState struct {
	// Protects all fields below
	mu sync.Mutex

	// The role of the server. Every server starts as a Follower.
	state State
	// The latest term the server has seen. Never decreases.
	currentTerm uint64
	// The candidate this server voted for in currentTerm, nil if none. Cleared whenever currentTerm increases.
	votedFor *ServerID
	// Append only. Index 0 is the first entry.
	log []raft.LogEntry
	// Highest log index considered committed, -1 while nothing is. Never decreases and never exceeds len(log)-1.
	commitIndex int64
	// Best-known leader of currentTerm, nil if unknown. Equals the server's own ID while it is Leader.
	leaderID *ServerID
	// Last time a valid AppendEntries was accepted, or the start time.
	lastHeartbeat time.Time
	// When the current election started. A Candidate that has not won within an election timeout starts over in the
	// next term.
	electionStarted time.Time
	// Votes collected in currentTerm while Candidate, including the server's own.
	votesReceived int
	// Peers that granted a vote in currentTerm. A peer re-granting during a later round of the same term is counted
	// once.
	voters map[ServerAddress]struct{}
}

func newServerState(now time.Time) serverState {
	return serverState{
		state:         Follower,
		commitIndex:   -1,
		lastHeartbeat: now,
	}
}

func (s *serverState) getState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *serverState) getCurrentTerm() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTerm
}

func (s *serverState) getCommitIndex() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitIndex
}

// adoptTermLocked moves the server into a newer term as a Follower with no vote cast and no known leader.
// The caller must hold mu and guarantee term > currentTerm.
func (s *serverState) adoptTermLocked(term uint64) {
	s.currentTerm = term
	s.votedFor = nil
	s.leaderID = nil
	s.state = Follower
	s.votesReceived = 0
	s.voters = nil
}
