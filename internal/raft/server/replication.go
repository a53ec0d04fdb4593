package server

import (
	"context"
	"log"

	"raft-coordinator/internal/raft"
)

// AppendEntries handles entry pushes and heartbeats from a leader.
//
// A request from an older term is rejected without touching any state. Otherwise the server adopts the term, becomes
// (or stays) a Follower of req.LeaderID, refreshes its heartbeat clock and appends every entry as given. Entries are
// not checked against the existing log. The commit index then moves up to the leader's, bounded by the log length.
func (s *Server) AppendEntries(_ context.Context, req *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Term < s.currentTerm {
		return &raft.AppendEntriesResponse{Success: false, Term: s.currentTerm}, nil
	}

	if req.Term > s.currentTerm {
		s.adoptTermLocked(req.Term)
	}
	s.state = Follower
	leader := ServerID(req.LeaderID)
	s.leaderID = &leader
	s.lastHeartbeat = s.clock.Now()

	for _, entry := range req.Entries {
		s.log = append(s.log, entry)
		log.Printf("[NODE-%s] [TERM-%d] Appended entry (term=%d, cmd=%v)", s.ID, s.currentTerm, entry.Term, entry.CommandValue())
	}

	leaderCommit := s.commitIndex
	if req.LeaderCommit != nil {
		leaderCommit = *req.LeaderCommit
	}
	if leaderCommit > s.commitIndex {
		s.commitIndex = min(leaderCommit, int64(len(s.log))-1)
		log.Printf("[NODE-%s] [TERM-%d] Commit index updated to %d", s.ID, s.currentTerm, s.commitIndex)
	}

	return &raft.AppendEntriesResponse{Success: true, Term: s.currentTerm}, nil
}
