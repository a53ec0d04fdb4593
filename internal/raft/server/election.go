package server

import (
	"context"
	"log"

	"raft-coordinator/internal/pubsub"
	"raft-coordinator/internal/raft"
)

// electionTick is run by the election job on every tick.
//
// A Follower that has not heard from a leader for longer than a freshly drawn election timeout becomes a Candidate
// in the next term and votes for itself. While the server is a Candidate, every tick runs one round of vote requests
// in the current term; the node becomes Leader as soon as it holds a majority. A Candidate whose election outlasts
// the timeout starts a new one in the next term, which breaks split votes where every node is a Candidate.
func (s *Server) electionTick(ctx context.Context) {
	now := s.clock.Now()
	timeout := s.electionTimeout()

	s.mu.Lock()
	won := false
	followerExpired := s.state == Follower && now.Sub(s.lastHeartbeat) > timeout
	candidateExpired := s.state == Candidate && now.Sub(s.electionStarted) > timeout
	if followerExpired || candidateExpired {
		s.state = Candidate
		s.electionStarted = now
		s.currentTerm++
		self := s.ID
		s.votedFor = &self
		s.leaderID = nil
		s.votesReceived = 1
		s.voters = make(map[ServerAddress]struct{}, len(s.peers))
		log.Printf("[NODE-%s] [TERM-%d] Election timeout (%v) expired, became Candidate", s.ID, s.currentTerm, timeout)
		if s.metrics != nil {
			s.metrics.RecordElection()
		}
		// A single-node cluster wins on its own vote.
		won = s.becomeLeaderIfElectedLocked()
	}
	candidate := s.state == Candidate
	term := s.currentTerm
	s.mu.Unlock()

	if won {
		s.announceLeadership(term)
		return
	}
	if candidate {
		s.runElectionRound(ctx, term)
	}
}

// runElectionRound asks every peer for its vote in term. Unreachable peers and late answers count as abstentions.
func (s *Server) runElectionRound(ctx context.Context, term uint64) {
	req := &raft.RequestVoteRequest{Term: term, CandidateID: string(s.ID)}

	s.broadcast(ctx, term, s.config.VoteRPCTimeout, func(ctx context.Context, peer ServerAddress) {
		if s.metrics != nil {
			s.metrics.RecordRequestVote()
		}
		resp, err := s.transport.RequestVote(ctx, peer, req)
		if err != nil {
			return
		}
		if s.observeTerm(resp.Term) {
			return
		}
		if resp.VoteGranted {
			s.recordVote(term, peer)
		}
	})
}

// recordVote counts a vote granted by peer in term. Votes arriving after the server already won are still tallied.
func (s *Server) recordVote(term uint64, peer ServerAddress) {
	s.mu.Lock()
	if s.currentTerm != term || s.state == Follower {
		s.mu.Unlock()
		return
	}
	if _, counted := s.voters[peer]; counted {
		s.mu.Unlock()
		return
	}
	s.voters[peer] = struct{}{}
	s.votesReceived++
	log.Printf("[NODE-%s] [TERM-%d] Vote granted by %s (%d/%d)", s.ID, term, peer, s.votesReceived, raft.Majority(len(s.peers)))
	won := s.becomeLeaderIfElectedLocked()
	s.mu.Unlock()

	if won {
		s.announceLeadership(term)
	}
}

// becomeLeaderIfElectedLocked promotes a Candidate holding a majority. The caller must hold mu.
func (s *Server) becomeLeaderIfElectedLocked() bool {
	if s.state != Candidate || s.votesReceived < raft.Majority(len(s.peers)) {
		return false
	}
	s.state = Leader
	self := s.ID
	s.leaderID = &self
	log.Printf("[NODE-%s] [TERM-%d] Elected Leader with %d votes", s.ID, s.currentTerm, s.votesReceived)
	return true
}

// announceLeadership is called without mu held, the bus may block while its queue is full.
func (s *Server) announceLeadership(term uint64) {
	if s.metrics != nil {
		s.metrics.RecordElectionWon()
	}
	pubsub.Publish(s.pubSub, pubsub.NewEvent(ElectionWon, ElectionWonPayload{Term: term}))
}
