package server

import (
	"context"
	"log"

	"raft-coordinator/internal/raft"
)

// RequestVote handles a vote request from a candidate.
//
// A request from an older term is rejected without touching any state. A newer term is adopted first, which demotes
// the server to Follower and clears its vote. The vote is then granted if the server has not voted in this term, or
// already voted for the same candidate. The candidate's log is not compared with ours.
func (s *Server) RequestVote(_ context.Context, req *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Term < s.currentTerm {
		return &raft.RequestVoteResponse{Term: s.currentTerm, VoteGranted: false}, nil
	}

	if req.Term > s.currentTerm {
		s.adoptTermLocked(req.Term)
	}

	candidate := ServerID(req.CandidateID)
	if s.votedFor == nil || *s.votedFor == candidate {
		s.votedFor = &candidate
		log.Printf("[NODE-%s] [TERM-%d] Voted for %s", s.ID, s.currentTerm, candidate)
		return &raft.RequestVoteResponse{Term: s.currentTerm, VoteGranted: true}, nil
	}

	return &raft.RequestVoteResponse{Term: s.currentTerm, VoteGranted: false}, nil
}
