package server

import (
	"context"

	"raft-coordinator/internal/raft"
)

// heartbeatTick sends an empty AppendEntries carrying the commit index to every peer while the server is Leader.
// Failures are ignored. A peer in a newer term demotes the leader.
func (s *Server) heartbeatTick(ctx context.Context) {
	s.mu.Lock()
	if s.state != Leader {
		s.mu.Unlock()
		return
	}
	term := s.currentTerm
	req := &raft.AppendEntriesRequest{
		Term:     term,
		LeaderID: string(s.ID),
		// Non-nil so the wire form is [] rather than null.
		Entries:      []raft.LogEntry{},
		LeaderCommit: raft.CommitIndex(s.commitIndex),
	}
	s.mu.Unlock()

	s.broadcast(ctx, term, s.config.HeartbeatRPCTimeout, func(ctx context.Context, peer ServerAddress) {
		if s.metrics != nil {
			s.metrics.RecordHeartbeat()
		}
		resp, err := s.transport.AppendEntries(ctx, peer, req)
		if err != nil {
			return
		}
		s.observeTerm(resp.Term)
	})
}
