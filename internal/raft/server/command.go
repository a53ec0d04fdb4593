package server

import (
	"context"
	"log"
	"sync/atomic"

	"google.golang.org/protobuf/types/known/structpb"

	"raft-coordinator/internal/raft"
)

// ClientCommand appends command to the leader's log and replicates it to every peer in a single attempt.
//
// A non-leader fails immediately with a *raft.NotLeaderError carrying the known leader. On the leader the entry is
// committed once a majority, counting the leader itself, acknowledged it. Peers that failed or timed out are not
// retried, and the entry is not re-sent by later heartbeats.
func (s *Server) ClientCommand(ctx context.Context, command *structpb.Value) (raft.CommandStatus, error) {
	start := s.clock.Now()

	s.mu.Lock()
	if s.state != Leader {
		hint := ""
		if s.leaderID != nil {
			hint = string(*s.leaderID)
		}
		s.mu.Unlock()
		return "", &raft.NotLeaderError{LeaderID: hint}
	}
	entry := raft.LogEntry{Term: s.currentTerm, Command: command}
	s.log = append(s.log, entry)
	index := int64(len(s.log) - 1)
	term := s.currentTerm
	req := &raft.AppendEntriesRequest{
		Term:         term,
		LeaderID:     string(s.ID),
		Entries:      []raft.LogEntry{entry},
		LeaderCommit: raft.CommitIndex(s.commitIndex),
	}
	s.mu.Unlock()

	log.Printf("[NODE-%s] [TERM-%d] Appended log entry %d (cmd=%v)", s.ID, term, index, entry.CommandValue())

	// The leader acknowledges its own entry.
	var acks atomic.Int64
	acks.Store(1)

	s.broadcast(ctx, term, s.config.AppendRPCTimeout, func(ctx context.Context, peer ServerAddress) {
		if s.metrics != nil {
			s.metrics.RecordAppendEntries()
		}
		resp, err := s.transport.AppendEntries(ctx, peer, req)
		if err != nil {
			return
		}
		if s.observeTerm(resp.Term) {
			return
		}
		if resp.Success {
			acks.Add(1)
		}
	})

	if acks.Load() < int64(raft.Majority(len(s.peers))) {
		log.Printf("[NODE-%s] [TERM-%d] Entry %d not committed (%d/%d acks)", s.ID, term, index, acks.Load(), len(s.peers)+1)
		if s.metrics != nil {
			s.metrics.RecordCommandNotCommitted()
		}
		return raft.NotCommitted, nil
	}

	s.mu.Lock()
	// Concurrent commands may finish out of order; the commit index only moves forward.
	if index > s.commitIndex {
		s.commitIndex = index
	}
	s.mu.Unlock()

	log.Printf("[NODE-%s] [TERM-%d] Entry committed (index=%d)", s.ID, term, index)
	if s.metrics != nil {
		s.metrics.RecordCommandCommitted(s.clock.Now().Sub(start))
	}
	return raft.Committed, nil
}
