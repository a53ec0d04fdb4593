package server

import "raft-coordinator/internal/raft"

// Status is a point-in-time view of a node, for observability only.
type Status struct {
	ID          string          `json:"id"`
	Role        string          `json:"role"`
	Term        uint64          `json:"term"`
	LeaderID    *string         `json:"leaderId"`
	Log         []raft.LogEntry `json:"log"`
	CommitIndex int64           `json:"commitIndex"`
}

// Status returns a snapshot of the node. The log is copied; the entries themselves are immutable.
func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	var leader *string
	if s.leaderID != nil {
		id := string(*s.leaderID)
		leader = &id
	}
	entries := make([]raft.LogEntry, len(s.log))
	copy(entries, s.log)

	return Status{
		ID:          string(s.ID),
		Role:        s.state.String(),
		Term:        s.currentTerm,
		LeaderID:    leader,
		Log:         entries,
		CommitIndex: s.commitIndex,
	}
}
