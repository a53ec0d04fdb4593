package raft

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRequest is returned when an inbound RPC or client payload lacks a required field.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrNotLeader is returned, wrapped in a NotLeaderError, when a client command reaches a node that is not the
	// leader.
	ErrNotLeader = errors.New("not leader")
)

// NotLeaderError rejects a client command and carries the best-known leader so the caller can redirect. LeaderID is
// empty when no leader is known.
type NotLeaderError struct {
	LeaderID string
}

func (e *NotLeaderError) Error() string {
	if e.LeaderID == "" {
		return "not leader (leader unknown)"
	}
	return fmt.Sprintf("not leader (leader is %s)", e.LeaderID)
}

func (e *NotLeaderError) Unwrap() error {
	return ErrNotLeader
}
