package server

import (
	"time"

	"raft-coordinator/internal/pubsub"
)

// ServerID is the identity of a node in the cluster. It is the value candidates put in RequestVote and leaders put
// in AppendEntries.
type ServerID string

// ServerAddress is the network address a peer is reached at.
type ServerAddress string

// A State is the role of a server at a given point: leader, follower, or candidate.
type State uint64

// As Golang does not support Enums this is a common pattern for implementing one
const (
	Follower State = iota
	Candidate
	Leader
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case Leader:
		return "Leader"
	case Follower:
		return "Follower"
	case Candidate:
		return "Candidate"
	default:
		return "Unknown"
	}
}

const (
	// ServerShutDown is published when the server is shutting down. Background jobs exit on it. Payload: struct{}.
	ServerShutDown pubsub.EventType = iota
	// ElectionWon is published when a candidate collects a majority of votes. Payload: ElectionWonPayload.
	ElectionWon
)

// ElectionWonPayload travels with ElectionWon events.
type ElectionWonPayload struct {
	Term uint64
}

// Clock abstracts time so the election and heartbeat logic can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// MetricsCollector is an optional interface for collecting performance metrics
type MetricsCollector interface {
	RecordRequestVote()
	RecordAppendEntries()
	RecordHeartbeat()
	RecordElection()
	RecordElectionWon()
	RecordCommandCommitted(latency time.Duration)
	RecordCommandNotCommitted()
}
