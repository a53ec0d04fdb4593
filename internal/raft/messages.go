package raft

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// The request types below decode through a shadow struct with pointer fields so that a missing required field is
// reported as ErrMalformedRequest instead of silently decoding as a zero value. The same JSON shapes are used by the
// HTTP endpoints and by the gRPC JSON codec.

// RequestVoteRequest is sent by a Candidate to every peer at the start of each election round.
type RequestVoteRequest struct {
	Term        uint64 `json:"term"`
	CandidateID string `json:"candidateId"`
}

// RequestVoteResponse is the voter's answer. Term is the voter's currentTerm after processing the request.
type RequestVoteResponse struct {
	Term        uint64 `json:"term"`
	VoteGranted bool   `json:"voteGranted"`
}

func (r *RequestVoteRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Term        *uint64 `json:"term"`
		CandidateID string  `json:"candidateId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if raw.Term == nil {
		return fmt.Errorf("%w: term is required", ErrMalformedRequest)
	}
	if raw.CandidateID == "" {
		return fmt.Errorf("%w: candidateId is required", ErrMalformedRequest)
	}
	r.Term = *raw.Term
	r.CandidateID = raw.CandidateID
	return nil
}

// AppendEntriesRequest carries log entries from the leader. An empty Entries slice is a heartbeat.
type AppendEntriesRequest struct {
	Term     uint64     `json:"term"`
	LeaderID string     `json:"leaderId"`
	Entries  []LogEntry `json:"entries"`
	// LeaderCommit is optional. When nil the receiver treats it as its own commitIndex, which never advances it.
	LeaderCommit *int64 `json:"leaderCommit,omitempty"`
}

// AppendEntriesResponse reports whether the entries were accepted and the receiver's currentTerm.
type AppendEntriesResponse struct {
	Success bool   `json:"success"`
	Term    uint64 `json:"term"`
}

func (r *AppendEntriesRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Term         *uint64     `json:"term"`
		LeaderID     string      `json:"leaderId"`
		Entries      *[]LogEntry `json:"entries"`
		LeaderCommit *int64      `json:"leaderCommit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if raw.Term == nil {
		return fmt.Errorf("%w: term is required", ErrMalformedRequest)
	}
	if raw.LeaderID == "" {
		return fmt.Errorf("%w: leaderId is required", ErrMalformedRequest)
	}
	if raw.Entries == nil {
		return fmt.Errorf("%w: entries is required", ErrMalformedRequest)
	}
	r.Term = *raw.Term
	r.LeaderID = raw.LeaderID
	r.Entries = *raw.Entries
	r.LeaderCommit = raw.LeaderCommit
	return nil
}

// CommitIndex returns a pointer suitable for AppendEntriesRequest.LeaderCommit.
func CommitIndex(i int64) *int64 {
	return &i
}

// CommandStatus is the outcome of a client command on the leader.
type CommandStatus string

const (
	Committed    CommandStatus = "committed"
	NotCommitted CommandStatus = "not_committed"
)

// ClientCommandRequest is the body of a client command.
type ClientCommandRequest struct {
	Command *structpb.Value
}

func (r ClientCommandRequest) MarshalJSON() ([]byte, error) {
	cmd, err := MarshalCommand(r.Command)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Command json.RawMessage `json:"command"`
	}{Command: cmd})
}

func (r *ClientCommandRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Command json.RawMessage `json:"command"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	cmd, err := UnmarshalCommand(raw.Command)
	if err != nil {
		return err
	}
	r.Command = cmd
	return nil
}

// ClientCommandResponse is returned to the client once the single replication attempt finished.
type ClientCommandResponse struct {
	Status CommandStatus `json:"status"`
}
