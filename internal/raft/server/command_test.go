package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"raft-coordinator/internal/raft"
	"raft-coordinator/internal/raft/mocks"
)

func command(t *testing.T, v any) *structpb.Value {
	t.Helper()
	value, err := structpb.NewValue(v)
	require.NoError(t, err)
	return value
}

func TestServer_ClientCommand_NotLeader(t *testing.T) {
	t.Run("without a known leader", func(t *testing.T) {
		s, _ := newTestServer(t, "n1", []ServerAddress{"p1"}, &transportMock{})

		status, err := s.ClientCommand(context.Background(), command(t, "x"))

		require.Error(t, err)
		assert.Empty(t, status)
		assert.ErrorIs(t, err, raft.ErrNotLeader)
		var notLeader *raft.NotLeaderError
		require.ErrorAs(t, err, &notLeader)
		assert.Empty(t, notLeader.LeaderID)
		assert.Empty(t, s.log)
	})

	t.Run("with a leader hint", func(t *testing.T) {
		s, _ := newTestServer(t, "n1", []ServerAddress{"p1"}, &transportMock{})
		_, err := s.AppendEntries(context.Background(), &raft.AppendEntriesRequest{Term: 2, LeaderID: "n2", Entries: []raft.LogEntry{}})
		require.NoError(t, err)

		_, err = s.ClientCommand(context.Background(), command(t, "x"))

		var notLeader *raft.NotLeaderError
		require.ErrorAs(t, err, &notLeader)
		assert.Equal(t, "n2", notLeader.LeaderID)
	})
}

func TestServer_ClientCommand_Quorum(t *testing.T) {
	transport := &transportMock{}
	s, _ := newTestServer(t, "n1", []ServerAddress{"p1", "p2"}, transport)
	makeLeader(s, 3)
	metrics := mocks.NewMockMetricsCollector()
	s.SetMetricsCollector(metrics)

	isEntry := mock.MatchedBy(func(req *raft.AppendEntriesRequest) bool {
		return req.Term == 3 && req.LeaderID == "n1" && len(req.Entries) == 1 &&
			req.Entries[0].Term == 3 && req.Entries[0].CommandValue() == "set x" &&
			req.LeaderCommit != nil && *req.LeaderCommit == -1
	})
	transport.On("AppendEntries", ServerAddress("p1"), isEntry).Return(&raft.AppendEntriesResponse{Success: true, Term: 3}, nil).Once()
	transport.On("AppendEntries", ServerAddress("p2"), isEntry).Return(nil, errors.New("connection refused")).Once()

	status, err := s.ClientCommand(context.Background(), command(t, "set x"))

	require.NoError(t, err)
	assert.Equal(t, raft.Committed, status)
	assert.Equal(t, int64(0), s.getCommitIndex())
	require.Len(t, s.log, 1)
	assert.Equal(t, uint64(3), s.log[0].Term)
	transport.AssertExpectations(t)

	counts := metrics.Counts()
	assert.Equal(t, 2, counts.AppendEntriesCount)
	assert.Equal(t, 1, counts.CommandsCommittedCount)
	assert.Len(t, counts.CommandLatencies, 1)
}

func TestServer_ClientCommand_NoQuorum(t *testing.T) {
	transport := &transportMock{}
	s, _ := newTestServer(t, "n1", []ServerAddress{"p1", "p2"}, transport)
	makeLeader(s, 1)
	metrics := mocks.NewMockMetricsCollector()
	s.SetMetricsCollector(metrics)

	transport.On("AppendEntries", ServerAddress("p1"), mock.Anything).Return(&raft.AppendEntriesResponse{Success: false, Term: 1}, nil)
	transport.On("AppendEntries", ServerAddress("p2"), mock.Anything).Return(nil, context.DeadlineExceeded)

	status, err := s.ClientCommand(context.Background(), command(t, map[string]any{"op": "set", "key": "x"}))

	require.NoError(t, err)
	assert.Equal(t, raft.NotCommitted, status)
	assert.Equal(t, int64(-1), s.getCommitIndex())
	assert.Len(t, s.log, 1, "the entry stays in the leader's log")
	assert.Equal(t, Leader, s.getState())
	assert.Equal(t, 1, metrics.Counts().CommandsNotCommittedCount)
}

func TestServer_ClientCommand_SingleNode(t *testing.T) {
	transport := &transportMock{}
	s, _ := newTestServer(t, "solo", nil, transport)
	makeLeader(s, 1)

	for i, cmd := range []any{"a", 2.0, nil} {
		status, err := s.ClientCommand(context.Background(), command(t, cmd))
		require.NoError(t, err)
		assert.Equal(t, raft.Committed, status)
		assert.Equal(t, int64(i), s.getCommitIndex())
	}

	transport.AssertNotCalled(t, "AppendEntries", mock.Anything, mock.Anything)
}

func TestServer_ClientCommand_HigherTermDemotes(t *testing.T) {
	transport := &transportMock{}
	s, _ := newTestServer(t, "n1", []ServerAddress{"p1", "p2"}, transport)
	makeLeader(s, 2)

	transport.On("AppendEntries", ServerAddress("p1"), mock.Anything).Return(&raft.AppendEntriesResponse{Success: false, Term: 9}, nil)
	transport.On("AppendEntries", ServerAddress("p2"), mock.Anything).Return(nil, errors.New("unreachable"))

	status, err := s.ClientCommand(context.Background(), command(t, "x"))

	require.NoError(t, err)
	assert.Equal(t, raft.NotCommitted, status)
	assert.Equal(t, Follower, s.getState())
	assert.Equal(t, uint64(9), s.getCurrentTerm())
}

func TestServer_ClientCommand_LeaderCommitCarriesPreviousCommit(t *testing.T) {
	transport := &transportMock{}
	s, _ := newTestServer(t, "n1", []ServerAddress{"p1", "p2"}, transport)
	makeLeader(s, 1)

	var commits []int64
	transport.On("AppendEntries", ServerAddress("p1"), mock.Anything).
		Run(func(args mock.Arguments) {
			commits = append(commits, *args.Get(1).(*raft.AppendEntriesRequest).LeaderCommit)
		}).
		Return(&raft.AppendEntriesResponse{Success: true, Term: 1}, nil)
	transport.On("AppendEntries", ServerAddress("p2"), mock.Anything).Return(nil, errors.New("down"))

	for _, cmd := range []string{"a", "b", "c"} {
		status, err := s.ClientCommand(context.Background(), command(t, cmd))
		require.NoError(t, err)
		require.Equal(t, raft.Committed, status)
	}

	assert.Equal(t, []int64{-1, 0, 1}, commits)
	assert.Equal(t, int64(2), s.getCommitIndex())
}
