package transporthttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raft-coordinator/internal/raft"
	"raft-coordinator/internal/raft/server"
)

// handlerStub records the last request of each kind and answers with fixed responses.
type handlerStub struct {
	lastVote   *raft.RequestVoteRequest
	lastAppend *raft.AppendEntriesRequest
	term       uint64
	grant      bool
}

func (h *handlerStub) RequestVote(_ context.Context, req *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error) {
	h.lastVote = req
	return &raft.RequestVoteResponse{Term: h.term, VoteGranted: h.grant}, nil
}

func (h *handlerStub) AppendEntries(_ context.Context, req *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error) {
	h.lastAppend = req
	return &raft.AppendEntriesResponse{Success: true, Term: h.term}, nil
}

func newPeer(t *testing.T, h server.RaftServiceServer) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	Register(r, h)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTPTransport_RequestVote(t *testing.T) {
	h := &handlerStub{term: 4, grant: true}
	ts := newPeer(t, h)
	transport := NewHTTPTransport(nil)
	defer transport.Close()

	// host:port without a scheme
	peer := server.ServerAddress(strings.TrimPrefix(ts.URL, "http://"))
	resp, err := transport.RequestVote(context.Background(), peer, &raft.RequestVoteRequest{Term: 4, CandidateID: "n1"})

	require.NoError(t, err)
	assert.Equal(t, &raft.RequestVoteResponse{Term: 4, VoteGranted: true}, resp)
	require.NotNil(t, h.lastVote)
	assert.Equal(t, raft.RequestVoteRequest{Term: 4, CandidateID: "n1"}, *h.lastVote)
}

func TestHTTPTransport_AppendEntries(t *testing.T) {
	h := &handlerStub{term: 2}
	ts := newPeer(t, h)
	transport := NewHTTPTransport(nil)
	defer transport.Close()

	e, err := raft.NewLogEntry(2, []any{"incr", "counter"})
	require.NoError(t, err)
	resp, err := transport.AppendEntries(context.Background(), server.ServerAddress(ts.URL), &raft.AppendEntriesRequest{
		Term:         2,
		LeaderID:     "n1",
		Entries:      []raft.LogEntry{e},
		LeaderCommit: raft.CommitIndex(5),
	})

	require.NoError(t, err)
	assert.Equal(t, &raft.AppendEntriesResponse{Success: true, Term: 2}, resp)
	require.NotNil(t, h.lastAppend)
	assert.Equal(t, "n1", h.lastAppend.LeaderID)
	require.Len(t, h.lastAppend.Entries, 1)
	assert.Equal(t, []any{"incr", "counter"}, h.lastAppend.Entries[0].CommandValue())
	require.NotNil(t, h.lastAppend.LeaderCommit)
	assert.Equal(t, int64(5), *h.lastAppend.LeaderCommit)
}

func TestHTTPTransport_Failures(t *testing.T) {
	t.Run("unreachable peer", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		addr := ts.URL
		ts.Close()

		_, err := NewHTTPTransport(nil).RequestVote(context.Background(), server.ServerAddress(addr), &raft.RequestVoteRequest{Term: 1, CandidateID: "n1"})
		assert.Error(t, err)
	})

	t.Run("non-200 status", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer ts.Close()

		_, err := NewHTTPTransport(nil).AppendEntries(context.Background(), server.ServerAddress(ts.URL), &raft.AppendEntriesRequest{Term: 1, LeaderID: "n1", Entries: []raft.LogEntry{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		release := make(chan struct{})
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer ts.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := NewHTTPTransport(nil).RequestVote(ctx, server.ServerAddress(ts.URL), &raft.RequestVoteRequest{Term: 1, CandidateID: "n1"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRegister_MalformedRequests(t *testing.T) {
	h := &handlerStub{}
	ts := newPeer(t, h)

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "not JSON", path: RequestVotePath, body: "{"},
		{name: "vote without term", path: RequestVotePath, body: `{"candidateId":"n1"}`},
		{name: "vote without candidate", path: RequestVotePath, body: `{"term":1}`},
		{name: "append without entries", path: AppendEntriesPath, body: `{"term":1,"leaderId":"n1"}`},
		{name: "append with null entries", path: AppendEntriesPath, body: `{"term":1,"leaderId":"n1","entries":null}`},
		{name: "entry without term", path: AppendEntriesPath, body: `{"term":1,"leaderId":"n1","entries":[{"command":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+tt.path, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	assert.Nil(t, h.lastVote)
	assert.Nil(t, h.lastAppend)
}
