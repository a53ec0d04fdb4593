package transporthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"raft-coordinator/internal/httpapi/respond"
	"raft-coordinator/internal/raft"
	"raft-coordinator/internal/raft/server"
)

// Paths of the peer RPC endpoints.
const (
	RequestVotePath   = "/request_vote"
	AppendEntriesPath = "/append_entries"
)

// HTTPTransport sends peer RPCs as JSON POST requests. Peers are addressed as host:port, or as a full base URL.
// It satisfies server.Transport.
type HTTPTransport struct {
	client *http.Client
}

var _ server.Transport = (*HTTPTransport)(nil)

// NewHTTPTransport returns a transport using client, or a fresh http.Client when client is nil. Per-call deadlines
// come from the context, so the client needs no timeout of its own.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) RequestVote(ctx context.Context, peer server.ServerAddress, req *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error) {
	resp := new(raft.RequestVoteResponse)
	if err := t.post(ctx, peer, RequestVotePath, req, resp); err != nil {
		log.Printf("[TRANSPORT] %sRequestVote to %s failed: %v", server.LogTag(ctx), peer, err)
		return nil, fmt.Errorf("RequestVote to %s: %w", peer, err)
	}
	return resp, nil
}

func (t *HTTPTransport) AppendEntries(ctx context.Context, peer server.ServerAddress, req *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error) {
	resp := new(raft.AppendEntriesResponse)
	if err := t.post(ctx, peer, AppendEntriesPath, req, resp); err != nil {
		log.Printf("[TRANSPORT] %sAppendEntries to %s failed: %v", server.LogTag(ctx), peer, err)
		return nil, fmt.Errorf("AppendEntries to %s: %w", peer, err)
	}
	return resp, nil
}

// Close releases idle keep-alive connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

func (t *HTTPTransport) post(ctx context.Context, peer server.ServerAddress, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, peerURL(peer)+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func peerURL(peer server.ServerAddress) string {
	addr := strings.TrimSuffix(string(peer), "/")
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}

// Register mounts the inbound peer RPC endpoints on r.
func Register(r chi.Router, handler server.RaftServiceServer) {
	r.Post(RequestVotePath, handleRequestVote(handler))
	r.Post(AppendEntriesPath, handleAppendEntries(handler))
}

func handleRequestVote(handler server.RaftServiceServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req raft.RequestVoteRequest
		if !decode(w, r, &req) {
			return
		}
		resp, err := handler.RequestVote(r.Context(), &req)
		if err != nil {
			respond.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		respond.JSON(w, http.StatusOK, resp)
	}
}

func handleAppendEntries(handler server.RaftServiceServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req raft.AppendEntriesRequest
		if !decode(w, r, &req) {
			return
		}
		resp, err := handler.AppendEntries(r.Context(), &req)
		if err != nil {
			respond.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		respond.JSON(w, http.StatusOK, resp)
	}
}

// decode reads a JSON body into dst and answers 400 when it is not a valid request.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		msg := "invalid JSON"
		if errors.Is(err, raft.ErrMalformedRequest) {
			msg = err.Error()
		}
		respond.Error(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}
