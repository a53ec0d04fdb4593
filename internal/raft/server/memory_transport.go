package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"raft-coordinator/internal/raft"
)

// ErrPeerUnreachable is returned by MemoryTransport for peers that are not registered or are disconnected.
var ErrPeerUnreachable = errors.New("peer unreachable")

// MemoryTransport delivers RPCs by calling the handlers of other servers in the same process. It is used to simulate
// whole clusters, including partitions, without a network.
type MemoryTransport struct {
	mu           sync.RWMutex
	handlers     map[ServerAddress]RaftServiceServer
	disconnected map[ServerAddress]bool
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		handlers:     make(map[ServerAddress]RaftServiceServer),
		disconnected: make(map[ServerAddress]bool),
	}
}

// Register makes handler reachable at addr.
func (t *MemoryTransport) Register(addr ServerAddress, handler RaftServiceServer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[addr] = handler
}

// Disconnect makes every RPC to addr fail until Reconnect is called.
func (t *MemoryTransport) Disconnect(addr ServerAddress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnected[addr] = true
}

func (t *MemoryTransport) Reconnect(addr ServerAddress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.disconnected, addr)
}

func (t *MemoryTransport) handler(ctx context.Context, peer ServerAddress) (RaftServiceServer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.handlers[peer]
	if !ok || t.disconnected[peer] {
		return nil, fmt.Errorf("%s: %w", peer, ErrPeerUnreachable)
	}
	return h, nil
}

func (t *MemoryTransport) RequestVote(ctx context.Context, peer ServerAddress, req *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error) {
	h, err := t.handler(ctx, peer)
	if err != nil {
		return nil, err
	}
	return h.RequestVote(ctx, req)
}

func (t *MemoryTransport) AppendEntries(ctx context.Context, peer ServerAddress, req *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error) {
	h, err := t.handler(ctx, peer)
	if err != nil {
		return nil, err
	}
	return h.AppendEntries(ctx, req)
}

// Close is a no-op, the transport holds no connections.
func (t *MemoryTransport) Close() error {
	return nil
}
