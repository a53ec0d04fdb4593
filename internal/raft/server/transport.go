package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"raft-coordinator/internal/raft"
)

// Transport sends peer RPCs. Each call is a single attempt bounded by ctx; any failure (timeout, connection error,
// bad response) is reported as an error and callers treat it as no vote / no acknowledgment. Implementations never
// retry.
type Transport interface {
	RequestVote(ctx context.Context, peer ServerAddress, req *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error)
	AppendEntries(ctx context.Context, peer ServerAddress, req *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error)
	Close() error
}

// GRPCTransport is the default Transport. It keeps one gRPC channel per peer and encodes messages with the JSON
// codec registered by this package.
type GRPCTransport struct {
	// A map[ServerAddress]*grpc.ClientConn. sync.Map suits the write-once, read-many access pattern.
	clientsConnPool *sync.Map
	dialOpts        []grpc.DialOption
}

// NewGRPCTransport opens a channel to every peer. Channels connect lazily, so unreachable peers do not fail here.
// Extra dial options are appended to the insecure transport credentials.
func NewGRPCTransport(peers []ServerAddress, opts ...grpc.DialOption) *GRPCTransport {
	t := &GRPCTransport{
		clientsConnPool: &sync.Map{},
		dialOpts:        append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...),
	}
	for _, peer := range peers {
		if _, err := t.getClientConn(peer); err != nil {
			// Failing to set up a channel to one peer should not prevent talking to the others.
			log.Printf("[TRANSPORT] Failed establishing a gRPC channel to peer %s: %v", peer, err)
		}
	}
	return t
}

// getClientConn returns the channel to peer, creating it on first use.
func (t *GRPCTransport) getClientConn(peer ServerAddress) (*grpc.ClientConn, error) {
	if conn, ok := t.clientsConnPool.Load(peer); ok {
		return conn.(*grpc.ClientConn), nil
	}

	conn, err := grpc.NewClient(string(peer), t.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating gRPC client for %s: %w", peer, err)
	}
	actual, loaded := t.clientsConnPool.LoadOrStore(peer, conn)
	if loaded {
		// Another goroutine won the race.
		_ = conn.Close()
	}
	return actual.(*grpc.ClientConn), nil
}

func (t *GRPCTransport) RequestVote(ctx context.Context, peer ServerAddress, req *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error) {
	conn, err := t.getClientConn(peer)
	if err != nil {
		return nil, err
	}
	resp := new(raft.RequestVoteResponse)
	if err := conn.Invoke(ctx, requestVoteMethod, req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		log.Printf("[TRANSPORT] %sRequestVote to %s failed: %v", LogTag(ctx), peer, err)
		return nil, fmt.Errorf("RequestVote to %s: %w", peer, err)
	}
	return resp, nil
}

func (t *GRPCTransport) AppendEntries(ctx context.Context, peer ServerAddress, req *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error) {
	conn, err := t.getClientConn(peer)
	if err != nil {
		return nil, err
	}
	resp := new(raft.AppendEntriesResponse)
	if err := conn.Invoke(ctx, appendEntriesMethod, req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		log.Printf("[TRANSPORT] %sAppendEntries to %s failed: %v", LogTag(ctx), peer, err)
		return nil, fmt.Errorf("AppendEntries to %s: %w", peer, err)
	}
	return resp, nil
}

// Close closes every gRPC channel opened by the transport.
func (t *GRPCTransport) Close() error {
	var errs []error
	t.clientsConnPool.Range(func(key, value any) bool {
		if err := value.(*grpc.ClientConn).Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing connection to %v: %w", key, err))
		}
		t.clientsConnPool.Delete(key)
		return true
	})
	return errors.Join(errs...)
}
