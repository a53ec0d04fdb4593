package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"raft-coordinator/internal/pubsub"
	"raft-coordinator/internal/raft"
)

// Server is one node of the cluster. It owns the node's replicated state and exposes the RequestVote and
// AppendEntries handlers, the leader-only ClientCommand path and a Status snapshot. Two background jobs, started by
// Start, drive elections and heartbeats.
type Server struct {
	serverState
	// The ID of the server in the cluster
	ID ServerID
	// peers is the static list of the other members. It never changes for the lifetime of the server.
	peers []ServerAddress
	// Transport is the transport layer used for sending RPC messages
	transport Transport
	config    Config
	clock     Clock
	// electionTimeout draws the randomized timeout compared against the time since the last heartbeat.
	electionTimeout func() time.Duration
	// pubSub is used to send events about the state of the server to subscribed listeners
	pubSub  *pubsub.PubSubClient
	metrics MetricsCollector

	// The underlying gRPC server used for receiving RPC messages
	grpcServer *grpc.Server
	cancelJobs context.CancelFunc
	jobs       sync.WaitGroup
	stopOnce   sync.Once
}

// NewServer creates a Follower at term 0 with an empty log. A random UUID is used when id is empty.
func NewServer(id ServerID, peers []ServerAddress, transport Transport, pubSub *pubsub.PubSubClient, config Config) *Server {
	if id == "" {
		id = ServerID(uuid.New().String())
	}
	if pubSub == nil {
		pubSub = pubsub.NewPubSub()
	}

	s := &Server{
		ID:        id,
		peers:     append([]ServerAddress(nil), peers...),
		transport: transport,
		config:    config,
		clock:     systemClock{},
		pubSub:    pubSub,
		// ConnectionTimeout bounds the handshake of inbound peer connections.
		grpcServer: grpc.NewServer(grpc.ConnectionTimeout(30 * time.Second)),
	}
	RegisterRaftServiceServer(s.grpcServer, s)
	s.electionTimeout = func() time.Duration {
		return raft.RandomElectionTimeout(s.config.ElectionTimeoutMin, s.config.ElectionTimeoutMax)
	}
	s.serverState = newServerState(s.clock.Now())
	return s
}

// SetMetricsCollector installs an optional metrics collector. It must be called before Start.
func (s *Server) SetMetricsCollector(m MetricsCollector) {
	s.metrics = m
}

// Peers returns the addresses of the other cluster members.
func (s *Server) Peers() []ServerAddress {
	return append([]ServerAddress(nil), s.peers...)
}

// GetPubSub returns the event bus the server publishes on.
func (s *Server) GetPubSub() *pubsub.PubSubClient {
	return s.pubSub
}

// Start launches the election and heartbeat jobs. They run until GracefulShutdown or until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancelJobs = context.WithCancel(ctx)

	// Subscribe before the goroutines start so a shutdown published right after Start is never missed.
	electionStop := make(chan *pubsub.Event[struct{}], 1)
	heartbeatStop := make(chan *pubsub.Event[struct{}], 1)
	elected := make(chan *pubsub.Event[ElectionWonPayload], 1)
	pubsub.Subscribe(s.pubSub, ServerShutDown, electionStop, pubsub.SubscriptionOptions{IsBlocking: false})
	pubsub.Subscribe(s.pubSub, ServerShutDown, heartbeatStop, pubsub.SubscriptionOptions{IsBlocking: false})
	pubsub.Subscribe(s.pubSub, ElectionWon, elected, pubsub.SubscriptionOptions{IsBlocking: false})

	s.jobs.Add(2)
	go func() {
		defer s.jobs.Done()
		s.electionJob(ctx, electionStop)
	}()
	go func() {
		defer s.jobs.Done()
		s.heartbeatJob(ctx, heartbeatStop, elected)
	}()

	log.Printf("[NODE-%s] Started with peers %v", s.ID, s.peers)
}

// StartServer serves the peer RPCs over gRPC on lis. It blocks until the gRPC server stops.
func (s *Server) StartServer(lis net.Listener) error {
	log.Printf("[NODE-%s] Serving peer RPCs over gRPC on %s", s.ID, lis.Addr())
	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// GracefulShutdown stops accepting peer RPCs, stops the background jobs, waits for them and closes outbound
// connections. In-flight fan-outs are cancelled. It is safe to call more than once.
func (s *Server) GracefulShutdown() {
	s.stopOnce.Do(func() {
		log.Printf("[NODE-%s] Shutting down gracefully", s.ID)
		s.grpcServer.GracefulStop()
		pubsub.Publish(s.pubSub, pubsub.NewEvent(ServerShutDown, struct{}{}))
		if s.cancelJobs != nil {
			s.cancelJobs()
		}
		s.jobs.Wait()
		if err := s.transport.Close(); err != nil {
			log.Printf("[NODE-%s] Closing transport: %v", s.ID, err)
		}
	})
}

// broadcast calls fn once per peer, concurrently, each with its own timeout-bounded context, and returns when every
// call has finished. fn must treat any error as an absent response.
func (s *Server) broadcast(ctx context.Context, term uint64, timeout time.Duration, fn func(ctx context.Context, peer ServerAddress)) {
	ctx = SetServerCurrTerm(SetServerID(ctx, s.ID), term)

	var wg sync.WaitGroup
	for _, peer := range s.peers {
		wg.Add(1)
		go func(peer ServerAddress) {
			defer wg.Done()
			rpcCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			fn(rpcCtx, peer)
		}(peer)
	}
	wg.Wait()
}

// observeTerm steps the server down when a peer reports a newer term. It returns true if it did.
func (s *Server) observeTerm(term uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if term <= s.currentTerm {
		return false
	}
	log.Printf("[NODE-%s] [TERM-%d] Peer reported term %d, stepping down to Follower", s.ID, s.currentTerm, term)
	s.adoptTermLocked(term)
	return true
}
