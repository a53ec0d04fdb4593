package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"raft-coordinator/internal/httpapi"
	"raft-coordinator/internal/pubsub"
	"raft-coordinator/internal/raft/metrics"
	"raft-coordinator/internal/raft/server"
)

// node bundles one cluster member with its HTTP API.
type node struct {
	srv     *server.Server
	http    *http.Server
	grpcLis net.Listener
}

// Runs a three node cluster on localhost. Peers talk gRPC on 50051-50053 and every node serves the HTTP API on
// 8080-8082.
func main() {
	clusterSize := 3
	basePort := 50051
	baseHTTPPort := 8080

	// Reserve addresses for the cluster
	addrs := reserveAddresses(clusterSize, basePort)

	nodes, err := createCluster(addrs, baseHTTPPort)
	if err != nil {
		log.Fatalf("Failed to create cluster: %v", err)
	}

	// Create context that listens for the interrupt signal from the OS.
	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCluster(signalCtx, nodes)

	// Block the thread until an interrupt signal is received.
	<-signalCtx.Done()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Disable signal handler so second Ctrl+C will force immediate exit of the process via the OS

	// All nodes have 5 seconds to finish the request they are currently handling
	forceShutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	select {
	case <-gracefullyShutdownCluster(forceShutdownCtx, nodes):
		log.Println("All servers shutdown gracefully")
	case <-forceShutdownCtx.Done():
		log.Println("Graceful shutdown timeout reached, exiting")
	}
	log.Println("Cluster exiting")
}

func reserveAddresses(clusterSize int, basePort int) []server.ServerAddress {
	var allPeers []server.ServerAddress

	for i := 0; i < clusterSize; i++ {
		addr := fmt.Sprintf("localhost:%d", basePort+i)
		allPeers = append(allPeers, server.ServerAddress(addr))
	}

	return allPeers
}

func createCluster(addrs []server.ServerAddress, baseHTTPPort int) ([]*node, error) {
	nodes := make([]*node, 0, len(addrs))

	for i, addr := range addrs {
		var peers []server.ServerAddress
		for j, other := range addrs {
			// Exclude current server
			if j != i {
				peers = append(peers, other)
			}
		}

		lis, err := net.Listen("tcp", string(addr))
		if err != nil {
			return nil, fmt.Errorf("listening on %s: %w", addr, err)
		}

		// Each server gets its own PubSub so events never cross servers
		srv := server.NewServer(server.ServerID(fmt.Sprintf("node-%d", i+1)), peers, server.NewGRPCTransport(peers), pubsub.NewPubSub(), server.DefaultConfig())
		m := metrics.NewMetrics()
		srv.SetMetricsCollector(m)

		nodes = append(nodes, &node{
			srv:     srv,
			grpcLis: lis,
			http: &http.Server{
				Addr:              fmt.Sprintf("localhost:%d", baseHTTPPort+i),
				Handler:           httpapi.New(srv, m).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			},
		})
	}

	return nodes, nil
}

func bootCluster(ctx context.Context, nodes []*node) {
	// Start every listener before any election job so the first vote requests find their peers
	for _, n := range nodes {
		go func(n *node) {
			if err := n.srv.StartServer(n.grpcLis); err != nil {
				log.Printf("Server %v failed to boot due to err: %v", n.srv.ID, err)
			}
		}(n)
		go func(n *node) {
			log.Printf("Server %v HTTP API on http://%s", n.srv.ID, n.http.Addr)
			if err := n.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Server %v HTTP API failed: %v", n.srv.ID, err)
			}
		}(n)
	}

	for _, n := range nodes {
		n.srv.Start(ctx)
	}
	log.Printf("Started %d servers - cluster is ready", len(nodes))
}

func gracefullyShutdownCluster(ctx context.Context, nodes []*node) chan struct{} {
	var wg sync.WaitGroup

	// Gracefully Shutdown all servers in a concurrent manner
	for _, n := range nodes {
		wg.Add(1)
		go func(n *node) {
			defer wg.Done()
			if err := n.http.Shutdown(ctx); err != nil {
				log.Printf("Server %v HTTP shutdown: %v", n.srv.ID, err)
			}
			n.srv.GracefulShutdown()
			n.srv.GetPubSub().GracefulShutdown()
		}(n)
	}

	// Convert the blocking WaitGroup.Wait() to a channel signal
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	return done
}
