package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raft-coordinator/internal/config"
	"raft-coordinator/internal/httpapi"
	"raft-coordinator/internal/pubsub"
	"raft-coordinator/internal/raft/metrics"
	"raft-coordinator/internal/raft/server"
	"raft-coordinator/internal/raft/transporthttp"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	peers := cfg.PeerAddresses()

	var transport server.Transport
	switch cfg.Transport {
	case config.TransportHTTP:
		transport = transporthttp.NewHTTPTransport(nil)
	default:
		transport = server.NewGRPCTransport(peers)
	}

	pubSub := pubsub.NewPubSub()
	srv := server.NewServer(server.ServerID(cfg.ID), peers, transport, pubSub, cfg.Server)
	m := metrics.NewMetrics()
	srv.SetMetricsCollector(m)

	log.Printf("Server ID: %s", srv.ID)
	log.Printf("Peers (%s): %v", cfg.Transport, peers)

	if cfg.Transport == config.TransportGRPC {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("Failed to listen on %s: %v", cfg.GRPCAddr, err)
		}
		go func() {
			if err := srv.StartServer(lis); err != nil {
				log.Printf("gRPC server stopped: %v", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.New(srv, m).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Create context that listens for the interrupt signal from the OS.
	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.Start(signalCtx)

	<-signalCtx.Done()
	log.Println("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	// In-flight HTTP requests get 5 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	srv.GracefulShutdown()
	pubSub.GracefulShutdown()
	log.Println("Server stopped")
}
