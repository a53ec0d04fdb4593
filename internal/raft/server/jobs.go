package server

import (
	"context"
	"log"
	"time"

	"raft-coordinator/internal/pubsub"
)

/*
Background jobs of a Server. Each job exits when it receives a ServerShutDown event or when its context is cancelled,
so no goroutine outlives GracefulShutdown.
*/

// electionJob runs electionTick every ElectionTick.
func (s *Server) electionJob(ctx context.Context, stopJobCh <-chan *pubsub.Event[struct{}]) {
	ticker := time.NewTicker(s.config.ElectionTick)
	defer ticker.Stop()

	log.Printf("[JOB] [SERVER-%s] Started election job (tick %v)", s.ID, s.config.ElectionTick)
	for {
		select {
		case <-ticker.C:
			s.electionTick(ctx)
		case <-stopJobCh:
			log.Printf("[JOB] [SERVER-%s] Stopping election job", s.ID)
			return
		case <-ctx.Done():
			return
		}
	}
}

// heartbeatJob runs heartbeatTick every HeartbeatInterval, and right away when the server wins an election so
// followers learn about the new leader before their own timeouts expire.
func (s *Server) heartbeatJob(ctx context.Context, stopJobCh <-chan *pubsub.Event[struct{}], elected <-chan *pubsub.Event[ElectionWonPayload]) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	log.Printf("[JOB] [SERVER-%s] Started heartbeat job (interval %v)", s.ID, s.config.HeartbeatInterval)
	for {
		select {
		case <-ticker.C:
			s.heartbeatTick(ctx)
		case ev := <-elected:
			log.Printf("[JOB] [SERVER-%s] [TERM-%d] Won election, sending heartbeats", s.ID, ev.Payload.Term)
			s.heartbeatTick(ctx)
		case <-stopJobCh:
			log.Printf("[JOB] [SERVER-%s] Stopping heartbeat job", s.ID)
			return
		case <-ctx.Done():
			return
		}
	}
}
