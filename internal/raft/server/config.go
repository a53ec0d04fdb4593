package server

import (
	"errors"
	"time"
)

// Config holds the protocol timings of a Server.
type Config struct {
	// ElectionTick is how often the election job checks for an expired election timeout and, while Candidate, runs
	// a round of vote requests.
	ElectionTick time.Duration
	// ElectionTimeoutMin and ElectionTimeoutMax bound the randomized election timeout. A fresh timeout is drawn on
	// every tick.
	ElectionTimeoutMin time.Duration
	ElectionTimeoutMax time.Duration
	// HeartbeatInterval is how often a leader sends empty AppendEntries to its peers.
	HeartbeatInterval time.Duration
	// Per-call bounds for outbound RPCs. A call that exceeds its bound counts as no vote / no acknowledgment.
	VoteRPCTimeout      time.Duration
	AppendRPCTimeout    time.Duration
	HeartbeatRPCTimeout time.Duration
}

// DefaultConfig returns the timings the cluster runs with unless overridden: a 300ms tick, a 3-5s election timeout,
// 1s heartbeats, and 2s/2s/1s RPC bounds.
func DefaultConfig() Config {
	return Config{
		ElectionTick:        300 * time.Millisecond,
		ElectionTimeoutMin:  3 * time.Second,
		ElectionTimeoutMax:  5 * time.Second,
		HeartbeatInterval:   time.Second,
		VoteRPCTimeout:      2 * time.Second,
		AppendRPCTimeout:    2 * time.Second,
		HeartbeatRPCTimeout: time.Second,
	}
}

// Validate checks that every duration is positive and the election timeout range is not inverted.
func (c Config) Validate() error {
	var errs []error
	check := func(name string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, errors.New(name+" must be positive"))
		}
	}
	check("election tick", c.ElectionTick)
	check("election timeout min", c.ElectionTimeoutMin)
	check("election timeout max", c.ElectionTimeoutMax)
	check("heartbeat interval", c.HeartbeatInterval)
	check("vote rpc timeout", c.VoteRPCTimeout)
	check("append rpc timeout", c.AppendRPCTimeout)
	check("heartbeat rpc timeout", c.HeartbeatRPCTimeout)
	if c.ElectionTimeoutMax < c.ElectionTimeoutMin {
		errs = append(errs, errors.New("election timeout max must not be below min"))
	}
	return errors.Join(errs...)
}
