package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"raft-coordinator/internal/raft/server"
)

// Transport names accepted by -transport.
const (
	TransportGRPC = "grpc"
	TransportHTTP = "http"
)

// EnvPrefix prefixes the environment variables that provide flag defaults, e.g. RAFT_PEERS for -peers.
const EnvPrefix = "RAFT_"

// Config is the process configuration of one node.
type Config struct {
	ID        string
	HTTPAddr  string
	GRPCAddr  string
	Peers     []string
	Transport string
	Server    server.Config
}

// PeerAddresses returns the peers as server addresses.
func (c *Config) PeerAddresses() []server.ServerAddress {
	peers := make([]server.ServerAddress, len(c.Peers))
	for i, p := range c.Peers {
		peers[i] = server.ServerAddress(p)
	}
	return peers
}

// SelfAddress is the address peers use to reach this node with the selected transport.
func (c *Config) SelfAddress() string {
	if c.Transport == TransportHTTP {
		return c.HTTPAddr
	}
	return c.GRPCAddr
}

// Load parses args (without the program name). A flag that is not given falls back to the RAFT_* environment
// variable read through getenv, then to its default.
func Load(args []string, getenv func(string) string) (*Config, error) {
	defaults := server.DefaultConfig()
	env := envDefaults{getenv: getenv}

	cfg := &Config{}
	var peers string
	var rpcTimeout time.Duration

	fs := flag.NewFlagSet("raftnode", flag.ContinueOnError)
	fs.StringVar(&cfg.ID, "id", env.string("ID", ""), "Server ID (generated if empty)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", env.string("HTTP_ADDR", ":8080"), "Address of the HTTP API")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", env.string("GRPC_ADDR", ":50051"), "Address of the gRPC peer service")
	fs.StringVar(&peers, "peers", env.string("PEERS", ""), "Comma separated addresses of the other cluster members")
	fs.StringVar(&cfg.Transport, "transport", env.string("TRANSPORT", TransportGRPC), "Peer transport: grpc or http")
	fs.DurationVar(&cfg.Server.ElectionTick, "election-tick", env.duration("ELECTION_TICK", defaults.ElectionTick), "Interval of election timeout checks")
	fs.DurationVar(&cfg.Server.ElectionTimeoutMin, "election-timeout-min", env.duration("ELECTION_TIMEOUT_MIN", defaults.ElectionTimeoutMin), "Lower bound of the election timeout")
	fs.DurationVar(&cfg.Server.ElectionTimeoutMax, "election-timeout-max", env.duration("ELECTION_TIMEOUT_MAX", defaults.ElectionTimeoutMax), "Upper bound of the election timeout")
	fs.DurationVar(&cfg.Server.HeartbeatInterval, "heartbeat-interval", env.duration("HEARTBEAT_INTERVAL", defaults.HeartbeatInterval), "Interval between leader heartbeats")
	fs.DurationVar(&rpcTimeout, "rpc-timeout", env.duration("RPC_TIMEOUT", 0), "Timeout of every peer RPC (0 keeps the per-RPC defaults)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if env.err != nil {
		return nil, env.err
	}

	cfg.Server.VoteRPCTimeout = defaults.VoteRPCTimeout
	cfg.Server.AppendRPCTimeout = defaults.AppendRPCTimeout
	cfg.Server.HeartbeatRPCTimeout = defaults.HeartbeatRPCTimeout
	if rpcTimeout > 0 {
		cfg.Server.VoteRPCTimeout = rpcTimeout
		cfg.Server.AppendRPCTimeout = rpcTimeout
		cfg.Server.HeartbeatRPCTimeout = rpcTimeout
	}

	if peers != "" {
		cfg.Peers = strings.Split(peers, ",")
		for i := range cfg.Peers {
			cfg.Peers[i] = strings.TrimSpace(cfg.Peers[i])
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Transport != TransportGRPC && c.Transport != TransportHTTP {
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}

	seen := make(map[string]bool, len(c.Peers))
	for _, p := range c.Peers {
		switch {
		case p == "":
			errs = append(errs, errors.New("peer list contains an empty entry"))
		case seen[p]:
			errs = append(errs, fmt.Errorf("peer %s is listed twice", p))
		case p == c.SelfAddress() || (c.ID != "" && p == c.ID):
			errs = append(errs, fmt.Errorf("peer %s is this node", p))
		}
		seen[p] = true
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// envDefaults reads flag defaults from the environment and keeps the first parse error.
type envDefaults struct {
	getenv func(string) string
	err    error
}

func (e *envDefaults) lookup(name string) string {
	if e.getenv == nil {
		return ""
	}
	return strings.TrimSpace(e.getenv(EnvPrefix + name))
}

func (e *envDefaults) string(name, def string) string {
	if v := e.lookup(name); v != "" {
		return v
	}
	return def
}

func (e *envDefaults) duration(name string, def time.Duration) time.Duration {
	v := e.lookup(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		if e.err == nil {
			e.err = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		return def
	}
	return d
}
