package metrics

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// maxLatencySamples bounds memory use; once full, the oldest samples are overwritten.
const maxLatencySamples = 10000

// Metrics collects counters and commit latencies of one node. It implements server.MetricsCollector and is safe for
// concurrent use.
type Metrics struct {
	mu sync.Mutex
	// Ring buffer of commit latencies (time from submission to commit)
	commandLatencies []time.Duration
	next             int

	// Outbound RPC counters
	appendEntriesCount atomic.Uint64
	requestVoteCount   atomic.Uint64
	heartbeatCount     atomic.Uint64

	electionCount        atomic.Uint64
	electionsWon         atomic.Uint64
	commandsCommitted    atomic.Uint64
	commandsNotCommitted atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		commandLatencies: make([]time.Duration, 0, 128),
		startTime:        time.Now(),
	}
}

// RecordAppendEntries counts an AppendEntries carrying entries sent to one peer.
func (m *Metrics) RecordAppendEntries() { m.appendEntriesCount.Add(1) }

// RecordRequestVote counts a RequestVote sent to one peer.
func (m *Metrics) RecordRequestVote() { m.requestVoteCount.Add(1) }

// RecordHeartbeat counts an empty AppendEntries sent to one peer.
func (m *Metrics) RecordHeartbeat() { m.heartbeatCount.Add(1) }

// RecordElection counts an election started by this node.
func (m *Metrics) RecordElection() { m.electionCount.Add(1) }

// RecordElectionWon counts an election this node won.
func (m *Metrics) RecordElectionWon() { m.electionsWon.Add(1) }

func (m *Metrics) RecordCommandNotCommitted() { m.commandsNotCommitted.Add(1) }

// RecordCommandCommitted counts a committed command and records its latency.
func (m *Metrics) RecordCommandCommitted(latency time.Duration) {
	m.commandsCommitted.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.commandLatencies) < maxLatencySamples {
		m.commandLatencies = append(m.commandLatencies, latency)
		return
	}
	m.commandLatencies[m.next] = latency
	m.next = (m.next + 1) % maxLatencySamples
}

// LatencyStats contains percentile statistics for latencies
type LatencyStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min_ms"`
	Max    float64 `json:"max_ms"`
	Mean   float64 `json:"mean_ms"`
	P50    float64 `json:"p50_ms"`
	P95    float64 `json:"p95_ms"`
	P99    float64 `json:"p99_ms"`
	StdDev float64 `json:"stddev_ms"`
}

// GetLatencyStats computes statistics over the retained commit latencies.
func (m *Metrics) GetLatencyStats() LatencyStats {
	m.mu.Lock()
	latencies := make([]time.Duration, len(m.commandLatencies))
	copy(latencies, m.commandLatencies)
	m.mu.Unlock()

	if len(latencies) == 0 {
		return LatencyStats{}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	ms := make([]float64, len(latencies))
	var sum float64
	for i, lat := range latencies {
		ms[i] = float64(lat.Microseconds()) / 1000.0
		sum += ms[i]
	}
	mean := sum / float64(len(ms))

	var variance float64
	for _, v := range ms {
		variance += (v - mean) * (v - mean)
	}

	return LatencyStats{
		Count:  len(ms),
		Min:    ms[0],
		Max:    ms[len(ms)-1],
		Mean:   mean,
		P50:    percentile(ms, 50),
		P95:    percentile(ms, 95),
		P99:    percentile(ms, 99),
		StdDev: math.Sqrt(variance / float64(len(ms))),
	}
}

// percentile calculates the nth percentile from sorted data
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	// Linear interpolation
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Snapshot is the JSON document served on /metrics.
type Snapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`

	AppendEntriesCount uint64 `json:"append_entries_count"`
	RequestVoteCount   uint64 `json:"request_vote_count"`
	HeartbeatCount     uint64 `json:"heartbeat_count"`

	ElectionCount uint64 `json:"election_count"`
	ElectionsWon  uint64 `json:"elections_won"`

	CommandsCommitted    uint64       `json:"commands_committed"`
	CommandsNotCommitted uint64       `json:"commands_not_committed"`
	CommandLatency       LatencyStats `json:"command_latency"`
}

// Snapshot returns the current values of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		UptimeSeconds:        time.Since(m.startTime).Seconds(),
		AppendEntriesCount:   m.appendEntriesCount.Load(),
		RequestVoteCount:     m.requestVoteCount.Load(),
		HeartbeatCount:       m.heartbeatCount.Load(),
		ElectionCount:        m.electionCount.Load(),
		ElectionsWon:         m.electionsWon.Load(),
		CommandsCommitted:    m.commandsCommitted.Load(),
		CommandsNotCommitted: m.commandsNotCommitted.Load(),
		CommandLatency:       m.GetLatencyStats(),
	}
}
