package mocks

import (
	"sync"
	"time"
)

// MockMetricsCollector is a mock implementation of server.MetricsCollector for testing
type MockMetricsCollector struct {
	mu                        sync.RWMutex
	CommandLatencies          []time.Duration
	CommandsCommittedCount    int
	CommandsNotCommittedCount int
	AppendEntriesCount        int
	RequestVoteCount          int
	HeartbeatCount            int
	ElectionCount             int
	ElectionsWonCount         int
}

// NewMockMetricsCollector creates a new mock metrics collector
func NewMockMetricsCollector() *MockMetricsCollector {
	return &MockMetricsCollector{
		CommandLatencies: make([]time.Duration, 0),
	}
}

func (m *MockMetricsCollector) RecordCommandCommitted(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommandsCommittedCount++
	m.CommandLatencies = append(m.CommandLatencies, latency)
}

func (m *MockMetricsCollector) RecordCommandNotCommitted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommandsNotCommittedCount++
}

func (m *MockMetricsCollector) RecordAppendEntries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendEntriesCount++
}

func (m *MockMetricsCollector) RecordRequestVote() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestVoteCount++
}

func (m *MockMetricsCollector) RecordHeartbeat() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HeartbeatCount++
}

func (m *MockMetricsCollector) RecordElection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ElectionCount++
}

func (m *MockMetricsCollector) RecordElectionWon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ElectionsWonCount++
}

// Counts returns a consistent copy of the counters.
func (m *MockMetricsCollector) Counts() MockMetricsCollector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MockMetricsCollector{
		CommandLatencies:          append([]time.Duration(nil), m.CommandLatencies...),
		CommandsCommittedCount:    m.CommandsCommittedCount,
		CommandsNotCommittedCount: m.CommandsNotCommittedCount,
		AppendEntriesCount:        m.AppendEntriesCount,
		RequestVoteCount:          m.RequestVoteCount,
		HeartbeatCount:            m.HeartbeatCount,
		ElectionCount:             m.ElectionCount,
		ElectionsWonCount:         m.ElectionsWonCount,
	}
}
