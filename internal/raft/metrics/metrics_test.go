package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	assert.NotNil(t, m)
	assert.NotNil(t, m.commandLatencies)
	assert.False(t, m.startTime.IsZero())
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordAppendEntries()
	m.RecordRequestVote()
	m.RecordRequestVote()
	m.RecordHeartbeat()
	m.RecordHeartbeat()
	m.RecordHeartbeat()
	m.RecordElection()
	m.RecordElectionWon()
	m.RecordCommandNotCommitted()
	m.RecordCommandCommitted(10 * time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.AppendEntriesCount)
	assert.Equal(t, uint64(2), snap.RequestVoteCount)
	assert.Equal(t, uint64(3), snap.HeartbeatCount)
	assert.Equal(t, uint64(1), snap.ElectionCount)
	assert.Equal(t, uint64(1), snap.ElectionsWon)
	assert.Equal(t, uint64(1), snap.CommandsCommitted)
	assert.Equal(t, uint64(1), snap.CommandsNotCommitted)
	assert.Equal(t, 1, snap.CommandLatency.Count)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestMetrics_GetLatencyStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		m := NewMetrics()
		assert.Equal(t, LatencyStats{}, m.GetLatencyStats())
	})

	t.Run("computes statistics", func(t *testing.T) {
		m := NewMetrics()
		for _, ms := range []int{40, 10, 30, 20, 50} {
			m.RecordCommandCommitted(time.Duration(ms) * time.Millisecond)
		}

		stats := m.GetLatencyStats()
		assert.Equal(t, 5, stats.Count)
		assert.InDelta(t, 10.0, stats.Min, 0.001)
		assert.InDelta(t, 50.0, stats.Max, 0.001)
		assert.InDelta(t, 30.0, stats.Mean, 0.001)
		assert.InDelta(t, 30.0, stats.P50, 0.001)
		assert.InDelta(t, 14.142, stats.StdDev, 0.001)
	})
}

func TestMetrics_LatencyRingBuffer(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < maxLatencySamples+5; i++ {
		m.RecordCommandCommitted(time.Millisecond)
	}

	m.mu.Lock()
	assert.Len(t, m.commandLatencies, maxLatencySamples)
	assert.Equal(t, 5, m.next)
	m.mu.Unlock()
	assert.Equal(t, uint64(maxLatencySamples+5), m.Snapshot().CommandsCommitted)
}

func TestPercentile(t *testing.T) {
	assert.Equal(t, 0.0, percentile(nil, 50))
	assert.Equal(t, 5.0, percentile([]float64{5}, 99))
	assert.InDelta(t, 1.5, percentile([]float64{1, 2}, 50), 0.001)
}

func TestMetrics_ConcurrentAccess(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordHeartbeat()
				m.RecordCommandCommitted(time.Millisecond)
				_ = m.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(1000), m.Snapshot().HeartbeatCount)
	assert.Equal(t, uint64(1000), m.Snapshot().CommandsCommitted)
}
