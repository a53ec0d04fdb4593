package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServerState_Initial(t *testing.T) {
	now := time.Unix(10, 0)
	s := newServerState(now)

	assert.Equal(t, Follower, s.getState())
	assert.Equal(t, uint64(0), s.getCurrentTerm())
	assert.Equal(t, int64(-1), s.getCommitIndex())
	assert.Nil(t, s.votedFor)
	assert.Nil(t, s.leaderID)
	assert.Equal(t, now, s.lastHeartbeat)
}

func TestServerState_AdoptTerm(t *testing.T) {
	s := newServerState(time.Now())
	leader := ServerID("n1")
	s.state = Candidate
	s.currentTerm = 2
	s.votedFor = &leader
	s.leaderID = &leader
	s.votesReceived = 2
	s.voters = map[ServerAddress]struct{}{"p1": {}}
	s.commitIndex = 3

	s.mu.Lock()
	s.adoptTermLocked(5)
	s.mu.Unlock()

	assert.Equal(t, Follower, s.getState())
	assert.Equal(t, uint64(5), s.getCurrentTerm())
	assert.Nil(t, s.votedFor)
	assert.Nil(t, s.leaderID)
	assert.Zero(t, s.votesReceived)
	assert.Nil(t, s.voters)
	assert.Equal(t, int64(3), s.getCommitIndex(), "commit index is not touched by a term change")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Follower", Follower.String())
	assert.Equal(t, "Candidate", Candidate.String())
	assert.Equal(t, "Leader", Leader.String())
	assert.Equal(t, "Unknown", State(42).String())
}
