package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerContext_CurrTerm(t *testing.T) {
	t.Run("sets and gets current term", func(t *testing.T) {
		ctx := SetServerCurrTerm(context.Background(), 42)

		term, ok := GetServerCurrTerm(ctx)
		assert.True(t, ok)
		assert.Equal(t, uint64(42), term)
	})

	t.Run("returns false for missing term", func(t *testing.T) {
		_, ok := GetServerCurrTerm(context.Background())
		assert.False(t, ok)
	})
}

func TestServerContext_ServerID(t *testing.T) {
	t.Run("sets and gets server ID", func(t *testing.T) {
		ctx := SetServerID(context.Background(), "server-123")

		id, ok := GetServerID(ctx)
		assert.True(t, ok)
		assert.Equal(t, ServerID("server-123"), id)
	})

	t.Run("returns false for missing ID", func(t *testing.T) {
		_, ok := GetServerID(context.Background())
		assert.False(t, ok)
	})
}

func TestLogTag(t *testing.T) {
	assert.Equal(t, "", LogTag(context.Background()))

	ctx := SetServerCurrTerm(SetServerID(context.Background(), "n1"), 7)
	assert.Equal(t, "[SERVER-n1] [TERM-7] ", LogTag(ctx))
}
