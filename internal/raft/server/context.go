package server

import (
	"context"
	"strconv"

	"raft-coordinator/internal"
)

// Outbound RPCs carry the sender's identity and term in their context so transports can tag their log lines.
var (
	serverCurrTerm = internal.NewCtxKey[uint64]("currTerm")
	serverID       = internal.NewCtxKey[ServerID]("serverID")
)

func SetServerCurrTerm(ctx context.Context, currTerm uint64) context.Context {
	return internal.WithValue(ctx, serverCurrTerm, currTerm)
}

func GetServerCurrTerm(ctx context.Context) (uint64, bool) {
	return internal.Value(ctx, serverCurrTerm)
}

func SetServerID(ctx context.Context, id ServerID) context.Context {
	return internal.WithValue(ctx, serverID, id)
}

func GetServerID(ctx context.Context) (ServerID, bool) {
	return internal.Value(ctx, serverID)
}

// LogTag renders "[SERVER-id] [TERM-n]" from whatever ctx carries.
func LogTag(ctx context.Context) string {
	tag := ""
	if id, ok := GetServerID(ctx); ok {
		tag += "[SERVER-" + string(id) + "] "
	}
	if term, ok := GetServerCurrTerm(ctx); ok {
		tag += "[TERM-" + strconv.FormatUint(term, 10) + "] "
	}
	return tag
}
