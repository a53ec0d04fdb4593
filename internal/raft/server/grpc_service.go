package server

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"raft-coordinator/internal/raft"
)

// The peer RPCs are described by hand rather than generated from a .proto file: the messages are the JSON shapes of
// the raft package, carried by a codec registered under the "json" content-subtype.

const (
	jsonCodecName       = "json"
	raftServiceName     = "raft.RaftService"
	requestVoteMethod   = "/" + raftServiceName + "/RequestVote"
	appendEntriesMethod = "/" + raftServiceName + "/AppendEntries"
)

// jsonCodec implements encoding.Codec with encoding/json, so request validation in the raft package applies to gRPC
// traffic too.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// RaftServiceServer is the server API of the peer RPCs. *Server implements it.
type RaftServiceServer interface {
	RequestVote(context.Context, *raft.RequestVoteRequest) (*raft.RequestVoteResponse, error)
	AppendEntries(context.Context, *raft.AppendEntriesRequest) (*raft.AppendEntriesResponse, error)
}

// RegisterRaftServiceServer registers srv on a gRPC server.
func RegisterRaftServiceServer(s grpc.ServiceRegistrar, srv RaftServiceServer) {
	s.RegisterService(&raftServiceDesc, srv)
}

var raftServiceDesc = grpc.ServiceDesc{
	ServiceName: raftServiceName,
	HandlerType: (*RaftServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestVote", Handler: requestVoteHandler},
		{MethodName: "AppendEntries", Handler: appendEntriesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "raft_service",
}

func requestVoteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(raft.RequestVoteRequest)
	if err := dec(in); err != nil {
		// Decoding fails only on malformed payloads.
		return nil, status.Error(codes.InvalidArgument, status.Convert(err).Message())
	}
	if interceptor == nil {
		return srv.(RaftServiceServer).RequestVote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: requestVoteMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RaftServiceServer).RequestVote(ctx, req.(*raft.RequestVoteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func appendEntriesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(raft.AppendEntriesRequest)
	if err := dec(in); err != nil {
		return nil, status.Error(codes.InvalidArgument, status.Convert(err).Message())
	}
	if interceptor == nil {
		return srv.(RaftServiceServer).AppendEntries(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: appendEntriesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RaftServiceServer).AppendEntries(ctx, req.(*raft.AppendEntriesRequest))
	}
	return interceptor(ctx, in, info, handler)
}
