package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"google.golang.org/protobuf/types/known/structpb"

	"raft-coordinator/internal/httpapi/respond"
	"raft-coordinator/internal/raft"
	"raft-coordinator/internal/raft/metrics"
	"raft-coordinator/internal/raft/server"
	"raft-coordinator/internal/raft/transporthttp"
)

// Node is the part of a server.Server the HTTP API needs.
type Node interface {
	server.RaftServiceServer
	ClientCommand(ctx context.Context, command *structpb.Value) (raft.CommandStatus, error)
	Status() server.Status
}

// API serves the client and observability endpoints of one node, plus the peer RPC endpoints used by the HTTP
// transport.
type API struct {
	node    Node
	metrics *metrics.Metrics
}

// New creates the API. m may be nil, in which case /metrics answers 404.
func New(node Node, m *metrics.Metrics) *API {
	return &API{node: node, metrics: m}
}

// Handler returns the router with all routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/healthz", a.Healthz)
	r.Get("/status", a.Status)
	r.Get("/metrics", a.Metrics)
	r.Post("/client_command", a.ClientCommand)
	transporthttp.Register(r, a.node)
	return r
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, a.node.Status())
}

func (a *API) Metrics(w http.ResponseWriter, r *http.Request) {
	if a.metrics == nil {
		respond.Error(w, http.StatusNotFound, "metrics disabled")
		return
	}
	respond.JSON(w, http.StatusOK, a.metrics.Snapshot())
}

type notLeaderBody struct {
	Error    string  `json:"error"`
	LeaderID *string `json:"leaderId"`
}

func (a *API) ClientCommand(w http.ResponseWriter, r *http.Request) {
	var req raft.ClientCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		msg := "invalid JSON"
		if errors.Is(err, raft.ErrMalformedRequest) {
			msg = err.Error()
		}
		respond.Error(w, http.StatusBadRequest, msg)
		return
	}

	status, err := a.node.ClientCommand(r.Context(), req.Command)
	var notLeader *raft.NotLeaderError
	switch {
	case errors.As(err, &notLeader):
		body := notLeaderBody{Error: "not leader"}
		if notLeader.LeaderID != "" {
			body.LeaderID = &notLeader.LeaderID
		}
		respond.JSON(w, http.StatusForbidden, body)
	case err != nil:
		respond.Error(w, http.StatusInternalServerError, err.Error())
	default:
		respond.JSON(w, http.StatusOK, raft.ClientCommandResponse{Status: status})
	}
}
