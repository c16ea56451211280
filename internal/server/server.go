// Package server exposes the query pipeline over HTTP. A single endpoint,
// POST /query, accepts {"query": string} and returns {"query": string,
// "answer": string}.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/config"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/query"
)

// maxRequestBody bounds the /query request body size.
const maxRequestBody = 1 << 20

// errorResponse is the JSON body returned on request failure.
type errorResponse struct {
	Error string `json:"error"`
}

// Answerer is the query pipeline the server delegates to.
type Answerer interface {
	Answer(ctx context.Context, text string) (*model.QueryResponse, error)
}

// Server is the public query API server.
type Server struct {
	httpServer *http.Server
	answerer   Answerer
	logger     *slog.Logger
}

// New creates the query API server.
func New(cfg config.ServerConfig, answerer Answerer, logger *slog.Logger) (*Server, error) {
	if answerer == nil {
		return nil, fmt.Errorf("server: answerer must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("server: logger must not be nil")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("server: port %d out of valid range [1, 65535]", cfg.Port)
	}

	s := &Server{
		answerer: answerer,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		// Write timeout covers the full pipeline, completion call included.
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// handleQuery serves POST /query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed, use POST")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body failed")
		return
	}

	var req model.QueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a \"query\" field")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	s.logger.Info("query received", "length", len(req.Query))

	resp, err := s.answerer.Answer(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("writing response failed", "error", err)
	}
}

// ListenAndServe starts the query API server. It blocks until the server is
// shut down or encounters an unrecoverable error. Returns
// http.ErrServerClosed on clean shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("query API server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Serve starts the server on the given listener. Useful for testing where
// the port is dynamically assigned.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("query API server starting", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete or until the context is cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("query API server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the server's HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// compile-time check that the pipeline handler satisfies Answerer.
var _ Answerer = (*query.Handler)(nil)
