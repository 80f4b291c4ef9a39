// Package httpapi exposes the ask endpoint over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"agent-swarm/internal/domain"
	"agent-swarm/internal/infra/config"
	"agent-swarm/internal/infra/middleware"
)

const maxRequestBody = 64 * 1024

// Asker answers one user request. Implemented by the orchestrator.
type Asker interface {
	Process(ctx context.Context, req domain.Request) domain.Outcome
}

// Server is the inbound HTTP server.
type Server struct {
	asker  Asker
	logger *slog.Logger
	http   *http.Server
}

// New builds the server with security headers and per-IP rate limiting.
// ctx bounds the rate limiter's cleanup goroutine.
func New(ctx context.Context, cfg config.ServerConfig, asker Asker, logger *slog.Logger) *Server {
	s := &Server{asker: asker, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	var handler http.Handler = mux
	if cfg.RequestsPerMin > 0 {
		handler = middleware.RateLimit(ctx, cfg.RequestsPerMin, cfg.Burst)(handler)
	}
	handler = middleware.SecurityHeaders(handler)

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the configured handler chain for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

type askErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req domain.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, askErrorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeJSON(w, http.StatusBadRequest, askErrorResponse{Error: "message must not be empty"})
		return
	}

	outcome := s.asker.Process(r.Context(), req)
	if outcome.Err != "" {
		s.writeJSON(w, http.StatusBadGateway, askErrorResponse{Error: outcome.Err})
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response failed", "error", err)
	}
}
