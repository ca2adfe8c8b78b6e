// Package server exposes the answer pipeline over HTTP. The surface is
// a small chi router: POST /query for answers, POST /search for raw
// retrieval, and read-only operational endpoints (health, stats,
// languages, system, prometheus metrics).
//
// Question-level failures never surface as HTTP errors; the /query
// envelope stays 200 with localized fallback text and an error_type in
// its metadata. Non-2xx responses are reserved for transport problems:
// malformed JSON, unknown routes, oversized bodies.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/observability"
	"github.com/tamadze/tamada/pipeline"
)

// maxBodyBytes caps request bodies. Queries are at most 2000 runes, so
// anything near the limit is malformed or hostile.
const maxBodyBytes = 1 << 20

// Server serves the HTTP API for one answer pipeline.
type Server struct {
	cfg        config.ServerConfig
	pipe       *pipeline.Pipeline
	model      string
	collection string
	tracer     *observability.Tracer
	metrics    *observability.Metrics
	httpServer *http.Server
}

// New builds a server around an initialized pipeline. tracer and
// metrics may be nil; middleware and handlers treat them as no-ops.
func New(cfg *config.Config, pipe *pipeline.Pipeline, tracer *observability.Tracer, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:        cfg.Server,
		pipe:       pipe,
		model:      cfg.Generator.Model,
		collection: cfg.Qdrant.Collection,
		tracer:     tracer,
		metrics:    metrics,
	}
}

// Handler assembles the chi router. Exposed separately from Start so
// tests can drive it through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(observability.HTTPMiddleware(s.tracer, s.metrics))
	r.Use(corsMiddleware)

	r.Get("/", s.handleRoot)
	r.Post("/query", s.handleQuery)
	r.Post("/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/languages", s.handleLanguages)
	r.Get("/stats", s.handleStats)
	r.Get("/system", s.handleSystem)
	r.Post("/cache/clear", s.handleClearCache)
	r.Get("/cache/stats", s.handleCacheStats)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, http.StatusNotFound, "not found", fmt.Sprintf("no route for %s %s", req.Method, req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", fmt.Sprintf("%s is not allowed on %s", req.Method, req.URL.Path))
	})

	return r
}

// Start runs the HTTP server until it fails or Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Duration(s.cfg.ReadHeaderTimeout) * time.Second,
	}

	slog.Info("HTTP server listening", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg, detail string) {
	respondJSON(w, status, ErrorResponse{
		Error:     msg,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

// decodeJSON fills dst from the request body. dst may be pre-seeded
// with defaults; absent fields keep them.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}
