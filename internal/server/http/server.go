// Package httpserver provides the HTTP API of the citation lookup service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/citation-lookup-service/internal/domain"
)

// Lookuper runs the citation lookup pipeline.
type Lookuper interface {
	FindPaperCitations(ctx context.Context, query domain.PaperQuery) (*domain.LookupResult, error)
}

// ReadinessChecker reports the artifact sinks and checks their backing stores.
type ReadinessChecker interface {
	Names() []string
	Check(ctx context.Context) map[string]error
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	lookups    Lookuper
	readiness  ReadinessChecker
	validate   *validator.Validate
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates the HTTP server. readiness may be nil when no sinks are checked.
func NewServer(cfg Config, lookups Lookuper, readiness ReadinessChecker, logger zerolog.Logger) *Server {
	s := &Server{
		lookups:   lookups,
		readiness: readiness,
		validate:  validator.New(),
		logger:    logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(accessLogMiddleware(s.logger))
	r.Use(allowAnyOriginMiddleware)
	r.Use(cors.Handler(corsOptions))
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	r.Get("/findPaperCitations", s.findPaperCitations)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler reports liveness. It never touches dependencies.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type readinessResponse struct {
	Status   string            `json:"status"`
	Sinks    []string          `json:"sinks"`
	Failures map[string]string `json:"failures,omitempty"`
}

// readinessHandler reports the configured artifact sinks and whether their stores respond.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	resp := readinessResponse{Status: "ready", Sinks: []string{}}
	if s.readiness == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Sinks = s.readiness.Names()
	failures := s.readiness.Check(r.Context())
	if len(failures) == 0 {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Status = "not_ready"
	resp.Failures = make(map[string]string, len(failures))
	for name, err := range failures {
		resp.Failures[name] = err.Error()
	}
	writeJSON(w, http.StatusServiceUnavailable, resp)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
