// Package httpadapter serves the dashboard's JSON API alongside health,
// readiness, and metrics endpoints.
package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/health-risk-dashboard/internal/auth"
	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
	"github.com/couchcryptid/health-risk-dashboard/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DatasetService is the data layer behind the API. pipeline.Service implements it.
type DatasetService interface {
	Records(ctx context.Context, kind domain.Kind) (any, error)
	Summary(ctx context.Context, filter domain.SummaryFilter) (domain.Summary, error)
	Replace(ctx context.Context, kind domain.Kind, data []byte) (domain.DatasetEvent, error)
}

// Options wires the server's collaborators. Auth and Events are optional:
// admin routes answer 503 without Auth, and /api/events is not mounted
// without Events.
type Options struct {
	Addr           string
	Service        DatasetService
	Ready          sharedobs.ReadinessChecker
	Auth           *auth.Authenticator
	Events         http.Handler
	UploadMaxBytes int64
	Metrics        *observability.Metrics
}

// Server exposes the dashboard API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	service    DatasetService
	auth       *auth.Authenticator
	maxUpload  int64
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with every dashboard route registered.
func NewServer(opts Options, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		service:   opts.Service,
		auth:      opts.Auth,
		maxUpload: opts.UploadMaxBytes,
		metrics:   opts.Metrics,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(opts.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/data", s.handleData)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("POST /api/admin/login", s.handleLogin)
	mux.Handle("GET /api/admin/session", s.adminOnly(http.HandlerFunc(s.handleSession)))
	mux.Handle("POST /api/admin/datasets/{kind}", s.adminOnly(http.HandlerFunc(s.handleUpload)))

	if opts.Events != nil {
		mux.Handle("GET /api/events", opts.Events)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// adminOnly answers 503 when no admin credential is configured and otherwise
// requires a valid bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	if s.auth == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusServiceUnavailable, "admin is not configured")
		})
	}
	return s.auth.RequireAdmin(next)
}
