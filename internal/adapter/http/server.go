package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
	"github.com/couchcryptid/alarm-dashboard-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dashboard is the pipeline surface the API serves.
type Dashboard interface {
	sharedobs.ReadinessChecker

	Status() (pipeline.Status, error)
	Selection() domain.Selection
	Current() (pipeline.Summary, error)
	Query(ctx context.Context, sel domain.Selection) (pipeline.Summary, error)

	SetMonth(ctx context.Context, month int) (pipeline.Summary, error)
	SetDistrict(ctx context.Context, district string) (pipeline.Summary, error)
	ResetDistrict(ctx context.Context) (pipeline.Summary, error)
	SetSelection(ctx context.Context, sel domain.Selection) (pipeline.Summary, error)
}

// Server exposes health, readiness, metrics, and the dashboard API.
type Server struct {
	httpServer *http.Server
	dashboard  Dashboard
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and /api routes.
func NewServer(addr string, dashboard Dashboard, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dashboard: dashboard,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(dashboard))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("PUT /api/selection", s.handleSetSelection)
	mux.HandleFunc("DELETE /api/selection/district", s.handleResetDistrict)
	mux.HandleFunc("GET /api/export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("GET /api/export.pdf", s.handleExportPDF)

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
