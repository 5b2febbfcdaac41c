package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"code-smarty/internal/config"
	"code-smarty/internal/monitor"
	"code-smarty/internal/pipeline"
	"code-smarty/internal/storage"
)

// Server is the main HTTP server for the analysis API.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
	cfg        *config.Config
	startTime  time.Time
}

// NewServer creates and configures the HTTP server with all routes and
// middleware. engineAvailable reports the sandbox capability for the
// health endpoint.
func NewServer(cfg *config.Config, orch *pipeline.Orchestrator, fetcher pipeline.Fetcher, engineAvailable func() bool, db *storage.DB, auditWriter *storage.AuditWriter, metrics *monitor.Metrics) *Server {
	handlers := NewHandlers(orch, fetcher, db, auditWriter, metrics)

	s := &Server{
		handlers:  handlers,
		cfg:       cfg,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", handlers.HandleAnalyze)
	mux.HandleFunc("POST /analyze_repo", handlers.HandleAnalyzeRepo)
	mux.HandleFunc("GET /analyses", handlers.HandleListAnalyses)
	mux.HandleFunc("GET /health", s.handleHealth(db, engineAvailable))
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	// Apply middleware chain (outermost first)
	var handler http.Handler = mux
	handler = MetricsMiddleware(metrics)(handler)
	handler = RateLimitMiddleware(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)(handler)
	handler = MaxBodyMiddleware(cfg.Server.MaxRequestBody)(handler)
	handler = CORSMiddleware(handler)
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins listening for requests.
func (s *Server) Start() error {
	log.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(db *storage.DB, engineAvailable func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbOK := db == nil || db.Healthy(r.Context())
		engineOK := engineAvailable == nil || engineAvailable()

		resp := HealthResponse{
			Status:   "ok",
			Engine:   engineOK,
			Database: dbOK,
			Uptime:   time.Since(s.startTime).Round(time.Second).String(),
		}

		// A missing engine degrades analyses but does not fail them, so
		// health stays 200 with the capability visible.
		if !engineOK || !dbOK {
			resp.Status = "degraded"
		}

		status := http.StatusOK
		if !dbOK {
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, resp)
	}
}
