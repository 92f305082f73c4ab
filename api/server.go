// Package api provides the HTTP server for consensus.
//
// It serves the HTML dashboard at / and a JSON API under /api/v1 for
// triggering runs and reading the consensus table, the run report, the
// CSV export, and the SVG chart.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/singleflight"

	"github.com/jantolip/consensus/internal/config"
	"github.com/jantolip/consensus/internal/news"
	"github.com/jantolip/consensus/internal/pipeline"
	"github.com/jantolip/consensus/internal/report"
	"github.com/jantolip/consensus/pkg/models"
)

// Server is the HTTP server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	src     pipeline.Source
	news    *news.Fetcher
	version string

	// Result cache. Refreshes are collapsed through the singleflight
	// group so concurrent requests trigger at most one pipeline run.
	sf       singleflight.Group
	mu       sync.RWMutex
	last     *models.ConsensusResult
	lastAt   time.Time
	cacheTTL time.Duration
}

// NewServer creates a configured server with all routes and middleware.
func NewServer(cfg *config.Config, src pipeline.Source, version string) *Server {
	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	srv := &Server{
		cfg:      cfg,
		src:      src,
		version:  version,
		cacheTTL: ttl,
	}
	if cfg.News.Enabled {
		srv.news = news.NewFetcher()
	}

	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// Dashboard (server-rendered HTML)
	r.Get("/", s.handleDashboard)
	r.Post("/refresh", s.handleDashboardRefresh)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Runs
		r.Post("/refresh", s.handleRefresh)

		// Consensus result
		r.Get("/consensus", s.handleConsensus)
		r.Get("/consensus.csv", s.handleConsensusCSV)
		r.Get("/consensus/chart.svg", s.handleConsensusChart)
		r.Get("/funds", s.handleFunds)
		r.Get("/report", s.handleReport)

		// News panel
		r.Get("/news", s.handleNews)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleUpdateConfig)
	})

	return r
}

// ════════════════════════════════════════════════════════════════════
// Result cache
// ════════════════════════════════════════════════════════════════════

// cached returns the last result without triggering a run. The second
// return is false when no run has happened yet.
func (s *Server) cached() (*models.ConsensusResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last != nil
}

// refresh runs the pipeline unless a fresh cached result exists.
// Concurrent callers share a single run via singleflight. With force
// set the cache TTL is ignored.
func (s *Server) refresh(ctx context.Context, force bool) (*models.ConsensusResult, error) {
	if !force {
		s.mu.RLock()
		fresh := s.last != nil && time.Since(s.lastAt) < s.cacheTTL
		last := s.last
		s.mu.RUnlock()
		if fresh {
			return last, nil
		}
	}

	v, err, _ := s.sf.Do("refresh", func() (any, error) {
		runner := pipeline.NewRunner(s.src, pipeline.OptionsFromConfig(s.cfg))
		result, err := runner.Run(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.last = result
		s.lastAt = time.Now()
		s.mu.Unlock()
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ConsensusResult), nil
}

// ════════════════════════════════════════════════════════════════════
// Response types
// ════════════════════════════════════════════════════════════════════

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ConsensusResponse is returned by GET /api/v1/consensus.
type ConsensusResponse struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Metrics     models.Metrics      `json:"metrics"`
	Tally       []models.TallyEntry `json:"tally"`
	NoData      bool                `json:"no_data"`
}

// ════════════════════════════════════════════════════════════════════
// Handlers
// ════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	hasResult := s.last != nil
	lastAt := s.lastAt
	s.mu.RUnlock()

	data := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
	}
	if hasResult {
		data["last_run"] = lastAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// handleDashboard renders the HTML dashboard from the cached result.
// It never triggers a run — the refresh button does that.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	result, _ := s.cached()

	var headlines []models.NewsArticle
	if s.news != nil {
		headlines, _ = s.news.Headlines(r.Context(), s.cfg.News.Limit)
	}

	html, err := report.RenderDashboard(result, headlines, s.version)
	if err != nil {
		http.Error(w, fmt.Sprintf("render dashboard: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html)) //nolint:errcheck
}

// handleDashboardRefresh handles the dashboard's form POST: run the
// pipeline, then redirect back to the dashboard.
func (s *Server) handleDashboardRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.refresh(r.Context(), false); err != nil {
		http.Error(w, fmt.Sprintf("refresh failed: %v", err), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleRefresh triggers a pipeline run and returns the run report.
// Pass ?force=true to bypass the result cache.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	result, err := s.refresh(r.Context(), force)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result.Report})
}

func (s *Server) handleConsensus(w http.ResponseWriter, r *http.Request) {
	result, ok := s.cached()
	if !ok {
		writeError(w, http.StatusNotFound, "no run yet; POST /api/v1/refresh first")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConsensusResponse{
			GeneratedAt: result.GeneratedAt,
			Metrics:     report.BuildMetrics(result.Tally),
			Tally:       result.Tally,
			NoData:      result.Empty(),
		},
	})
}

func (s *Server) handleConsensusCSV(w http.ResponseWriter, r *http.Request) {
	result, ok := s.cached()
	if !ok {
		writeError(w, http.StatusNotFound, "no run yet; POST /api/v1/refresh first")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.CSVFilename))
	if err := report.WriteCSV(w, result.Tally); err != nil {
		log.Printf("failed to write CSV response: %v", err)
	}
}

func (s *Server) handleConsensusChart(w http.ResponseWriter, r *http.Request) {
	result, ok := s.cached()
	if !ok {
		writeError(w, http.StatusNotFound, "no run yet; POST /api/v1/refresh first")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(report.BarChart(result.Tally, report.DefaultChartConfig()))) //nolint:errcheck
}

func (s *Server) handleFunds(w http.ResponseWriter, r *http.Request) {
	result, ok := s.cached()
	if !ok {
		writeError(w, http.StatusNotFound, "no run yet; POST /api/v1/refresh first")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result.Funds})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	result, ok := s.cached()
	if !ok {
		writeError(w, http.StatusNotFound, "no run yet; POST /api/v1/refresh first")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result.Report})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.news == nil {
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: []models.NewsArticle{}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	headlines, err := s.news.Headlines(ctx, s.cfg.News.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: headlines})
}
