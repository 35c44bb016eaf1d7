// Package httpserver exposes the dashboard API over HTTP.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radiusdt/adintelli/internal/analytics"
	"github.com/radiusdt/adintelli/internal/assistant"
	"github.com/radiusdt/adintelli/internal/config"
	"github.com/radiusdt/adintelli/internal/integrations"
	"github.com/radiusdt/adintelli/internal/metrics"
	"github.com/radiusdt/adintelli/internal/middleware"
	"github.com/radiusdt/adintelli/internal/refresh"
	"github.com/radiusdt/adintelli/internal/storage"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Source       storage.RecordSource
	Refresher    *refresh.Refresher
	Integrations *integrations.Service
	Assistant    *assistant.Assistant
	Projection   *analytics.ProjectionModel
}

// Server wraps the router and the services behind it.
type Server struct {
	router       chi.Router
	source       storage.RecordSource
	refresher    *refresh.Refresher
	integrations *integrations.Service
	assistant    *assistant.Assistant
	projection   *analytics.ProjectionModel
	rateLimiter  *middleware.RateLimitMiddleware
	logger       *zap.Logger
	config       *config.Config
	metrics      *metrics.Metrics
}

// NewServer constructs the server with all routes registered.
func NewServer(deps *Dependencies) *Server {
	projection := deps.Projection
	if projection == nil {
		projection = analytics.NewProjectionModel(deps.Config.Projection)
	}
	asst := deps.Assistant
	if asst == nil {
		asst = assistant.New(deps.Refresher, projection, deps.Integrations, deps.Logger)
	}

	s := &Server{
		router:       chi.NewRouter(),
		source:       deps.Source,
		refresher:    deps.Refresher,
		integrations: deps.Integrations,
		assistant:    asst,
		projection:   projection,
		rateLimiter:  middleware.NewRateLimitMiddleware(deps.Config.RateLimit, deps.Logger, deps.Metrics, deps.Config.Metrics.Path),
		logger:       deps.Logger,
		config:       deps.Config,
		metrics:      deps.Metrics,
	}

	r := s.router
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger).Handler)
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics, deps.Config.Metrics.Path).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(s.rateLimiter.Handler)

	// Health check
	r.Get("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		r.Handle(deps.Config.Metrics.Path, deps.Metrics.Handler())
	}

	// Dashboard
	r.Get("/getAllCampaigns", s.handleAllCampaigns)
	r.Get("/getWeeklyTrends", s.handleWeeklyTrends)
	r.Get("/getDeviceDemographics", s.handleDeviceDemographics)
	r.Get("/getKpiData", s.handleKPIData)
	r.Get("/getCampaignPerformance", s.handleCampaignPerformance)
	r.Get("/getROI", s.handleROI)
	r.Get("/getCTR", s.handleCTR)
	r.Get("/getConversions", s.handleConversions)
	r.Get("/getCampaignScore", s.handleCampaignScore)
	r.Get("/getPlatformData", s.handlePlatformData)
	r.Get("/getPredictiveInsights", s.handlePredictiveInsights)
	r.Get("/realTime", s.handleRealTime)

	// Insights and planning
	r.Get("/insights", s.handleInsights)
	r.Get("/projection", s.handleProjection)
	r.Post("/predict", s.handlePredict)

	// Assistant
	r.Post("/chat", s.handleChat)
	r.Post("/api/conversation", s.handleChat)

	// Ingestion
	r.Post("/records", s.handleInsertRecord)

	// Ad platform integrations
	if s.integrations != nil {
		r.Route("/integrations", func(r chi.Router) {
			r.Get("/", s.handleListIntegrations)
			r.Post("/{platform}/start", s.handleStartIntegration)
			r.Get("/{platform}/callback", s.handleIntegrationCallback)
			r.Get("/{platform}/status", s.handleIntegrationStatus)
			r.Post("/{platform}/disconnect", s.handleDisconnectIntegration)
		})
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RunMaintenance drops idle rate limiters until ctx is done.
func (s *Server) RunMaintenance(ctx context.Context) {
	s.rateLimiter.RunCleanup(ctx, 5*time.Minute)
}

// ---- Health Check ----

type healthResponse struct {
	Status       string     `json:"status"`
	LastRefresh  *time.Time `json:"last_refresh,omitempty"`
	RefreshError string     `json:"refresh_error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.refresher != nil {
		snap := s.refresher.Snapshot()
		if snap.Loaded() {
			at := snap.RefreshedAt.UTC()
			resp.LastRefresh = &at
		}
		if snap.Err != "" {
			resp.Status = "degraded"
			resp.RefreshError = snap.Err
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
