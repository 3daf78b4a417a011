package handler

import (
	"context"
	"encoding/json"

	"moderation-service/internal/filter_client"
	"moderation-service/internal/metrics"
	"moderation-service/internal/middleware"
	"moderation-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Upstream is the part of the primary classifier service the API exposes directly
type Upstream interface {
	Healthy(ctx context.Context) bool
	Generate(ctx context.Context, req filter_client.GenerateRequest) (json.RawMessage, error)
}

// Deps collects everything the handlers call into
type Deps struct {
	Moderator *service.Moderator
	Status    *service.StatusService
	Notifier  *service.Notifier
	Upstream  Upstream
	Auth      *middleware.Auth
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
}

// Handler handles HTTP requests
type Handler struct {
	moderator *service.Moderator
	status    *service.StatusService
	notifier  *service.Notifier
	upstream  Upstream
	auth      *middleware.Auth
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	logger    *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		moderator: deps.Moderator,
		status:    deps.Status,
		notifier:  deps.Notifier,
		upstream:  deps.Upstream,
		auth:      deps.Auth,
		metrics:   deps.Metrics,
		gatherer:  deps.Gatherer,
		logger:    deps.Logger,
	}
}

// NewRouter builds the engine with the shared middleware chain and all routes
func (h *Handler) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(h.logger, h.metrics),
		middleware.CORS(),
	)
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// Public
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	r.POST("/api/auth/demo", h.DemoLogin)

	api := r.Group("/api")
	api.Use(h.auth.Middleware())
	{
		// Moderation
		api.POST("/analyze", h.Analyze)
		api.POST("/analyze/batch", h.AnalyzeBatch)

		// Protection mode
		api.GET("/protection/status", h.GetStatus)
		api.POST("/protection/activate", h.Activate)
		api.POST("/protection/deactivate", h.Deactivate)
		api.POST("/protection/mode", h.SetMode)
		api.POST("/protection/reset", h.Reset)

		// Interception log
		api.GET("/logs", h.GetLogs)
		api.GET("/logs/stats", h.GetStats)
		api.GET("/logs/export/csv", h.ExportCSV)
		api.GET("/logs/export/json", h.ExportJSON)

		// Live status stream
		api.GET("/events", h.Events)

		// Primary service passthrough
		api.POST("/generate", h.Generate)
		api.GET("/health/classifier", h.ClassifierHealth)
	}
}
