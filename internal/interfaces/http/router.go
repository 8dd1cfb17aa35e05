// Package http wires the gin route tree and the HTTP server around it.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MolScore/internal/interfaces/http/handlers"
	"github.com/turtacn/MolScore/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and infrastructure the route tree
// needs.  Metrics is optional; when nil the /metrics endpoint is absent and
// requests are not counted.
type RouterConfig struct {
	ScoreHandler  *handlers.ScoreHandler
	ModelHandler  *handlers.ModelHandler
	HealthHandler *handlers.HealthHandler

	Logger  logging.Logger
	Metrics *prometheus.Metrics
}

// NewRouter builds the complete route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Metrics))

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.Liveness)
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/score", cfg.ScoreHandler.Score)
		v1.POST("/score/batch", cfg.ScoreHandler.ScoreBatch)
		v1.POST("/corpus", cfg.ModelHandler.AddCorpus)
		v1.GET("/models/:kind", cfg.ModelHandler.Info)
		v1.POST("/models/:kind/train", cfg.ModelHandler.Train)
	}

	return r
}
