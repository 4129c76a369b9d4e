// Package api exposes the scraper over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anna-farino/RiskAi-sub010/api/handler"
	"github.com/anna-farino/RiskAi-sub010/api/middleware"
	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/models"
)

// Options carry the runtime pieces the router needs besides config.
type Options struct {
	// PoolStats reports browser pool usage for the health endpoint.
	PoolStats func() models.PoolStats
	// Uptime reports how long the service has been running.
	Uptime func() time.Duration
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health is outside auth so monitoring probes always work. The returned
// Batches must be waited on during shutdown.
func NewRouter(ctx context.Context, svc handler.Service, cfg *config.Config, opts Options) (*gin.Engine, *handler.Batches) {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(opts.PoolStats, opts.Uptime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.POST("/discover", handler.Discover(svc, cfg.Discover.MaxLinks))
	protected.POST("/extract", handler.Extract(svc))

	batches := handler.NewBatches(ctx, svc, cfg.Server.BatchConcurrency, cfg.Telemetry.WebhookSecret)
	protected.POST("/batch/extract", batches.Post())
	protected.GET("/batch/:id", batches.Get())

	return r, batches
}
