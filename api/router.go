package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/purify/api/handler"
	"github.com/use-agent/purify/api/middleware"
	"github.com/use-agent/purify/browser"
	"github.com/use-agent/purify/config"
	"github.com/use-agent/purify/orchestrator"
	"github.com/use-agent/purify/search"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global: Recovery → RequestID → Logger
//	API:    Auth (if enabled) → RateLimit
//
// Health is intentionally outside auth so monitoring probes always work.
func NewRouter(o *orchestrator.Orchestrator, sp *search.Provider, pool *browser.Pool, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	if !cfg.Server.TrustProxy {
		_ = r.SetTrustedProxies([]string{})
	}

	r.GET("/health", handler.Health(pool, startTime))

	protected := r.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(o))
	protected.POST("/search", handler.Search(sp, o))

	return r
}
