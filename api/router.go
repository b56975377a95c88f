// Package api wires the HTTP routes of the cadastre service.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/cadastre/api/handler"
	"github.com/use-agent/cadastre/api/middleware"
	"github.com/use-agent/cadastre/cache"
	"github.com/use-agent/cadastre/config"
	"github.com/use-agent/cadastre/extract"
	"github.com/use-agent/cadastre/store"
	"github.com/use-agent/cadastre/webhook"
)

// Deps are the collaborators the routes are built from. Store and Cache
// may be nil.
type Deps struct {
	Config    *config.Config
	Upstream  handler.Upstream
	Store     *store.Store
	Cache     *cache.Cache
	Previewer *extract.Previewer
	Notifier  *webhook.Notifier
	Jobs      *handler.Jobs
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	year := cfg.Cadastral.DefaultYear
	harvestDeps := handler.HarvestDeps{
		Upstream:    d.Upstream,
		Config:      cfg.Harvest,
		DefaultYear: year,
	}
	var pinger handler.Pinger
	if d.Store != nil {
		pinger = d.Store
		harvestDeps.Saver = d.Store
	}
	if d.Previewer == nil {
		d.Previewer = extract.NewPreviewer()
	}
	if d.Notifier == nil {
		d.Notifier = webhook.NewNotifier(nil)
	}
	harvestDeps.Notifier = d.Notifier
	if d.Jobs == nil {
		d.Jobs = handler.NewJobs(24 * time.Hour)
	}
	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(pinger, d.Cache, d.StartTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/extract", handler.Extract(year))

	protected.GET("/property/:geocode", handler.Property(d.Upstream, d.Cache, cfg.Cache, year))
	protected.GET("/property/:geocode/fragments/:category", handler.Fragment(d.Upstream, d.Previewer, year))

	protected.GET("/counties", handler.Counties(d.Upstream))
	protected.GET("/counties/:id/subdivisions", handler.Subdivisions(d.Upstream))

	protected.POST("/harvest", handler.PostHarvest(d.Jobs, harvestDeps))
	protected.GET("/harvest/:id", handler.GetHarvest(d.Jobs))
	protected.GET("/harvest/:id/export", handler.ExportHarvest(d.Jobs))

	return r
}
