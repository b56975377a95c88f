package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/cadastre/cache"
	"github.com/use-agent/cadastre/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Pinger checks the record store; nil means persistence is disabled.
type Pinger interface {
	Ping() error
}

// Health returns a handler for GET /api/v1/health. Status degrades when the
// store stops answering.
func Health(db Pinger, cc *cache.Cache, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: Version,
			Store:   "disabled",
		}
		if cc != nil {
			resp.CacheEntries = cc.Len()
		}
		if db != nil {
			resp.Store = "ok"
			if err := db.Ping(); err != nil {
				resp.Store = "error"
				resp.Status = "degraded"
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
