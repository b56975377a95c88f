package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/cadastre/models"
)

// Counties returns a handler for GET /api/v1/counties.
func Counties(up Upstream) gin.HandlerFunc {
	return func(c *gin.Context) {
		counties, err := up.Counties(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.CountiesResponse{Counties: counties})
	}
}

// Subdivisions returns a handler for GET /api/v1/counties/:id/subdivisions.
func Subdivisions(up Upstream) gin.HandlerFunc {
	return func(c *gin.Context) {
		countyID := c.Param("id")
		names, err := up.Subdivisions(c.Request.Context(), countyID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SubdivisionsResponse{CountyID: countyID, Subdivisions: names})
	}
}
