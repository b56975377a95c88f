package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/cadastre/extract"
	"github.com/use-agent/cadastre/flatten"
	"github.com/use-agent/cadastre/models"
)

// Extract returns a handler for POST /api/v1/extract. It runs the
// extractors and the flattener over caller-supplied fragments without
// contacting the cadastral API.
func Extract(defaultYear int) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, err)
			return
		}
		if req.Year == 0 {
			req.Year = defaultYear
		}

		fragments := make(models.Fragments, len(req.Fragments))
		for name, html := range req.Fragments {
			category, err := models.ParseCategory(name)
			if err != nil {
				invalidInput(c, err)
				return
			}
			fragments[category] = html
		}

		initial := req.Initial
		initial.Geocode = req.Geocode
		rec, err := extract.Record(initial, req.Year, fragments)
		if err != nil {
			respondPropertyError(c, err, models.TimingInfo{TotalMs: time.Since(start).Milliseconds()})
			return
		}
		row, err := flatten.Row(rec)
		if err != nil {
			respondPropertyError(c, err, models.TimingInfo{TotalMs: time.Since(start).Milliseconds()})
			return
		}

		elapsed := time.Since(start).Milliseconds()
		c.JSON(http.StatusOK, models.PropertyResponse{
			Success: true,
			Record:  rec,
			Row:     row,
			Timing:  models.TimingInfo{TotalMs: elapsed, ExtractMs: elapsed},
		})
	}
}
