package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/cadastre/cache"
	"github.com/use-agent/cadastre/config"
	"github.com/use-agent/cadastre/extract"
	"github.com/use-agent/cadastre/flatten"
	"github.com/use-agent/cadastre/models"
)

// Property returns a handler for GET /api/v1/property/:geocode.
//
// Flow:
//  1. Bind the query and apply defaults.
//  2. Serve from cache when a young enough record exists.
//  3. Fetch every category fragment          (records fetch_ms)
//  4. Assemble the record                     (records extract_ms)
//  5. Cache, optionally flatten, respond.
//
// The record's initial mapping carries only the geocode, since no search
// listing is involved.
func Property(up Upstream, cc *cache.Cache, cacheCfg config.CacheConfig, defaultYear int) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		geocode := strings.TrimSpace(c.Param("geocode"))
		var q models.PropertyQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			invalidInput(c, err)
			return
		}
		if q.Year == 0 {
			q.Year = defaultYear
		}
		maxAge := time.Duration(q.MaxAgeMs) * time.Millisecond
		if q.MaxAgeMs == 0 {
			maxAge = cacheCfg.MaxAge
		}

		key := cache.Key(geocode, q.Year)
		if cc != nil {
			if rec, hit := cc.Get(key, maxAge); hit {
				respondRecord(c, rec, q.Flat, "hit", models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				})
				return
			}
		}

		fetchStart := time.Now()
		fragments, err := up.Fragments(c.Request.Context(), geocode, q.Year)
		fetchMs := time.Since(fetchStart).Milliseconds()
		if err != nil {
			respondPropertyError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
				FetchMs: fetchMs,
			})
			return
		}

		extractStart := time.Now()
		rec, err := extract.Record(models.Listing{Geocode: geocode}, q.Year, fragments)
		extractMs := time.Since(extractStart).Milliseconds()
		if err != nil {
			respondPropertyError(c, err, models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				FetchMs:   fetchMs,
				ExtractMs: extractMs,
			})
			return
		}

		status := ""
		if cc != nil {
			cc.Set(key, rec)
			status = "miss"
		}
		respondRecord(c, rec, q.Flat, status, models.TimingInfo{
			TotalMs:   time.Since(totalStart).Milliseconds(),
			FetchMs:   fetchMs,
			ExtractMs: extractMs,
		})
	}
}

func respondRecord(c *gin.Context, rec *models.PropertyRecord, flat bool, cacheStatus string, timing models.TimingInfo) {
	resp := models.PropertyResponse{
		Success:     true,
		Record:      rec,
		CacheStatus: cacheStatus,
		Timing:      timing,
	}
	if flat {
		row, err := flatten.Row(rec)
		if err != nil {
			respondPropertyError(c, err, timing)
			return
		}
		resp.Row = row
	}
	c.JSON(http.StatusOK, resp)
}

// Fragment returns a handler for
// GET /api/v1/property/:geocode/fragments/:category, previewing one raw
// fragment as HTML, Markdown or plain text.
func Fragment(up Upstream, pv *extract.Previewer, defaultYear int) gin.HandlerFunc {
	return func(c *gin.Context) {
		geocode := strings.TrimSpace(c.Param("geocode"))
		category, err := models.ParseCategory(c.Param("category"))
		if err != nil {
			invalidInput(c, err)
			return
		}
		var q models.FragmentQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			invalidInput(c, err)
			return
		}
		if q.Year == 0 {
			q.Year = defaultYear
		}
		if q.Format == "" {
			q.Format = "markdown"
		}

		fragment, err := up.Fragment(c.Request.Context(), category, geocode, q.Year)
		if err != nil {
			respondError(c, err)
			return
		}
		content, err := pv.Render(fragment, q.Format)
		if err != nil {
			respondError(c, models.NewAPIError(models.ErrCodeInternal, "render fragment", err))
			return
		}

		c.JSON(http.StatusOK, models.FragmentResponse{
			Geocode:  geocode,
			Year:     q.Year,
			Category: category,
			Format:   q.Format,
			Empty:    extract.IsEmptyFragment(fragment),
			Content:  content,
		})
	}
}
