package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/cadastre/config"
	"github.com/use-agent/cadastre/flatten"
	"github.com/use-agent/cadastre/harvest"
	"github.com/use-agent/cadastre/models"
	"github.com/use-agent/cadastre/webhook"
)

// Job statuses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusPartial    = "partial"
	StatusFailed     = "failed"
)

// HarvestJob tracks one asynchronous harvest.
type HarvestJob struct {
	mu sync.Mutex

	ID        string
	Status    string
	Request   models.HarvestRequest
	Year      int
	Done      int // properties finished, successfully or not
	Reports   []*harvest.Report
	Errors    []string
	CreatedAt time.Time
}

// HarvestStatusResponse is the response for GET /api/v1/harvest/:id.
type HarvestStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	CountyID  string            `json:"county_id"`
	Year      int               `json:"year"`
	Done      int               `json:"done"`
	Records   int               `json:"records"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Reports   []*harvest.Report `json:"reports,omitempty"`
	Errors    []string          `json:"errors,omitempty"`
	CreatedAt int64             `json:"created_at"`
}

func (j *HarvestJob) snapshot() HarvestStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	resp := HarvestStatusResponse{
		ID:        j.ID,
		Status:    j.Status,
		CountyID:  j.Request.CountyID,
		Year:      j.Year,
		Done:      j.Done,
		Reports:   j.Reports,
		Errors:    j.Errors,
		CreatedAt: j.CreatedAt.Unix(),
	}
	for _, r := range j.Reports {
		resp.Records += len(r.Records)
		resp.Skipped += len(r.Skipped)
		resp.Failed += len(r.Failed)
	}
	return resp
}

func (j *HarvestJob) progress(harvest.Progress) {
	j.mu.Lock()
	j.Done++
	j.mu.Unlock()
}

// records returns every harvested record once the job has finished.
func (j *HarvestJob) records() ([]*models.PropertyRecord, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status == StatusProcessing {
		return nil, false
	}
	var recs []*models.PropertyRecord
	for _, r := range j.Reports {
		recs = append(recs, r.Records...)
	}
	return recs, true
}

// Jobs holds in-flight and finished harvest jobs in memory.
type Jobs struct {
	jobs sync.Map
}

// NewJobs creates a job registry that forgets jobs older than ttl.
func NewJobs(ttl time.Duration) *Jobs {
	js := &Jobs{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-ttl)
			js.jobs.Range(func(key, value any) bool {
				if value.(*HarvestJob).CreatedAt.Before(cutoff) {
					js.jobs.Delete(key)
				}
				return true
			})
		}
	}()
	return js
}

func (js *Jobs) load(id string) (*HarvestJob, bool) {
	v, ok := js.jobs.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*HarvestJob), true
}

// HarvestDeps bundles what a harvest job needs.
type HarvestDeps struct {
	Upstream    Upstream
	Saver       harvest.Saver // optional
	Notifier    *webhook.Notifier
	Config      config.HarvestConfig
	DefaultYear int
}

// PostHarvest returns a handler for POST /api/v1/harvest. It registers a
// job and runs it in the background.
func PostHarvest(js *Jobs, deps HarvestDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.HarvestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, err)
			return
		}
		if req.ErrorPolicy == "" {
			req.ErrorPolicy = deps.Config.ErrorPolicy
		}
		policy, err := harvest.ParsePolicy(req.ErrorPolicy)
		if err != nil {
			invalidInput(c, err)
			return
		}
		year := req.Year
		if year == 0 {
			year = deps.DefaultYear
		}

		job := &HarvestJob{
			ID:        "harvest-" + randomID(),
			Status:    StatusProcessing,
			Request:   req,
			Year:      year,
			CreatedAt: time.Now(),
		}
		js.jobs.Store(job.ID, job)

		go runHarvest(job, policy, deps)

		c.JSON(http.StatusAccepted, models.HarvestResponse{ID: job.ID, Status: StatusProcessing})
	}
}

// GetHarvest returns a handler for GET /api/v1/harvest/:id.
func GetHarvest(js *Jobs) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := js.load(c.Param("id"))
		if !ok {
			respondError(c, models.NewAPIError(models.ErrCodeNotFound, "harvest job not found", nil))
			return
		}
		c.JSON(http.StatusOK, job.snapshot())
	}
}

// ExportHarvest returns a handler for GET /api/v1/harvest/:id/export,
// writing the job's records as one column-aligned CSV or JSON table.
func ExportHarvest(js *Jobs) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := js.load(c.Param("id"))
		if !ok {
			respondError(c, models.NewAPIError(models.ErrCodeNotFound, "harvest job not found", nil))
			return
		}
		var q models.ExportQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			invalidInput(c, err)
			return
		}
		recs, finished := job.records()
		if !finished {
			respondError(c, models.NewAPIError(models.ErrCodeNotReady, "harvest job is still processing", nil))
			return
		}
		rows, err := flatten.Rows(recs)
		if err != nil {
			respondError(c, models.NewAPIError(models.ErrCodeInternal, "flatten records", err))
			return
		}
		table := flatten.NewTable(rows)

		if q.Format == "json" {
			c.Header("Content-Type", "application/json")
			c.Status(http.StatusOK)
			if err := table.WriteJSON(c.Writer); err != nil {
				slog.Error("export write failed", "job_id", job.ID, "error", err)
			}
			return
		}
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="`+job.ID+`.csv"`)
		c.Status(http.StatusOK)
		if err := table.WriteCSV(c.Writer); err != nil {
			slog.Error("export write failed", "job_id", job.ID, "error", err)
		}
	}
}

func runHarvest(job *HarvestJob, policy harvest.Policy, deps HarvestDeps) {
	h := harvest.New(deps.Upstream, harvest.Options{
		Concurrency: deps.Config.Concurrency,
		Policy:      policy,
		Saver:       deps.Saver,
		OnProgress:  job.progress,
	})
	ctx := context.Background()
	req := job.Request

	var (
		reports []*harvest.Report
		errs    []string
		err     error
	)
	if len(req.Subdivisions) == 0 {
		reports, err = h.County(ctx, req.CountyID, job.Year)
	} else {
		for _, name := range req.Subdivisions {
			report, subErr := h.Subdivision(ctx, harvest.Target{CountyID: req.CountyID, Subdivision: name, Year: job.Year})
			if subErr != nil {
				if policy == harvest.PolicyAbort {
					err = subErr
					break
				}
				errs = append(errs, subErr.Error())
				continue
			}
			reports = append(reports, report)
		}
	}
	if err != nil {
		errs = append(errs, err.Error())
	}

	job.mu.Lock()
	job.Reports = reports
	job.Errors = errs
	job.Status = finalStatus(reports, errs, err)
	job.mu.Unlock()

	snap := job.snapshot()
	slog.Info("harvest job finished",
		"id", job.ID,
		"status", snap.Status,
		"records", snap.Records,
		"skipped", snap.Skipped,
		"failed", snap.Failed,
	)

	if req.WebhookURL != "" && deps.Notifier != nil {
		eventType := webhook.EventHarvestCompleted
		if snap.Status == StatusFailed {
			eventType = webhook.EventHarvestFailed
		}
		snap.Reports = nil
		deps.Notifier.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      eventType,
			JobID:     job.ID,
			Timestamp: time.Now().Unix(),
			Data:      snap,
		}, nil)
	}
}

func finalStatus(reports []*harvest.Report, errs []string, err error) string {
	if err != nil || (len(reports) == 0 && len(errs) > 0) {
		return StatusFailed
	}
	if len(errs) > 0 {
		return StatusPartial
	}
	for _, r := range reports {
		if len(r.Skipped) > 0 || len(r.Failed) > 0 {
			return StatusPartial
		}
	}
	return StatusCompleted
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

