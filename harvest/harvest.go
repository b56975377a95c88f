// Package harvest walks subdivisions and counties, turning every listed
// property into a PropertyRecord and optionally persisting it.
package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/use-agent/cadastre/extract"
	"github.com/use-agent/cadastre/models"
	"github.com/use-agent/cadastre/store"
)

// Policy decides what a harvest does when one property fails.
type Policy string

const (
	// PolicySkip logs the failure, reports it and moves on.
	PolicySkip Policy = "skip"
	// PolicyAbort cancels the harvest and returns the first failure.
	PolicyAbort Policy = "abort"
)

// ParsePolicy validates a policy name. The empty string means PolicySkip.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyAbort:
		return PolicyAbort, nil
	}
	return "", fmt.Errorf("harvest: unknown error policy %q", s)
}

// Fetcher is the upstream the harvester reads from; *cadastral.Client
// satisfies it.
type Fetcher interface {
	Subdivisions(ctx context.Context, countyID string) ([]string, error)
	Listings(ctx context.Context, subdivision, countyID string) ([]models.Listing, error)
	Fragments(ctx context.Context, geocode string, year int) (models.Fragments, error)
}

// Saver persists harvested records; *store.Store satisfies it.
type Saver interface {
	SaveRecord(ctx context.Context, rec *models.PropertyRecord, loc store.Location) error
	MarkSubdivision(ctx context.Context, countyID, name string, year int) error
	HarvestedSubdivisions(ctx context.Context, countyID string, year int) (map[string]bool, error)
}

// Target names one subdivision harvest.
type Target struct {
	CountyID    string `json:"county_id"`
	Subdivision string `json:"subdivision"`
	Year        int    `json:"year"`
}

// Failure is one property that did not make it into a report.
type Failure struct {
	Geocode string `json:"geocode"`
	Error   string `json:"error"`
}

// Report is the outcome of a subdivision harvest. Records keep listing
// order. Skipped holds properties whose fragments did not parse; Failed
// holds properties whose fragments could not be fetched or saved.
type Report struct {
	Target   Target                   `json:"target"`
	Records  []*models.PropertyRecord `json:"records"`
	Skipped  []Failure                `json:"skipped"`
	Failed   []Failure                `json:"failed"`
	Listings int                      `json:"listings"`
	Elapsed  time.Duration            `json:"elapsed_ns"`
}

// Progress is reported after each property finishes, successfully or not.
type Progress struct {
	Target  Target
	Geocode string
	Done    int
	Total   int
	Err     error
}

// Options configures a Harvester.
type Options struct {
	Concurrency int
	Policy      Policy
	// Saver is optional; without it records are only returned.
	Saver Saver
	// OnProgress is optional and may be called from several goroutines.
	OnProgress func(Progress)
}

// Harvester assembles records for whole subdivisions.
type Harvester struct {
	fetcher     Fetcher
	saver       Saver
	policy      Policy
	concurrency int
	onProgress  func(Progress)
}

// New creates a Harvester reading from fetcher.
func New(fetcher Fetcher, opts Options) *Harvester {
	policy := opts.Policy
	if policy == "" {
		policy = PolicySkip
	}
	return &Harvester{
		fetcher:     fetcher,
		saver:       opts.Saver,
		policy:      policy,
		concurrency: max(opts.Concurrency, 1),
		onProgress:  opts.OnProgress,
	}
}

// Property fetches and assembles one property's record.
func (h *Harvester) Property(ctx context.Context, listing models.Listing, year int) (*models.PropertyRecord, error) {
	fragments, err := h.fetcher.Fragments(ctx, listing.Geocode, year)
	if err != nil {
		return nil, err
	}
	return extract.Record(listing, year, fragments)
}

// Subdivision harvests every listed property of t. Under PolicyAbort the
// first failure cancels the rest and is returned.
func (h *Harvester) Subdivision(ctx context.Context, t Target) (*Report, error) {
	start := time.Now()
	listings, err := h.fetcher.Listings(ctx, t.Subdivision, t.CountyID)
	if err != nil {
		return nil, fmt.Errorf("harvest: list %q: %w", t.Subdivision, err)
	}

	var (
		records = make([]*models.PropertyRecord, len(listings))
		errs    = make([]error, len(listings))
		done    atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for i, listing := range listings {
		g.Go(func() error {
			rec, err := h.harvestOne(gctx, t, listing)
			h.report(Progress{
				Target:  t,
				Geocode: listing.Geocode,
				Done:    int(done.Add(1)),
				Total:   len(listings),
				Err:     err,
			})
			if err != nil {
				if h.policy == PolicyAbort {
					return err
				}
				errs[i] = err
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Target:   t,
		Records:  make([]*models.PropertyRecord, 0, len(listings)),
		Skipped:  []Failure{},
		Failed:   []Failure{},
		Listings: len(listings),
	}
	for i, listing := range listings {
		switch {
		case records[i] != nil:
			report.Records = append(report.Records, records[i])
		case models.IsParseError(errs[i]):
			report.Skipped = append(report.Skipped, Failure{Geocode: listing.Geocode, Error: errs[i].Error()})
		default:
			report.Failed = append(report.Failed, Failure{Geocode: listing.Geocode, Error: errs[i].Error()})
		}
	}

	// A subdivision with fetch failures stays unmarked so the next
	// incremental run retries it.
	if h.saver != nil && len(report.Failed) == 0 {
		if err := h.saver.MarkSubdivision(ctx, t.CountyID, t.Subdivision, t.Year); err != nil {
			return nil, err
		}
	}
	report.Elapsed = time.Since(start)

	slog.Info("subdivision harvested",
		"county", t.CountyID,
		"subdivision", t.Subdivision,
		"year", t.Year,
		"listings", report.Listings,
		"records", len(report.Records),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed),
		"elapsed", report.Elapsed,
	)
	return report, nil
}

func (h *Harvester) harvestOne(ctx context.Context, t Target, listing models.Listing) (*models.PropertyRecord, error) {
	rec, err := h.Property(ctx, listing, t.Year)
	if err != nil {
		slog.Warn("property failed", "geocode", listing.Geocode, "subdivision", t.Subdivision, "error", err)
		return nil, err
	}
	if h.saver != nil {
		loc := store.Location{CountyID: t.CountyID, Subdivision: t.Subdivision}
		if err := h.saver.SaveRecord(ctx, rec, loc); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (h *Harvester) report(p Progress) {
	if h.onProgress != nil {
		h.onProgress(p)
	}
}

// County harvests every subdivision of a county that the Saver has not
// already marked for year, in API order. Without a Saver every
// subdivision is harvested.
func (h *Harvester) County(ctx context.Context, countyID string, year int) ([]*Report, error) {
	names, err := h.fetcher.Subdivisions(ctx, countyID)
	if err != nil {
		return nil, fmt.Errorf("harvest: subdivisions of %s: %w", countyID, err)
	}

	done := map[string]bool{}
	if h.saver != nil {
		if done, err = h.saver.HarvestedSubdivisions(ctx, countyID, year); err != nil {
			return nil, err
		}
	}

	reports := []*Report{}
	for _, name := range names {
		if done[name] {
			slog.Debug("subdivision already harvested", "county", countyID, "subdivision", name)
			continue
		}
		report, err := h.Subdivision(ctx, Target{CountyID: countyID, Subdivision: name, Year: year})
		if err != nil {
			if h.policy == PolicyAbort || ctx.Err() != nil {
				return reports, err
			}
			slog.Error("subdivision failed", "county", countyID, "subdivision", name, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}
