// Package cadastral is a client for the legacy cadastral web API: county and
// subdivision lookups, subdivision search listings, and the per-category
// HTML fragments of a property.
package cadastral

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/use-agent/cadastre/config"
	"github.com/use-agent/cadastre/extract"
	"github.com/use-agent/cadastre/models"
)

// DefaultBaseURL is the root of the public cadastral API.
const DefaultBaseURL = "https://svc.mt.gov/msl/legacycadastralapi"

const (
	countyListPath      = "/search/getcountylist"
	subdivisionListPath = "/search/getsubdivisionlist"
	subdivisionPath     = "/search/searchbysubdivision"
)

var fragmentPaths = map[models.Category]string{
	models.CategorySummary:       "/summary/getsummarydata",
	models.CategoryOwner:         "/owner/getownerdata",
	models.CategoryAppraisal:     "/appraisal/getappraisaldata",
	models.CategoryMarketLand:    "/marketland/getmarketlanddata",
	models.CategoryDwelling:      "/dwelling/getdwellingdata",
	models.CategoryOtherBuilding: "/otherbuilding/getotherbuildingdata",
	models.CategoryCommercial:    "/commercial/getcommercialdata",
	models.CategoryAgForest:      "/agforest/getagforestdata",
}

// ErrEmptyBody is returned when the API keeps answering with an empty body
// after every retry.
var ErrEmptyBody = errors.New("cadastral: empty response body")

// StatusError reports a non-2xx answer from the API.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cadastral: %s returned status %d", e.URL, e.Code)
}

// Client talks to the cadastral API. It is safe for concurrent use.
type Client struct {
	http        *resty.Client
	concurrency int
}

// NewClient creates a Client from cfg. Calls share one rate limiter and are
// retried while the API answers with an empty body.
func NewClient(cfg config.CadastralConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := max(cfg.Burst, 1)
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	client := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTransport(newChromeTransport()).
		SetHeader("User-Agent", chromeUserAgent).
		SetHeader("Accept", "application/json, text/html;q=0.9, */*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetRetryCount(max(cfg.EmptyRetries, 0)).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(4 * wait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r != nil && !r.IsError() && len(r.Body()) == 0
		})
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		slog.Debug("cadastral call",
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"bytes", len(resp.Body()),
			"elapsed", resp.Time(),
			"attempt", resp.Request.Attempt,
		)
		return nil
	})

	return &Client{http: client, concurrency: max(cfg.Concurrency, 1)}
}

// get performs one GET and returns the body. An empty body that survives
// every retry is ErrEmptyBody.
func (c *Client) get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("cadastral: GET %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode(), URL: resp.Request.URL}
	}
	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("cadastral: GET %s: %w", path, ErrEmptyBody)
	}
	return resp.Body(), nil
}

// Counties returns the county list.
func (c *Client) Counties(ctx context.Context) ([]models.County, error) {
	body, err := c.get(ctx, countyListPath, nil)
	if err != nil {
		return nil, err
	}
	var counties []models.County
	if err := json.Unmarshal(body, &counties); err != nil {
		return nil, fmt.Errorf("cadastral: decode counties: %w", err)
	}
	return counties, nil
}

// Subdivisions returns the subdivision names of a county, in API order.
func (c *Client) Subdivisions(ctx context.Context, countyID string) ([]string, error) {
	body, err := c.get(ctx, subdivisionListPath, map[string]string{"countyid": countyID})
	if err != nil {
		return nil, err
	}
	var entries []struct {
		Subdiv string `json:"Subdiv"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("cadastral: decode subdivisions: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name := strings.TrimSpace(e.Subdiv); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// SearchSubdivision returns the listing HTML of a subdivision search.
func (c *Client) SearchSubdivision(ctx context.Context, subdivision, countyID string) (string, error) {
	body, err := c.get(ctx, subdivisionPath, map[string]string{
		"subdivision": subdivision,
		"countyid":    countyID,
	})
	if err != nil {
		return "", err
	}
	return DecodeFragment(body)
}

// Listings searches a subdivision and parses its result rows.
func (c *Client) Listings(ctx context.Context, subdivision, countyID string) ([]models.Listing, error) {
	listingHTML, err := c.SearchSubdivision(ctx, subdivision, countyID)
	if err != nil {
		return nil, err
	}
	return extract.Listings(listingHTML)
}

// Fragment fetches one category fragment of a property. An empty body that
// survives every retry is treated as an empty fragment.
func (c *Client) Fragment(ctx context.Context, category models.Category, geocode string, year int) (string, error) {
	path, ok := fragmentPaths[category]
	if !ok {
		return "", fmt.Errorf("cadastral: no endpoint for category %q", category)
	}
	body, err := c.get(ctx, path, map[string]string{
		"geocode": geocode,
		"year":    strconv.Itoa(year),
	})
	if errors.Is(err, ErrEmptyBody) {
		slog.Warn("empty fragment body", "category", category, "geocode", geocode, "year", year)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return DecodeFragment(body)
}

// Fragments fetches every category fragment of a property concurrently.
// The first failure cancels the remaining calls. A supplemental category
// that fails is logged and left out of the result.
func (c *Client) Fragments(ctx context.Context, geocode string, year int) (models.Fragments, error) {
	categories := slices.Concat(models.FragmentCategories, models.SupplementalCategories)
	var (
		mu        sync.Mutex
		fragments = make(models.Fragments, len(categories))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, category := range categories {
		g.Go(func() error {
			fragment, err := c.Fragment(gctx, category, geocode, year)
			if err != nil && category.Supplemental() {
				slog.Warn("skipping supplemental fragment", "category", category, "geocode", geocode, "error", err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("fetch %s for %s: %w", category, geocode, err)
			}
			mu.Lock()
			fragments[category] = fragment
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fragments, nil
}

// Property fetches and assembles the full record of one listed property.
func (c *Client) Property(ctx context.Context, listing models.Listing, year int) (*models.PropertyRecord, error) {
	fragments, err := c.Fragments(ctx, listing.Geocode, year)
	if err != nil {
		return nil, err
	}
	return extract.Record(listing, year, fragments)
}
