package models

// ExtractRequest is the payload for POST /api/v1/extract. It runs the
// extractors over fragments the caller already holds.
type ExtractRequest struct {
	// Geocode identifies the property. Required.
	Geocode string `json:"geocode" binding:"required"`

	// Year is the assessment year the fragments were fetched for.
	// Default: the configured default year.
	Year int `json:"year,omitempty" binding:"omitempty,min=1900,max=2100"`

	// Initial is the property's search listing; its Geocode is replaced
	// by the request's.
	Initial Listing `json:"initial"`

	// Fragments maps category name to raw fragment HTML. Missing
	// categories are treated as empty.
	Fragments map[string]string `json:"fragments"`
}

// PropertyQuery holds the query string of GET /api/v1/property/:geocode.
type PropertyQuery struct {
	// Year is the assessment year. Default: the configured default year.
	Year int `form:"year" binding:"omitempty,min=1900,max=2100"`

	// Flat adds the flattened row to the response.
	Flat bool `form:"flat"`

	// MaxAgeMs accepts a cached record younger than this many
	// milliseconds. 0 uses the configured cache age; negative bypasses
	// the cache.
	MaxAgeMs int `form:"max_age_ms"`
}

// FragmentQuery holds the query string of the fragment preview route.
type FragmentQuery struct {
	Year int `form:"year" binding:"omitempty,min=1900,max=2100"`

	// Format is "markdown" (default), "html" or "text".
	Format string `form:"format" binding:"omitempty,oneof=markdown html text"`
}

// HarvestRequest is the payload for POST /api/v1/harvest.
type HarvestRequest struct {
	// CountyID is the cadastral county id. Required.
	CountyID string `json:"county_id" binding:"required"`

	// Subdivisions limits the harvest to these subdivisions. Empty
	// harvests every subdivision of the county not yet harvested.
	Subdivisions []string `json:"subdivisions,omitempty" binding:"omitempty,max=500"`

	Year int `json:"year,omitempty" binding:"omitempty,min=1900,max=2100"`

	// ErrorPolicy is "skip" (default) or "abort".
	ErrorPolicy string `json:"error_policy,omitempty" binding:"omitempty,oneof=skip abort"`

	// WebhookURL receives harvest.completed or harvest.failed.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs webhook bodies when set.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// ExportQuery holds the query string of the harvest export route.
type ExportQuery struct {
	// Format is "csv" (default) or "json".
	Format string `form:"format" binding:"omitempty,oneof=csv json"`
}
