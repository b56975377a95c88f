package models

// PropertyResponse is returned by the extract and property routes.
type PropertyResponse struct {
	Success bool `json:"success"`

	Record *PropertyRecord `json:"record,omitempty"`

	// Row is the flattened record, when requested.
	Row *FlatRow `json:"row,omitempty"`

	// CacheStatus is "hit", "miss", or empty when no cache was consulted.
	CacheStatus string `json:"cache_status,omitempty"`

	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent serving a request.
type TimingInfo struct {
	TotalMs int64 `json:"total_ms"`

	// FetchMs is the time spent fetching fragments upstream.
	FetchMs int64 `json:"fetch_ms"`

	// ExtractMs is the time spent parsing fragments.
	ExtractMs int64 `json:"extract_ms"`
}

// FragmentResponse is the response of the fragment preview route.
type FragmentResponse struct {
	Geocode  string   `json:"geocode"`
	Year     int      `json:"year"`
	Category Category `json:"category"`
	Format   string   `json:"format"`

	// Empty reports that the fragment carries no data.
	Empty   bool   `json:"empty"`
	Content string `json:"content"`
}

// CountiesResponse is the response for GET /api/v1/counties.
type CountiesResponse struct {
	Counties []County `json:"counties"`
}

// SubdivisionsResponse is the response for GET /api/v1/counties/:id/subdivisions.
type SubdivisionsResponse struct {
	CountyID     string   `json:"county_id"`
	Subdivisions []string `json:"subdivisions"`
}

// HarvestResponse is the immediate response for POST /api/v1/harvest.
type HarvestResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"` // "healthy" or "degraded"
	Uptime       string `json:"uptime"`
	Version      string `json:"version"`
	Store        string `json:"store"` // "ok", "disabled" or "error"
	CacheEntries int    `json:"cache_entries"`
}
