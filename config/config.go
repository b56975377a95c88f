package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Cadastral CadastralConfig
	Harvest   HarvestConfig
	Store     StoreConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting of the HTTP API.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the property record cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached records.
	MaxEntries int // default: 1000

	// MaxAge is used when a request does not pass its own max_age_ms.
	MaxAge time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// CadastralConfig controls the client of the legacy cadastral API.
type CadastralConfig struct {
	// BaseURL is the API root; endpoint paths are appended to it.
	BaseURL string // default: "https://svc.mt.gov/msl/legacycadastralapi"

	// Timeout bounds a single API call.
	Timeout time.Duration // default: 250s

	// EmptyRetries is how many times an empty response body is re-requested.
	EmptyRetries int // default: 5

	// RetryWait is the base wait between retries.
	RetryWait time.Duration // default: 500ms

	// RequestsPerSecond throttles calls to the upstream API.
	RequestsPerSecond float64 // default: 10

	// Burst is the throttle's burst size.
	Burst int // default: 7

	// Concurrency is how many category fragments of one property are
	// fetched at once.
	Concurrency int // default: 7

	// DefaultYear is the assessment year used when a caller gives none.
	DefaultYear int // default: 2023
}

// HarvestConfig controls bulk harvesting of subdivisions.
type HarvestConfig struct {
	// Concurrency is how many properties are harvested at once.
	Concurrency int // default: 4

	// ErrorPolicy is "skip" (log and continue) or "abort" (stop the
	// harvest) when a property's fragments fail to parse.
	ErrorPolicy string // default: "skip"
}

// StoreConfig controls record persistence.
type StoreConfig struct {
	// Path is the SQLite database file; empty disables persistence.
	Path string // default: "cadastre.db"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("CADASTRE_HOST", "0.0.0.0"),
			Port: envIntOr("CADASTRE_PORT", 8080),
			Mode: envOr("CADASTRE_MODE", "release"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("CADASTRE_AUTH_ENABLED", true),
			APIKeys: envSliceOr("CADASTRE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("CADASTRE_RATE_RPS", 5.0),
			Burst:             envIntOr("CADASTRE_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("CADASTRE_CACHE_MAX_ENTRIES", 1000),
			MaxAge:     envDurationOr("CADASTRE_CACHE_MAX_AGE", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("CADASTRE_LOG_LEVEL", "info"),
			Format: envOr("CADASTRE_LOG_FORMAT", "json"),
		},
		Cadastral: CadastralConfig{
			BaseURL:           envOr("CADASTRE_API_BASE_URL", "https://svc.mt.gov/msl/legacycadastralapi"),
			Timeout:           envDurationOr("CADASTRE_API_TIMEOUT", 250*time.Second),
			EmptyRetries:      envIntOr("CADASTRE_API_EMPTY_RETRIES", 5),
			RetryWait:         envDurationOr("CADASTRE_API_RETRY_WAIT", 500*time.Millisecond),
			RequestsPerSecond: envFloatOr("CADASTRE_API_RPS", 10.0),
			Burst:             envIntOr("CADASTRE_API_BURST", 7),
			Concurrency:       envIntOr("CADASTRE_API_CONCURRENCY", 7),
			DefaultYear:       envIntOr("CADASTRE_DEFAULT_YEAR", 2023),
		},
		Harvest: HarvestConfig{
			Concurrency: envIntOr("CADASTRE_HARVEST_CONCURRENCY", 4),
			ErrorPolicy: envOr("CADASTRE_HARVEST_ERROR_POLICY", "skip"),
		},
		Store: StoreConfig{
			Path: envOr("CADASTRE_DB", "cadastre.db"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
