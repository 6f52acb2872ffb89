package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration, loaded once at startup from
// environment variables.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scrape    ScrapeConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Search    SearchConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host          string // default: "0.0.0.0"
	Port          int    // default: 8080
	Mode          string // "debug", "release", "test"; default: "release"
	Workers       int    // default: 1; size of an external cluster supervisor, informational only
	TrustProxy    bool   // default: false
	EnableMetrics bool   // default: false; metrics exposition itself is out of core scope
}

// BrowserConfig controls the Rod browser instance and the C5 pool budget.
type BrowserConfig struct {
	Headless    bool // default: true
	NoSandbox   bool // default: false
	BrowserBin  string
	MaxRequests int      // default: 100; requests served before a browser is recycled
	ProxyList   []string // CSV of outbound proxy URLs, rotated round-robin
}

// ScrapeConfig controls scrape-operation behavior.
type ScrapeConfig struct {
	MaxConcurrency    int           // default: 4; C2 limiter max
	DefaultTimeout    time.Duration // default: 30s
	MaxTimeout        time.Duration // default: 30s, hard-capped at 60s
	NavigationTimeout time.Duration // default: 15s; deadline for the browser's page navigation step
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// CacheConfig controls the C3 result cache.
type CacheConfig struct {
	MaxItems int           // default: 1000
	TTL      time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// SearchConfig controls the C11 search-provider client.
type SearchConfig struct {
	URL            string        // searxngUrl
	Timeout        time.Duration // searxngTimeoutMs
	ExcludeDomains []string      // CSV of hostname suffixes dropped from every search response, deployment-wide
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	maxTimeout := envDurationOr("PURIFY_MAX_TIMEOUT_MS", 30*time.Second)
	if maxTimeout > 60*time.Second {
		maxTimeout = 60 * time.Second
	}

	return &Config{
		Server: ServerConfig{
			Host:          envOr("PURIFY_HOST", "0.0.0.0"),
			Port:          envIntOr("PURIFY_PORT", 8080),
			Mode:          envOr("PURIFY_MODE", "release"),
			Workers:       envIntOr("PURIFY_WORKERS", 1),
			TrustProxy:    envBoolOr("PURIFY_TRUST_PROXY", false),
			EnableMetrics: envBoolOr("PURIFY_ENABLE_METRICS", false),
		},
		Browser: BrowserConfig{
			Headless:    envBoolOr("PURIFY_HEADLESS", true),
			NoSandbox:   envBoolOr("PURIFY_NO_SANDBOX", false),
			BrowserBin:  os.Getenv("PURIFY_BROWSER_BIN"),
			MaxRequests: envIntOr("PURIFY_BROWSER_MAX_REQUESTS", 100),
			ProxyList:   envSliceOr("PURIFY_PROXY_LIST", nil),
		},
		Scrape: ScrapeConfig{
			MaxConcurrency:    envIntOr("PURIFY_MAX_CONCURRENCY", 4),
			DefaultTimeout:    envDurationOr("PURIFY_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:        maxTimeout,
			NavigationTimeout: envDurationOr("PURIFY_NAV_TIMEOUT", 15*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PURIFY_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PURIFY_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PURIFY_RATE_RPS", 5.0),
			Burst:             envIntOr("PURIFY_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxItems: envIntOr("PURIFY_CACHE_MAX_ITEMS", 1000),
			TTL:      envDurationOr("PURIFY_CACHE_TTL_MS", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("PURIFY_LOG_LEVEL", "info"),
			Format: envOr("PURIFY_LOG_FORMAT", "json"),
		},
		Search: SearchConfig{
			URL:            os.Getenv("PURIFY_SEARXNG_URL"),
			Timeout:        envDurationOr("PURIFY_SEARXNG_TIMEOUT_MS", 10*time.Second),
			ExcludeDomains: envSliceOr("PURIFY_SEARCH_EXCLUDE_DOMAINS", nil),
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

// envDurationOr parses a value as a Go duration string (e.g. "5s"); if that
// fails it falls back to interpreting the value as a plain millisecond count,
// matching the *Ms-suffixed environment variable names used throughout §6.
func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
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
