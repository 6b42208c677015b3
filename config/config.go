package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Engine    EngineConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	LLM       LLMConfig
	Search    SearchConfig
	Store     StoreConfig
	Pipeline  PipelineConfig
	Webhook   WebhookConfig
	Metrics   MetricsConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 5

	// DefaultProxy is the proxy URL for all browser traffic.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls page rendering.
type ScraperConfig struct {
	// RenderTimeout bounds one render, navigation to extracted HTML.
	RenderTimeout time.Duration // default: 60s

	// SettleDelay is how long a page may keep mutating before its DOM is
	// read.
	SettleDelay time.Duration // default: 5s

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and tracking hosts.
	BlockAds bool // default: true

	// AcceptLanguage is sent with every render.
	AcceptLanguage string // default: "en-GB,en;q=0.9"
}

// EngineConfig controls the multi-engine racing dispatcher.
type EngineConfig struct {
	// EnableMultiEngine toggles the multi-engine dispatcher.
	EnableMultiEngine bool // default: true

	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration // default: [0s, 2s, 5s]

	// HTTPTimeout is the deadline for the static HTTP engine.
	HTTPTimeout time.Duration // default: 10s

	// MemoryTTL is how long a domain keeps its winning engine.
	MemoryTTL time.Duration // default: 24h
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string // default: "memory"

	// RedisAddr is the Redis address for the redis backend.
	RedisAddr string // default: "localhost:6379"

	// TTL is how long a search result stays cached.
	TTL time.Duration // default: 24h

	// MaxEntries caps the memory backend.
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json", "text" or "pretty"; default: "json"
}

// LLMConfig controls the language model client.
type LLMConfig struct {
	APIKey  string
	Model   string        // default: "gemini-2.5-flash-lite"
	BaseURL string        // default: Gemini's OpenAI-compatible endpoint
	Timeout time.Duration // default: 60s

	// TargetLanguage, when set, requests translated records.
	TargetLanguage string
}

// SearchConfig controls the search provider.
type SearchConfig struct {
	// Provider is "duckduckgo" or "google".
	Provider string // default: "duckduckgo"

	MaxResults int // default: 10

	// GoogleAPIKey and GoogleEngineID configure Custom Search.
	GoogleAPIKey   string
	GoogleEngineID string
}

// StoreConfig controls the catalog database.
type StoreConfig struct {
	// DatabaseURL is a PostgreSQL connection string.
	DatabaseURL string

	// MaxConns caps the connection pool.
	MaxConns int // default: 4
}

// PipelineConfig controls candidate iteration.
type PipelineConfig struct {
	MaxCandidates int // default: 10
	Workers       int // default: 1

	// SpecializedFallback retries a failed partner page through the
	// generic model path.
	SpecializedFallback bool // default: true

	// ContentMode is "tags" or "markdown".
	ContentMode string // default: "tags"

	// RecoveryLenient repairs malformed model JSON before giving up.
	RecoveryLenient bool // default: false

	// SkipDuplicates skips the model for pages whose content matches an
	// earlier candidate of the same product.
	SkipDuplicates bool // default: false
}

// WebhookConfig controls batch completion notifications.
type WebhookConfig struct {
	URL    string
	Secret string
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   // default: true
	Path    string // default: "/metrics"
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("config: .env not loaded", "error", err)
	}

	return &Config{
		Server: ServerConfig{
			Host: envOr("ENRICH_HOST", "0.0.0.0"),
			Port: envIntOr("ENRICH_PORT", 8080),
			Mode: envOr("ENRICH_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("ENRICH_HEADLESS", true),
			MaxPages:     envIntOr("ENRICH_MAX_PAGES", 5),
			DefaultProxy: os.Getenv("ENRICH_PROXY"),
			NoSandbox:    envBoolOr("ENRICH_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("ENRICH_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			RenderTimeout: envDurationOr("ENRICH_RENDER_TIMEOUT", 60*time.Second),
			SettleDelay:   envDurationOr("ENRICH_SETTLE_DELAY", 5*time.Second),
			BlockedResourceTypes: envSliceOr("ENRICH_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			BlockAds:       envBoolOr("ENRICH_BLOCK_ADS", true),
			AcceptLanguage: envOr("ENRICH_ACCEPT_LANGUAGE", "en-GB,en;q=0.9"),
		},
		Engine: EngineConfig{
			EnableMultiEngine: envBoolOr("ENRICH_MULTI_ENGINE", true),
			EscalationDelays:  envDurationSliceOr("ENRICH_ESCALATION_DELAYS", []time.Duration{0, 2 * time.Second, 5 * time.Second}),
			HTTPTimeout:       envDurationOr("ENRICH_HTTP_TIMEOUT", 10*time.Second),
			MemoryTTL:         envDurationOr("ENRICH_ENGINE_MEMORY_TTL", 24*time.Hour),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("ENRICH_AUTH_ENABLED", true),
			APIKeys: envSliceOr("ENRICH_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("ENRICH_RATE_RPS", 2.0),
			Burst:             envIntOr("ENRICH_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			Backend:    envOr("ENRICH_CACHE_BACKEND", "memory"),
			RedisAddr:  envOr("ENRICH_REDIS_ADDR", "localhost:6379"),
			TTL:        envDurationOr("ENRICH_CACHE_TTL", 24*time.Hour),
			MaxEntries: envIntOr("ENRICH_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("ENRICH_LOG_LEVEL", "info"),
			Format: envOr("ENRICH_LOG_FORMAT", "json"),
		},
		LLM: LLMConfig{
			APIKey:         envOr("ENRICH_LLM_API_KEY", os.Getenv("GOOGLE_API_KEY")),
			Model:          envOr("ENRICH_LLM_MODEL", envOr("GEMINI_MODEL", "gemini-2.5-flash-lite")),
			BaseURL:        envOr("ENRICH_LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
			Timeout:        envDurationOr("ENRICH_LLM_TIMEOUT", 60*time.Second),
			TargetLanguage: os.Getenv("ENRICH_TARGET_LANGUAGE"),
		},
		Search: SearchConfig{
			Provider:       envOr("ENRICH_SEARCH_PROVIDER", "duckduckgo"),
			MaxResults:     envIntOr("ENRICH_SEARCH_MAX_RESULTS", 10),
			GoogleAPIKey:   os.Getenv("API_KEY"),
			GoogleEngineID: os.Getenv("SEARCH_ENGINE_ID"),
		},
		Store: StoreConfig{
			DatabaseURL: envOr("ENRICH_DATABASE_URL", os.Getenv("SQL_CONN_STRING")),
			MaxConns:    envIntOr("ENRICH_DB_MAX_CONNS", 4),
		},
		Pipeline: PipelineConfig{
			MaxCandidates:       envIntOr("ENRICH_MAX_CANDIDATES", 10),
			Workers:             envIntOr("ENRICH_WORKERS", 1),
			SpecializedFallback: envBoolOr("ENRICH_SPECIALIZED_FALLBACK", true),
			ContentMode:         envOr("ENRICH_CONTENT_MODE", "tags"),
			RecoveryLenient:     envBoolOr("ENRICH_RECOVERY_LENIENT", false),
			SkipDuplicates:      envBoolOr("ENRICH_SKIP_DUPLICATES", false),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("ENRICH_WEBHOOK_URL"),
			Secret: os.Getenv("ENRICH_WEBHOOK_SECRET"),
		},
		Metrics: MetricsConfig{
			Enabled: envBoolOr("ENRICH_METRICS_ENABLED", true),
			Path:    envOr("ENRICH_METRICS_PATH", "/metrics"),
		},
	}
}

// Validate reports settings that are missing or out of range. requireStore
// is false for dry runs.
func (c *Config) Validate(requireStore bool) error {
	var errs []error
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("ENRICH_LLM_API_KEY (or GOOGLE_API_KEY) is required"))
	}
	if requireStore && c.Store.DatabaseURL == "" {
		errs = append(errs, errors.New("ENRICH_DATABASE_URL (or SQL_CONN_STRING) is required"))
	}
	switch c.Search.Provider {
	case "duckduckgo":
	case "google":
		if c.Search.GoogleAPIKey == "" || c.Search.GoogleEngineID == "" {
			errs = append(errs, errors.New("API_KEY and SEARCH_ENGINE_ID are required for the google provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown search provider %q", c.Search.Provider))
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Pipeline.MaxCandidates < 1 {
		errs = append(errs, errors.New("ENRICH_MAX_CANDIDATES must be at least 1"))
	}
	if c.Pipeline.Workers < 1 {
		errs = append(errs, errors.New("ENRICH_WORKERS must be at least 1"))
	}
	if c.Browser.MaxPages < 1 {
		errs = append(errs, errors.New("ENRICH_MAX_PAGES must be at least 1"))
	}
	return errors.Join(errs...)
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

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
