package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration, injected into every
// component rather than read from the environment directly.
type Config struct {
	Browser      BrowserConfig
	Scraper      ScraperConfig
	Engine       EngineConfig
	AdaptivePool AdaptivePoolConfig
	Search       SearchConfig
	LLM          LLMConfig
	ChangeTrack  ChangeTrackConfig
	Log          LogConfig
}

// EngineConfig controls the multi-engine racing dispatcher.
type EngineConfig struct {
	// EnableMultiEngine toggles the multi-engine dispatcher.
	EnableMultiEngine bool // default: true

	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration // default: [0s, 2s, 5s]

	// HTTPTimeout is the deadline for the pure HTTP engine.
	HTTPTimeout time.Duration // default: 5s
}

// AdaptivePoolConfig controls the adaptive page pool sizing.
type AdaptivePoolConfig struct {
	// MinPages is the minimum number of pages kept in the pool.
	MinPages int // default: 3

	// HardMax is the absolute maximum number of pages.
	HardMax int // default: 20

	// MemThreshold is the heap memory fraction (0.0-1.0) above which the pool shrinks.
	MemThreshold float64 // default: 0.9

	// ScaleStep is the fraction of pool size to grow or shrink per interval.
	ScaleStep float64 // default: 0.05
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 15s

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// SearchConfig holds BYOK credentials for the search provider chain. A
// provider whose key is empty is skipped rather than erroring, so the
// fallback chain degrades gracefully down to the key-less DDG tiers.
type SearchConfig struct {
	GoogleAPIKey        string
	GoogleSearchEngine  string
	BraveAPIKey         string
	MaxResultsPerEngine int // default: 10
}

// LLMConfig holds BYOK credentials for the optional LLM-assisted
// extraction/summarization stage. Every field is optional; the pipeline
// only invokes llm.ForProvider when a caller supplies both a provider
// name and a key for it.
type LLMConfig struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string
	DefaultProvider string // default: "openai"
	DefaultModel    string
}

// ChangeTrackConfig controls the change-tracking baseline store.
type ChangeTrackConfig struct {
	// MaxEntries bounds the number of tracked URLs kept in memory.
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:     envBoolOr("PEEL_HEADLESS", true),
			MaxPages:     envIntOr("PEEL_MAX_PAGES", 10),
			DefaultProxy: os.Getenv("PEEL_PROXY"),
			NoSandbox:    envBoolOr("PEEL_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("PEEL_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			DefaultTimeout:    envDurationOr("PEEL_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:        envDurationOr("PEEL_MAX_TIMEOUT", 120*time.Second),
			NavigationTimeout: envDurationOr("PEEL_NAV_TIMEOUT", 15*time.Second),
			BlockedResourceTypes: envSliceOr("PEEL_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Engine: EngineConfig{
			EnableMultiEngine: envBoolOr("PEEL_MULTI_ENGINE", true),
			EscalationDelays:  envDurationSliceOr("PEEL_ESCALATION_DELAYS", []time.Duration{0, 2 * time.Second, 5 * time.Second}),
			HTTPTimeout:       envDurationOr("PEEL_HTTP_TIMEOUT", 5*time.Second),
		},
		AdaptivePool: AdaptivePoolConfig{
			MinPages:     envIntOr("PEEL_MIN_PAGES", 3),
			HardMax:      envIntOr("PEEL_HARD_MAX_PAGES", 20),
			MemThreshold: envFloatOr("PEEL_MEM_THRESHOLD", 0.9),
			ScaleStep:    envFloatOr("PEEL_SCALE_STEP", 0.05),
		},
		Search: SearchConfig{
			GoogleAPIKey:        os.Getenv("PEEL_GOOGLE_SEARCH_KEY"),
			GoogleSearchEngine:  os.Getenv("PEEL_GOOGLE_SEARCH_CX"),
			BraveAPIKey:         os.Getenv("PEEL_BRAVE_SEARCH_KEY"),
			MaxResultsPerEngine: envIntOr("PEEL_SEARCH_MAX_RESULTS", 10),
		},
		LLM: LLMConfig{
			OpenAIAPIKey:    os.Getenv("PEEL_OPENAI_API_KEY"),
			AnthropicAPIKey: os.Getenv("PEEL_ANTHROPIC_API_KEY"),
			GoogleAPIKey:    os.Getenv("PEEL_GOOGLE_LLM_KEY"),
			DefaultProvider: envOr("PEEL_LLM_PROVIDER", "openai"),
			DefaultModel:    os.Getenv("PEEL_LLM_MODEL"),
		},
		ChangeTrack: ChangeTrackConfig{
			MaxEntries: envIntOr("PEEL_CHANGETRACK_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("PEEL_LOG_LEVEL", "info"),
			Format: envOr("PEEL_LOG_FORMAT", "json"),
		},
	}
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
