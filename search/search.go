// Package search implements the multi-engine search provider: a fallback
// chain (Google CSE or Brave if an API key is configured, else Google
// stealth-scrape as first choice -> DuckDuckGo HTTP -> DuckDuckGo Lite ->
// Firefox-flavored DDG -> parallel stealth scrape of DDG/Bing/Ecosia)
// returning normalized, deduplicated results, plus the search-as-proxy
// fallback used when a page is blocked.
package search

import (
	"context"
	"log/slog"

	"github.com/use-agent/webpeel/models"
)

// Config carries the API credentials and feature flags that govern which
// providers in the chain are eligible, per the injected-configuration
// pattern (no component reads environment variables directly).
type Config struct {
	GoogleSearchKey string
	GoogleSearchCX  string
	BraveSearchKey  string
}

// StealthFetchFunc fetches a URL via the stealth browser tier, returning
// the rendered HTML. It is injected to avoid a dependency on the engine
// package's concrete browser plumbing.
type StealthFetchFunc func(ctx context.Context, url string) (string, error)

// Provider is a single search engine in the fallback chain.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]models.SearchResult, error)
}

// Engine builds the ordered provider chain from the injected config.
// Each provider is a first-class component registered here rather than
// dynamically discovered, per the registry pattern for pluggable
// fallbacks.
type Engine struct {
	cfg       Config
	providers []Provider
	stealth   StealthFetchFunc
}

// NewEngine builds the provider chain in fallback order. The scraped
// (non-stealth) HTTP providers use the package's own HTTP clients; stealth
// is used by the Google and Firefox-flavored DDG providers and the final
// parallel multi-engine stealth tier, and may be nil (those are then skipped).
func NewEngine(cfg Config, stealth StealthFetchFunc) *Engine {
	e := &Engine{cfg: cfg, stealth: stealth}

	switch {
	case cfg.GoogleSearchKey != "" && cfg.GoogleSearchCX != "":
		e.providers = append(e.providers, newGoogleCSE(cfg.GoogleSearchKey, cfg.GoogleSearchCX))
	case cfg.BraveSearchKey != "":
		e.providers = append(e.providers, newBrave(cfg.BraveSearchKey))
	default:
		// No API keys configured: Google stealth-scraping is the
		// first-choice provider rather than jumping straight to DDG.
		e.providers = append(e.providers, newGoogleStealth(stealth))
	}

	e.providers = append(e.providers,
		newDDGHTTP(),
		newDDGLite(),
		newDDGFirefox(stealth),
	)
	return e
}

// SearchWeb implements searchWeb(query, count) -> []SearchResult. It never
// throws on a single-engine failure: each provider is attempted in order
// and the chain proceeds to the next provider only if the prior returned
// zero results or errored. The final tier fans out to DDG/Bing/Ecosia
// concurrently and merges all-settled results.
func (e *Engine) SearchWeb(ctx context.Context, query string, count int) []models.SearchResult {
	for _, p := range e.providers {
		results, err := p.Search(ctx, query, count)
		if err != nil {
			slog.Debug("search provider failed", "provider", p.Name(), "error", err)
			continue
		}
		if len(results) > 0 {
			return Normalize(results)
		}
	}

	if e.stealth != nil {
		results := parallelStealthSearch(ctx, e.stealth, query, count)
		if len(results) > 0 {
			return Normalize(results)
		}
	}

	return nil
}
