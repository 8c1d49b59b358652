// Package domainapi implements per-host structured extractors: adapters
// that reach a site's own public API and return structured content
// instead of parsing rendered HTML, bypassing fragile DOM scraping and
// browser overhead entirely for the hosts they cover.
package domainapi

import (
	"context"
	"net/url"
	"strings"

	"github.com/use-agent/webpeel/models"
)

// ExtractedContent is the structured result of a domain extractor: enough
// to populate a PipelineContext directly without going through
// ParseContent/PostProcess.
type ExtractedContent struct {
	Title    string
	Content  string
	Metadata models.Metadata
}

// MinContentLen is the minimum extracted content length for a domain
// extractor's result to be trusted over falling through to the fetch
// engine.
const MinContentLen = 50

// Quality is the fixed quality assigned to any successful domain-extractor
// result: structured API output is trusted content, not a heuristic
// estimate.
const Quality = 0.95

// Extractor is a single per-host structured adapter.
type Extractor interface {
	Name() string
	Match(host string) bool
	Extract(ctx context.Context, target *url.URL) (*ExtractedContent, error)
}

// Registry holds the ordered set of registered extractors and finds the
// first one whose Match accepts a given host, the same "register by host
// predicate" shape the fetch engine uses for its own tiered dispatch.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds the default extractor set: Reddit, Hacker News, and
// GitHub.
func NewRegistry() *Registry {
	return &Registry{
		extractors: []Extractor{
			newRedditExtractor(),
			newHackerNewsExtractor(),
			newGitHubExtractor(),
		},
	}
}

// Find returns the extractor registered for host, or nil if none applies.
func (r *Registry) Find(host string) Extractor {
	host = strings.ToLower(host)
	for _, e := range r.extractors {
		if e.Match(host) {
			return e
		}
	}
	return nil
}
