package search

import (
	"context"
	"net/url"

	"github.com/use-agent/webpeel/models"
)

// googleStealth scrapes Google's rendered HTML result page through the
// injected stealth browser tier. It is the first-choice provider when no
// Google CSE or Brave API key is configured — a real search index without
// needing an API key, at the cost of being a DOM scrape that can itself
// get challenge-walled like any other stealth fetch.
type googleStealth struct {
	stealth StealthFetchFunc
}

func newGoogleStealth(stealth StealthFetchFunc) *googleStealth {
	return &googleStealth{stealth: stealth}
}

func (g *googleStealth) Name() string { return "google-stealth" }

func (g *googleStealth) Search(ctx context.Context, query string, count int) ([]models.SearchResult, error) {
	if g.stealth == nil {
		return nil, nil
	}
	html, err := g.stealth(ctx, "https://www.google.com/search?q="+url.QueryEscape(query)+"&num=20")
	if err != nil {
		return nil, err
	}
	results, err := parseDDGResults(html, "div.g", "a", ".VwiC3b, .IsZvec")
	if err != nil {
		return nil, err
	}
	return limitResults(results, count), nil
}
