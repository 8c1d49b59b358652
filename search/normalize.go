package search

import (
	"net/url"
	"strings"

	"github.com/use-agent/webpeel/models"
)

// Normalize validates protocol, clamps title/snippet lengths, strips
// leading/trailing ellipses from snippets, and deduplicates results by
// normalized URL, preserving first-seen (engine-declaration) order so
// earlier engines dominate ties.
func Normalize(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]bool, len(results))
	var out []models.SearchResult
	for _, r := range results {
		u := decodeRedirect(r.URL)
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			continue
		}
		key := models.NormalizeURL(u)
		if seen[key] {
			continue
		}
		seen[key] = true

		r.URL = u
		r.Title = clamp(r.Title, models.SearchTitleMaxLen)
		r.Snippet = clamp(stripEllipses(r.Snippet), models.SearchSnippetMaxLen)
		out = append(out, r)
	}
	return out
}

// decodeRedirect unwraps known search-engine redirect wrappers: DuckDuckGo's
// uddg parameter and Google's /url?q= redirect.
func decodeRedirect(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := parsed.Query()
	if uddg := q.Get("uddg"); uddg != "" {
		if decoded, err := url.QueryUnescape(uddg); err == nil {
			return decoded
		}
	}
	if strings.Contains(parsed.Path, "/url") {
		if target := q.Get("q"); target != "" {
			return target
		}
	}
	return raw
}

func stripEllipses(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "…")
	s = strings.TrimSuffix(s, "...")
	s = strings.TrimPrefix(s, "...")
	return strings.TrimSpace(s)
}

func clamp(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
