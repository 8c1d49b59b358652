package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/webpeel/models"
)

// SearchProxyQuality is the fixed quality ceiling assigned to any result
// produced via search-as-proxy: it is a reconstruction from snippets, never
// the genuine page content, and must never be mistaken for a real fetch.
const SearchProxyQuality = 0.4

// SearchAsProxy is the last-resort fallback used when a target page is
// blocked outright: it searches for the page's own host and path instead of
// fetching it, and stitches the top matches into a minimal markdown
// document standing in for the page.
func SearchAsProxy(ctx context.Context, eng *Engine, host, path string) *models.CachedPageResult {
	pathHint := strings.TrimSuffix(strings.TrimPrefix(path, "/"), extOf(path))
	pathHint = strings.ReplaceAll(pathHint, "-", " ")
	pathHint = strings.ReplaceAll(pathHint, "/", " ")

	query := fmt.Sprintf("site:%s %s", host, strings.TrimSpace(pathHint))
	results := eng.SearchWeb(ctx, query, 3)
	if len(results) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(results[0].Title)
	sb.WriteString("\n\n")
	for _, r := range results {
		sb.WriteString("## ")
		sb.WriteString(r.Title)
		sb.WriteString("\n\n")
		sb.WriteString(r.Snippet)
		sb.WriteString("\n\n")
	}

	return &models.CachedPageResult{
		Title:         results[0].Title,
		CachedContent: sb.String(),
		Source:        "search-proxy",
	}
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}
