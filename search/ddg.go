package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/webpeel/models"
)

var scrapeHTTPClient = &http.Client{Timeout: 15 * time.Second}

// queryRewrites produces the up-to-6 rewrites tried against DuckDuckGo
// HTTP before giving up: original, quoted, +site:*, +website, a
// domain-guessed ".com", and a split-suffix variant for compound words
// (e.g. "openai" -> "open ai").
func queryRewrites(query string) []string {
	rewrites := []string{
		query,
		`"` + query + `"`,
		query + " site:*",
		query + " website",
		strings.ReplaceAll(query, " ", "") + ".com",
	}
	if split := splitCompoundWord(query); split != "" && split != query {
		rewrites = append(rewrites, split)
	}
	if len(rewrites) > 6 {
		rewrites = rewrites[:6]
	}
	return rewrites
}

// splitCompoundWord handles the common case of a single compound word
// that is actually two English words concatenated (e.g. "openai").
// Heuristic only: it does not attempt a dictionary lookup, just inserts a
// space before a recognized short suffix list.
func splitCompoundWord(query string) string {
	if strings.Contains(query, " ") {
		return ""
	}
	suffixes := []string{"ai", "hq", "labs", "app", "io"}
	lower := strings.ToLower(query)
	for _, suf := range suffixes {
		if strings.HasSuffix(lower, suf) && len(lower) > len(suf)+2 {
			return lower[:len(lower)-len(suf)] + " " + suf
		}
	}
	return ""
}

type ddgHTTP struct{}

func newDDGHTTP() *ddgHTTP { return &ddgHTTP{} }

func (d *ddgHTTP) Name() string { return "ddg-html" }

func (d *ddgHTTP) Search(ctx context.Context, query string, count int) ([]models.SearchResult, error) {
	for _, q := range queryRewrites(query) {
		results, err := fetchDDG(ctx, "https://html.duckduckgo.com/html/?q=", q, ".result", ".result__a", ".result__snippet")
		if err == nil && len(results) > 0 {
			return limitResults(results, count), nil
		}
	}
	return nil, fmt.Errorf("ddg-html: no results for any rewrite")
}

type ddgLite struct{}

func newDDGLite() *ddgLite { return &ddgLite{} }

func (d *ddgLite) Name() string { return "ddg-lite" }

func (d *ddgLite) Search(ctx context.Context, query string, count int) ([]models.SearchResult, error) {
	results, err := fetchDDG(ctx, "https://lite.duckduckgo.com/lite/?q=", query, "tr", "a.result-link", "td.result-snippet")
	if err != nil {
		return nil, err
	}
	return limitResults(results, count), nil
}

// ddgFirefox relaunches DDG HTML through a Firefox-flavored browser
// fingerprint (via the injected stealth fetch callback) to bypass
// Chromium-specific IP blocks.
type ddgFirefox struct {
	stealth StealthFetchFunc
}

func newDDGFirefox(stealth StealthFetchFunc) *ddgFirefox { return &ddgFirefox{stealth: stealth} }

func (d *ddgFirefox) Name() string { return "ddg-firefox" }

func (d *ddgFirefox) Search(ctx context.Context, query string, count int) ([]models.SearchResult, error) {
	if d.stealth == nil {
		return nil, fmt.Errorf("ddg-firefox: stealth fetch not configured")
	}
	target := "https://html.duckduckgo.com/html/?q=" + query
	html, err := d.stealth(ctx, target)
	if err != nil {
		return nil, err
	}
	results, err := parseDDGResults(html, ".result", ".result__a", ".result__snippet")
	if err != nil {
		return nil, err
	}
	return limitResults(results, count), nil
}

func fetchDDG(ctx context.Context, base, query, itemSel, linkSel, snippetSel string) ([]models.SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+queryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")

	resp, err := scrapeHTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ddg: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}
	return extractDDGResults(doc, itemSel, linkSel, snippetSel), nil
}

func parseDDGResults(html, itemSel, linkSel, snippetSel string) ([]models.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return extractDDGResults(doc, itemSel, linkSel, snippetSel), nil
}

func extractDDGResults(doc *goquery.Document, itemSel, linkSel, snippetSel string) []models.SearchResult {
	var out []models.SearchResult
	doc.Find(itemSel).Each(func(_ int, item *goquery.Selection) {
		link := item.Find(linkSel).First()
		href, _ := link.Attr("href")
		if href == "" {
			return
		}
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(item.Find(snippetSel).First().Text())
		if title == "" {
			return
		}
		out = append(out, models.SearchResult{Title: title, URL: href, Snippet: snippet})
	})
	return out
}

func limitResults(results []models.SearchResult, count int) []models.SearchResult {
	if count > 0 && len(results) > count {
		return results[:count]
	}
	return results
}

func queryEscape(q string) string {
	return strings.ReplaceAll(strings.TrimSpace(q), " ", "+")
}
