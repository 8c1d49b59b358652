package search

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/use-agent/webpeel/models"
)

// stealthEngineEndpoint describes one of the engines fanned out to by the
// parallel stealth tier, along with the selectors used to scrape its result
// markup once rendered.
type stealthEngineEndpoint struct {
	name       string
	urlFunc    func(query string) string
	itemSel    string
	linkSel    string
	snippetSel string
}

var stealthEngines = []stealthEngineEndpoint{
	{
		name:       "ddg-stealth",
		urlFunc:    func(q string) string { return "https://duckduckgo.com/html/?q=" + url.QueryEscape(q) },
		itemSel:    ".result",
		linkSel:    ".result__a",
		snippetSel: ".result__snippet",
	},
	{
		name:       "bing-stealth",
		urlFunc:    func(q string) string { return "https://www.bing.com/search?q=" + url.QueryEscape(q) },
		itemSel:    "li.b_algo",
		linkSel:    "h2 a",
		snippetSel: ".b_caption p",
	},
	{
		name:       "ecosia-stealth",
		urlFunc:    func(q string) string { return "https://www.ecosia.org/search?q=" + url.QueryEscape(q) },
		itemSel:    ".result",
		linkSel:    ".result-title",
		snippetSel: ".result-snippet",
	},
}

const stealthPerEngineTimeout = 15 * time.Second

// parallelStealthSearch fans a query out to DDG, Bing, and Ecosia
// concurrently through the stealth browser tier and merges whatever comes
// back within each engine's budget: an all-settled wait, not a race, since
// every engine's results are worth keeping once rendering the page was
// already paid for.
func parallelStealthSearch(ctx context.Context, stealth StealthFetchFunc, query string, count int) []models.SearchResult {
	if stealth == nil {
		return nil
	}

	var wg sync.WaitGroup
	resultsCh := make(chan []models.SearchResult, len(stealthEngines))

	for _, eng := range stealthEngines {
		eng := eng
		wg.Add(1)
		go func() {
			defer wg.Done()
			engCtx, cancel := context.WithTimeout(ctx, stealthPerEngineTimeout)
			defer cancel()

			html, err := stealth(engCtx, eng.urlFunc(query))
			if err != nil || html == "" {
				return
			}
			results, err := parseDDGResults(html, eng.itemSel, eng.linkSel, eng.snippetSel)
			if err != nil || len(results) == 0 {
				return
			}
			resultsCh <- limitResults(results, count)
		}()
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var merged []models.SearchResult
	for results := range resultsCh {
		merged = append(merged, results...)
	}
	return merged
}
