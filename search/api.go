package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/use-agent/webpeel/models"
)

var apiHTTPClient = &http.Client{Timeout: 10 * time.Second}

type googleCSE struct {
	key string
	cx  string
}

func newGoogleCSE(key, cx string) *googleCSE { return &googleCSE{key: key, cx: cx} }

func (g *googleCSE) Name() string { return "google-cse" }

func (g *googleCSE) Search(ctx context.Context, query string, count int) ([]models.SearchResult, error) {
	endpoint := fmt.Sprintf("https://www.googleapis.com/customsearch/v1?key=%s&cx=%s&q=%s&num=%d",
		url.QueryEscape(g.key), url.QueryEscape(g.cx), url.QueryEscape(query), clampCount(count))

	var body struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}
	var out []models.SearchResult
	for _, item := range body.Items {
		out = append(out, models.SearchResult{Title: item.Title, URL: item.Link, Snippet: item.Snippet})
	}
	return out, nil
}

type brave struct {
	key string
}

func newBrave(key string) *brave { return &brave{key: key} }

func (b *brave) Name() string { return "brave" }

func (b *brave) Search(ctx context.Context, query string, count int) ([]models.SearchResult, error) {
	endpoint := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d",
		url.QueryEscape(query), clampCount(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Subscription-Token", b.key)
	req.Header.Set("Accept", "application/json")

	resp, err := apiHTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave search: status %d", resp.StatusCode)
	}

	var body struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	var out []models.SearchResult
	for _, r := range body.Web.Results {
		out = append(out, models.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return out, nil
}

func getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := apiHTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search api: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func clampCount(count int) int {
	if count <= 0 {
		return 10
	}
	if count > 10 {
		return 10
	}
	return count
}
