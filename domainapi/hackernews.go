package domainapi

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/use-agent/webpeel/models"
)

// hackerNewsExtractor reaches the official Hacker News Firebase API
// (hacker-news.firebaseio.com) instead of scraping the HTML item page,
// grounded on the same story/comment shape the teacher's hn.go reference
// implementation scrapes from markup.
type hackerNewsExtractor struct{}

func newHackerNewsExtractor() *hackerNewsExtractor { return &hackerNewsExtractor{} }

func (h *hackerNewsExtractor) Name() string { return "hackernews" }

func (h *hackerNewsExtractor) Match(host string) bool {
	return host == "news.ycombinator.com"
}

var reHNItemID = regexp.MustCompile(`[?&]id=(\d+)`)

type hnItem struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	By    string `json:"by"`
	Time  int64  `json:"time"`
	Text  string `json:"text"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Score int    `json:"score"`
	Kids  []int  `json:"kids"`
}

func (h *hackerNewsExtractor) Extract(ctx context.Context, target *url.URL) (*ExtractedContent, error) {
	m := reHNItemID.FindStringSubmatch(target.RawQuery)
	if m == nil {
		return nil, fmt.Errorf("hackernews: not an item URL: %s", target.String())
	}
	id := m[1]

	var item hnItem
	endpoint := fmt.Sprintf("https://hacker-news.firebaseio.com/v0/item/%s.json", id)
	if err := getJSON(ctx, endpoint, nil, &item); err != nil {
		return nil, err
	}
	if item.Title == "" {
		return nil, fmt.Errorf("hackernews: item %s has no title (deleted or non-story)", id)
	}

	var sb strings.Builder
	sb.WriteString("# " + item.Title + "\n\n")
	if item.URL != "" {
		sb.WriteString(item.URL + "\n\n")
	}
	if item.Text != "" {
		sb.WriteString(stripHNHTML(item.Text) + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("*%d points, by %s*\n\n", item.Score, item.By))

	if len(item.Kids) > 0 {
		sb.WriteString("## Top comments\n\n")
		h.writeComments(ctx, &sb, item.Kids, 0, 3, 15)
	}

	return &ExtractedContent{
		Title:   item.Title,
		Content: sb.String(),
		Metadata: models.Metadata{
			Title:       item.Title,
			SiteName:    "Hacker News",
			Author:      item.By,
			Published:   time.Unix(item.Time, 0).UTC().Format(time.RFC3339),
			FetchMethod: string(models.MethodDomainAPI),
		},
	}, nil
}

func (h *hackerNewsExtractor) writeComments(ctx context.Context, sb *strings.Builder, ids []int, depth, maxDepth, budget int) {
	if depth > maxDepth || budget <= 0 {
		return
	}
	indent := strings.Repeat("  ", depth)
	for i, id := range ids {
		if i >= budget {
			return
		}
		var c hnItem
		endpoint := fmt.Sprintf("https://hacker-news.firebaseio.com/v0/item/%d.json", id)
		if err := getJSON(ctx, endpoint, nil, &c); err != nil || c.Text == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s- **%s**: %s\n", indent, c.By, stripHNHTML(c.Text)))
	}
}

var reHNTag = regexp.MustCompile(`<[^>]+>`)

func stripHNHTML(s string) string {
	s = strings.ReplaceAll(s, "<p>", "\n\n")
	s = reHNTag.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&#x27;", "'")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&lt;", "<")
	return strings.TrimSpace(s)
}
