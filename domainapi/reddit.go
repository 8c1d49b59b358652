package domainapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/use-agent/webpeel/models"
)

// redditExtractor reaches Reddit's own unauthenticated JSON API
// (appending ".json" to a post's permalink) instead of rendering the page,
// which is itself heavily client-side and a frequent challenge target.
type redditExtractor struct{}

func newRedditExtractor() *redditExtractor { return &redditExtractor{} }

func (r *redditExtractor) Name() string { return "reddit" }

func (r *redditExtractor) Match(host string) bool {
	return host == "reddit.com" || strings.HasSuffix(host, ".reddit.com")
}

type redditPostData struct {
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	Score      int     `json:"score"`
	NumComment int     `json:"num_comments"`
	CreatedUTC float64 `json:"created_utc"`
	URL        string  `json:"url"`
}

type redditCommentData struct {
	Author string `json:"author"`
	Body   string `json:"body"`
	Score  int    `json:"score"`
}

func (r *redditExtractor) Extract(ctx context.Context, target *url.URL) (*ExtractedContent, error) {
	if !strings.Contains(target.Path, "/comments/") {
		return nil, fmt.Errorf("reddit: not a post permalink: %s", target.Path)
	}

	endpoint := "https://www.reddit.com" + strings.TrimSuffix(target.Path, "/") + ".json?limit=50&raw_json=1"

	var listing []struct {
		Data struct {
			Children []struct {
				Data json.RawMessage `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := getJSON(ctx, endpoint, nil, &listing); err != nil {
		return nil, err
	}
	if len(listing) == 0 || len(listing[0].Data.Children) == 0 {
		return nil, fmt.Errorf("reddit: empty listing response")
	}

	var post redditPostData
	if err := json.Unmarshal(listing[0].Data.Children[0].Data, &post); err != nil {
		return nil, fmt.Errorf("reddit: decoding post: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# " + post.Title + "\n\n")
	if post.Selftext != "" {
		sb.WriteString(post.Selftext + "\n\n")
	} else if post.URL != "" {
		sb.WriteString(post.URL + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("*%d points, %d comments, posted by u/%s in r/%s*\n\n",
		post.Score, post.NumComment, post.Author, post.Subreddit))

	if len(listing) > 1 && len(listing[1].Data.Children) > 0 {
		sb.WriteString("## Top comments\n\n")
		for i, child := range listing[1].Data.Children {
			if i >= 20 {
				break
			}
			var c redditCommentData
			if err := json.Unmarshal(child.Data, &c); err != nil || c.Body == "" {
				continue
			}
			sb.WriteString(fmt.Sprintf("- **%s** (%d points): %s\n", c.Author, c.Score, strings.ReplaceAll(c.Body, "\n", " ")))
		}
	}

	return &ExtractedContent{
		Title:   post.Title,
		Content: sb.String(),
		Metadata: models.Metadata{
			Title:       post.Title,
			SiteName:    "Reddit",
			Author:      post.Author,
			Published:   strconv.FormatFloat(post.CreatedUTC, 'f', 0, 64),
			FetchMethod: string(models.MethodDomainAPI),
		},
	}, nil
}
