package domainapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/use-agent/webpeel/models"
)

// githubExtractor reaches the GitHub REST API (api.github.com) for repo,
// issue, and pull-request pages, which otherwise render as heavy
// client-side React apps.
type githubExtractor struct{}

func newGitHubExtractor() *githubExtractor { return &githubExtractor{} }

func (g *githubExtractor) Name() string { return "github" }

func (g *githubExtractor) Match(host string) bool {
	return host == "github.com"
}

var (
	reGHIssue = regexp.MustCompile(`^/([^/]+)/([^/]+)/(issues|pull)/(\d+)$`)
	reGHRepo  = regexp.MustCompile(`^/([^/]+)/([^/]+)/?$`)
)

func (g *githubExtractor) Extract(ctx context.Context, target *url.URL) (*ExtractedContent, error) {
	path := strings.TrimSuffix(target.Path, "/")

	if m := reGHIssue.FindStringSubmatch(path); m != nil {
		owner, repo, kind, number := m[1], m[2], m[3], m[4]
		return g.extractIssue(ctx, owner, repo, kind, number)
	}
	if m := reGHRepo.FindStringSubmatch(path); m != nil {
		return g.extractRepo(ctx, m[1], m[2])
	}
	return nil, fmt.Errorf("github: unsupported path: %s", path)
}

type ghIssue struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	State    string `json:"state"`
	User     ghUser `json:"user"`
	Comments int    `json:"comments"`
	HTMLURL  string `json:"html_url"`
}

type ghUser struct {
	Login string `json:"login"`
}

type ghComment struct {
	User ghUser `json:"user"`
	Body string `json:"body"`
}

func (g *githubExtractor) extractIssue(ctx context.Context, owner, repo, kind, number string) (*ExtractedContent, error) {
	apiKind := "issues"
	var issue ghIssue
	endpoint := fmt.Sprintf("https://api.github.com/repos/%s/%s/%s/%s", owner, repo, apiKind, number)
	if err := getJSON(ctx, endpoint, ghHeaders(), &issue); err != nil {
		return nil, err
	}

	var sb strings.Builder
	kindLabel := "Issue"
	if kind == "pull" {
		kindLabel = "Pull Request"
	}
	sb.WriteString(fmt.Sprintf("# %s (%s #%s, %s)\n\n", issue.Title, kindLabel, number, issue.State))
	sb.WriteString(fmt.Sprintf("*opened by @%s*\n\n", issue.User.Login))
	if issue.Body != "" {
		sb.WriteString(issue.Body + "\n\n")
	}

	if issue.Comments > 0 {
		var comments []ghComment
		commentsEndpoint := fmt.Sprintf("https://api.github.com/repos/%s/%s/issues/%s/comments?per_page=20", owner, repo, number)
		if err := getJSON(ctx, commentsEndpoint, ghHeaders(), &comments); err == nil {
			sb.WriteString("## Comments\n\n")
			for _, c := range comments {
				sb.WriteString(fmt.Sprintf("- **@%s**: %s\n", c.User.Login, strings.ReplaceAll(c.Body, "\n", " ")))
			}
		}
	}

	return &ExtractedContent{
		Title:   issue.Title,
		Content: sb.String(),
		Metadata: models.Metadata{
			Title:       issue.Title,
			SiteName:    "GitHub",
			Author:      issue.User.Login,
			SourceURL:   issue.HTMLURL,
			FetchMethod: string(models.MethodDomainAPI),
		},
	}, nil
}

type ghRepo struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Stars       int    `json:"stargazers_count"`
	Forks       int    `json:"forks_count"`
	Language    string `json:"language"`
	HTMLURL     string `json:"html_url"`
	Owner       ghUser `json:"owner"`
}

func (g *githubExtractor) extractRepo(ctx context.Context, owner, repo string) (*ExtractedContent, error) {
	var r ghRepo
	endpoint := fmt.Sprintf("https://api.github.com/repos/%s/%s", owner, repo)
	if err := getJSON(ctx, endpoint, ghHeaders(), &r); err != nil {
		return nil, err
	}

	var readme struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	readmeText := ""
	readmeEndpoint := fmt.Sprintf("https://api.github.com/repos/%s/%s/readme", owner, repo)
	if err := getJSON(ctx, readmeEndpoint, ghHeaders(), &readme); err == nil && readme.Encoding == "base64" {
		if decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(readme.Content, "\n", "")); err == nil {
			readmeText = string(decoded)
		}
	}

	var sb strings.Builder
	sb.WriteString("# " + r.FullName + "\n\n")
	if r.Description != "" {
		sb.WriteString(r.Description + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("*%d stars, %d forks, primary language %s*\n\n", r.Stars, r.Forks, r.Language))
	if readmeText != "" {
		sb.WriteString("## README\n\n" + readmeText + "\n")
	}

	return &ExtractedContent{
		Title:   r.FullName,
		Content: sb.String(),
		Metadata: models.Metadata{
			Title:       r.FullName,
			SiteName:    "GitHub",
			Author:      r.Owner.Login,
			SourceURL:   r.HTMLURL,
			FetchMethod: string(models.MethodDomainAPI),
		},
	}, nil
}

func ghHeaders() map[string]string {
	return map[string]string{"Accept": "application/vnd.github+json"}
}
