package pipeline

import (
	"context"
	"testing"

	"github.com/use-agent/webpeel/models"
)

func TestDetectContentType(t *testing.T) {
	cases := []struct {
		name string
		ct   string
		url  string
		want string
	}{
		{"html default", "text/html; charset=utf-8", "https://example.com/", "html"},
		{"empty content-type", "", "https://example.com/", "html"},
		{"pdf by header", "application/pdf", "https://example.com/file", "document/pdf"},
		{"pdf by suffix", "", "https://example.com/file.pdf", "document/pdf"},
		{"docx by header", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "https://example.com/d", "document/docx"},
		{"docx by suffix", "", "https://example.com/report.docx", "document/docx"},
		{"json", "application/json", "https://example.com/api", "json"},
		{"rss feed", "application/rss+xml", "https://example.com/feed", "xml"},
		{"atom by suffix", "", "https://example.com/feed.atom", "xml"},
		{"plain text", "text/plain", "https://example.com/robots.txt", "text"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := &Pipeline{}
			pc := models.NewPipelineContext(models.PeelOptions{URL: c.url})
			pc.Normalized = models.PeelOptions{URL: c.url}
			pc.Fetch = &models.FetchResult{ContentType: c.ct}

			if err := p.detectContentType(context.Background(), pc); err != nil {
				t.Fatalf("detectContentType: %v", err)
			}
			if pc.ContentType != c.want {
				t.Errorf("detectContentType(%q, %q) = %q, want %q", c.ct, c.url, pc.ContentType, c.want)
			}
		})
	}
}

func TestDetectContentTypeSkipsDomainAPIResults(t *testing.T) {
	p := &Pipeline{}
	pc := models.NewPipelineContext(models.PeelOptions{URL: "https://youtube.com/watch?v=x"})
	pc.DomainAPIHandled = true
	pc.ContentType = "html"

	if err := p.detectContentType(context.Background(), pc); err != nil {
		t.Fatalf("detectContentType: %v", err)
	}
	if pc.ContentType != "html" {
		t.Errorf("expected domain-API content type to be left untouched, got %q", pc.ContentType)
	}
}

func TestExtractModeFor(t *testing.T) {
	cases := []struct {
		name string
		opts models.PeelOptions
		want string
	}{
		{"default", models.PeelOptions{}, "auto"},
		{"raw wins", models.PeelOptions{Raw: true, Lite: true}, "raw"},
		{"lite", models.PeelOptions{Lite: true}, "pruning"},
		{"readable", models.PeelOptions{Readable: true}, "readability"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := extractModeFor(c.opts); got != c.want {
				t.Errorf("extractModeFor(%+v) = %q, want %q", c.opts, got, c.want)
			}
		})
	}
}

func TestQualityFromTokens(t *testing.T) {
	cases := []struct {
		name string
		t    models.TokenInfo
		want float64
	}{
		{"no original estimate", models.TokenInfo{}, 0.5},
		{"cleaned to nothing", models.TokenInfo{OriginalEstimate: 100, CleanedEstimate: 0}, 0},
		{"barely trimmed", models.TokenInfo{OriginalEstimate: 100, CleanedEstimate: 98, SavingsPercent: 2}, 0.6},
		{"well trimmed", models.TokenInfo{OriginalEstimate: 100, CleanedEstimate: 40, SavingsPercent: 60}, 0.85},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := qualityFromTokens(c.t); got != c.want {
				t.Errorf("qualityFromTokens(%+v) = %v, want %v", c.t, got, c.want)
			}
		})
	}
}

func TestChunkContent(t *testing.T) {
	content := "first paragraph\n\n  \n\nsecond paragraph\n\nthird"
	got := chunkContent(content)
	want := []string{"first paragraph", "second paragraph", "third"}

	if len(got) != len(want) {
		t.Fatalf("chunkContent returned %d chunks, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPostProcessFallsBackToRawBodyOnEmptyContent(t *testing.T) {
	p := New(Deps{})
	pc := models.NewPipelineContext(models.PeelOptions{URL: "https://example.com"})
	pc.Normalized = pc.Options
	pc.Fetch = &models.FetchResult{HTML: "<html>raw body</html>", StatusCode: 200}
	pc.Content = ""

	if err := p.postProcess(context.Background(), pc); err != nil {
		t.Fatalf("postProcess: %v", err)
	}
	if pc.Content != pc.Fetch.HTML {
		t.Errorf("expected fallback to raw fetched body, got %q", pc.Content)
	}
	if len(pc.Warnings) == 0 {
		t.Error("expected a warning to be recorded for the zero-content fallback")
	}
}
