package search

import (
	"testing"

	"github.com/use-agent/webpeel/models"
)

func TestNormalizeDedupesAndDecodesRedirects(t *testing.T) {
	in := []models.SearchResult{
		{Title: "Example", URL: "https://duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&rut=1", Snippet: "hello..."},
		{Title: "Example dup", URL: "https://example.com/page/", Snippet: "…duplicate"},
		{Title: "Bad scheme", URL: "javascript:alert(1)", Snippet: "x"},
	}
	out := Normalize(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 deduped result, got %d: %+v", len(out), out)
	}
	if out[0].URL != "https://example.com/page" {
		t.Fatalf("expected decoded+normalized url, got %q", out[0].URL)
	}
	if out[0].Snippet != "hello" {
		t.Fatalf("expected stripped ellipsis, got %q", out[0].Snippet)
	}
}

func TestClampTruncatesLongFields(t *testing.T) {
	long := make([]byte, models.SearchTitleMaxLen+50)
	for i := range long {
		long[i] = 'a'
	}
	out := clamp(string(long), models.SearchTitleMaxLen)
	if len(out) != models.SearchTitleMaxLen {
		t.Fatalf("expected clamp to %d chars, got %d", models.SearchTitleMaxLen, len(out))
	}
}

func TestQueryRewritesBounded(t *testing.T) {
	rewrites := queryRewrites("openai")
	if len(rewrites) == 0 || len(rewrites) > 6 {
		t.Fatalf("expected 1-6 rewrites, got %d", len(rewrites))
	}
	if rewrites[0] != "openai" {
		t.Fatalf("expected first rewrite to be the original query")
	}
}
