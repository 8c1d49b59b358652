package cleaner

import (
	"strings"
	"testing"
)

func TestMainContentPicksArticleOverNav(t *testing.T) {
	html := `<html><body>
		<nav><a href="/a">Home</a><a href="/b">About</a><a href="/c">Contact</a></nav>
		<div class="wrapper"><article>` +
		strings.Repeat("This is a real sentence of article content. ", 40) +
		`<p>` + strings.Repeat("More paragraph text here. ", 20) + `</p></article></div>
		<footer><a href="/x">Terms</a><a href="/y">Privacy</a></footer>
	</body></html>`

	got, err := MainContent(html)
	if err != nil {
		t.Fatalf("MainContent returned error: %v", err)
	}
	if !strings.Contains(got, "real sentence of article content") {
		t.Fatalf("expected article text in output, got: %s", got)
	}
	if strings.Contains(got, "Contact") {
		t.Fatalf("did not expect nav content in output")
	}
}

func TestMainContentFallsBackOnEmptyDocument(t *testing.T) {
	got, err := MainContent(`<html><body></body></html>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty fallback, got %q", got)
	}
}
