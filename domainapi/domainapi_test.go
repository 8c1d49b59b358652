package domainapi

import (
	"net/url"
	"testing"
)

func TestRegistryFindsByHost(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		host string
		want string
	}{
		{"www.reddit.com", "reddit"},
		{"old.reddit.com", "reddit"},
		{"news.ycombinator.com", "hackernews"},
		{"github.com", "github"},
		{"example.com", ""},
	}
	for _, c := range cases {
		e := reg.Find(c.host)
		if c.want == "" {
			if e != nil {
				t.Errorf("host %q: expected no extractor, got %q", c.host, e.Name())
			}
			continue
		}
		if e == nil || e.Name() != c.want {
			t.Errorf("host %q: expected extractor %q, got %v", c.host, c.want, e)
		}
	}
}

func TestIsYouTubeVideoURL(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"https://www.youtube.com/", false},
		{"https://www.youtube.com/channel/UC123", false},
		{"https://example.com/watch?v=x", false},
	}
	for _, c := range cases {
		u, err := url.Parse(c.raw)
		if err != nil {
			t.Fatalf("parsing %q: %v", c.raw, err)
		}
		if got := IsYouTubeVideoURL(u); got != c.want {
			t.Errorf("IsYouTubeVideoURL(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestGitHubPathMatching(t *testing.T) {
	cases := []struct {
		path    string
		isIssue bool
		isRepo  bool
	}{
		{"/golang/go", false, true},
		{"/golang/go/issues/123", true, false},
		{"/golang/go/pull/456", true, false},
		{"/golang/go/issues/123/files", false, false},
	}
	for _, c := range cases {
		gotIssue := reGHIssue.MatchString(c.path)
		gotRepo := reGHRepo.MatchString(c.path)
		if gotIssue != c.isIssue {
			t.Errorf("path %q: issue match = %v, want %v", c.path, gotIssue, c.isIssue)
		}
		if gotRepo != c.isRepo {
			t.Errorf("path %q: repo match = %v, want %v", c.path, gotRepo, c.isRepo)
		}
	}
}

func TestPickTrackPrefersEnglishManual(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "asr", LanguageCode: "en", Kind: "asr"},
		{BaseURL: "manual-fr", LanguageCode: "fr"},
		{BaseURL: "manual-en", LanguageCode: "en"},
	}
	got := pickTrack(tracks)
	if got == nil || got.BaseURL != "manual-en" {
		t.Fatalf("expected manual-en track, got %+v", got)
	}
}
