package pipeline

import (
	"context"
	"testing"

	"github.com/use-agent/webpeel/changetrack"
	"github.com/use-agent/webpeel/domainapi"
	"github.com/use-agent/webpeel/models"
)

func TestNormalizeOptionsRejectsBadURL(t *testing.T) {
	p := New(Deps{})
	pc := models.NewPipelineContext(models.PeelOptions{URL: "not-a-url"})

	if err := p.normalizeOptions(context.Background(), pc); err == nil {
		t.Fatal("expected an error for a malformed URL")
	}
}

func TestNormalizeOptionsAppliesDefaults(t *testing.T) {
	p := New(Deps{})
	pc := models.NewPipelineContext(models.PeelOptions{URL: "https://example.com/article"})

	if err := p.normalizeOptions(context.Background(), pc); err != nil {
		t.Fatalf("normalizeOptions: %v", err)
	}
	if pc.Normalized.Timeout == 0 {
		t.Error("expected Defaults() to fill in a non-zero timeout")
	}
	if pc.Normalized.Format == "" {
		t.Error("expected Defaults() to fill in a default format")
	}
}

func TestHandleSpecialURLNoMatchIsANoop(t *testing.T) {
	p := New(Deps{Domain: domainapi.NewRegistry()})
	pc := models.NewPipelineContext(models.PeelOptions{URL: "https://example.com/plain-page"})
	pc.Normalized = pc.Options

	if err := p.handleSpecialURL(context.Background(), pc); err != nil {
		t.Fatalf("handleSpecialURL: %v", err)
	}
	if pc.DomainAPIHandled {
		t.Error("expected a generic URL to leave DomainAPIHandled false")
	}
}

func TestApplyDomainContent(t *testing.T) {
	pc := models.NewPipelineContext(models.PeelOptions{URL: "https://github.com/golang/go/issues/1"})
	extracted := &domainapi.ExtractedContent{
		Title:   "an issue",
		Content: "issue body",
		Metadata: models.Metadata{
			Title:     "an issue",
			SourceURL: "https://github.com/golang/go/issues/1",
		},
	}

	applyDomainContent(pc, extracted)

	if !pc.DomainAPIHandled {
		t.Error("expected DomainAPIHandled to be set")
	}
	if pc.Content != "issue body" {
		t.Errorf("Content = %q, want %q", pc.Content, "issue body")
	}
	if pc.ContentType != "html" {
		t.Errorf("ContentType = %q, want html", pc.ContentType)
	}
	if pc.Quality != domainapi.Quality {
		t.Errorf("Quality = %v, want %v", pc.Quality, domainapi.Quality)
	}
}

func TestFetchContentSkipsDispatchWhenDomainAPIHandled(t *testing.T) {
	p := New(Deps{}) // no Dispatcher configured
	pc := models.NewPipelineContext(models.PeelOptions{URL: "https://youtube.com/watch?v=x"})
	pc.DomainAPIHandled = true

	if err := p.fetchContent(context.Background(), pc); err != nil {
		t.Fatalf("fetchContent should be a no-op once a domain API already produced content: %v", err)
	}
}

func TestFetchContentRequiresADispatcher(t *testing.T) {
	p := New(Deps{})
	pc := models.NewPipelineContext(models.PeelOptions{URL: "https://example.com"})
	pc.Normalized = pc.Options

	err := p.fetchContent(context.Background(), pc)
	if err == nil {
		t.Fatal("expected an error when no Dispatcher is configured")
	}
}

func TestBuildFetchRequest(t *testing.T) {
	opts := models.PeelOptions{
		URL:       "https://example.com",
		Render:    true,
		Stealth:   true,
		Timeout:   5000,
		UserAgent: "custom-agent",
	}

	req := buildFetchRequest(opts)
	if req.URL != opts.URL || !req.Render || !req.Stealth || req.TimeoutMs != opts.Timeout || req.UserAgent != opts.UserAgent {
		t.Errorf("buildFetchRequest did not carry over all fields: %+v", req)
	}
}

func TestBuildResultFingerprintsCurrentContent(t *testing.T) {
	p := New(Deps{})
	pc := models.NewPipelineContext(models.PeelOptions{URL: "https://example.com"})
	pc.Normalized = pc.Options
	pc.Content = "hello"
	// A stale PriorFingerprint from a previous baseline must never leak
	// into the top-level result: Fingerprint always describes pc.Content
	// as returned, not whatever the change-tracking baseline happened to
	// hold before this call.
	pc.ChangeTracking = &models.ChangeResult{Changed: true, PriorFingerprint: "abc123"}
	pc.Tokens = models.TokenInfo{CleanedEstimate: 42}

	result := p.buildResult(pc)

	want := changetrack.Fingerprint("hello")
	if result.Fingerprint != want {
		t.Errorf("Fingerprint = %q, want %q (fingerprint of current content)", result.Fingerprint, want)
	}
	if len(result.Fingerprint) != 16 {
		t.Errorf("Fingerprint length = %d, want 16 hex chars", len(result.Fingerprint))
	}
	if result.Tokens != 42 {
		t.Errorf("Tokens = %d, want 42", result.Tokens)
	}
}

func TestBuildResultUsesDomainAPIMethod(t *testing.T) {
	p := New(Deps{})
	pc := models.NewPipelineContext(models.PeelOptions{URL: "https://github.com/golang/go"})
	pc.Normalized = pc.Options
	pc.DomainAPIHandled = true

	result := p.buildResult(pc)
	if result.Method != string(models.MethodDomainAPI) {
		t.Errorf("Method = %q, want %q", result.Method, models.MethodDomainAPI)
	}
}

func TestBuildResultSurfacesLastWarningAsWarningField(t *testing.T) {
	p := New(Deps{})
	pc := models.NewPipelineContext(models.PeelOptions{URL: "https://example.com"})
	pc.Normalized = pc.Options
	pc.Warn("first issue")
	pc.Warn("second issue")

	result := p.buildResult(pc)
	if result.Warning != "second issue" {
		t.Errorf("Warning = %q, want the most recent warning", result.Warning)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("Warnings = %v, want 2 entries", result.Warnings)
	}
}
