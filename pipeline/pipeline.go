// Package pipeline orchestrates the eight-stage extraction sequence around
// a single mutable models.PipelineContext: NormalizeOptions, HandleSpecialUrl,
// FetchContent, DetectContentType, ParseContent, PostProcess, Finalize, and
// BuildResult, each an ordered step with its own fallback behavior.
package pipeline

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/use-agent/webpeel/changetrack"
	"github.com/use-agent/webpeel/cleaner"
	"github.com/use-agent/webpeel/domainapi"
	"github.com/use-agent/webpeel/engine"
	"github.com/use-agent/webpeel/llm"
	"github.com/use-agent/webpeel/models"
	"github.com/use-agent/webpeel/search"
)

// Deps bundles the collaborators a Pipeline needs. Dispatcher is the only
// required field; the rest degrade gracefully to a no-op when nil, so a
// caller assembling a minimal pipeline for tests doesn't need every wire.
type Deps struct {
	Dispatcher  *engine.Dispatcher
	Cleaner     *cleaner.Cleaner
	Domain      *domainapi.Registry
	Search      *search.Engine
	ChangeTrack *changetrack.Store
}

// Pipeline runs Peel invocations against a fixed set of collaborators.
type Pipeline struct {
	deps Deps
}

// New builds a Pipeline from its collaborators.
func New(deps Deps) *Pipeline {
	if deps.Cleaner == nil {
		deps.Cleaner = cleaner.NewCleaner()
	}
	if deps.Domain == nil {
		deps.Domain = domainapi.NewRegistry()
	}
	return &Pipeline{deps: deps}
}

// Peel runs the full eight-stage pipeline for a single request and returns
// the finished result.
func (p *Pipeline) Peel(ctx context.Context, opts models.PeelOptions) (*models.PeelResult, error) {
	pc := models.NewPipelineContext(opts)

	stages := []struct {
		name string
		fn   func(context.Context, *models.PipelineContext) error
	}{
		{"normalize", p.normalizeOptions},
		{"special-url", p.handleSpecialURL},
		{"fetch", p.fetchContent},
		{"detect-content-type", p.detectContentType},
		{"parse", p.parseContent},
		{"post-process", p.postProcess},
		{"finalize", p.finalize},
	}

	for _, stage := range stages {
		started := time.Now()
		if err := stage.fn(ctx, pc); err != nil {
			return nil, err
		}
		pc.Mark(stage.name, time.Since(started))
	}

	return p.buildResult(pc), nil
}

// normalizeOptions is Stage 1: apply documented defaults, modeled on the
// teacher's ScrapeRequest.Defaults().
func (p *Pipeline) normalizeOptions(_ context.Context, pc *models.PipelineContext) error {
	if _, err := models.ParseTargetURL(pc.Options.URL); err != nil {
		return err
	}
	pc.Options.Defaults()
	pc.Normalized = pc.Options
	return nil
}

// handleSpecialURL is Stage 2: short-circuit to a domain-specific
// structured API (YouTube transcript, Reddit/HN/GitHub JSON APIs) before
// ever reaching the fetch engine, when the target URL matches one.
func (p *Pipeline) handleSpecialURL(ctx context.Context, pc *models.PipelineContext) error {
	target, err := models.ParseTargetURL(pc.Normalized.URL)
	if err != nil {
		return err
	}

	if domainapi.IsYouTubeVideoURL(target) {
		extracted, err := domainapi.YouTubeTranscript(ctx, target)
		if err == nil {
			applyDomainContent(pc, extracted)
			return nil
		}
		pc.Warn("youtube transcript extraction failed: " + err.Error())
		return nil
	}

	if extractor := p.deps.Domain.Find(target.Host); extractor != nil {
		extracted, err := extractor.Extract(ctx, target)
		if err == nil {
			applyDomainContent(pc, extracted)
			return nil
		}
		pc.Warn(extractor.Name() + " extraction failed, falling back to generic fetch: " + err.Error())
	}

	return nil
}

func applyDomainContent(pc *models.PipelineContext, extracted *domainapi.ExtractedContent) {
	pc.DomainAPIHandled = true
	pc.Content = extracted.Content
	pc.Title = extracted.Title
	pc.Metadata = extracted.Metadata
	pc.ContentType = "html"
	pc.Quality = domainapi.Quality
}

// fetchContent is Stage 3: run the tiered fetch dispatcher, unless a
// domain API already produced content in Stage 2.
func (p *Pipeline) fetchContent(ctx context.Context, pc *models.PipelineContext) error {
	if pc.DomainAPIHandled {
		return nil
	}
	if p.deps.Dispatcher == nil {
		return models.NewPeelError(models.ErrKindFatal, "no fetch dispatcher configured", nil)
	}

	req := buildFetchRequest(pc.Normalized)
	result, err := p.deps.Dispatcher.Dispatch(ctx, req)
	if err != nil {
		pc.Warn("fetch failed: " + err.Error())
		if p.deps.Search != nil && p.searchAsProxyFallback(ctx, pc) {
			return nil
		}
		return err
	}

	pc.Fetch = result
	pc.Blocked = result.ChallengeDetected
	pc.Screenshot = result.Screenshot

	if pc.Blocked && p.deps.Search != nil {
		p.searchAsProxyFallback(ctx, pc)
	}
	return nil
}

// searchAsProxyFallback is the §4.7 search-as-proxy fallback: when every
// fetch tier is blocked, synthesize a minimal result from search snippets
// instead of surfacing a hard failure.
func (p *Pipeline) searchAsProxyFallback(ctx context.Context, pc *models.PipelineContext) bool {
	target, err := models.ParseTargetURL(pc.Normalized.URL)
	if err != nil {
		return false
	}
	proxied := search.SearchAsProxy(ctx, p.deps.Search, target.Host, target.Path)
	if proxied == nil {
		return false
	}
	pc.Fetch = &models.FetchResult{
		HTML:        proxied.CachedContent,
		FinalURL:    pc.Normalized.URL,
		StatusCode:  200,
		ContentType: "text/markdown",
		Method:      models.MethodSearchFallback,
	}
	pc.Content = proxied.CachedContent
	pc.ContentType = "text"
	pc.Quality = search.SearchProxyQuality
	pc.BudgetFallback = true
	pc.Warn("primary fetch blocked; substituted search-engine snippets")
	return true
}

func buildFetchRequest(opts models.PeelOptions) *models.FetchRequest {
	return &models.FetchRequest{
		URL:            opts.URL,
		Render:         opts.Render,
		Stealth:        opts.Stealth,
		Cloaked:        opts.Cloaked,
		Branding:       opts.Branding,
		WaitMs:         opts.Wait,
		UserAgent:      opts.UserAgent,
		Headers:        opts.Headers,
		Cookies:        opts.Cookies,
		Actions:        opts.Actions,
		TimeoutMs:      opts.Timeout,
		Proxies:        opts.Proxies,
		ViewportW:      opts.ViewportWidth,
		ViewportH:      opts.ViewportHeight,
		WaitUntil:      opts.WaitUntil,
		WaitSelector:   opts.WaitSelector,
		BlockResources: opts.BlockResources,
		Screenshot:     opts.Screenshot,
		FullPage:       opts.FullPage,
	}
}

// finalize is Stage 7: branding, AI summary. Kept deliberately small:
// both are best-effort enrichments that never fail the overall Peel call.
// Branding itself was already computed by in-page JS back in Stage 3
// (scraper/page.go, while the rendering tier's page handle was still
// live); this stage only lifts it onto the pipeline context.
func (p *Pipeline) finalize(ctx context.Context, pc *models.PipelineContext) error {
	if pc.Fetch != nil && pc.Fetch.Branding != nil {
		pc.Branding = pc.Fetch.Branding
	}

	if pc.Options.Summary && pc.Content != "" && pc.Options.LLM != nil {
		client := llm.ForProvider(pc.Options.LLM.Provider)
		summary, err := client.Summarize(ctx, pc.Content, llm.ExtractParams{
			APIKey:  pc.Options.LLM.APIKey,
			Model:   pc.Options.LLM.Model,
			BaseURL: pc.Options.LLM.BaseURL,
		})
		if err != nil {
			pc.Warn("summary generation failed: " + err.Error())
		} else {
			pc.Summary = summary
		}
	}
	return nil
}

func (p *Pipeline) buildResult(pc *models.PipelineContext) *models.PeelResult {
	method := ""
	if pc.Fetch != nil {
		method = string(pc.Fetch.Method)
	}
	if pc.DomainAPIHandled {
		method = string(models.MethodDomainAPI)
	}

	var screenshot string
	if len(pc.Screenshot) > 0 {
		screenshot = base64.StdEncoding.EncodeToString(pc.Screenshot)
	}

	result := &models.PeelResult{
		URL:            pc.Normalized.URL,
		Title:          pc.Title,
		Content:        pc.Content,
		ContentType:    pc.ContentType,
		Metadata:       pc.Metadata,
		Links:          pc.Links,
		LinkCount:      len(pc.Links),
		Images:         pc.Images,
		Method:         method,
		ElapsedMs:      pc.Elapsed().Milliseconds(),
		Screenshot:     screenshot,
		Quality:        pc.Quality,
		PrunedPercent:  pc.PrunedPercent,
		JSONLDType:     pc.JSONLDType,
		Extracted:      pc.ExtractedFields,
		Branding:       pc.Branding,
		ChangeTracking: pc.ChangeTracking,
		Summary:        pc.Summary,
		DomainData:     pc.DomainData,
		Readability:    pc.Readability,
		QuickAnswer:    pc.QuickAnswer,
		Chunks:         pc.Chunks,
		Blocked:        pc.Blocked,
		BudgetFallback: pc.BudgetFallback,
		Warnings:       pc.Warnings,
		Tokens:         pc.Tokens.CleanedEstimate,
	}
	if pc.Content != "" {
		result.Fingerprint = changetrack.Fingerprint(pc.Content)
	}
	result.Timing.TotalMs = pc.Elapsed().Milliseconds()
	if d, ok := pc.Timing["fetch"]; ok {
		result.Timing.NavigationMs = d.Milliseconds()
	}
	if d, ok := pc.Timing["parse"]; ok {
		result.Timing.CleaningMs = d.Milliseconds()
	}
	if d, ok := pc.Timing["post-process"]; ok {
		result.Timing.DistillMs = d.Milliseconds()
	}
	if len(pc.Warnings) > 0 {
		result.Warning = pc.Warnings[len(pc.Warnings)-1]
	}
	return result
}
