package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/use-agent/webpeel/challenge"
	"github.com/use-agent/webpeel/cleaner"
	"github.com/use-agent/webpeel/distill"
	"github.com/use-agent/webpeel/document"
	"github.com/use-agent/webpeel/llm"
	"github.com/use-agent/webpeel/models"
)

// detectContentType is Stage 4: classify the fetched body into
// document/pdf, document/docx, html, json, xml (feed), or text, the way
// engine/http_engine.go sniffs a response's Content-Type header before
// deciding how to decode it.
func (p *Pipeline) detectContentType(_ context.Context, pc *models.PipelineContext) error {
	if pc.DomainAPIHandled {
		return nil
	}
	if pc.Fetch == nil {
		return models.NewPeelError(models.ErrKindFatal, "no fetch result to classify", nil)
	}

	ct := strings.ToLower(pc.Fetch.ContentType)
	url := strings.ToLower(pc.Normalized.URL)

	switch {
	case strings.Contains(ct, "application/pdf") || strings.HasSuffix(url, ".pdf"):
		pc.ContentType = "document/pdf"
	case strings.Contains(ct, "officedocument.wordprocessingml") || strings.HasSuffix(url, ".docx"):
		pc.ContentType = "document/docx"
	case strings.Contains(ct, "application/json"):
		pc.ContentType = "json"
	case strings.Contains(ct, "rss+xml") || strings.Contains(ct, "atom+xml") ||
		strings.HasSuffix(url, ".rss") || strings.HasSuffix(url, ".atom"):
		pc.ContentType = "xml"
	case strings.Contains(ct, "xml"):
		pc.ContentType = "xml"
	case strings.Contains(ct, "text/html") || ct == "" || strings.HasPrefix(ct, "text/html;"):
		pc.ContentType = "html"
	case strings.Contains(ct, "text/plain"):
		pc.ContentType = "text"
	default:
		pc.ContentType = "html"
	}
	return nil
}

// parseContent is Stage 5: dispatch by the detected content type and
// populate Content/Title/Metadata/Links/Images/Tokens.
func (p *Pipeline) parseContent(_ context.Context, pc *models.PipelineContext) error {
	if pc.DomainAPIHandled {
		return nil
	}

	switch pc.ContentType {
	case "document/pdf":
		return p.parseDocument(pc, document.ExtractPDF)
	case "document/docx":
		return p.parseDocument(pc, document.ExtractDOCX)
	case "json":
		pc.Content = pc.Fetch.HTML
		pc.Title = pc.Normalized.URL
		return nil
	case "xml":
		return p.parseFeed(pc)
	case "text":
		pc.Content = pc.Fetch.HTML
		return nil
	default:
		return p.parseHTML(pc)
	}
}

type documentExtractFunc func(raw []byte) (string, error)

func (p *Pipeline) parseDocument(pc *models.PipelineContext, extract documentExtractFunc) error {
	text, err := extract([]byte(pc.Fetch.HTML))
	if err != nil {
		return models.NewPeelError(models.ErrKindParseFailed, "document extraction failed", err)
	}
	pc.Content = text
	pc.Quality = 1.0
	return nil
}

func (p *Pipeline) parseFeed(pc *models.PipelineContext) error {
	fp := gofeed.NewParser()
	feed, err := fp.ParseString(pc.Fetch.HTML)
	if err != nil {
		return models.NewPeelError(models.ErrKindParseFailed, "feed parsing failed", err)
	}

	pc.Title = feed.Title
	pc.Metadata = models.Metadata{
		Title:       feed.Title,
		Description: feed.Description,
		SourceURL:   pc.Normalized.URL,
	}

	var sb strings.Builder
	sb.WriteString("# " + feed.Title + "\n\n")
	for _, item := range feed.Items {
		sb.WriteString("## " + item.Title + "\n\n")
		if item.Link != "" {
			sb.WriteString(item.Link + "\n\n")
			pc.AddLink(item.Link)
		}
		body := item.Content
		if body == "" {
			body = item.Description
		}
		sb.WriteString(body + "\n\n")
	}
	pc.Content = sb.String()
	pc.Quality = 0.9
	return nil
}

func (p *Pipeline) parseHTML(pc *models.PipelineContext) error {
	result, err := p.deps.Cleaner.Clean(pc.Fetch.HTML, pc.Normalized.URL, pc.Normalized.Format, cleaner.CleanOptions{
		IncludeTags: pc.Normalized.IncludeTags,
		ExcludeTags: pc.Normalized.ExcludeTags,
		ExtractMode: extractModeFor(pc.Normalized),
	})
	if err != nil {
		return err
	}

	pc.Content = result.Content
	pc.Title = result.Metadata.Title
	pc.Metadata = result.Metadata
	pc.Tokens = result.Tokens
	if pc.Normalized.Images {
		pc.Images = result.Images
	}
	for _, link := range result.Links.Internal {
		pc.AddLink(link.URL)
	}
	for _, link := range result.Links.External {
		pc.AddLink(link.URL)
	}
	pc.Quality = qualityFromTokens(result.Tokens)
	pc.PrunedPercent = result.Tokens.SavingsPercent
	return nil
}

// extractModeFor maps the caller-facing Lite/Readable flags to the
// Cleaner's Stage-1 extraction strategy names.
func extractModeFor(opts models.PeelOptions) string {
	switch {
	case opts.Raw:
		return "raw"
	case opts.Lite:
		return "pruning"
	case opts.Readable:
		return "readability"
	default:
		return "auto"
	}
}

// qualityFromTokens derives a rough content-quality score from how much
// the cleaning pass trimmed away: pages reduced to almost nothing were
// probably mostly chrome/boilerplate to begin with, not a good signal of
// a low-quality extraction, so apart from an entirely empty result (which
// scores 0) this only penalizes the other direction — content that barely
// shrank at all, which usually means extraction failed to separate the
// article from the surrounding page.
func qualityFromTokens(t models.TokenInfo) float64 {
	if t.OriginalEstimate == 0 {
		return 0.5
	}
	if t.CleanedEstimate == 0 {
		return 0
	}
	if t.SavingsPercent < 5 {
		return 0.6
	}
	return 0.85
}

// postProcess is Stage 6: structured extraction, quick-answer, budget
// distillation, challenge re-detection, and change tracking — all
// best-effort enrichments layered on top of the already-parsed content.
func (p *Pipeline) postProcess(ctx context.Context, pc *models.PipelineContext) error {
	if pc.Fetch != nil && !pc.Blocked &&
		(len(pc.Content) < models.SuspiciouslySmallThreshold || pc.Fetch.StatusCode >= 400) {
		if v := challenge.Detect(pc.Fetch.HTML, pc.Fetch.StatusCode); v.IsChallenge {
			pc.Blocked = true
			pc.Warn("challenge detected: " + string(v.Type))
		}
	}

	if pc.Normalized.Extract != nil && pc.Normalized.Extract.CSSSelector == "" &&
		len(pc.Normalized.Extract.Schema) > 0 && pc.Normalized.LLM != nil {
		p.runStructuredExtraction(ctx, pc)
	}

	if pc.Normalized.Question != "" {
		rawHTML := ""
		if pc.Fetch != nil {
			rawHTML = pc.Fetch.HTML
		}
		pc.QuickAnswer = distill.AnswerQuestionWithFallback(pc.Content, rawHTML, pc.Normalized.Question)
	}

	if pc.Normalized.MaxTokens > 0 {
		pc.Content = truncateToMaxTokens(pc.Content, pc.Normalized.MaxTokens)
	}

	if pc.Normalized.Budget > 0 {
		distilled, fallback := distill.Distill(pc.Content, pc.Title, pc.Normalized.Question, pc.Normalized.Budget)
		pc.Content = distilled
		pc.BudgetFallback = pc.BudgetFallback || fallback
	}

	if pc.Normalized.Chunk {
		pc.Chunks = chunkContent(pc.Content)
	}

	if pc.Normalized.ChangeTracking && p.deps.ChangeTrack != nil {
		result := p.deps.ChangeTrack.Check(models.NormalizeURL(pc.Normalized.URL), pc.Content)
		pc.ChangeTracking = &result
	}

	if strings.TrimSpace(pc.Content) == "" && !pc.BudgetFallback {
		pc.Warn("zero-content result after parsing; falling back to raw fetched body")
		if pc.Fetch != nil {
			pc.Content = pc.Fetch.HTML
		}
	}

	return nil
}

// truncateToMaxTokens applies a hard cap on content length: simple head
// truncation at an estimated token boundary, using cleaner.EstimateTokens'
// chars-per-token heuristic run in reverse. Runs before budget distillation
// so a caller-supplied maxTokens always wins over the relevance-based
// budget, never the other way around.
func truncateToMaxTokens(content string, maxTokens int) string {
	if cleaner.EstimateTokens(content) <= maxTokens {
		return content
	}

	charBudget := maxTokens * 3
	runes := []rune(content)
	if charBudget >= len(runes) {
		return content
	}
	cut := runes[:charBudget]

	if idx := strings.LastIndexFunc(string(cut), func(r rune) bool {
		return r == ' ' || r == '\n'
	}); idx > 0 {
		return string(cut)[:idx]
	}
	return string(cut)
}

func (p *Pipeline) runStructuredExtraction(ctx context.Context, pc *models.PipelineContext) {
	client := llm.ForProvider(pc.Normalized.LLM.Provider)
	result, err := client.Extract(ctx, pc.Content, pc.Normalized.Extract.Schema, llm.ExtractParams{
		APIKey:  pc.Normalized.LLM.APIKey,
		Model:   pc.Normalized.LLM.Model,
		BaseURL: pc.Normalized.LLM.BaseURL,
	})
	if err != nil {
		pc.Warn("structured extraction failed: " + err.Error())
		return
	}
	pc.ExtractedFields = json.RawMessage(result.Data)
}

// chunkContent splits already-cleaned content into paragraph-sized
// chunks for callers that want to stream or page through a long result
// rather than receive it as one block.
func chunkContent(content string) []string {
	parts := strings.Split(content, "\n\n")
	var chunks []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			chunks = append(chunks, part)
		}
	}
	return chunks
}
