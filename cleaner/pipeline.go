package cleaner

import (
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/use-agent/webpeel/models"
)

// Cleaner orchestrates the two-stage cleaning pipeline:
//
//	Stage 1 (content extraction): readability, density pruning, main-content
//	         scoring, or raw passthrough, depending on ExtractMode.
//	Stage 2 (format conversion):  clean HTML -> Markdown (or html/text
//	         pass-through).
//
// The converter is created once and reused across all requests
// (goroutine-safe), matching the single shared mdConverter pattern this was
// grounded on.
type Cleaner struct {
	mdConverter *converter.Converter
}

// NewCleaner initialises the Cleaner with a pre-configured Markdown converter.
func NewCleaner() *Cleaner {
	return &Cleaner{
		mdConverter: newMarkdownConverter(),
	}
}

// CleanOptions carries optional content-filtering parameters for the pipeline.
type CleanOptions struct {
	IncludeTags []string
	ExcludeTags []string
	// ExtractMode selects the Stage 1 strategy: "readability" (default),
	// "pruning", "maincontent", "auto", or "raw".
	ExtractMode string
}

// Result is the output of Clean: everything the pipeline's ParseContent and
// PostProcess stages need to populate a PipelineContext.
type Result struct {
	Content  string
	Metadata models.Metadata
	Links    models.LinksResult
	Images   []models.Image
	OGMeta   models.OGMetadata
	Tokens   models.TokenInfo
}

// Clean runs the full pipeline and returns a Result (Content + Metadata +
// Links + Images + Tokens). Timing is the caller's responsibility.
//
// Flow:
//  1. Estimate original tokens from raw HTML.
//  1b. Apply include/exclude tag filters (if provided).
//  2. Stage 1: extract main content per ExtractMode.
//  3. Stage 2: convert to the requested output format.
//  4. Estimate cleaned tokens and compute savings.
//  5. Extract links, images, OG metadata from raw HTML.
func (c *Cleaner) Clean(rawHTML string, sourceURL string, format string, opts CleanOptions) (*Result, error) {
	originalTokens := EstimateTokens(rawHTML)

	rawHTML = FilterContent(rawHTML, opts.IncludeTags, opts.ExcludeTags)

	var article readability.Article
	switch opts.ExtractMode {
	case "raw":
		article = fallbackArticle(rawHTML)

	case "pruning":
		prunedHTML, err := PruneContent(rawHTML, sourceURL)
		if err != nil {
			slog.Warn("pruning: extraction failed, falling back to raw HTML", "url", sourceURL, "error", err)
			prunedHTML = rawHTML
		}
		metaArticle, _ := ExtractContent(rawHTML, sourceURL)
		article = readability.Article{
			Title:       metaArticle.Title,
			Byline:      metaArticle.Byline,
			Excerpt:     metaArticle.Excerpt,
			SiteName:    metaArticle.SiteName,
			Language:    metaArticle.Language,
			Content:     prunedHTML,
			TextContent: stripTags(prunedHTML),
		}

	case "maincontent":
		mainHTML, err := MainContent(rawHTML)
		if err != nil {
			slog.Warn("maincontent: extraction failed, falling back to raw HTML", "url", sourceURL, "error", err)
			mainHTML = rawHTML
		}
		metaArticle, _ := ExtractContent(rawHTML, sourceURL)
		article = readability.Article{
			Title:       metaArticle.Title,
			Byline:      metaArticle.Byline,
			Excerpt:     metaArticle.Excerpt,
			SiteName:    metaArticle.SiteName,
			Language:    metaArticle.Language,
			Content:     mainHTML,
			TextContent: stripTags(mainHTML),
		}

	case "auto":
		article = autoExtract(rawHTML, sourceURL)

	default:
		article, _ = ExtractContent(rawHTML, sourceURL)
	}

	var content string
	var err error

	switch format {
	case "markdown", "":
		content, err = ToMarkdown(c.mdConverter, article.Content, sourceURL)
	case "html":
		content = article.Content
	case "text":
		content = article.TextContent
	default:
		content, err = ToMarkdown(c.mdConverter, article.Content, sourceURL)
	}
	if err != nil {
		return nil, models.NewPeelError(models.ErrKindParseFailed, "markdown conversion failed", err)
	}

	cleanedTokens := EstimateTokens(content)
	savingsPercent := 0.0
	if originalTokens > 0 {
		savingsPercent = float64(originalTokens-cleanedTokens) / float64(originalTokens) * 100
		savingsPercent = math.Round(savingsPercent*100) / 100
	}

	links := ExtractLinks(rawHTML, sourceURL)
	images := ExtractImages(rawHTML, sourceURL)
	ogMeta := ExtractOGMetadata(rawHTML)

	return &Result{
		Content: content,
		Metadata: models.Metadata{
			Title:       article.Title,
			Description: article.Excerpt,
			SiteName:    article.SiteName,
			Author:      article.Byline,
			Language:    article.Language,
			SourceURL:   sourceURL,
		},
		Links:  links,
		Images: images,
		OGMeta: ogMeta,
		Tokens: models.TokenInfo{
			OriginalEstimate: originalTokens,
			CleanedEstimate:  cleanedTokens,
			SavingsPercent:   savingsPercent,
		},
	}, nil
}

// autoExtract runs both Readability and Pruning concurrently, then picks the
// result that extracted more meaningful text content.
func autoExtract(rawHTML, sourceURL string) readability.Article {
	var (
		readabilityArticle readability.Article
		prunedHTML         string
		pruneErr           error
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		readabilityArticle, _ = ExtractContent(rawHTML, sourceURL)
	}()

	go func() {
		defer wg.Done()
		prunedHTML, pruneErr = PruneContent(rawHTML, sourceURL)
	}()

	wg.Wait()

	if pruneErr != nil {
		slog.Warn("auto: pruning failed, using readability result", "url", sourceURL, "error", pruneErr)
		return readabilityArticle
	}

	prunedText := stripTags(prunedHTML)
	readabilityText := strings.TrimSpace(readabilityArticle.TextContent)

	useReadability := len(readabilityText) >= len(prunedText)

	if useReadability && len(prunedText) > minContentLength {
		if len(readabilityText) > 10*len(prunedText) {
			useReadability = false
		}
	} else if !useReadability && len(readabilityText) > minContentLength {
		if len(prunedText) > 10*len(readabilityText) {
			useReadability = true
		}
	}

	if useReadability {
		return readabilityArticle
	}

	return readability.Article{
		Title:       readabilityArticle.Title,
		Byline:      readabilityArticle.Byline,
		Excerpt:     readabilityArticle.Excerpt,
		SiteName:    readabilityArticle.SiteName,
		Language:    readabilityArticle.Language,
		Content:     prunedHTML,
		TextContent: prunedText,
	}
}

// stripTags is a simple helper that extracts visible text from an HTML
// fragment by parsing it with goquery. Returns trimmed plain text.
func stripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}
