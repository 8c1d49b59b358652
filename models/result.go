package models

import "encoding/json"

// PeelResult is the structured record produced by a pipeline invocation
// (Stage 8 — BuildResult). Stable shape; new fields are additive.
type PeelResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"` // document|html|json|xml|text

	Metadata Metadata          `json:"metadata"`
	Links    []string          `json:"links,omitempty"`
	LinkCount int              `json:"linkCount"`
	Images   []Image           `json:"images,omitempty"`

	Tokens     int    `json:"tokens"`
	Method     string `json:"method"` // FetchMethod tag
	ElapsedMs  int64  `json:"elapsedMs"`
	Timing     TimingInfo `json:"timing"`

	Screenshot string `json:"screenshot,omitempty"` // base64

	Quality       float64 `json:"quality"`
	Fingerprint   string  `json:"fingerprint,omitempty"`
	PrunedPercent float64 `json:"prunedPercent,omitempty"`
	JSONLDType    string  `json:"jsonLdType,omitempty"`

	Extracted json.RawMessage `json:"extracted,omitempty"`

	Branding       *BrandingProfile  `json:"branding,omitempty"`
	ChangeTracking *ChangeResult     `json:"changeTracking,omitempty"`
	Summary        string            `json:"summary,omitempty"`
	DomainData     json.RawMessage   `json:"domainData,omitempty"`
	Readability    *ReadabilityResult `json:"readability,omitempty"`
	QuickAnswer    *QuickAnswer      `json:"quickAnswer,omitempty"`
	Chunks         []string          `json:"chunks,omitempty"`

	Blocked       bool     `json:"blocked,omitempty"`
	BudgetFallback bool    `json:"budgetFallback,omitempty"`
	Warning       string   `json:"warning,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`

	FreshnessHeaders map[string]string `json:"freshnessHeaders,omitempty"`
}

// Metadata holds page-level information extracted during the pipeline.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
	Author      string `json:"author,omitempty"`
	Language    string `json:"language,omitempty"`
	Published   string `json:"published,omitempty"`
	SourceURL   string `json:"sourceUrl"`
	FetchMethod string `json:"fetchMethod,omitempty"`
}

// Image is an extracted <img> reference.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Link categorizes an extracted anchor by whether it points within the
// source page's own host.
type Link struct {
	URL      string `json:"url"`
	Text     string `json:"text,omitempty"`
	Internal bool   `json:"internal"`
}

// LinksResult is the output of link extraction, split by host.
type LinksResult struct {
	Internal []Link `json:"internal"`
	External []Link `json:"external"`
}

// OGMetadata holds Open Graph tags scraped from <meta property="og:*">.
type OGMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Type        string `json:"type,omitempty"`
}

// TokenInfo provides before/after token estimates to show cleaning efficacy.
type TokenInfo struct {
	OriginalEstimate int     `json:"originalEstimate"`
	CleanedEstimate  int     `json:"cleanedEstimate"`
	SavingsPercent   float64 `json:"savingsPercent"`
}

// TimingInfo breaks down the time spent in each pipeline phase.
type TimingInfo struct {
	TotalMs      int64 `json:"totalMs"`
	NavigationMs int64 `json:"navigationMs"`
	CleaningMs   int64 `json:"cleaningMs"`
	DistillMs    int64 `json:"distillMs,omitempty"`
}

// BrandingProfile is computed by in-page JS while a rendering tier's page
// is still live, then carried on FetchResult and lifted onto the result
// during Finalize.
type BrandingProfile struct {
	PrimaryColor   string `json:"primaryColor,omitempty"`
	LogoURL        string `json:"logoUrl,omitempty"`
	FontFamily     string `json:"fontFamily,omitempty"`
}

// ChangeResult reports how current content differs from a stored baseline.
type ChangeResult struct {
	Changed       bool   `json:"changed"`
	PriorFingerprint string `json:"priorFingerprint,omitempty"`
	LastDiffSummary  string `json:"lastDiffSummary,omitempty"`
}

// ReadabilityResult carries the Readability-style extraction metadata.
type ReadabilityResult struct {
	Title     string `json:"title,omitempty"`
	Byline    string `json:"byline,omitempty"`
	SiteName  string `json:"siteName,omitempty"`
	Published string `json:"published,omitempty"`
	Excerpt   string `json:"excerpt,omitempty"`
}

// QuickAnswer is the BM25-passage answer to an optional question.
type QuickAnswer struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
	Passage    string  `json:"passage,omitempty"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"maxPages"`
	ActivePages int `json:"activePages"`
	BrowserPID  int `json:"browserPid"`
}

// HealthResponse reports process-level health for an ambient health check.
type HealthResponse struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"poolStats"`
	Version   string    `json:"version"`
}
