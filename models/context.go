package models

import (
	"encoding/json"
	"time"
)

// PipelineContext is the single mutable record threaded through the eight
// pipeline stages. It is exclusively owned by the running invocation; no
// cross-request sharing. A stage reads and mutates it in place rather
// than returning a new tuple, mirroring the data flow directly.
type PipelineContext struct {
	// Request inputs.
	Options PeelOptions

	// Normalized options (post Stage 1); currently the same struct as
	// Options since NormalizeOptions mutates Options in place, kept as a
	// separate field name for stages that want to read the "as-normalized"
	// view without reaching into Options directly.
	Normalized PeelOptions

	// Fetch result (post Stage 3).
	Fetch *FetchResult

	// Detected content type (post Stage 4): document|html|json|xml|text.
	ContentType string

	// Parsed content (post Stage 5 onward).
	Content string
	Title   string

	Metadata  Metadata
	Links     []string
	Images    []Image

	Quality       float64
	PrunedPercent float64
	JSONLDType    string
	Tokens        TokenInfo

	ExtractedFields json.RawMessage
	QuickAnswer     *QuickAnswer
	Readability     *ReadabilityResult
	Branding        *BrandingProfile
	ChangeTracking  *ChangeResult
	Summary         string
	Screenshot      []byte

	Warnings []string

	Timing map[string]time.Duration

	DomainAPIHandled bool
	Blocked          bool
	BudgetFallback   bool

	DomainData json.RawMessage
	Chunks     []string

	startedAt time.Time
}

// NewPipelineContext builds a context for a single invocation, copying
// opts so later mutation of the caller's struct cannot affect it.
func NewPipelineContext(opts PeelOptions) *PipelineContext {
	return &PipelineContext{
		Options:    opts,
		Normalized: opts,
		Timing:     make(map[string]time.Duration),
		startedAt:  time.Now(),
	}
}

// Warn appends a non-fatal event. warnings is append-only.
func (c *PipelineContext) Warn(msg string) {
	c.Warnings = append(c.Warnings, msg)
}

// Mark records elapsed time for a named stage.
func (c *PipelineContext) Mark(stage string, d time.Duration) {
	c.Timing[stage] = d
}

// Elapsed returns the time since the context was created.
func (c *PipelineContext) Elapsed() time.Duration {
	return time.Since(c.startedAt)
}

// AddLink appends url to Links if it is an http(s) URL not already present
// under the normalization function (dedup by normalized form).
func (c *PipelineContext) AddLink(url string) {
	if !isHTTPURL(url) {
		return
	}
	key := NormalizeURL(url)
	for _, existing := range c.Links {
		if NormalizeURL(existing) == key {
			return
		}
	}
	c.Links = append(c.Links, url)
}

func isHTTPURL(raw string) bool {
	_, err := ParseTargetURL(raw)
	return err == nil
}
