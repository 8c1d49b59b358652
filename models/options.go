package models

// PeelOptions is the flattened caller-facing request envelope. All
// absent fields take the defaults applied by Defaults().
type PeelOptions struct {
	URL string `json:"url"`

	Render  bool `json:"render,omitempty"`
	Stealth bool `json:"stealth,omitempty"`
	Cloaked bool `json:"cloaked,omitempty"`

	Wait      int    `json:"wait,omitempty"` // ms
	Timeout   int    `json:"timeout,omitempty"` // ms
	UserAgent string `json:"userAgent,omitempty"`

	Format string `json:"format,omitempty"` // markdown|text|html|clean

	Screenshot bool `json:"screenshot,omitempty"`
	FullPage   bool `json:"fullPage,omitempty"`

	Selector     string   `json:"selector,omitempty"`
	Exclude      []string `json:"exclude,omitempty"`
	IncludeTags  []string `json:"includeTags,omitempty"`
	ExcludeTags  []string `json:"excludeTags,omitempty"`

	Headers map[string]string `json:"headers,omitempty"`
	Cookies []Cookie          `json:"cookies,omitempty"`

	Raw     bool     `json:"raw,omitempty"`
	Actions []Action `json:"actions,omitempty"`

	Extract *ExtractSpec `json:"extract,omitempty"`

	MaxTokens int  `json:"maxTokens,omitempty"`
	Images    bool `json:"images,omitempty"`

	ProfileDir   string `json:"profileDir,omitempty"`
	Headed       bool   `json:"headed,omitempty"`
	StorageState string `json:"storageState,omitempty"`

	Proxy   string   `json:"proxy,omitempty"`
	Proxies []string `json:"proxies,omitempty"`

	Device        string `json:"device,omitempty"`
	ViewportWidth int    `json:"viewportWidth,omitempty"`
	ViewportHeight int   `json:"viewportHeight,omitempty"`

	WaitUntil     string `json:"waitUntil,omitempty"` // load|domcontentloaded|networkidle
	WaitSelector  string `json:"waitSelector,omitempty"`
	BlockResources []string `json:"blockResources,omitempty"`

	Cycle     int  `json:"cycle,omitempty"`
	AgentMode bool `json:"agentMode,omitempty"`

	Budget   int    `json:"budget,omitempty"` // soft token budget
	Question string `json:"question,omitempty"`

	Lite     bool `json:"lite,omitempty"`
	Readable bool `json:"readable,omitempty"`
	Chunk    bool `json:"chunk,omitempty"`

	Branding       bool `json:"branding,omitempty"`
	ChangeTracking bool `json:"changeTracking,omitempty"`
	Summary        bool `json:"summary,omitempty"`

	LLM *LLMOptions `json:"llm,omitempty"`

	Location   string `json:"location,omitempty"`
	AutoScroll bool   `json:"autoScroll,omitempty"`
}

// Cookie is a single cookie to inject before navigation.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
}

// ExtractSpec configures structured extraction, either CSS-selector based
// or LLM-powered (BYOK).
type ExtractSpec struct {
	Schema      []byte `json:"schema,omitempty"` // raw JSON schema, for LLM mode
	CSSSelector string `json:"cssSelector,omitempty"`
}

// LLMOptions carries a bring-your-own-key LLM configuration.
type LLMOptions struct {
	Provider string `json:"provider,omitempty"` // openai|anthropic|google
	APIKey   string `json:"apiKey"`
	Model    string `json:"model,omitempty"`
	BaseURL  string `json:"baseUrl,omitempty"`
}

// Defaults applies the documented default values to unset fields and
// derives forced-render flags. This is Stage 1 — NormalizeOptions — and
// must stay pure (no I/O).
func (o *PeelOptions) Defaults() {
	if o.Timeout == 0 {
		o.Timeout = 30000
	}
	if o.Format == "" {
		o.Format = "markdown"
	}
	if o.WaitUntil == "" {
		o.WaitUntil = "domcontentloaded"
	}
	if o.AgentMode {
		if o.Budget == 0 {
			o.Budget = 4000
		}
		if o.Format == "" {
			o.Format = "markdown"
		}
	}
	if o.Screenshot || o.Stealth || len(o.Actions) > 0 || o.Branding || o.AutoScroll || o.Cloaked {
		o.Render = true
	}
}
