package models

// LLMUsage reports token accounting for a single LLM call, surfaced so
// callers can track BYOK spend.
type LLMUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}
