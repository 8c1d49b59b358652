// Package llm provides opaque, BYOK chat-completion clients for the
// structured-extraction and summary stages: OpenAI, Anthropic, and Google,
// all behind a single Client interface so the pipeline never branches on
// provider.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/use-agent/webpeel/models"
)

// ExtractParams holds per-request LLM configuration (BYOK — the caller's
// own API key, never a key held by this service).
type ExtractParams struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ExtractResult holds the LLM extraction output.
type ExtractResult struct {
	Data  json.RawMessage
	Usage *models.LLMUsage
}

// Client is a chat-completion backend capable of structured JSON
// extraction and free-text summarization.
type Client interface {
	Extract(ctx context.Context, content string, schema json.RawMessage, params ExtractParams) (*ExtractResult, error)
	Summarize(ctx context.Context, content string, params ExtractParams) (string, error)
}

// ForProvider resolves the configured provider name ("openai",
// "anthropic", "google") to its Client implementation. Unknown or empty
// provider names default to OpenAI, since most OpenAI-compatible
// proxies/gateways are reached the same way.
func ForProvider(provider string) Client {
	switch strings.ToLower(provider) {
	case "anthropic":
		return NewAnthropicClient(nil)
	case "google", "gemini":
		return NewGoogleClient(nil)
	default:
		return NewOpenAIClient(nil)
	}
}

func buildSystemPrompt(schema json.RawMessage) string {
	return "You are a structured data extraction assistant. Extract information from the provided content and return it as JSON matching the following schema.\n\nSchema:\n" +
		string(schema) +
		"\n\nRules:\n- Return ONLY valid JSON, no markdown fences or explanation.\n- If a field cannot be found in the content, use null.\n- Extract exactly the fields specified in the schema."
}

// extractJSONObject pulls the first balanced {...} or [...] block out of a
// response that may be wrapped in markdown code fences, which Anthropic
// and Google both do more often than OpenAI's json_object mode.
func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return raw
	}
	open, close := raw[start], byte('}')
	if open == '[' {
		close = ']'
	}
	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return raw[start:]
}
