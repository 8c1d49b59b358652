package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/webpeel/models"
)

// anthropicClient talks to Anthropic's Messages API directly: no SDK
// dependency, mirroring the OpenAI client's bare net/http approach.
type anthropicClient struct {
	httpClient *http.Client
}

// NewAnthropicClient creates an Anthropic Messages API client. Pass nil to
// use a new zero-value http.Client.
func NewAnthropicClient(httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &anthropicClient{httpClient: httpClient}
}

type anthropicRequest struct {
	Model     string              `json:"model"`
	MaxTokens int                 `json:"max_tokens"`
	System    string              `json:"system,omitempty"`
	Messages  []openAIChatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *anthropicClient) Extract(ctx context.Context, content string, schema json.RawMessage, params ExtractParams) (*ExtractResult, error) {
	reqBody := anthropicRequest{
		Model:     params.Model,
		MaxTokens: 4096,
		System:    buildSystemPrompt(schema),
		Messages:  []openAIChatMessage{{Role: "user", Content: content}},
	}

	resp, err := c.send(ctx, reqBody, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Content) == 0 {
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, "anthropic returned no content blocks", nil)
	}

	raw := extractJSONObject(resp.Content[0].Text)
	if !json.Valid([]byte(raw)) {
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, "anthropic returned invalid JSON", nil)
	}

	return &ExtractResult{
		Data: json.RawMessage(raw),
		Usage: &models.LLMUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

func (c *anthropicClient) Summarize(ctx context.Context, content string, params ExtractParams) (string, error) {
	reqBody := anthropicRequest{
		Model:     params.Model,
		MaxTokens: 512,
		System:    "Summarize the following content in 2-4 concise sentences. Return plain text only, no markdown.",
		Messages:  []openAIChatMessage{{Role: "user", Content: content}},
	}

	resp, err := c.send(ctx, reqBody, params)
	if err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", models.NewPeelError(models.ErrKindDownstreamOptional, "anthropic returned no content blocks", nil)
	}
	return strings.TrimSpace(resp.Content[0].Text), nil
}

func (c *anthropicClient) send(ctx context.Context, reqBody anthropicRequest, params ExtractParams) (*anthropicResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/messages"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", params.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, "LLM request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, "failed to read LLM response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp anthropicErrorResponse
		msg := "LLM API error"
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, fmt.Sprintf("anthropic API returned %d: %s", resp.StatusCode, msg), nil)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, "failed to parse LLM response", err)
	}
	return &parsed, nil
}
