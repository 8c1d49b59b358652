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

// openAIClient is a lightweight OpenAI-compatible chat-completion client.
// It uses net/http directly, matching every other LLM client in this
// package, and also serves any OpenAI-compatible proxy/gateway since the
// base URL is caller-supplied.
type openAIClient struct {
	httpClient *http.Client
}

// NewOpenAIClient creates an OpenAI chat-completion client. Pass nil to
// use a new zero-value http.Client.
func NewOpenAIClient(httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &openAIClient{httpClient: httpClient}
}

type openAIChatRequest struct {
	Model          string              `json:"model"`
	Messages       []openAIChatMessage `json:"messages"`
	Temperature    float64             `json:"temperature"`
	ResponseFormat *openAIRespFormat   `json:"response_format,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRespFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (c *openAIClient) Extract(ctx context.Context, content string, schema json.RawMessage, params ExtractParams) (*ExtractResult, error) {
	reqBody := openAIChatRequest{
		Model: params.Model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: buildSystemPrompt(schema)},
			{Role: "user", Content: content},
		},
		Temperature:    0,
		ResponseFormat: &openAIRespFormat{Type: "json_object"},
	}

	respBody, err := c.chat(ctx, reqBody, params)
	if err != nil {
		return nil, err
	}

	var chatResp openAIChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, "failed to parse LLM response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, "LLM returned no choices", nil)
	}

	raw := extractJSONObject(chatResp.Choices[0].Message.Content)
	if !json.Valid([]byte(raw)) {
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, "LLM returned invalid JSON", nil)
	}

	return &ExtractResult{
		Data: json.RawMessage(raw),
		Usage: &models.LLMUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
	}, nil
}

func (c *openAIClient) Summarize(ctx context.Context, content string, params ExtractParams) (string, error) {
	reqBody := openAIChatRequest{
		Model: params.Model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: "Summarize the following content in 2-4 concise sentences. Return plain text only, no markdown."},
			{Role: "user", Content: content},
		},
		Temperature: 0.2,
	}

	respBody, err := c.chat(ctx, reqBody, params)
	if err != nil {
		return "", err
	}

	var chatResp openAIChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", models.NewPeelError(models.ErrKindDownstreamOptional, "failed to parse LLM response", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", models.NewPeelError(models.ErrKindDownstreamOptional, "LLM returned no choices", nil)
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

func (c *openAIClient) chat(ctx context.Context, reqBody openAIChatRequest, params ExtractParams) ([]byte, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+params.APIKey)

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
		return nil, classifyOpenAIError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func classifyOpenAIError(statusCode int, body []byte) *models.PeelError {
	var errResp openAIErrorResponse
	msg := "LLM API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}
	return models.NewPeelError(models.ErrKindDownstreamOptional, fmt.Sprintf("openai API returned %d: %s", statusCode, msg), nil)
}
