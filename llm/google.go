package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/use-agent/webpeel/models"
)

// googleClient talks to the Gemini generateContent REST endpoint directly.
type googleClient struct {
	httpClient *http.Client
}

// NewGoogleClient creates a Gemini generateContent client. Pass nil to use
// a new zero-value http.Client.
func NewGoogleClient(httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &googleClient{httpClient: httpClient}
}

type googleRequest struct {
	Contents          []googleContent        `json:"contents"`
	SystemInstruction *googleContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *googleGenerationConfig `json:"generationConfig,omitempty"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type googleErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *googleClient) Extract(ctx context.Context, content string, schema json.RawMessage, params ExtractParams) (*ExtractResult, error) {
	resp, err := c.generate(ctx, content, buildSystemPrompt(schema), 0, params)
	if err != nil {
		return nil, err
	}
	text, err := firstCandidateText(resp)
	if err != nil {
		return nil, err
	}

	raw := extractJSONObject(text)
	if !json.Valid([]byte(raw)) {
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, "google returned invalid JSON", nil)
	}

	return &ExtractResult{
		Data: json.RawMessage(raw),
		Usage: &models.LLMUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

func (c *googleClient) Summarize(ctx context.Context, content string, params ExtractParams) (string, error) {
	resp, err := c.generate(ctx, content, "Summarize the following content in 2-4 concise sentences. Return plain text only, no markdown.", 0.2, params)
	if err != nil {
		return "", err
	}
	text, err := firstCandidateText(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func firstCandidateText(resp *googleResponse) (string, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", models.NewPeelError(models.ErrKindDownstreamOptional, "google returned no candidates", nil)
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func (c *googleClient) generate(ctx context.Context, content, systemPrompt string, temperature float64, params ExtractParams) (*googleResponse, error) {
	reqBody := googleRequest{
		Contents:          []googleContent{{Role: "user", Parts: []googlePart{{Text: content}}}},
		SystemInstruction: &googleContent{Parts: []googlePart{{Text: systemPrompt}}},
		GenerationConfig:  &googleGenerationConfig{Temperature: temperature},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := params.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(baseURL, "/"), model, url.QueryEscape(params.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		var errResp googleErrorResponse
		msg := "LLM API error"
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, fmt.Sprintf("google API returned %d: %s", resp.StatusCode, msg), nil)
	}

	var parsed googleResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, models.NewPeelError(models.ErrKindDownstreamOptional, "failed to parse LLM response", err)
	}
	return &parsed, nil
}
