package llm

import (
	"context"
	"net/http"
	"strings"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
)

type anthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newAnthropicProvider(apiKey, baseURL string, client *http.Client) *anthropicProvider {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}

	return &anthropicProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (p *anthropicProvider) Name() string {
	return string(FamilyAnthropic)
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
}

func (p *anthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	payload := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens(req),
		System:      req.SystemPrompt,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/messages", headers, payload, &resp); err != nil {
		return nil, err
	}

	var text strings.Builder

	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	return &ChatResponse{
		Text:       text.String(),
		StopReason: resp.StopReason,
		Usage:      resp.Usage,
	}, nil
}
