package llm

import (
	"context"
	"net/http"
)

const openAIBaseURL = "https://api.openai.com/v1"

type openAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newOpenAIProvider(apiKey, baseURL string, client *http.Client) *openAIProvider {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	return &openAIProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (p *openAIProvider) Name() string {
	return string(FamilyOpenAI)
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *openAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	messages := make([]openAIMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}

	for _, m := range req.Messages {
		messages = append(messages, openAIMessage{Role: string(m.Role), Content: m.Content})
	}

	payload := openAIRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens(req),
	}

	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}

	var resp openAIResponse
	if err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/chat/completions", headers, payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	return &ChatResponse{
		Text:       resp.Choices[0].Message.Content,
		StopReason: resp.Choices[0].FinishReason,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
