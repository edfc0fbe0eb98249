// Package llm provides chat clients for the language model providers used by the classifier.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Role is the author of a chat message. Providers require strict user/assistant alternation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn sent to a provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-neutral completion request.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatResponse is a provider-neutral completion response.
type ChatResponse struct {
	Text       string
	StopReason string
	Usage      Usage
}

// Provider sends chat requests to a language model.
type Provider interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Name() string
}

// Family identifies a provider API family.
type Family string

const (
	FamilyAnthropic Family = "anthropic"
	FamilyOpenAI    Family = "openai"
)

const defaultMaxTokens = 1024

var (
	// ErrUnknownModel indicates a model name matches no provider family.
	ErrUnknownModel = errors.New("unknown model family")

	// ErrMissingAPIKey indicates a provider was requested without a credential.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrEmptyResponse indicates the provider answered without any text.
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

// APIError is returned when a provider answers with a non-2xx status.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// FamilyForModel selects the provider family by model-name prefix.
func FamilyForModel(model string) (Family, error) {
	name := strings.ToLower(model)

	switch {
	case strings.HasPrefix(name, "claude"):
		return FamilyAnthropic, nil
	case strings.HasPrefix(name, "gpt"),
		strings.HasPrefix(name, "o1"),
		strings.HasPrefix(name, "o3"),
		strings.HasPrefix(name, "o4"):
		return FamilyOpenAI, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
}

type options struct {
	baseURLs   map[Family]string
	httpClient *http.Client
}

// Option customises provider construction.
type Option func(*options)

// WithBaseURL points a provider family at a different endpoint.
func WithBaseURL(family Family, baseURL string) Option {
	return func(o *options) {
		o.baseURLs[family] = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client used for provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

var defaultHTTPClient = &http.Client{Timeout: 2 * time.Minute}

// NewProvider creates a provider for model carrying its own credential. No process-wide
// state is touched, so concurrent runs with different credentials do not interfere.
func NewProvider(model, apiKey string, opts ...Option) (Provider, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	family, err := FamilyForModel(model)
	if err != nil {
		return nil, err
	}

	o := &options{
		baseURLs:   make(map[Family]string),
		httpClient: defaultHTTPClient,
	}
	for _, opt := range opts {
		opt(o)
	}

	switch family {
	case FamilyAnthropic:
		return newAnthropicProvider(apiKey, o.baseURLs[FamilyAnthropic], o.httpClient), nil
	case FamilyOpenAI:
		return newOpenAIProvider(apiKey, o.baseURLs[FamilyOpenAI], o.httpClient), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
}

// Factory builds providers; the engine receives one so tests can substitute fakes.
type Factory func(model, apiKey string) (Provider, error)

// NewFactory returns a Factory bound to the given options.
func NewFactory(opts ...Option) Factory {
	return func(model, apiKey string) (Provider, error) {
		return NewProvider(model, apiKey, opts...)
	}
}

func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	return nil
}

func maxTokens(req *ChatRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}

	return defaultMaxTokens
}
