package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyForModel(t *testing.T) {
	tests := []struct {
		model    string
		expected Family
		wantErr  bool
	}{
		{"claude-3-5-sonnet-20241022", FamilyAnthropic, false},
		{"Claude-Sonnet-4-20250514", FamilyAnthropic, false},
		{"gpt-4o-mini", FamilyOpenAI, false},
		{"o3-mini", FamilyOpenAI, false},
		{"gemini-1.5-pro", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			family, err := FamilyForModel(tt.model)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownModel)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, family)
		})
	}
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider("claude-3-5-haiku-20241022", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestAnthropicProvider_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "be brief", req.System)
		assert.Len(t, req.Messages, 1)
		assert.InDelta(t, 0.2, req.Temperature, 0.0001)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	defer server.Close()

	provider, err := NewProvider("claude-3-5-haiku-20241022", "sk-ant", WithBaseURL(FamilyAnthropic, server.URL))
	require.NoError(t, err)
	assert.Equal(t, "anthropic", provider.Name())

	resp, err := provider.Chat(context.Background(), &ChatRequest{
		Model:        "claude-3-5-haiku-20241022",
		SystemPrompt: "be brief",
		Messages:     []Message{{Role: RoleUser, Content: "hi"}},
		Temperature:  0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Text)
	assert.Equal(t, 2, resp.Usage.OutputTokens)
}

func TestOpenAIProvider_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-oai", r.Header.Get("Authorization"))

		var req openAIRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi!"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":1}}`))
	}))
	defer server.Close()

	provider, err := NewProvider("gpt-4o-mini", "sk-oai", WithBaseURL(FamilyOpenAI, server.URL))
	require.NoError(t, err)

	resp, err := provider.Chat(context.Background(), &ChatRequest{
		Model:        "gpt-4o-mini",
		SystemPrompt: "system prompt",
		Messages:     []Message{{Role: RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi!", resp.Text)
	assert.Equal(t, 5, resp.Usage.InputTokens)
}

func TestProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer server.Close()

	provider, err := NewProvider("gpt-4o", "bad", WithBaseURL(FamilyOpenAI, server.URL))
	require.NoError(t, err)

	_, err = provider.Chat(context.Background(), &ChatRequest{Model: "gpt-4o", Messages: []Message{{Role: RoleUser, Content: "x"}}})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invalid key")
}

func TestProvider_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	provider, err := NewProvider("claude-3-5-sonnet-20241022", "k", WithBaseURL(FamilyAnthropic, server.URL))
	require.NoError(t, err)

	_, err = provider.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestProvider_ConcurrentCredentialsDoNotLeak(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		// Echo the credential so each caller can check it received its own.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": r.Header.Get("x-api-key")}},
		})
	}))
	defer server.Close()

	factory := NewFactory(WithBaseURL(FamilyAnthropic, server.URL))

	var wg sync.WaitGroup

	for _, key := range []string{"key-a", "key-b", "key-c", "key-d"} {
		wg.Add(1)

		go func(key string) {
			defer wg.Done()

			provider, err := factory("claude-3-5-haiku-20241022", key)
			if !assert.NoError(t, err) {
				return
			}

			for range 10 {
				resp, err := provider.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
				if assert.NoError(t, err) {
					assert.Equal(t, key, resp.Text)
				}
			}
		}(key)
	}

	wg.Wait()
}
