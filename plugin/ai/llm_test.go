package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewLLMService tests service creation.
func TestNewLLMService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *LLMConfig
		expectError bool
	}{
		{
			name: "DeepSeek config",
			cfg: &LLMConfig{
				Provider: "deepseek",
				Model:    "deepseek-chat",
				APIKey:   "test-key",
				BaseURL:  "https://api.deepseek.com",
			},
		},
		{
			name: "OpenAI config",
			cfg: &LLMConfig{
				Provider:    "openai",
				Model:       "gpt-3.5-turbo",
				APIKey:      "test-key",
				MaxTokens:   256,
				Temperature: 0.2,
			},
		},
		{
			name:        "Unsupported provider",
			cfg:         &LLMConfig{Provider: "unsupported"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMService(tt.cfg)
			if (err != nil) != tt.expectError {
				t.Errorf("NewLLMService() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

// TestConvertMessages tests message conversion.
func TestConvertMessages(t *testing.T) {
	messages := []Message{
		SystemPrompt("You are a helpful assistant"),
		UserMessage("Hello"),
		{Role: "assistant", Content: "Hi there"},
		{Role: "unknown", Content: "?"},
	}

	llmMessages := convertMessages(messages)

	require.Len(t, llmMessages, len(messages))
	assert.Equal(t, "system", llmMessages[0].Role)
	assert.Equal(t, "user", llmMessages[1].Role)
	assert.Equal(t, "assistant", llmMessages[2].Role)
	assert.Equal(t, "user", llmMessages[3].Role)
	assert.Equal(t, "Hello", llmMessages[1].Content)
}

func newTestService(t *testing.T, handler http.HandlerFunc) LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(&LLMConfig{
		Provider:  "openai",
		Model:     "gpt-3.5-turbo",
		APIKey:    "test-key",
		BaseURL:   server.URL + "/v1",
		MaxTokens: 256,
		Timeout:   2 * time.Second,
	})
	require.NoError(t, err)
	return svc
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1710000000,
		"model":   "gpt-3.5-turbo",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func TestChat(t *testing.T) {
	var gotBody map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeCompletion(w, `{"title":"회의"}`)
	})

	out, err := svc.Chat(context.Background(), []Message{SystemPrompt("rules"), UserMessage("오늘 회의")})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"회의"}`, out)

	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
	assert.Equal(t, "gpt-3.5-turbo", gotBody["model"])
}

func TestChat_Unauthorized(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	_, err := svc.Chat(context.Background(), []Message{UserMessage("hi")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrServiceUnreachable))
	assert.NotContains(t, err.Error(), "test-key")
}

func TestChat_ServerError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := svc.Chat(context.Background(), []Message{UserMessage("hi")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServiceUnreachable))
}

func TestChat_EmptyContent(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		writeCompletion(w, "   ")
	})

	_, err := svc.Chat(context.Background(), []Message{UserMessage("hi")})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestChat_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	svc, err := NewLLMService(&LLMConfig{Provider: "openai", Model: "m", APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), []Message{UserMessage("hi")})
	assert.ErrorIs(t, err, ErrServiceUnreachable)
}
