package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrServiceUnreachable is returned when the completion endpoint cannot be reached
	// or answers with a non-auth failure.
	ErrServiceUnreachable = errors.New("LLM service unreachable")
	// ErrUnauthorized is returned when the provider rejects the configured credentials.
	ErrUnauthorized = errors.New("LLM credentials rejected")
	// ErrEmptyResponse is returned when the provider answers without any content.
	ErrEmptyResponse = errors.New("empty chat response")
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// LLMService is the LLM service interface.
type LLMService interface {
	// Chat performs a single synchronous completion. It never retries.
	Chat(ctx context.Context, messages []Message) (string, error)
}

type llmService struct {
	client *openai.Client
	config LLMConfig
}

// NewLLMService creates a new LLMService backed by an OpenAI-compatible endpoint.
func NewLLMService(cfg *LLMConfig) (LLMService, error) {
	switch cfg.Provider {
	case "openai", "deepseek":
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &llmService{
		client: openai.NewClientWithConfig(clientConfig),
		config: *cfg,
	}, nil
}

func (s *llmService) Chat(ctx context.Context, messages []Message) (string, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    convertMessages(messages),
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}

	slog.Debug("chat completion finished",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return content, nil
}

// classifyError maps provider failures onto ErrUnauthorized or ErrServiceUnreachable.
// Provider messages are kept in the chain for logs only.
func classifyError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", ErrUnauthorized, status)
	}
	return fmt.Errorf("%w: %w", ErrServiceUnreachable, err)
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}

		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}
	return llmMessages
}

// Helper for creating system prompts
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
