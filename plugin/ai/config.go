package ai

import (
	"errors"
	"time"

	"github.com/hrygo/voicecal/internal/profile"
	"github.com/hrygo/voicecal/plugin/ai/timeout"
)

// Config represents AI configuration.
type Config struct {
	LLM LLMConfig
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string  // openai, deepseek
	Model       string  // gpt-3.5-turbo
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 256
	Temperature float32 // default: 0.2
	Timeout     time.Duration
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		LLM: LLMConfig{
			Provider:    p.AILLMProvider,
			Model:       p.AILLMModel,
			MaxTokens:   p.AIMaxTokens,
			Temperature: p.AITemperature,
			Timeout:     p.ExtractionTimeout,
		},
	}

	switch p.AILLMProvider {
	case "deepseek":
		cfg.LLM.APIKey = p.AIDeepSeekAPIKey
		cfg.LLM.BaseURL = p.AIDeepSeekBaseURL
	default:
		cfg.LLM.APIKey = p.AIOpenAIAPIKey
		cfg.LLM.BaseURL = p.AIOpenAIBaseURL
	}

	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 256
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = timeout.ExtractionTimeout
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}

	if c.LLM.Provider != "openai" && c.LLM.Provider != "deepseek" {
		return errors.New("unsupported LLM provider: " + c.LLM.Provider)
	}

	if c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}

	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}

	return nil
}
