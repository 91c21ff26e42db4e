package profile

import (
	"os"
	"testing"
	"time"
)

// TestAIProfileDefaults checks the defaults applied by FromEnv.
func TestAIProfileDefaults(t *testing.T) {
	clearEnvVars(t)

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"AILLMProvider default", "openai", profile.AILLMProvider},
		{"AIOpenAIBaseURL default", "https://api.openai.com/v1", profile.AIOpenAIBaseURL},
		{"AIDeepSeekBaseURL default", "https://api.deepseek.com", profile.AIDeepSeekBaseURL},
		{"AILLMModel default", "gpt-3.5-turbo", profile.AILLMModel},
		{"Timezone default", "Asia/Seoul", profile.Timezone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if profile.DefaultStartHour != 9 || profile.DefaultEndHour != 18 {
		t.Errorf("default window: expected 9-18, got %d-%d", profile.DefaultStartHour, profile.DefaultEndHour)
	}
	if profile.AIMaxTokens != 256 {
		t.Errorf("AIMaxTokens: expected 256, got %d", profile.AIMaxTokens)
	}
	if profile.AITemperature != 0.2 {
		t.Errorf("AITemperature: expected 0.2, got %v", profile.AITemperature)
	}
	if profile.RateLimitPerSecond != 1 || profile.RateLimitBurst != 5 {
		t.Errorf("rate limit: expected 1/5, got %v/%d", profile.RateLimitPerSecond, profile.RateLimitBurst)
	}
	if profile.ExtractionTimeout != 0 {
		t.Errorf("ExtractionTimeout: expected 0, got %v", profile.ExtractionTimeout)
	}
}

// TestAIProfileFromEnv checks that each variable reaches its field.
func TestAIProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "VOICECAL_AI_LLM_PROVIDER",
			envVar:   "VOICECAL_AI_LLM_PROVIDER",
			envValue: "deepseek",
			field:    func(p *Profile) string { return p.AILLMProvider },
			expected: "deepseek",
		},
		{
			name:     "VOICECAL_AI_OPENAI_API_KEY",
			envVar:   "VOICECAL_AI_OPENAI_API_KEY",
			envValue: "openai-key",
			field:    func(p *Profile) string { return p.AIOpenAIAPIKey },
			expected: "openai-key",
		},
		{
			name:     "OPENAI_API_KEY fallback",
			envVar:   "OPENAI_API_KEY",
			envValue: "plain-key",
			field:    func(p *Profile) string { return p.AIOpenAIAPIKey },
			expected: "plain-key",
		},
		{
			name:     "VOICECAL_AI_DEEPSEEK_API_KEY",
			envVar:   "VOICECAL_AI_DEEPSEEK_API_KEY",
			envValue: "deepseek-key",
			field:    func(p *Profile) string { return p.AIDeepSeekAPIKey },
			expected: "deepseek-key",
		},
		{
			name:     "VOICECAL_AI_LLM_MODEL",
			envVar:   "VOICECAL_AI_LLM_MODEL",
			envValue: "gpt-4o-mini",
			field:    func(p *Profile) string { return p.AILLMModel },
			expected: "gpt-4o-mini",
		},
		{
			name:     "VOICECAL_TIMEZONE",
			envVar:   "VOICECAL_TIMEZONE",
			envValue: "Asia/Tokyo",
			field:    func(p *Profile) string { return p.Timezone },
			expected: "Asia/Tokyo",
		},
		{
			name:     "VOICECAL_EXTRACTION_TIMEOUT",
			envVar:   "VOICECAL_EXTRACTION_TIMEOUT",
			envValue: "5s",
			field:    func(p *Profile) string { return p.ExtractionTimeout.String() },
			expected: "5s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			t.Setenv(tt.envVar, tt.envValue)

			profile := &Profile{}
			profile.FromEnv()

			actual := tt.field(profile)
			if actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, actual)
			}
		})
	}
}

func TestFromEnvKeepsExplicitValues(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("VOICECAL_AI_LLM_MODEL", "from-env")
	t.Setenv("VOICECAL_DEFAULT_START_HOUR", "8")

	profile := &Profile{AILLMModel: "from-flag", DefaultStartHour: 10}
	profile.FromEnv()

	if profile.AILLMModel != "from-flag" {
		t.Errorf("expected flag value to win, got %q", profile.AILLMModel)
	}
	if profile.DefaultStartHour != 10 {
		t.Errorf("expected flag value to win, got %d", profile.DefaultStartHour)
	}
}

func TestIsAIEnabled(t *testing.T) {
	tests := []struct {
		name     string
		profile  Profile
		expected bool
	}{
		{"openai without key", Profile{AILLMProvider: "openai"}, false},
		{"openai with key", Profile{AILLMProvider: "openai", AIOpenAIAPIKey: "k"}, true},
		{"deepseek with openai key only", Profile{AILLMProvider: "deepseek", AIOpenAIAPIKey: "k"}, false},
		{"deepseek with key", Profile{AILLMProvider: "deepseek", AIDeepSeekAPIKey: "k"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.IsAIEnabled(); got != tt.expected {
				t.Errorf("IsAIEnabled(): expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	t.Run("sqlite dsn derived from data dir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Timezone: DefaultTimezone, DefaultStartHour: 9, DefaultEndHour: 18}
		if err := p.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if p.Driver != "sqlite" {
			t.Errorf("expected sqlite driver, got %q", p.Driver)
		}
		if p.DSN == "" {
			t.Error("expected DSN to be set")
		}
		if p.Secret == "" {
			t.Error("expected dev secret to be filled in")
		}
	})

	t.Run("unknown mode becomes demo", func(t *testing.T) {
		p := &Profile{Mode: "weird", Data: dir, Timezone: DefaultTimezone, DefaultStartHour: 9, DefaultEndHour: 18}
		if err := p.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if p.Mode != "demo" {
			t.Errorf("expected demo, got %q", p.Mode)
		}
	})

	t.Run("invalid timezone", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Timezone: "Invalid/Zone", DefaultStartHour: 9, DefaultEndHour: 18}
		if err := p.Validate(); err == nil {
			t.Error("expected error for invalid timezone")
		}
	})

	t.Run("inverted window", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: dir, Timezone: DefaultTimezone, DefaultStartHour: 18, DefaultEndHour: 9}
		if err := p.Validate(); err == nil {
			t.Error("expected error for inverted default window")
		}
	})

	t.Run("prod requires secret", func(t *testing.T) {
		p := &Profile{Mode: "prod", Data: dir, Timezone: DefaultTimezone, DefaultStartHour: 9, DefaultEndHour: 18}
		if err := p.Validate(); err == nil {
			t.Error("expected error for missing secret")
		}
	})
}

func TestLocation(t *testing.T) {
	p := &Profile{Timezone: "Invalid/Zone"}
	loc := p.Location()
	_, offset := time.Date(2024, 3, 10, 0, 0, 0, 0, loc).Zone()
	if offset != 9*60*60 {
		t.Errorf("expected KST fallback offset, got %d", offset)
	}
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	envVars := []string{
		"OPENAI_API_KEY",
		"VOICECAL_SECRET",
		"VOICECAL_TIMEZONE",
		"VOICECAL_AI_LLM_PROVIDER",
		"VOICECAL_AI_OPENAI_API_KEY",
		"VOICECAL_AI_OPENAI_BASE_URL",
		"VOICECAL_AI_DEEPSEEK_API_KEY",
		"VOICECAL_AI_DEEPSEEK_BASE_URL",
		"VOICECAL_AI_LLM_MODEL",
		"VOICECAL_AI_TEMPERATURE",
		"VOICECAL_AI_MAX_TOKENS",
		"VOICECAL_EXTRACTION_TIMEOUT",
		"VOICECAL_DEFAULT_START_HOUR",
		"VOICECAL_DEFAULT_END_HOUR",
		"VOICECAL_RATE_LIMIT_PER_SECOND",
		"VOICECAL_RATE_LIMIT_BURST",
	}
	for _, envVar := range envVars {
		t.Setenv(envVar, "")
		os.Unsetenv(envVar)
	}
}
