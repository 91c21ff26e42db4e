package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultTimezone is the operating timezone of the service. Every relative date is resolved in it.
	DefaultTimezone = "Asia/Seoul"

	defaultStartHour = 9
	defaultEndHour   = 18
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where voicecal stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// Secret signs and verifies bearer tokens.
	Secret string
	// Timezone is the IANA name of the service timezone.
	Timezone string

	// AI Configuration
	AILLMProvider     string  // VOICECAL_AI_LLM_PROVIDER (default: openai)
	AIOpenAIAPIKey    string  // VOICECAL_AI_OPENAI_API_KEY
	AIOpenAIBaseURL   string  // VOICECAL_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIDeepSeekAPIKey  string  // VOICECAL_AI_DEEPSEEK_API_KEY
	AIDeepSeekBaseURL string  // VOICECAL_AI_DEEPSEEK_BASE_URL (default: https://api.deepseek.com)
	AILLMModel        string  // VOICECAL_AI_LLM_MODEL (default: gpt-3.5-turbo)
	AITemperature     float32 // VOICECAL_AI_TEMPERATURE (default: 0.2)
	AIMaxTokens       int     // VOICECAL_AI_MAX_TOKENS (default: 256)

	// ExtractionTimeout bounds a single completion call. Zero means timeout.ExtractionTimeout.
	ExtractionTimeout time.Duration // VOICECAL_EXTRACTION_TIMEOUT

	// Window used when the user names a day but no time ("23일부터 26일까지").
	DefaultStartHour int // VOICECAL_DEFAULT_START_HOUR (default: 9)
	DefaultEndHour   int // VOICECAL_DEFAULT_END_HOUR (default: 18)

	// Per-user limit on extraction requests.
	RateLimitPerSecond float64 // VOICECAL_RATE_LIMIT_PER_SECOND (default: 1)
	RateLimitBurst     int     // VOICECAL_RATE_LIMIT_BURST (default: 5)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the selected provider has credentials.
func (p *Profile) IsAIEnabled() bool {
	switch p.AILLMProvider {
	case "deepseek":
		return p.AIDeepSeekAPIKey != ""
	default:
		return p.AIOpenAIAPIKey != ""
	}
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
// Values already set on the profile (for example from flags) win over the environment.
func (p *Profile) FromEnv() {
	setString := func(dst *string, key, defaultValue string) {
		if *dst == "" {
			*dst = getEnvOrDefault(key, defaultValue)
		}
	}
	setInt := func(dst *int, key string, defaultValue int) {
		if *dst != 0 {
			return
		}
		*dst = defaultValue
		if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
			*dst = v
		}
	}

	setString(&p.Secret, "VOICECAL_SECRET", "")
	setString(&p.Timezone, "VOICECAL_TIMEZONE", DefaultTimezone)

	setString(&p.AILLMProvider, "VOICECAL_AI_LLM_PROVIDER", "openai")
	setString(&p.AIOpenAIAPIKey, "VOICECAL_AI_OPENAI_API_KEY", os.Getenv("OPENAI_API_KEY"))
	setString(&p.AIOpenAIBaseURL, "VOICECAL_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	setString(&p.AIDeepSeekAPIKey, "VOICECAL_AI_DEEPSEEK_API_KEY", "")
	setString(&p.AIDeepSeekBaseURL, "VOICECAL_AI_DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	setString(&p.AILLMModel, "VOICECAL_AI_LLM_MODEL", "gpt-3.5-turbo")
	setInt(&p.AIMaxTokens, "VOICECAL_AI_MAX_TOKENS", 256)
	if p.AITemperature == 0 {
		p.AITemperature = 0.2
		if v, err := strconv.ParseFloat(os.Getenv("VOICECAL_AI_TEMPERATURE"), 32); err == nil {
			p.AITemperature = float32(v)
		}
	}

	if p.ExtractionTimeout == 0 {
		if v, err := time.ParseDuration(os.Getenv("VOICECAL_EXTRACTION_TIMEOUT")); err == nil {
			p.ExtractionTimeout = v
		}
	}

	setInt(&p.DefaultStartHour, "VOICECAL_DEFAULT_START_HOUR", defaultStartHour)
	setInt(&p.DefaultEndHour, "VOICECAL_DEFAULT_END_HOUR", defaultEndHour)

	setInt(&p.RateLimitBurst, "VOICECAL_RATE_LIMIT_BURST", 5)
	if p.RateLimitPerSecond == 0 {
		p.RateLimitPerSecond = 1
		if v, err := strconv.ParseFloat(os.Getenv("VOICECAL_RATE_LIMIT_PER_SECOND"), 64); err == nil {
			p.RateLimitPerSecond = v
		}
	}
}

// Location loads the service timezone, falling back to the default.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			return time.FixedZone("KST", 9*60*60)
		}
	}
	return loc
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "voicecal")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/voicecal"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("voicecal_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return errors.Wrapf(err, "invalid timezone %q", p.Timezone)
	}

	if p.DefaultStartHour < 0 || p.DefaultStartHour > 23 || p.DefaultEndHour < 0 || p.DefaultEndHour > 23 {
		return errors.Errorf("default hours must be within 0-23, got %d-%d", p.DefaultStartHour, p.DefaultEndHour)
	}
	if p.DefaultEndHour <= p.DefaultStartHour {
		return errors.Errorf("default end hour %d must be after start hour %d", p.DefaultEndHour, p.DefaultStartHour)
	}

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("secret is required in prod mode")
		}
		p.Secret = "voicecal-" + p.Mode
	}

	return nil
}
