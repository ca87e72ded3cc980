package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LLM provider names accepted by LLM_PROVIDER.
const (
	LLMProviderOpenAI    = "openai"
	LLMProviderAnthropic = "anthropic"
	LLMProviderOllama    = "ollama"
	LLMProviderSynthetic = "synthetic"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string `env:"APP_ENV"       envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"`
	Port        string `env:"PORT"          envDefault:"8000"`
	OutputDir   string `env:"OUTPUT_DIR"    envDefault:"output"`
	DatabaseURL string `env:"DATABASE_URL"`
	GeoIPDBPath string `env:"GEOIP_DB_PATH"`

	// TestMode forces every provider onto its deterministic offline path.
	TestMode bool `env:"TEST_MODE" envDefault:"false"`

	LLMProvider string          `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAI      OpenAIConfig    `envPrefix:"OPENAI_"`
	Anthropic   AnthropicConfig `envPrefix:"ANTHROPIC_"`
	Ollama      OllamaConfig    `envPrefix:"OLLAMA_"`
	Gemini      GeminiConfig    `envPrefix:"GEMINI_"`
	ElevenLabs  SpeechConfig    `envPrefix:"ELEVENLABS_"`

	Jobs JobsConfig

	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitPerMin    int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	TrustProxyHeaders  bool          `env:"TRUST_PROXY_HEADERS"   envDefault:"false"`
	HTTPReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"15s"`
	HTTPWriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"60s"`
	HTTPIdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT"     envDefault:"60s"`
}

// OpenAIConfig configures the OpenAI chat completion client.
type OpenAIConfig struct {
	APIKey      string  `env:"API_KEY"`
	Model       string  `env:"MODEL"       envDefault:"gpt-4o-mini"`
	BaseURL     string  `env:"BASE_URL"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.7"`
	MaxTokens   int     `env:"MAX_TOKENS"  envDefault:"4000"`
	MaxRetries  int     `env:"MAX_RETRIES" envDefault:"3"`
}

// AnthropicConfig configures the Anthropic messages client.
type AnthropicConfig struct {
	APIKey      string  `env:"API_KEY"`
	Model       string  `env:"MODEL"       envDefault:"claude-3-5-haiku-latest"`
	BaseURL     string  `env:"BASE_URL"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.7"`
	MaxTokens   int     `env:"MAX_TOKENS"  envDefault:"4000"`
	MaxRetries  int     `env:"MAX_RETRIES" envDefault:"3"`
}

// OllamaConfig configures a local Ollama server.
type OllamaConfig struct {
	BaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:11434"`
	Model   string `env:"MODEL_NAME"   envDefault:"llama2"`
}

// GeminiConfig configures image generation.
type GeminiConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL"    envDefault:"gemini-2.0-flash-preview-image-generation"`
	BaseURL string `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
}

// SpeechConfig configures text to speech.
type SpeechConfig struct {
	APIKey       string `env:"API_KEY"`
	BaseURL      string `env:"BASE_URL"      envDefault:"https://api.elevenlabs.io"`
	DefaultVoice string `env:"DEFAULT_VOICE" envDefault:"rachel"`
}

// JobsConfig controls background execution and retention.
type JobsConfig struct {
	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	ProviderTimeout   time.Duration `env:"PROVIDER_TIMEOUT"   envDefault:"60s"`
	JobTimeout        time.Duration `env:"JOB_TIMEOUT"        envDefault:"30m"`
	Retention         time.Duration `env:"RETENTION"          envDefault:"24h"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL"     envDefault:"1h"`
}

// LoadConfig loads an optional .env file, then parses configuration from
// environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()

	switch cfg.LLMProvider {
	case LLMProviderOpenAI, LLMProviderAnthropic, LLMProviderOllama, LLMProviderSynthetic:
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("OUTPUT_DIR must not be empty")
	}

	return cfg, nil
}

// Sanitize clamps numeric settings into usable ranges.
func (c *Config) Sanitize() {
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	c.OutputDir = strings.TrimSpace(c.OutputDir)
	if c.RateLimitPerMin < 0 {
		c.RateLimitPerMin = 0
	}
	if c.OpenAI.MaxRetries < 0 {
		c.OpenAI.MaxRetries = 0
	}
	if c.Anthropic.MaxRetries < 0 {
		c.Anthropic.MaxRetries = 0
	}
	c.Jobs.Sanitize()
}

// Sanitize clamps worker and retention settings.
func (j *JobsConfig) Sanitize() {
	if j.WorkerConcurrency < 1 {
		j.WorkerConcurrency = 1
	}
	if j.ProviderTimeout <= 0 {
		j.ProviderTimeout = 60 * time.Second
	}
	if j.JobTimeout <= 0 {
		j.JobTimeout = 30 * time.Minute
	}
	if j.Retention <= 0 {
		j.Retention = 24 * time.Hour
	}
	// a job must be able to finish before the sweeper may reap it
	if j.Retention <= j.JobTimeout {
		j.Retention = j.JobTimeout + time.Minute
	}
	if j.SweepInterval <= 0 {
		j.SweepInterval = time.Hour
	}
	if j.SweepInterval > j.Retention {
		j.SweepInterval = j.Retention
	}
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
