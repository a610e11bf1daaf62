package anthropic

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	llmstream "github.com/cascade-ai/cascade-llm-go"
)

// Config holds the Anthropic client configuration.
type Config struct {
	// APIKey authenticates requests (x-api-key header). Required.
	APIKey string `env:"ANTHROPIC_API_KEY"`

	// BaseURL is the API root.
	BaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`

	// Version is the anthropic-version header value.
	Version string `env:"ANTHROPIC_VERSION" envDefault:"2023-06-01"`

	// Timeout bounds the whole request, streaming included.
	Timeout time.Duration `env:"ANTHROPIC_TIMEOUT" envDefault:"5m"`

	// MaxLineBytes bounds a single SSE line. Zero selects the default.
	MaxLineBytes int `env:"ANTHROPIC_MAX_LINE_BYTES"`

	// Logger receives warnings about skipped malformed frames.
	// Nil disables logging.
	Logger *zerolog.Logger `env:"-"`
}

// ConfigFromEnv builds a Config from environment variables.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return &llmstream.ValidationError{
			Field:  "api_key",
			Value:  "",
			Reason: "Anthropic API key is required",
			Err:    llmstream.ErrInvalidAPIKey,
		}
	}
	return nil
}

func (c *Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return zerolog.Nop()
}
