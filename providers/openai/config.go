package openai

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	llmstream "github.com/cascade-ai/cascade-llm-go"
)

// Config holds the OpenAI client configuration.
type Config struct {
	// APIKey authenticates requests. Required.
	APIKey string `env:"OPENAI_API_KEY"`

	// BaseURL is the API root, overridable for compatible gateways.
	BaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`

	// Timeout bounds the whole request, streaming included. Elapsed
	// timeouts surface on a stream as a network error event.
	Timeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"5m"`

	// MaxLineBytes bounds a single SSE line. Zero selects the default.
	MaxLineBytes int `env:"OPENAI_MAX_LINE_BYTES"`

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
			Reason: "OpenAI API key is required",
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
