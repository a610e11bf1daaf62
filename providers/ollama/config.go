package ollama

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds the Ollama client configuration. Ollama runs locally and
// needs no credentials.
type Config struct {
	// BaseURL is the Ollama server root.
	BaseURL string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`

	// Timeout bounds the whole request, streaming included. Local models
	// can be slow to load, hence the generous default.
	Timeout time.Duration `env:"OLLAMA_TIMEOUT" envDefault:"10m"`

	// EmbeddingModel is used by Embed when set; the endpoint requires a
	// model per call.
	EmbeddingModel string `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`

	// MaxLineBytes bounds a single NDJSON line. Zero selects the default.
	MaxLineBytes int `env:"OLLAMA_MAX_LINE_BYTES"`

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

func (c *Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return zerolog.Nop()
}
