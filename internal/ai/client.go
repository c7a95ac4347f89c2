// Package ai generates workout plans with retrieval-augmented generation over the exercise catalog.
//
// A generation embeds the user's constraints, retrieves the closest catalog exercises, and lets a language model
// arrange only those exercises into a plan.
package ai

import (
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Config configures the OpenAI backed clients.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint. Empty uses the OpenAI default.
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	// Timeout bounds every provider call.
	Timeout time.Duration
}

const defaultTimeout = 20 * time.Second

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

// newClient creates an OpenAI client. Retries are disabled because callers decide whether to retry.
func newClient(cfg Config) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.timeout()),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return openai.NewClient(opts...)
}
