package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/openai/openai-go/v3"
)

// JSONRequest asks a language model for a document matching Schema.
type JSONRequest struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       map[string]any
}

// Completer returns structured JSON output from a language model.
type Completer interface {
	CompleteJSON(ctx context.Context, req JSONRequest) (string, error)
}

// OpenAICompleter uses OpenAI chat completions with strict structured outputs.
type OpenAICompleter struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAICompleter creates a completer. It fails with ErrConfiguration without an API key.
func NewOpenAICompleter(cfg Config, logger *slog.Logger) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrap(ErrConfiguration, "missing OpenAI API key")
	}
	model := cfg.ChatModel
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &OpenAICompleter{
		client:  newClient(cfg),
		model:   model,
		timeout: cfg.timeout(),
		logger:  logger,
	}, nil
}

// CompleteJSON sends the prompts and returns the raw JSON content of the first choice.
func (c *OpenAICompleter) CompleteJSON(ctx context.Context, req JSONRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{ //nolint:exhaustruct // description is optional.
		Name:   req.SchemaName,
		Schema: req.Schema,
		Strict: openai.Bool(true),
	}

	start := time.Now()
	chat, err := c.client.Chat.Completions.New(ctx,
		openai.ChatCompletionNewParams{ //nolint:exhaustruct // only need to set a few fields.
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(req.SystemPrompt),
				openai.UserMessage(req.UserPrompt),
			},
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{ //nolint:exhaustruct // union.
				OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{ //nolint:exhaustruct // type is implied.
					JSONSchema: schemaParam,
				},
			},
			Model: c.model,
		})
	if err != nil {
		return "", errors.Wrap(fmt.Errorf("%w: %w", ErrGeneration, err), "chat completion",
			slog.String("model", c.model))
	}
	if len(chat.Choices) == 0 {
		return "", errors.Wrap(ErrGeneration, "no chat completion choices", slog.String("model", c.model))
	}
	if refusal := chat.Choices[0].Message.Refusal; refusal != "" {
		return "", errors.Wrap(ErrGeneration, "model refused", slog.String("refusal", refusal))
	}
	if chat.Choices[0].Message.Content == "" {
		return "", errors.Wrap(ErrGeneration, "empty chat completion", slog.String("model", c.model))
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion",
		slog.String("model", c.model),
		slog.Int64("prompt_tokens", chat.Usage.PromptTokens),
		slog.Int64("completion_tokens", chat.Usage.CompletionTokens),
		slog.Duration("duration", time.Since(start)))
	return chat.Choices[0].Message.Content, nil
}
