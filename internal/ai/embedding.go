package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/openai/openai-go/v3"
	"golang.org/x/sync/errgroup"
)

// maxParallelEmbeddings bounds the concurrent provider calls of a batch.
const maxParallelEmbeddings = 4

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds texts and returns the vectors in the same order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Model names the embedding model so that vectors of different models are never compared.
	Model() string
}

// OpenAIEmbedder embeds text with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAIEmbedder creates an embedder. It fails with ErrConfiguration without an API key.
func NewOpenAIEmbedder(cfg Config, logger *slog.Logger) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrap(ErrConfiguration, "missing OpenAI API key")
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = openai.EmbeddingModelTextEmbedding3Small
	}
	return &OpenAIEmbedder{
		client:  newClient(cfg),
		model:   model,
		timeout: cfg.timeout(),
		logger:  logger,
	}, nil
}

// Model returns the embedding model name.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Embed embeds a single text with one provider call.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Wrap(ErrEmbedding, "empty text")
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{ //nolint:exhaustruct // optional fields.
		Input: openai.EmbeddingNewParamsInputUnion{ //nolint:exhaustruct // union.
			OfString: openai.String(text),
		},
		Model: e.model,
	})
	if err != nil {
		return nil, errors.Wrap(fmt.Errorf("%w: %w", ErrEmbedding, err), "create embedding",
			slog.String("model", e.model))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.Wrap(ErrEmbedding, "empty embedding response", slog.String("model", e.model))
	}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "created embedding",
		slog.String("model", e.model),
		slog.Int("dimensions", len(resp.Data[0].Embedding)),
		slog.Duration("duration", time.Since(start)))

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// EmbedBatch embeds texts concurrently. The first failure cancels the remaining calls.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedParallel(ctx, e, texts)
}

// embedParallel maps texts through e.Embed with bounded concurrency.
func embedParallel(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelEmbeddings)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped per text.
	}
	return vectors, nil
}
