// Command embedcatalog syncs the exercise catalog into the database and embeds every exercise whose embedding is
// missing or was produced by another model. It is the offline counterpart of the backfill the web server runs at
// startup.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myrjola/liftcoach/internal/ai"
	"github.com/myrjola/liftcoach/internal/catalog"
	"github.com/myrjola/liftcoach/internal/envstruct"
	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/logging"
	"github.com/myrjola/liftcoach/internal/sqlite"
	"github.com/myrjola/liftcoach/internal/workout"
)

type config struct {
	SqliteURL      string        `env:"LIFTCOACH_SQLITE_URL" envDefault:"./liftcoach.sqlite3"`
	CatalogPath    string        `env:"LIFTCOACH_CATALOG_PATH" envDefault:""`
	OpenAIAPIKey   string        `env:"LIFTCOACH_OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL  string        `env:"LIFTCOACH_OPENAI_BASE_URL" envDefault:""`
	EmbeddingModel string        `env:"LIFTCOACH_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	AITimeout      time.Duration `env:"LIFTCOACH_AI_TIMEOUT" envDefault:"20s"`
}

type result struct {
	catalog.SyncResult
	Embedded int
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) (result, error) {
	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return result{}, errors.Wrap(err, "populate config")
	}

	embedder, err := ai.NewOpenAIEmbedder(ai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		EmbeddingModel: cfg.EmbeddingModel,
		ChatModel:      "",
		Timeout:        cfg.AITimeout,
	}, logger)
	if err != nil {
		return result{}, errors.Wrap(err, "new embedder")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return result{}, errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()

	svc := workout.NewService(db, logger, nil)
	exercises, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return result{}, errors.Wrap(err, "load exercise catalog")
	}
	synced, err := catalog.Sync(ctx, svc, exercises, logger)
	if err != nil {
		return result{}, errors.Wrap(err, "sync exercise catalog")
	}

	store := ai.NewVectorStore(db, svc, embedder.Model(), logger)
	embedded, err := store.Backfill(ctx, embedder)
	if err != nil {
		return result{SyncResult: synced, Embedded: embedded}, errors.Wrap(err, "backfill embeddings",
			slog.Int("embedded", embedded))
	}
	return result{SyncResult: synced, Embedded: embedded}, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewLogger(os.Stdout, slog.LevelInfo, os.Getenv("LIFTCOACH_LOG_JSON") == "true")
	res, err := run(ctx, logger, os.LookupEnv)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to embed catalog", errors.SlogError(err))
		cancel()
		os.Exit(1) //nolint:gocritic // cancel is called explicitly.
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "catalog embedded",
		slog.Int("exercises", res.Total),
		slog.Int("changed", res.Changed),
		slog.Int("embedded", res.Embedded))
}
