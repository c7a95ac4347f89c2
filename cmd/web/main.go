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
	"github.com/myrjola/liftcoach/internal/flightrecorder"
	"github.com/myrjola/liftcoach/internal/logging"
	"github.com/myrjola/liftcoach/internal/metrics"
	"github.com/myrjola/liftcoach/internal/sqlite"
	"github.com/myrjola/liftcoach/internal/workout"
	"github.com/prometheus/client_golang/prometheus"
)

// workoutGenerator builds AI workout plans. It is nil when no AI provider is configured.
type workoutGenerator interface {
	Generate(ctx context.Context, req ai.GenerationRequest) (ai.GeneratedWorkoutPlan, error)
}

type application struct {
	logger         *slog.Logger
	workoutService *workout.Service
	dashboard      *workout.DashboardAggregator
	generator      workoutGenerator
	metrics        *metrics.Manager
	registry       *prometheus.Registry
	recorder       *flightrecorder.Recorder
	aiTimeout      time.Duration
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"LIFTCOACH_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"LIFTCOACH_SQLITE_URL" envDefault:"./liftcoach.sqlite3"`
	// CatalogPath is the exercise catalog YAML file. Empty uses the built-in catalog.
	CatalogPath string `env:"LIFTCOACH_CATALOG_PATH" envDefault:""`
	// OpenAIAPIKey enables workout generation.
	OpenAIAPIKey   string `env:"LIFTCOACH_OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL  string `env:"LIFTCOACH_OPENAI_BASE_URL" envDefault:""`
	EmbeddingModel string `env:"LIFTCOACH_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	ChatModel      string `env:"LIFTCOACH_CHAT_MODEL" envDefault:"gpt-4o"`
	// AITimeout bounds every call to the AI provider.
	AITimeout time.Duration `env:"LIFTCOACH_AI_TIMEOUT" envDefault:"20s"`
	// BackfillEmbeddings embeds catalog exercises missing an embedding in the background at startup.
	BackfillEmbeddings bool `env:"LIFTCOACH_BACKFILL_EMBEDDINGS" envDefault:"true"`
	// TracesDir enables the flight recorder, which writes a trace there when a request times out.
	TracesDir string `env:"LIFTCOACH_TRACES_DIR" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	registry := metrics.NewRegistry()
	m := metrics.NewManager("server", registry)
	workoutService := workout.NewService(db, logger, m)

	exercises, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return errors.Wrap(err, "load exercise catalog")
	}
	if _, err = catalog.Sync(ctx, workoutService, exercises, logger); err != nil {
		return errors.Wrap(err, "sync exercise catalog")
	}

	app := application{
		logger:         logger,
		workoutService: workoutService,
		dashboard:      workout.NewDashboardAggregator(workoutService),
		generator:      nil,
		metrics:        m,
		registry:       registry,
		recorder:       nil,
		aiTimeout:      cfg.AITimeout,
	}

	if cfg.OpenAIAPIKey == "" {
		logger.LogAttrs(ctx, slog.LevelWarn, "workout generation disabled, LIFTCOACH_OPENAI_API_KEY not set")
	} else if app.generator, err = newGenerator(ctx, cfg, db, workoutService, logger, m); err != nil {
		return errors.Wrap(err, "configure workout generation")
	}

	if cfg.TracesDir != "" {
		if app.recorder, err = flightrecorder.New(logger, cfg.TracesDir, flightrecorder.Options{}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = app.recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer app.recorder.Stop(context.WithoutCancel(ctx))
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr, app.routes()); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

// newGenerator wires the OpenAI clients and the catalog vector store into a generator.
func newGenerator(
	ctx context.Context,
	cfg config,
	db *sqlite.Database,
	workoutService *workout.Service,
	logger *slog.Logger,
	m *metrics.Manager,
) (*ai.Generator, error) {
	aiCfg := ai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		EmbeddingModel: cfg.EmbeddingModel,
		ChatModel:      cfg.ChatModel,
		Timeout:        cfg.AITimeout,
	}
	embedder, err := ai.NewOpenAIEmbedder(aiCfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "new embedder")
	}
	completer, err := ai.NewOpenAICompleter(aiCfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "new completer")
	}
	store := ai.NewVectorStore(db, workoutService, embedder.Model(), logger)

	if cfg.BackfillEmbeddings {
		go func() {
			n, backfillErr := store.Backfill(ctx, embedder)
			m.ExercisesEmbedded(n)
			if backfillErr != nil {
				logger.LogAttrs(ctx, slog.LevelError, "failed to backfill exercise embeddings",
					errors.SlogError(backfillErr))
			}
		}()
	}
	return ai.NewGenerator(embedder, store, completer, logger, m), nil
}

func main() {
	ctx := context.Background()
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	})))
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
