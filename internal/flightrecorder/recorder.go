// Package flightrecorder keeps a rolling execution trace in memory and writes it to disk when a request misses its
// deadline, typically while waiting for the AI provider.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime/trace"
	"sync"
	"time"

	"github.com/myrjola/liftcoach/internal/errors"
)

const (
	defaultMinAge   = 2 * time.Minute
	defaultMaxBytes = 32 << 20
	defaultCooldown = 15 * time.Minute
)

// Options configures a Recorder. Zero values use the defaults.
type Options struct {
	// MinAge is how far back the buffered trace reaches.
	MinAge   time.Duration
	MaxBytes uint64
	// Cooldown is the minimum time between two captures.
	Cooldown time.Duration
}

// Recorder buffers the runtime trace and dumps it on demand.
type Recorder struct {
	logger   *slog.Logger
	fr       *trace.FlightRecorder
	dir      string
	cooldown time.Duration
	now      func() time.Time

	mu          sync.Mutex
	lastCapture time.Time
}

// New creates a recorder writing trace files to dir, creating the directory when missing.
func New(logger *slog.Logger, dir string, opts Options) (*Recorder, error) {
	if dir == "" {
		return nil, errors.New("traces directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil { //nolint:mnd // owner only.
		return nil, errors.Wrap(err, "create traces directory", slog.String("dir", dir))
	}
	if stat, err := os.Stat(dir); err != nil {
		return nil, errors.Wrap(err, "stat traces directory", slog.String("dir", dir))
	} else if !stat.IsDir() {
		return nil, errors.New("traces path is not a directory", slog.String("dir", dir))
	}

	cfg := trace.FlightRecorderConfig{MinAge: opts.MinAge, MaxBytes: opts.MaxBytes}
	if cfg.MinAge <= 0 {
		cfg.MinAge = defaultMinAge
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Recorder{
		logger:      logger,
		fr:          trace.NewFlightRecorder(cfg),
		dir:         dir,
		cooldown:    cooldown,
		now:         time.Now,
		mu:          sync.Mutex{},
		lastCapture: time.Time{},
	}, nil
}

// Start begins buffering the trace.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.fr.Start(); err != nil {
		return fmt.Errorf("start flight recorder: %w", err)
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.String("dir", r.dir), slog.Duration("cooldown", r.cooldown))
	return nil
}

// Stop ends buffering.
func (r *Recorder) Stop(ctx context.Context) {
	r.fr.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Capture writes the buffered trace to a file named after reason and returns its path. Captures within the cooldown
// of the previous one are skipped and report false.
func (r *Recorder) Capture(ctx context.Context, reason string) (string, bool) {
	now := r.now()
	r.mu.Lock()
	if !r.lastCapture.IsZero() && now.Sub(r.lastCapture) < r.cooldown {
		r.mu.Unlock()
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture during cooldown",
			slog.Time("last_capture", r.lastCapture))
		return "", false
	}
	r.lastCapture = now
	r.mu.Unlock()

	name := fmt.Sprintf("%s-%s.trace", unsafeFilename.ReplaceAllString(reason, "_"), now.UTC().Format("20060102-150405"))
	path := filepath.Join(r.dir, name)
	if err := r.writeTo(path); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to capture trace", errors.SlogError(err))
		return "", false
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace", slog.String("file", path), slog.String("reason", reason))
	return path, true
}

func (r *Recorder) writeTo(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create trace file", slog.String("file", path))
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close trace file"))
		}
	}()
	if _, err = r.fr.WriteTo(f); err != nil {
		return errors.Wrap(err, "write trace", slog.String("file", path))
	}
	return nil
}
