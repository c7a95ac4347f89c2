// Package catalog loads the exercise catalog from YAML and syncs it into the database.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/workout"
	"gopkg.in/yaml.v3"
)

//go:embed exercises.yaml
var defaultCatalog []byte

// ErrInvalidCatalog is returned when a catalog file cannot be used.
var ErrInvalidCatalog = errors.NewSentinel("invalid exercise catalog")

type entry struct {
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	Difficulty  string   `yaml:"difficulty"`
	Primary     []string `yaml:"primary"`
	Secondary   []string `yaml:"secondary"`
	Equipment   []string `yaml:"equipment"`
	Description string   `yaml:"description"`
}

type file struct {
	Exercises []entry `yaml:"exercises"`
}

// Default returns the catalog embedded in the binary.
func Default() ([]workout.Exercise, error) {
	return Parse(bytes.NewReader(defaultCatalog))
}

// Load reads the catalog at path. An empty path loads the embedded catalog.
func Load(path string) ([]workout.Exercise, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	exercises, err := Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog", slog.String("path", path))
	}
	return exercises, nil
}

// Parse decodes and validates a catalog. Unknown fields are rejected so that typos do not silently drop data.
func Parse(r io.Reader) ([]workout.Exercise, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f file
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(fmt.Errorf("%w: %w", ErrInvalidCatalog, err), "decode catalog")
	}

	exercises := make([]workout.Exercise, 0, len(f.Exercises))
	seen := make(map[string]bool, len(f.Exercises))
	for i, e := range f.Exercises {
		ex := workout.Exercise{
			ID:                    0,
			Name:                  strings.TrimSpace(e.Name),
			Category:              workout.Category(e.Category),
			Difficulty:            workout.Difficulty(e.Difficulty),
			DescriptionMarkdown:   strings.TrimSpace(e.Description),
			PrimaryMuscleGroups:   e.Primary,
			SecondaryMuscleGroups: e.Secondary,
			Equipment:             e.Equipment,
		}
		if err := validate(ex); err != nil {
			return nil, errors.Wrap(err, "invalid exercise", slog.Int("index", i), slog.String("name", ex.Name))
		}
		if seen[ex.Name] {
			return nil, errors.Wrap(ErrInvalidCatalog, "duplicate exercise", slog.String("name", ex.Name))
		}
		seen[ex.Name] = true
		exercises = append(exercises, ex)
	}
	return exercises, nil
}

func validate(ex workout.Exercise) error {
	switch {
	case ex.Name == "":
		return errors.Wrap(ErrInvalidCatalog, "missing name")
	case !slices.Contains([]workout.Category{
		workout.CategoryFullBody, workout.CategoryUpper, workout.CategoryLower,
	}, ex.Category):
		return errors.Wrap(ErrInvalidCatalog, "unknown category", slog.String("category", string(ex.Category)))
	case !slices.Contains([]workout.Difficulty{
		workout.DifficultyBeginner, workout.DifficultyIntermediate, workout.DifficultyAdvanced,
	}, ex.Difficulty):
		return errors.Wrap(ErrInvalidCatalog, "unknown difficulty", slog.String("difficulty", string(ex.Difficulty)))
	case len(ex.PrimaryMuscleGroups) == 0:
		return errors.Wrap(ErrInvalidCatalog, "no primary muscle groups")
	case len(ex.Equipment) == 0:
		return errors.Wrap(ErrInvalidCatalog, "no equipment")
	}
	for _, mg := range ex.SecondaryMuscleGroups {
		if slices.Contains(ex.PrimaryMuscleGroups, mg) {
			return errors.Wrap(ErrInvalidCatalog, "muscle group is both primary and secondary",
				slog.String("muscle_group", mg))
		}
	}
	return nil
}

// Saver stores a catalog exercise and reports whether it changed.
type Saver interface {
	SaveExercise(ctx context.Context, ex workout.Exercise) (workout.Exercise, bool, error)
}

// SyncResult counts the outcome of a sync.
type SyncResult struct {
	Total   int
	Changed int
}

// Sync upserts every exercise by name. Unchanged exercises are left alone so their embeddings survive restarts.
func Sync(ctx context.Context, saver Saver, exercises []workout.Exercise, logger *slog.Logger) (SyncResult, error) {
	result := SyncResult{Total: len(exercises), Changed: 0}
	for _, ex := range exercises {
		_, changed, err := saver.SaveExercise(ctx, ex)
		if err != nil {
			return result, fmt.Errorf("sync exercise %s: %w", ex.Name, err)
		}
		if changed {
			result.Changed++
			logger.LogAttrs(ctx, slog.LevelDebug, "synced exercise", slog.String("name", ex.Name))
		}
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "synced exercise catalog",
		slog.Int("total", result.Total), slog.Int("changed", result.Changed))
	return result, nil
}
