package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/workout"
)

const (
	// MaxCandidates is the number of catalog exercises offered to the model.
	MaxCandidates      = 30
	minDurationMinutes = 10
	maxDurationMinutes = 240
	maxFreeTextLength  = 500
)

// GenerationRequest holds the user's constraints for a generated workout.
type GenerationRequest struct {
	Goal            string             `json:"goal"`
	DurationMinutes int                `json:"duration_minutes"`
	Equipment       []string           `json:"equipment"`
	ExperienceLevel workout.Difficulty `json:"experience_level"`
	Injuries        string             `json:"injuries,omitempty"`
	Preferences     string             `json:"preferences,omitempty"`
}

// Validate checks the request before any provider is called.
func (r GenerationRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Goal) == "":
		return errors.Wrap(ErrInvalidRequest, "goal is required")
	case len(r.Goal) > maxFreeTextLength || len(r.Injuries) > maxFreeTextLength || len(r.Preferences) > maxFreeTextLength:
		return errors.Wrap(ErrInvalidRequest, "free text too long", slog.Int("max_length", maxFreeTextLength))
	case r.DurationMinutes < minDurationMinutes || r.DurationMinutes > maxDurationMinutes:
		return errors.Wrap(ErrInvalidRequest, "duration out of range", slog.Int("duration_minutes", r.DurationMinutes))
	case len(r.Equipment) == 0:
		return errors.Wrap(ErrInvalidRequest, "equipment is required")
	}
	switch r.ExperienceLevel {
	case workout.DifficultyBeginner, workout.DifficultyIntermediate, workout.DifficultyAdvanced:
	default:
		return errors.Wrap(ErrInvalidRequest, "unknown experience level",
			slog.String("experience_level", string(r.ExperienceLevel)))
	}
	for _, eq := range r.Equipment {
		if strings.TrimSpace(eq) == "" {
			return errors.Wrap(ErrInvalidRequest, "empty equipment name")
		}
	}
	return nil
}

// PlanEntry is one exercise of a generated plan.
type PlanEntry struct {
	ExerciseID   int    `json:"exercise_id"`
	ExerciseName string `json:"exercise_name"`
	Sets         int    `json:"sets"`
	Reps         string `json:"reps"`
	RestSeconds  int    `json:"rest_seconds"`
	Notes        string `json:"notes"`
}

// GeneratedWorkoutPlan is a plan whose every exercise was retrieved from the catalog for this request. It is not
// persisted.
type GeneratedWorkoutPlan struct {
	ID          string      `json:"id"`
	WorkoutName string      `json:"workout_name"`
	Description string      `json:"description"`
	Warmup      []PlanEntry `json:"warmup"`
	Main        []PlanEntry `json:"main"`
	Cooldown    []PlanEntry `json:"cooldown"`
	// DroppedExercises counts model entries removed because they referenced exercises outside the candidates.
	DroppedExercises int `json:"dropped_exercises"`
}

// Observer receives generation outcomes for monitoring.
type Observer interface {
	GenerationSucceeded(duration time.Duration, dropped int)
	GenerationFailed(reason string)
}

type noopObserver struct{}

func (noopObserver) GenerationSucceeded(time.Duration, int) {}
func (noopObserver) GenerationFailed(string)                {}

// Generator runs the retrieval-augmented generation pipeline.
type Generator struct {
	embedder  Embedder
	searcher  Searcher
	completer Completer
	logger    *slog.Logger
	observer  Observer
}

// NewGenerator creates a generator. A nil observer discards events.
func NewGenerator(embedder Embedder, searcher Searcher, completer Completer, logger *slog.Logger,
	observer Observer) *Generator {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Generator{
		embedder:  embedder,
		searcher:  searcher,
		completer: completer,
		logger:    logger,
		observer:  observer,
	}
}

// rawPlan is the model output before validation.
type rawPlan struct {
	WorkoutName string     `json:"workout_name"`
	Description string     `json:"description"`
	Warmup      []rawEntry `json:"warmup"`
	Main        []rawEntry `json:"main"`
	Cooldown    []rawEntry `json:"cooldown"`
}

type rawEntry struct {
	ExerciseID  int    `json:"exercise_id"`
	Sets        int    `json:"sets"`
	Reps        string `json:"reps"`
	RestSeconds int    `json:"rest_seconds"`
	Notes       string `json:"notes"`
}

// Generate builds a workout plan for req.
//
// Every exercise of the returned plan is one of the candidates retrieved for this call. Entries the model invents
// are dropped. Generation fails with ErrNoCandidates before calling the model when nothing matches the filters and
// with ErrGeneration when the model fails or nothing usable remains of the main section.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) (GeneratedWorkoutPlan, error) {
	start := time.Now()
	plan, err := g.generate(ctx, req)
	if err != nil {
		g.observer.GenerationFailed(failureReason(err))
		return GeneratedWorkoutPlan{}, err
	}
	g.observer.GenerationSucceeded(time.Since(start), plan.DroppedExercises)
	g.logger.LogAttrs(ctx, slog.LevelInfo, "generated workout",
		slog.String("plan_id", plan.ID),
		slog.Int("main_exercises", len(plan.Main)),
		slog.Int("dropped_exercises", plan.DroppedExercises),
		slog.Duration("duration", time.Since(start)))
	return plan, nil
}

func (g *Generator) generate(ctx context.Context, req GenerationRequest) (GeneratedWorkoutPlan, error) {
	if err := req.Validate(); err != nil {
		return GeneratedWorkoutPlan{}, err
	}

	query, err := g.embedder.Embed(ctx, retrievalQuery(req))
	if err != nil {
		return GeneratedWorkoutPlan{}, fmt.Errorf("embed retrieval query: %w", err)
	}

	candidates, err := g.searcher.Search(ctx, query, MaxCandidates, SearchFilters{
		Difficulty:   req.ExperienceLevel,
		Equipment:    req.Equipment,
		MuscleGroups: nil,
	})
	if err != nil {
		return GeneratedWorkoutPlan{}, fmt.Errorf("search candidates: %w", err)
	}
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	if len(candidates) == 0 {
		return GeneratedWorkoutPlan{}, errors.Wrap(ErrNoCandidates, "no exercise matches the filters",
			slog.String("experience_level", string(req.ExperienceLevel)),
			slog.String("equipment", strings.Join(req.Equipment, ",")))
	}

	content, err := g.completer.CompleteJSON(ctx, JSONRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   generationPrompt(req, candidates),
		SchemaName:   "workout_plan",
		Schema:       planSchema(),
	})
	if err != nil {
		return GeneratedWorkoutPlan{}, fmt.Errorf("complete plan: %w", err)
	}

	var raw rawPlan
	if err = json.Unmarshal([]byte(content), &raw); err != nil {
		return GeneratedWorkoutPlan{}, errors.Wrap(fmt.Errorf("%w: %w", ErrGeneration, err), "parse plan")
	}

	byID := make(map[int]workout.Exercise, len(candidates))
	for _, c := range candidates {
		byID[c.Exercise.ID] = c.Exercise
	}
	plan := GeneratedWorkoutPlan{
		ID:               uuid.NewString(),
		WorkoutName:      strings.TrimSpace(raw.WorkoutName),
		Description:      strings.TrimSpace(raw.Description),
		Warmup:           nil,
		Main:             nil,
		Cooldown:         nil,
		DroppedExercises: 0,
	}
	var dropped []int
	plan.Warmup, dropped = keepCandidates(raw.Warmup, byID, dropped)
	plan.Main, dropped = keepCandidates(raw.Main, byID, dropped)
	plan.Cooldown, dropped = keepCandidates(raw.Cooldown, byID, dropped)
	plan.DroppedExercises = len(dropped)
	if len(dropped) > 0 {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "dropped exercises outside the candidate set",
			slog.Int("count", len(dropped)), slog.Any("exercise_ids", dropped))
	}
	if len(plan.Main) == 0 {
		return GeneratedWorkoutPlan{}, errors.Wrap(ErrGeneration, "plan has no main exercises",
			slog.Int("dropped_exercises", len(dropped)))
	}
	if plan.WorkoutName == "" {
		plan.WorkoutName = "Generated workout"
	}
	return plan, nil
}

// keepCandidates converts entries whose exercise is a candidate and appends the IDs of the others to dropped.
func keepCandidates(entries []rawEntry, candidates map[int]workout.Exercise, dropped []int) ([]PlanEntry, []int) {
	kept := make([]PlanEntry, 0, len(entries))
	for _, e := range entries {
		ex, ok := candidates[e.ExerciseID]
		if !ok {
			dropped = append(dropped, e.ExerciseID)
			continue
		}
		kept = append(kept, PlanEntry{
			ExerciseID:   ex.ID,
			ExerciseName: ex.Name,
			Sets:         max(1, e.Sets),
			Reps:         strings.TrimSpace(e.Reps),
			RestSeconds:  max(0, e.RestSeconds),
			Notes:        strings.TrimSpace(e.Notes),
		})
	}
	return kept, dropped
}

// failureReason maps an error to a metric label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrNoCandidates):
		return "no_candidates"
	case errors.Is(err, ErrEmbedding):
		return "embedding_error"
	case errors.Is(err, ErrGeneration):
		return "generation_error"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	default:
		return "error"
	}
}
