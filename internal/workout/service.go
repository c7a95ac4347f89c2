package workout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/liftcoach/internal/contexthelpers"
	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/sqlite"
	"github.com/myrjola/liftcoach/internal/stats"
)

const (
	maxNameLength    = 123
	defaultListLimit = 50
	maxListLimit     = 500
	maxRPE           = 10
	minRPE           = 1
)

// Observer receives workout events for monitoring.
type Observer interface {
	WorkoutCompleted()
	PersonalRecordSet(recordType stats.RecordType)
	PRDetectionFailed()
}

type noopObserver struct{}

func (noopObserver) WorkoutCompleted()                    {}
func (noopObserver) PersonalRecordSet(_ stats.RecordType) {}
func (noopObserver) PRDetectionFailed()                   {}

// Service handles the business logic for workout management.
type Service struct {
	repo     *repository
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// NewService creates a new workout service. A nil observer discards events.
func NewService(db *sqlite.Database, logger *slog.Logger, observer Observer) *Service {
	if observer == nil {
		observer = noopObserver{}
	}
	factory := newRepositoryFactory(db, logger)
	return &Service{
		repo:     factory.newRepository(),
		logger:   logger,
		observer: observer,
		now:      time.Now,
	}
}

// StartWorkout starts a new workout for the authenticated user. A user can have only one workout in progress.
func (s *Service) StartWorkout(ctx context.Context, name string) (Workout, error) {
	name = strings.TrimSpace(name)
	if len(name) > maxNameLength {
		return Workout{}, errors.Wrap(ErrValidation, "workout name too long", slog.Int("length", len(name)))
	}
	now := s.now()
	if name == "" {
		name = "Workout " + formatDate(now)
	}
	w, err := s.repo.workouts.Create(ctx, name, now)
	if err != nil {
		return Workout{}, fmt.Errorf("start workout: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "workout started", slog.Int("workout_id", w.ID))
	return w, nil
}

// GetWorkout returns a workout of the authenticated user with its exercises and sets.
func (s *Service) GetWorkout(ctx context.Context, id int) (Workout, error) {
	w, err := s.repo.workouts.Get(ctx, id)
	if err != nil {
		return Workout{}, fmt.Errorf("get workout %d: %w", id, err)
	}
	if w.UserID != contexthelpers.AuthenticatedUserID(ctx) {
		return Workout{}, fmt.Errorf("get workout %d: %w", id, ErrNotOwned)
	}
	return w, nil
}

// ListWorkouts returns the authenticated user's workouts, most recent first. A nil status lists all workouts and
// a non-positive limit uses the default.
func (s *Service) ListWorkouts(ctx context.Context, status *Status, limit int) ([]Workout, error) {
	if status != nil {
		switch *status {
		case StatusInProgress, StatusCompleted, StatusCancelled:
		default:
			return nil, errors.Wrap(ErrValidation, "unknown status", slog.String("status", string(*status)))
		}
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	workouts, err := s.repo.workouts.List(ctx, listFilter{status: status, limit: min(limit, maxListLimit)})
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return workouts, nil
}

// AddExercise appends an exercise from the catalog to an in-progress workout.
func (s *Service) AddExercise(ctx context.Context, workoutID int, exerciseID int) (WorkoutExercise, error) {
	if _, err := s.repo.exercises.Get(ctx, exerciseID); err != nil {
		return WorkoutExercise{}, fmt.Errorf("get exercise %d: %w", exerciseID, err)
	}
	we, err := s.repo.workouts.AddExercise(ctx, workoutID, exerciseID)
	if err != nil {
		return WorkoutExercise{}, fmt.Errorf("add exercise: %w", err)
	}
	return we, nil
}

// LogSet records or corrects a set of an exercise in an in-progress workout.
func (s *Service) LogSet(ctx context.Context, workoutID int, workoutExerciseID int, in SetInput) (Set, error) {
	if err := in.validate(); err != nil {
		return Set{}, err
	}
	w, err := s.GetWorkout(ctx, workoutID)
	if err != nil {
		return Set{}, err
	}
	if w.Status != StatusInProgress {
		return Set{}, fmt.Errorf("log set on %s workout %d: %w", w.Status, workoutID, ErrInvalidState)
	}
	found := false
	for _, we := range w.Exercises {
		if we.ID == workoutExerciseID {
			found = true
			break
		}
	}
	if !found {
		return Set{}, fmt.Errorf("workout exercise %d in workout %d: %w", workoutExerciseID, workoutID, ErrNotFound)
	}

	set := Set{
		ID:        0,
		SetNumber: 0,
		WeightKg:  in.WeightKg,
		Reps:      in.Reps,
		RPE:       in.RPE,
		Completed: in.Completed,
	}
	if in.SetNumber != nil {
		set.SetNumber = *in.SetNumber
	}
	if set, err = s.repo.workouts.SaveSet(ctx, workoutExerciseID, set); err != nil {
		return Set{}, fmt.Errorf("log set: %w", err)
	}
	return set, nil
}

func (in SetInput) validate() error {
	switch {
	case in.WeightKg < 0:
		return errors.Wrap(ErrValidation, "weight must not be negative", slog.Float64("weight_kg", in.WeightKg))
	case in.Reps < 0:
		return errors.Wrap(ErrValidation, "reps must not be negative", slog.Int("reps", in.Reps))
	case in.RPE != nil && (*in.RPE < minRPE || *in.RPE > maxRPE):
		return errors.Wrap(ErrValidation, "rpe must be between 1 and 10", slog.Float64("rpe", *in.RPE))
	case in.SetNumber != nil && *in.SetNumber < 1:
		return errors.Wrap(ErrValidation, "set number must be positive", slog.Int("set_number", *in.SetNumber))
	}
	return nil
}

// CancelWorkout abandons an in-progress workout.
func (s *Service) CancelWorkout(ctx context.Context, id int) error {
	if err := s.repo.workouts.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel workout: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "workout cancelled", slog.Int("workout_id", id))
	return nil
}

// GetUser returns the authenticated user's profile and progress with the current streak as of now.
func (s *Service) GetUser(ctx context.Context) (User, error) {
	u, err := s.repo.users.Get(ctx)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	// The stored streak only moves on completion, so a missed day shows up on read.
	streak := stats.StreakAsOf(stats.StreakState{
		Current:         u.CurrentStreak,
		Longest:         u.LongestStreak,
		LastWorkoutDate: u.LastWorkoutDate,
	}, s.now())
	u.CurrentStreak = streak.Current
	return u, nil
}

// ListExercises returns the exercise catalog.
func (s *Service) ListExercises(ctx context.Context) ([]Exercise, error) {
	exercises, err := s.repo.exercises.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return exercises, nil
}

// ExercisesByID returns catalog exercises in the order of ids. An unknown ID fails with ErrNotFound.
func (s *Service) ExercisesByID(ctx context.Context, ids []int) ([]Exercise, error) {
	exercises, err := s.repo.exercises.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("exercises by id: %w", err)
	}
	return exercises, nil
}

// SaveExercise creates or updates a catalog exercise identified by its name. It reports whether anything changed;
// an unchanged exercise keeps its embedding.
func (s *Service) SaveExercise(ctx context.Context, ex Exercise) (Exercise, bool, error) {
	existing, err := s.repo.exercises.FindByNames(ctx, []string{ex.Name})
	if err != nil {
		return Exercise{}, false, fmt.Errorf("find exercise %s: %w", ex.Name, err)
	}
	if len(existing) == 1 && sameExercise(existing[0], ex) {
		return existing[0], false, nil
	}
	saved, err := s.repo.exercises.Save(ctx, ex)
	if err != nil {
		return Exercise{}, false, err
	}
	return saved, true, nil
}
