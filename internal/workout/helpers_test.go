package workout_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/myrjola/liftcoach/internal/contexthelpers"
	"github.com/myrjola/liftcoach/internal/sqlite"
	"github.com/myrjola/liftcoach/internal/stats"
	"github.com/myrjola/liftcoach/internal/testhelpers"
	"github.com/myrjola/liftcoach/internal/workout"
)

const testUserID = 1

// clock is a settable time source shared by a test and the service under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingObserver records the events emitted by the service.
type countingObserver struct {
	mu                sync.Mutex
	completed         int
	records           map[stats.RecordType]int
	detectionFailures int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{records: make(map[stats.RecordType]int)}
}

func (o *countingObserver) WorkoutCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

func (o *countingObserver) PersonalRecordSet(recordType stats.RecordType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records[recordType]++
}

func (o *countingObserver) PRDetectionFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.detectionFailures++
}

type testEnv struct {
	ctx      context.Context
	db       *sqlite.Database
	svc      *workout.Service
	clock    *clock
	observer *countingObserver
	// exercises maps catalog names to the seeded exercises.
	exercises map[string]workout.Exercise
}

// newTestEnv creates a service on an in-memory database seeded with a small catalog. The clock starts at
// 2025-03-03 08:00 UTC, a Monday.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithURL(t, ":memory:")
}

// newFileTestEnv is like newTestEnv but uses a database file, which concurrent writers need.
func newFileTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithURL(t, filepath.Join(t.TempDir(), "liftcoach.sqlite3"))
}

func newTestEnvWithURL(t *testing.T, url string) *testEnv {
	t.Helper()
	ctx := contexthelpers.WithAuthenticatedUser(t.Context(), testUserID)
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(ctx, url, logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	c := &clock{now: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)}
	observer := newCountingObserver()
	svc := workout.NewService(db, logger, observer)
	workout.SetClock(svc, c.Now)

	env := &testEnv{
		ctx:       ctx,
		db:        db,
		svc:       svc,
		clock:     c,
		observer:  observer,
		exercises: make(map[string]workout.Exercise),
	}
	for _, ex := range testCatalog() {
		saved, _, saveErr := svc.SaveExercise(ctx, ex)
		if saveErr != nil {
			t.Fatalf("Failed to save exercise %s: %v", ex.Name, saveErr)
		}
		env.exercises[saved.Name] = saved
	}
	return env
}

func testCatalog() []workout.Exercise {
	return []workout.Exercise{
		{
			ID:                    0,
			Name:                  "Barbell Bench Press",
			Category:              workout.CategoryUpper,
			Difficulty:            workout.DifficultyIntermediate,
			DescriptionMarkdown:   "Press the bar from the chest.",
			PrimaryMuscleGroups:   []string{"chest"},
			SecondaryMuscleGroups: []string{"shoulders", "triceps"},
			Equipment:             []string{"barbell", "bench"},
		},
		{
			ID:                    0,
			Name:                  "Barbell Back Squat",
			Category:              workout.CategoryLower,
			Difficulty:            workout.DifficultyIntermediate,
			DescriptionMarkdown:   "Squat below parallel.",
			PrimaryMuscleGroups:   []string{"quadriceps", "glutes"},
			SecondaryMuscleGroups: []string{"hamstrings"},
			Equipment:             []string{"barbell"},
		},
		{
			ID:                    0,
			Name:                  "Barbell Deadlift",
			Category:              workout.CategoryFullBody,
			Difficulty:            workout.DifficultyAdvanced,
			DescriptionMarkdown:   "Pull the bar from the floor.",
			PrimaryMuscleGroups:   []string{"hamstrings", "back"},
			SecondaryMuscleGroups: []string{"glutes", "forearms"},
			Equipment:             []string{"barbell"},
		},
		{
			ID:                    0,
			Name:                  "Pull-Up",
			Category:              workout.CategoryUpper,
			Difficulty:            workout.DifficultyBeginner,
			DescriptionMarkdown:   "Chin over the bar.",
			PrimaryMuscleGroups:   []string{"back"},
			SecondaryMuscleGroups: []string{"biceps"},
			Equipment:             []string{"pull-up bar"},
		},
	}
}

// loggedSet describes a set to log in a test workout.
type loggedSet struct {
	weight    float64
	reps      int
	completed bool
}

// completeWorkout starts a workout, logs the sets for the exercise, and completes it one hour later.
func (e *testEnv) completeWorkout(t *testing.T, exerciseName string, sets ...loggedSet) workout.CompletionResult {
	t.Helper()
	w := e.startWorkoutWithSets(t, exerciseName, sets...)
	e.clock.Advance(time.Hour)
	result, err := e.svc.CompleteWorkout(e.ctx, w.ID)
	if err != nil {
		t.Fatalf("Failed to complete workout: %v", err)
	}
	return result
}

func (e *testEnv) startWorkoutWithSets(t *testing.T, exerciseName string, sets ...loggedSet) workout.Workout {
	t.Helper()
	w, err := e.svc.StartWorkout(e.ctx, "")
	if err != nil {
		t.Fatalf("Failed to start workout: %v", err)
	}
	ex, ok := e.exercises[exerciseName]
	if !ok {
		t.Fatalf("Unknown exercise %s", exerciseName)
	}
	we, err := e.svc.AddExercise(e.ctx, w.ID, ex.ID)
	if err != nil {
		t.Fatalf("Failed to add exercise: %v", err)
	}
	for _, s := range sets {
		if _, err = e.svc.LogSet(e.ctx, w.ID, we.ID, workout.SetInput{
			SetNumber: nil,
			WeightKg:  s.weight,
			Reps:      s.reps,
			RPE:       nil,
			Completed: s.completed,
		}); err != nil {
			t.Fatalf("Failed to log set: %v", err)
		}
	}
	return w
}
