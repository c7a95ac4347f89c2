package workout_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/liftcoach/internal/contexthelpers"
	"github.com/myrjola/liftcoach/internal/ptr"
	"github.com/myrjola/liftcoach/internal/workout"
)

func TestService_WorkoutLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx

	w := env.startWorkoutWithSets(t, "Barbell Bench Press",
		loggedSet{weight: 100, reps: 10, completed: true},
		loggedSet{weight: 200, reps: 5, completed: false},
	)
	if w.Status != workout.StatusInProgress {
		t.Fatalf("Started workout status = %s, want %s", w.Status, workout.StatusInProgress)
	}
	if w.Name != "Workout 2025-03-03" {
		t.Errorf("Default name = %q, want %q", w.Name, "Workout 2025-03-03")
	}

	env.clock.Advance(45 * time.Minute)
	result, err := env.svc.CompleteWorkout(ctx, w.ID)
	if err != nil {
		t.Fatalf("Failed to complete workout: %v", err)
	}

	wantSummary := workout.Summary{TotalVolume: 1000, TotalSets: 1, TotalReps: 10, AverageRPE: nil}
	if diff := cmp.Diff(wantSummary, result.Workout.Summary); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
	if result.Workout.Status != workout.StatusCompleted {
		t.Errorf("Status = %s, want %s", result.Workout.Status, workout.StatusCompleted)
	}
	if got := ptr.Deref(result.Workout.DurationMinutes, -1); got != 45 {
		t.Errorf("DurationMinutes = %d, want 45", got)
	}
	if result.XPAwarded != workout.XPPerWorkout {
		t.Errorf("XPAwarded = %d, want %d", result.XPAwarded, workout.XPPerWorkout)
	}
	if result.PRDetectionFailed {
		t.Error("PRDetectionFailed = true, want false")
	}
	if len(result.NewPRs) != 4 {
		t.Errorf("Got %d new records on the first workout, want 4", len(result.NewPRs))
	}

	// The persisted workout carries the same summary.
	stored, err := env.svc.GetWorkout(ctx, w.ID)
	if err != nil {
		t.Fatalf("Failed to get workout: %v", err)
	}
	if diff := cmp.Diff(wantSummary, stored.Summary); diff != "" {
		t.Errorf("Stored summary mismatch (-want +got):\n%s", diff)
	}

	user, err := env.svc.GetUser(ctx)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user.XP != workout.XPPerWorkout || user.CurrentStreak != 1 || user.LongestStreak != 1 {
		t.Errorf("User progress = xp %d streak %d/%d, want xp %d streak 1/1",
			user.XP, user.CurrentStreak, user.LongestStreak, workout.XPPerWorkout)
	}

	// A completed workout is frozen.
	if _, err = env.svc.CompleteWorkout(ctx, w.ID); !errors.Is(err, workout.ErrInvalidState) {
		t.Errorf("Completing twice: got %v, want ErrInvalidState", err)
	}
	weID := stored.Exercises[0].ID
	_, err = env.svc.LogSet(ctx, w.ID, weID, workout.SetInput{
		SetNumber: ptr.Ref(1), WeightKg: 10, Reps: 1, RPE: nil, Completed: true,
	})
	if !errors.Is(err, workout.ErrInvalidState) {
		t.Errorf("Logging a set on a completed workout: got %v, want ErrInvalidState", err)
	}
	if err = env.svc.CancelWorkout(ctx, w.ID); !errors.Is(err, workout.ErrInvalidState) {
		t.Errorf("Cancelling a completed workout: got %v, want ErrInvalidState", err)
	}
	if env.observer.completed != 1 {
		t.Errorf("Observed %d completions, want 1", env.observer.completed)
	}
}

func TestService_StartWorkout_singleInProgress(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.svc.StartWorkout(env.ctx, "Push day")
	if err != nil {
		t.Fatalf("Failed to start workout: %v", err)
	}
	if _, err = env.svc.StartWorkout(env.ctx, "Pull day"); !errors.Is(err, workout.ErrInvalidState) {
		t.Fatalf("Second start: got %v, want ErrInvalidState", err)
	}

	if err = env.svc.CancelWorkout(env.ctx, first.ID); err != nil {
		t.Fatalf("Failed to cancel workout: %v", err)
	}
	if _, err = env.svc.StartWorkout(env.ctx, "Pull day"); err != nil {
		t.Fatalf("Start after cancelling: %v", err)
	}

	// Another user is not blocked by this user's workout.
	otherCtx := contexthelpers.WithAuthenticatedUser(env.ctx, testUserID+1)
	if _, err = env.svc.StartWorkout(otherCtx, ""); err != nil {
		t.Fatalf("Start for another user: %v", err)
	}
}

func TestService_CompleteWorkout_errors(t *testing.T) {
	env := newTestEnv(t)
	w, err := env.svc.StartWorkout(env.ctx, "")
	if err != nil {
		t.Fatalf("Failed to start workout: %v", err)
	}

	tests := []struct {
		name      string
		ctx       context.Context
		workoutID int
		want      error
	}{
		{
			name:      "missing workout",
			ctx:       env.ctx,
			workoutID: w.ID + 100,
			want:      workout.ErrNotFound,
		},
		{
			name:      "other user's workout",
			ctx:       contexthelpers.WithAuthenticatedUser(env.ctx, testUserID+1),
			workoutID: w.ID,
			want:      workout.ErrNotOwned,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err = env.svc.CompleteWorkout(tt.ctx, tt.workoutID); !errors.Is(err, tt.want) {
				t.Errorf("CompleteWorkout() error = %v, want %v", err, tt.want)
			}
		})
	}

	if err = env.svc.CancelWorkout(env.ctx, w.ID); err != nil {
		t.Fatalf("Failed to cancel workout: %v", err)
	}
	if _, err = env.svc.CompleteWorkout(env.ctx, w.ID); !errors.Is(err, workout.ErrInvalidState) {
		t.Errorf("Completing a cancelled workout: got %v, want ErrInvalidState", err)
	}
}

func TestService_CompleteWorkout_concurrent(t *testing.T) {
	env := newFileTestEnv(t)
	w := env.startWorkoutWithSets(t, "Barbell Back Squat", loggedSet{weight: 100, reps: 5, completed: true})

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		errs      []error
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.CompleteWorkout(env.ctx, w.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("Got %d successful completions, want exactly 1", successes)
	}
	for _, err := range errs {
		if !errors.Is(err, workout.ErrInvalidState) {
			t.Errorf("Losing completion error = %v, want ErrInvalidState", err)
		}
	}

	user, err := env.svc.GetUser(env.ctx)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user.XP != workout.XPPerWorkout {
		t.Errorf("XP = %d, want a single award of %d", user.XP, workout.XPPerWorkout)
	}
	records, err := env.svc.ListPersonalRecords(env.ctx, nil)
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("Got %d records, want 4", len(records))
	}
}

func TestService_CompleteWorkout_prDetectionFailure(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.db.ReadWrite.ExecContext(env.ctx, `
		CREATE TRIGGER personal_records_fail BEFORE INSERT ON personal_records
		BEGIN
			SELECT RAISE(ABORT, 'record storage unavailable');
		END`); err != nil {
		t.Fatalf("Failed to create failing trigger: %v", err)
	}

	result := env.completeWorkout(t, "Barbell Bench Press", loggedSet{weight: 60, reps: 8, completed: true})

	if !result.PRDetectionFailed {
		t.Error("PRDetectionFailed = false, want true")
	}
	if len(result.NewPRs) != 0 {
		t.Errorf("Got %d records, want none", len(result.NewPRs))
	}
	if result.Workout.Status != workout.StatusCompleted {
		t.Errorf("Status = %s, want completed despite the record failure", result.Workout.Status)
	}
	if env.observer.detectionFailures != 1 {
		t.Errorf("Observed %d detection failures, want 1", env.observer.detectionFailures)
	}
}

func TestService_CompleteWorkout_streak(t *testing.T) {
	env := newTestEnv(t)
	day := 24 * time.Hour
	start := env.clock.Now()

	steps := []struct {
		name        string
		at          time.Time
		wantCurrent int
		wantLongest int
	}{
		{name: "first workout", at: start, wantCurrent: 1, wantLongest: 1},
		{name: "same day", at: start.Add(3 * time.Hour), wantCurrent: 1, wantLongest: 1},
		{name: "next day", at: start.Add(day), wantCurrent: 2, wantLongest: 2},
		{name: "day after", at: start.Add(2 * day), wantCurrent: 3, wantLongest: 3},
		{name: "after a gap", at: start.Add(5 * day), wantCurrent: 1, wantLongest: 3},
	}
	for _, step := range steps {
		env.clock.Set(step.at)
		env.completeWorkout(t, "Pull-Up", loggedSet{weight: 0, reps: 8, completed: true})
		user, err := env.svc.GetUser(env.ctx)
		if err != nil {
			t.Fatalf("Failed to get user: %v", err)
		}
		if user.CurrentStreak != step.wantCurrent || user.LongestStreak != step.wantLongest {
			t.Errorf("%s: streak = %d/%d, want %d/%d", step.name,
				user.CurrentStreak, user.LongestStreak, step.wantCurrent, step.wantLongest)
		}
	}
}

func TestService_GetUser_streakExpires(t *testing.T) {
	env := newTestEnv(t)
	env.completeWorkout(t, "Pull-Up", loggedSet{weight: 0, reps: 8, completed: true})

	env.clock.Advance(24 * time.Hour)
	user, err := env.svc.GetUser(env.ctx)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user.CurrentStreak != 1 {
		t.Errorf("CurrentStreak the next day = %d, want 1", user.CurrentStreak)
	}

	env.clock.Advance(4 * 24 * time.Hour)
	if user, err = env.svc.GetUser(env.ctx); err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user.CurrentStreak != 0 || user.LongestStreak != 1 {
		t.Errorf("streak after a gap = %d/%d, want 0/1", user.CurrentStreak, user.LongestStreak)
	}
	consistency, err := env.svc.ConsistencyStats(env.ctx)
	if err != nil {
		t.Fatalf("Failed to get consistency stats: %v", err)
	}
	if consistency.CurrentStreak != user.CurrentStreak {
		t.Errorf("ConsistencyStats().CurrentStreak = %d, want %d", consistency.CurrentStreak, user.CurrentStreak)
	}
}

func TestService_LogSet_validation(t *testing.T) {
	env := newTestEnv(t)
	w := env.startWorkoutWithSets(t, "Barbell Bench Press")
	stored, err := env.svc.GetWorkout(env.ctx, w.ID)
	if err != nil {
		t.Fatalf("Failed to get workout: %v", err)
	}
	weID := stored.Exercises[0].ID

	tests := []struct {
		name string
		in   workout.SetInput
	}{
		{name: "negative weight", in: workout.SetInput{SetNumber: nil, WeightKg: -1, Reps: 5, RPE: nil, Completed: true}},
		{name: "negative reps", in: workout.SetInput{SetNumber: nil, WeightKg: 20, Reps: -1, RPE: nil, Completed: true}},
		{name: "rpe above ten", in: workout.SetInput{SetNumber: nil, WeightKg: 20, Reps: 5, RPE: ptr.Ref(10.5),
			Completed: true}},
		{name: "zero set number", in: workout.SetInput{SetNumber: ptr.Ref(0), WeightKg: 20, Reps: 5, RPE: nil,
			Completed: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err = env.svc.LogSet(env.ctx, w.ID, weID, tt.in); !errors.Is(err, workout.ErrValidation) {
				t.Errorf("LogSet() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestService_LogSet_correctsExistingSet(t *testing.T) {
	env := newTestEnv(t)
	w := env.startWorkoutWithSets(t, "Barbell Bench Press", loggedSet{weight: 60, reps: 8, completed: false})
	stored, err := env.svc.GetWorkout(env.ctx, w.ID)
	if err != nil {
		t.Fatalf("Failed to get workout: %v", err)
	}
	we := stored.Exercises[0]

	if _, err = env.svc.LogSet(env.ctx, w.ID, we.ID, workout.SetInput{
		SetNumber: ptr.Ref(1), WeightKg: 62.5, Reps: 8, RPE: ptr.Ref(8.0), Completed: true,
	}); err != nil {
		t.Fatalf("Failed to correct set: %v", err)
	}
	if _, err = env.svc.LogSet(env.ctx, w.ID, we.ID, workout.SetInput{
		SetNumber: nil, WeightKg: 62.5, Reps: 6, RPE: ptr.Ref(9.0), Completed: true,
	}); err != nil {
		t.Fatalf("Failed to log second set: %v", err)
	}

	stored, err = env.svc.GetWorkout(env.ctx, w.ID)
	if err != nil {
		t.Fatalf("Failed to get workout: %v", err)
	}
	want := []workout.Set{
		{ID: 0, SetNumber: 1, WeightKg: 62.5, Reps: 8, RPE: ptr.Ref(8.0), Completed: true},
		{ID: 0, SetNumber: 2, WeightKg: 62.5, Reps: 6, RPE: ptr.Ref(9.0), Completed: true},
	}
	got := stored.Exercises[0].Sets
	for i := range got {
		got[i].ID = 0
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sets mismatch (-want +got):\n%s", diff)
	}

	if _, err = env.svc.LogSet(env.ctx, w.ID, we.ID+100, workout.SetInput{
		SetNumber: nil, WeightKg: 1, Reps: 1, RPE: nil, Completed: true,
	}); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("Logging to an unknown workout exercise: got %v, want ErrNotFound", err)
	}
}

func TestSummarize(t *testing.T) {
	exercises := []workout.WorkoutExercise{
		{
			ID:       1,
			Position: 1,
			Exercise: workout.Exercise{}, //nolint:exhaustruct // not used by Summarize.
			Sets: []workout.Set{
				{ID: 1, SetNumber: 1, WeightKg: 100, Reps: 10, RPE: ptr.Ref(7.0), Completed: true},
				{ID: 2, SetNumber: 2, WeightKg: 200, Reps: 5, RPE: ptr.Ref(10.0), Completed: false},
			},
		},
		{
			ID:       2,
			Position: 2,
			Exercise: workout.Exercise{}, //nolint:exhaustruct // not used by Summarize.
			Sets: []workout.Set{
				{ID: 3, SetNumber: 1, WeightKg: 20.5, Reps: 3, RPE: ptr.Ref(8.5), Completed: true},
				{ID: 4, SetNumber: 2, WeightKg: 0, Reps: 12, RPE: nil, Completed: true},
			},
		},
	}
	want := workout.Summary{TotalVolume: 1061.5, TotalSets: 3, TotalReps: 25, AverageRPE: ptr.Ref(7.75)}
	if diff := cmp.Diff(want, workout.Summarize(exercises)); diff != "" {
		t.Errorf("Summarize() mismatch (-want +got):\n%s", diff)
	}
}
