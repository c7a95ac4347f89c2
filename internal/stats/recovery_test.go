package stats_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/liftcoach/internal/ptr"
	"github.com/myrjola/liftcoach/internal/stats"
)

func TestAnalyzeRecovery(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	hoursAgo := func(h int) time.Time { return now.Add(-time.Duration(h) * time.Hour) }
	workouts := []stats.TrainedWorkout{
		{CompletedAt: hoursAgo(60), PrimaryMuscleGroups: []string{"quadriceps", "chest"}},
		{CompletedAt: hoursAgo(12), PrimaryMuscleGroups: []string{"Chest"}},
		{CompletedAt: hoursAgo(36), PrimaryMuscleGroups: []string{"back"}},
		{CompletedAt: hoursAgo(70), PrimaryMuscleGroups: nil},
		{CompletedAt: hoursAgo(80), PrimaryMuscleGroups: nil},
		// Outside the five most recent workouts.
		{CompletedAt: hoursAgo(90), PrimaryMuscleGroups: []string{"calves"}},
	}

	got := stats.AnalyzeRecovery(workouts, []string{"back", "calves", "chest", "quadriceps"}, now)
	want := []stats.MuscleRecovery{
		{MuscleGroup: "back", HoursSinceTrained: ptr.Ref(36.0), Freshness: 75, Status: stats.RecoveryRecovering},
		{MuscleGroup: "calves", HoursSinceTrained: nil, Freshness: 100, Status: stats.RecoveryFresh},
		{MuscleGroup: "chest", HoursSinceTrained: ptr.Ref(12.0), Freshness: 25, Status: stats.RecoveryFatigued},
		{MuscleGroup: "quadriceps", HoursSinceTrained: ptr.Ref(60.0), Freshness: 100, Status: stats.RecoveryFresh},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AnalyzeRecovery() mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeRecovery_reportsMusclesOutsideCatalog(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	got := stats.AnalyzeRecovery(
		[]stats.TrainedWorkout{{CompletedAt: now.Add(-24 * time.Hour), PrimaryMuscleGroups: []string{"neck"}}},
		nil, now)
	want := []stats.MuscleRecovery{
		{MuscleGroup: "neck", HoursSinceTrained: ptr.Ref(24.0), Freshness: 50, Status: stats.RecoveryRecovering},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AnalyzeRecovery() mismatch (-want +got):\n%s", diff)
	}
}
