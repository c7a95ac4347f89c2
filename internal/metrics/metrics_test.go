package metrics_test

import (
	"testing"
	"time"

	"github.com/myrjola/liftcoach/internal/metrics"
	"github.com/myrjola/liftcoach/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestManager_workoutEvents(t *testing.T) {
	m := metrics.NewManager("test", prometheus.NewRegistry())

	m.WorkoutCompleted()
	m.WorkoutCompleted()
	m.PersonalRecordSet(stats.RecordMaxWeight)
	m.PersonalRecordSet(stats.RecordMaxWeight)
	m.PersonalRecordSet(stats.RecordEstimated1RM)
	m.PRDetectionFailed()

	if got := testutil.ToFloat64(m.CounterWorkoutsCompleted); got != 2 {
		t.Errorf("workouts completed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CounterPersonalRecords.WithLabelValues("max_weight")); got != 2 {
		t.Errorf("max_weight records = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CounterPersonalRecords.WithLabelValues("estimated_1rm")); got != 1 {
		t.Errorf("estimated_1rm records = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CounterPRDetectionFailures); got != 1 {
		t.Errorf("detection failures = %v, want 1", got)
	}
}

func TestManager_generationEvents(t *testing.T) {
	m := metrics.NewManager("test", prometheus.NewRegistry())

	m.GenerationSucceeded(2*time.Second, 3)
	m.GenerationSucceeded(time.Second, 0)
	m.GenerationFailed("no_candidates")

	if got := testutil.ToFloat64(m.CounterDroppedExercises); got != 3 {
		t.Errorf("dropped exercises = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.CounterGenerations.WithLabelValues("success")); got != 2 {
		t.Errorf("successful generations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CounterGenerations.WithLabelValues("no_candidates")); got != 1 {
		t.Errorf("failed generations = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.HistGenerationDuration); got != 1 {
		t.Errorf("duration histogram series = %d, want 1", got)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := metrics.NewRegistry()
	m := metrics.NewManager("test", reg)
	m.WorkoutCompleted()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "liftcoach_test_workouts_completed_total" {
			found = true
		}
	}
	if !found {
		t.Error("Expected liftcoach_test_workouts_completed_total to be registered")
	}
}
