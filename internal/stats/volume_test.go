package stats_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/stats"
)

func TestAnalyzeVolume(t *testing.T) {
	workouts := []stats.WorkoutVolume{
		{CompletedAt: time.Date(2025, 4, 3, 18, 0, 0, 0, time.UTC), Volume: 2500},
		{CompletedAt: time.Date(2025, 4, 1, 7, 0, 0, 0, time.UTC), Volume: 1000},
		{CompletedAt: time.Date(2025, 4, 1, 19, 0, 0, 0, time.UTC), Volume: 500.5},
	}
	got := stats.AnalyzeVolume(workouts, time.UTC)
	want := stats.VolumeSummary{
		TotalVolume:  4000.5,
		WorkoutCount: 3,
		Trend: []stats.VolumePoint{
			{Date: "2025-04-01", Volume: 1500.5},
			{Date: "2025-04-03", Volume: 2500},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AnalyzeVolume() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTimeframe(t *testing.T) {
	now := time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in        string
		wantSince time.Time
	}{
		{in: "", wantSince: now.AddDate(0, 0, -7)},
		{in: "week", wantSince: now.AddDate(0, 0, -7)},
		{in: "month", wantSince: now.AddDate(0, 0, -30)},
		{in: "year", wantSince: now.AddDate(0, 0, -365)},
	}
	for _, tt := range tests {
		tf, err := stats.ParseTimeframe(tt.in)
		if err != nil {
			t.Fatalf("ParseTimeframe(%q): %v", tt.in, err)
		}
		if got := tf.Since(now); !got.Equal(tt.wantSince) {
			t.Errorf("ParseTimeframe(%q).Since() = %v, want %v", tt.in, got, tt.wantSince)
		}
	}

	if _, err := stats.ParseTimeframe("decade"); !errors.Is(err, stats.ErrUnknownTimeframe) {
		t.Errorf("ParseTimeframe(decade) error = %v, want ErrUnknownTimeframe", err)
	}
}
