package stats_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/liftcoach/internal/stats"
)

func TestAnalyzeMuscleDistribution(t *testing.T) {
	tests := []struct {
		name      string
		exercises []stats.ExerciseSets
		want      stats.MuscleDistribution
	}{
		{
			name: "push heavy week",
			exercises: []stats.ExerciseSets{
				{PrimaryMuscleGroups: []string{"Chest"}, SecondaryMuscleGroups: []string{"triceps", "shoulders"}, CompletedSets: 4},
				{PrimaryMuscleGroups: []string{"back"}, SecondaryMuscleGroups: []string{"biceps"}, CompletedSets: 0},
			},
			want: stats.MuscleDistribution{
				Volumes:     map[string]float64{"chest": 4, "triceps": 2, "shoulders": 2},
				TotalVolume: 8,
				PushVolume:  8,
				PullVolume:  0,
				PushRatio:   1,
				PullRatio:   0,
				Imbalance: &stats.Imbalance{
					Dominant:   "push",
					Difference: 8,
					Message:    "Your push volume exceeds the other side by 8.0 sets. Consider adding more pull exercises.",
				},
			},
		},
		{
			name: "balanced",
			exercises: []stats.ExerciseSets{
				{PrimaryMuscleGroups: []string{"chest"}, SecondaryMuscleGroups: nil, CompletedSets: 3},
				{PrimaryMuscleGroups: []string{"back"}, SecondaryMuscleGroups: nil, CompletedSets: 3},
				{PrimaryMuscleGroups: []string{"abs"}, SecondaryMuscleGroups: nil, CompletedSets: 2},
			},
			want: stats.MuscleDistribution{
				Volumes:     map[string]float64{"chest": 3, "back": 3, "abs": 2},
				TotalVolume: 8,
				PushVolume:  3,
				PullVolume:  3,
				PushRatio:   0.38,
				PullRatio:   0.38,
				Imbalance:   nil,
			},
		},
		{
			name: "pull dominant with legs",
			exercises: []stats.ExerciseSets{
				{PrimaryMuscleGroups: []string{"hamstrings"}, SecondaryMuscleGroups: []string{"glutes"}, CompletedSets: 4},
				{PrimaryMuscleGroups: []string{"quadriceps"}, SecondaryMuscleGroups: nil, CompletedSets: 1},
			},
			want: stats.MuscleDistribution{
				Volumes:     map[string]float64{"hamstrings": 4, "glutes": 2, "quadriceps": 1},
				TotalVolume: 7,
				PushVolume:  1,
				PullVolume:  4,
				PushRatio:   0.14,
				PullRatio:   0.57,
				Imbalance: &stats.Imbalance{
					Dominant:   "pull",
					Difference: 3,
					Message:    "Your pull volume exceeds the other side by 3.0 sets. Consider adding more push exercises.",
				},
			},
		},
		{
			name:      "nothing trained",
			exercises: nil,
			want: stats.MuscleDistribution{
				Volumes:     map[string]float64{},
				TotalVolume: 0,
				PushVolume:  0,
				PullVolume:  0,
				PushRatio:   0,
				PullRatio:   0,
				Imbalance:   nil,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stats.AnalyzeMuscleDistribution(tt.exercises)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AnalyzeMuscleDistribution() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
