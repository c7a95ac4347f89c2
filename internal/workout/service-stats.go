package workout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/stats"
)

const (
	// distributionWindow is the rolling window of the muscle distribution.
	distributionWindow = 30 * 24 * time.Hour
	// recoveryWorkouts is how many recent workouts feed the recovery status.
	recoveryWorkouts = 5
)

// PowerliftingLifts are the catalog exercises whose one-rep maxes make up the strength total.
var PowerliftingLifts = []string{"Barbell Back Squat", "Barbell Bench Press", "Barbell Deadlift"} //nolint:gochecknoglobals,lll // catalog names.

// VolumeStats sums the training volume of the trailing timeframe.
func (s *Service) VolumeStats(ctx context.Context, tf stats.Timeframe) (stats.VolumeSummary, error) {
	now := s.now()
	// Timestamps are stored with millisecond precision; the window ends just after now.
	return s.VolumeStatsBetween(ctx, tf.Since(now), now.Add(time.Millisecond))
}

// VolumeStatsBetween sums the training volume of workouts completed in [from, to).
func (s *Service) VolumeStatsBetween(ctx context.Context, from, to time.Time) (stats.VolumeSummary, error) {
	if to.Before(from) {
		return stats.VolumeSummary{}, errors.Wrap(ErrValidation, "range ends before it starts",
			slog.Time("from", from), slog.Time("to", to))
	}
	volumes, err := s.repo.workouts.CompletedVolumes(ctx, from, to)
	if err != nil {
		return stats.VolumeSummary{}, fmt.Errorf("volume stats: %w", err)
	}
	return stats.AnalyzeVolume(volumes, s.now().Location()), nil
}

// ConsistencyStats returns the workout heatmap and streaks.
func (s *Service) ConsistencyStats(ctx context.Context) (stats.Consistency, error) {
	times, err := s.repo.workouts.CompletionTimes(ctx)
	if err != nil {
		return stats.Consistency{}, fmt.Errorf("consistency stats: %w", err)
	}
	return stats.AnalyzeConsistency(times, s.now()), nil
}

// MuscleDistribution spreads the completed sets of the last 30 days over muscle groups.
func (s *Service) MuscleDistribution(ctx context.Context) (stats.MuscleDistribution, error) {
	counts, err := s.repo.workouts.ExerciseSetCounts(ctx, s.now().Add(-distributionWindow))
	if err != nil {
		return stats.MuscleDistribution{}, fmt.Errorf("muscle distribution: %w", err)
	}
	return stats.AnalyzeMuscleDistribution(counts), nil
}

// RecoveryStatus reports how rested every muscle group is after the recent workouts.
func (s *Service) RecoveryStatus(ctx context.Context) ([]stats.MuscleRecovery, error) {
	trained, err := s.repo.workouts.RecentlyTrained(ctx, recoveryWorkouts)
	if err != nil {
		return nil, fmt.Errorf("recovery status: %w", err)
	}
	muscleGroups, err := s.repo.exercises.ListMuscleGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("recovery status: %w", err)
	}
	return stats.AnalyzeRecovery(trained, muscleGroups, s.now()), nil
}

// RecentWorkouts returns the most recent completed workouts.
func (s *Service) RecentWorkouts(ctx context.Context, limit int) ([]Workout, error) {
	status := StatusCompleted
	return s.ListWorkouts(ctx, &status, limit)
}

// StrengthProfile scores the user's best estimated one-rep maxes in the powerlifting lifts against the latest body
// weight. Lifts without a record count as zero.
func (s *Service) StrengthProfile(ctx context.Context) (StrengthProfile, error) {
	lifts, err := s.repo.exercises.FindByNames(ctx, PowerliftingLifts)
	if err != nil {
		return StrengthProfile{}, fmt.Errorf("find powerlifting lifts: %w", err)
	}

	profile := StrengthProfile{Lifts: make(map[string]float64, len(lifts))} //nolint:exhaustruct // filled below.
	oneRepMaxes := make([]float64, 0, len(lifts))
	for _, lift := range lifts {
		bests, bestsErr := s.repo.records.Bests(ctx, lift.ID)
		if bestsErr != nil {
			return StrengthProfile{}, fmt.Errorf("bests for %s: %w", lift.Name, bestsErr)
		}
		best := bests[stats.RecordEstimated1RM]
		profile.Lifts[lift.Name] = best
		oneRepMaxes = append(oneRepMaxes, best)
	}

	bodyWeight, err := s.repo.body.LatestAtOrBefore(ctx, s.now())
	if err != nil {
		return StrengthProfile{}, fmt.Errorf("latest body weight: %w", err)
	}
	var bw float64
	if bodyWeight != nil {
		bw = *bodyWeight
	}
	profile.StrengthProfile = stats.AnalyzeStrength(oneRepMaxes, bw)
	return profile, nil
}
