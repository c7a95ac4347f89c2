package workout

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/stats"
)

// XPPerWorkout is the experience awarded for every completed workout.
const XPPerWorkout = 100

// Summarize aggregates the completed sets of a workout. Incomplete sets are ignored entirely.
func Summarize(exercises []WorkoutExercise) Summary {
	var (
		summary  Summary
		rpeSum   float64
		rpeCount int
	)
	for _, we := range exercises {
		for _, set := range we.Sets {
			if !set.Completed {
				continue
			}
			summary.TotalVolume += set.performance().Volume()
			summary.TotalSets++
			summary.TotalReps += set.Reps
			if set.RPE != nil {
				rpeSum += *set.RPE
				rpeCount++
			}
		}
	}
	summary.TotalVolume = roundTo(summary.TotalVolume, 2)
	if rpeCount > 0 {
		avg := roundTo(rpeSum/float64(rpeCount), 2)
		summary.AverageRPE = &avg
	}
	return summary
}

// CompleteWorkout completes an in-progress workout of the authenticated user.
//
// The status transition, the summary, the streak, and the XP award are committed together. Exactly one of
// concurrent completions of the same workout succeeds; the others fail with ErrInvalidState. Personal records are
// detected afterwards and a failure there does not fail the completion but is reported in the result.
func (s *Service) CompleteWorkout(ctx context.Context, workoutID int) (CompletionResult, error) {
	now := s.now()
	w, err := s.repo.workouts.Complete(ctx, workoutID, func(w *Workout, u *User) error {
		minutes := max(0, int(now.Sub(w.StartedAt).Minutes()))
		w.Status = StatusCompleted
		w.CompletedAt = &now
		w.DurationMinutes = &minutes
		w.Summary = Summarize(w.Exercises)

		streak := stats.NextStreak(stats.StreakState{
			Current:         u.CurrentStreak,
			Longest:         u.LongestStreak,
			LastWorkoutDate: u.LastWorkoutDate,
		}, now)
		u.CurrentStreak = streak.Current
		u.LongestStreak = streak.Longest
		u.LastWorkoutDate = streak.LastWorkoutDate
		u.XP += XPPerWorkout
		return nil
	})
	if err != nil {
		return CompletionResult{}, fmt.Errorf("complete workout: %w", err)
	}
	s.observer.WorkoutCompleted()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "workout completed",
		slog.Int("workout_id", w.ID),
		slog.Float64("total_volume", w.Summary.TotalVolume),
		slog.Int("total_sets", w.Summary.TotalSets))

	result := CompletionResult{
		Workout:           w,
		NewPRs:            []PersonalRecord{},
		PRDetectionFailed: false,
		XPAwarded:         XPPerWorkout,
	}
	prs, err := s.CheckAndSavePRs(ctx, workoutID)
	if err != nil {
		s.observer.PRDetectionFailed()
		s.logger.LogAttrs(ctx, slog.LevelError, "personal record detection failed",
			slog.Int("workout_id", workoutID), errors.SlogError(err))
		result.PRDetectionFailed = true
		return result, nil
	}
	if len(prs) > 0 {
		result.NewPRs = prs
	}
	return result, nil
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
