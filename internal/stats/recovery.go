package stats

import (
	"slices"
	"strings"
	"time"
)

// recoveryWindow is how many recent workouts are inspected for recovery.
const recoveryWindow = 5

const (
	// fullRecoveryHours is the rest after which a muscle counts as completely fresh.
	fullRecoveryHours = 48.0
	maxFreshness      = 100.0
	fatiguedBelow     = 30.0
	recoveringBelow   = 80.0
)

// RecoveryStatus describes whether a muscle group is ready to be trained again.
type RecoveryStatus string

const (
	RecoveryFresh      RecoveryStatus = "Fresh"
	RecoveryRecovering RecoveryStatus = "Recovering"
	RecoveryFatigued   RecoveryStatus = "Fatigued"
)

// TrainedWorkout lists the primary muscle groups hit by a completed workout.
type TrainedWorkout struct {
	CompletedAt         time.Time
	PrimaryMuscleGroups []string
}

// MuscleRecovery is the recovery state of one muscle group.
type MuscleRecovery struct {
	MuscleGroup string `json:"muscle_group"`
	// HoursSinceTrained is nil when the muscle was not trained in the inspected workouts.
	HoursSinceTrained *float64 `json:"hours_since_trained,omitempty"`
	// Freshness is a percentage from 0 right after training to 100 when recovered.
	Freshness float64        `json:"freshness"`
	Status    RecoveryStatus `json:"status"`
}

// AnalyzeRecovery inspects the five most recent workouts and reports every muscle group sorted by name.
//
// muscleGroups lists the groups that are reported even when untrained.
func AnalyzeRecovery(workouts []TrainedWorkout, muscleGroups []string, now time.Time) []MuscleRecovery {
	recent := slices.Clone(workouts)
	slices.SortFunc(recent, func(a, b TrainedWorkout) int { return b.CompletedAt.Compare(a.CompletedAt) })
	if len(recent) > recoveryWindow {
		recent = recent[:recoveryWindow]
	}

	hoursSince := make(map[string]float64)
	for _, w := range recent {
		elapsed := max(0, now.Sub(w.CompletedAt).Hours())
		for _, m := range w.PrimaryMuscleGroups {
			m = strings.ToLower(m)
			if h, ok := hoursSince[m]; !ok || elapsed < h {
				hoursSince[m] = elapsed
			}
		}
	}

	names := make([]string, 0, len(muscleGroups)+len(hoursSince))
	for _, m := range muscleGroups {
		names = append(names, strings.ToLower(m))
	}
	for m := range hoursSince {
		names = append(names, m)
	}
	slices.Sort(names)
	names = slices.Compact(names)

	result := make([]MuscleRecovery, 0, len(names))
	for _, m := range names {
		h, trained := hoursSince[m]
		if !trained {
			result = append(result, MuscleRecovery{
				MuscleGroup:       m,
				HoursSinceTrained: nil,
				Freshness:         maxFreshness,
				Status:            RecoveryFresh,
			})
			continue
		}
		hours := round(h, 1)
		freshness := round(min(maxFreshness, h/fullRecoveryHours*maxFreshness), 1)
		result = append(result, MuscleRecovery{
			MuscleGroup:       m,
			HoursSinceTrained: &hours,
			Freshness:         freshness,
			Status:            recoveryStatus(freshness),
		})
	}
	return result
}

func recoveryStatus(freshness float64) RecoveryStatus {
	switch {
	case freshness < fatiguedBelow:
		return RecoveryFatigued
	case freshness < recoveringBelow:
		return RecoveryRecovering
	default:
		return RecoveryFresh
	}
}
