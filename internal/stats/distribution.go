package stats

import (
	"fmt"
	"math"
	"strings"
)

// Muscle groups trained by pushing and pulling movements.
var (
	PushMuscleGroups = []string{"chest", "shoulders", "triceps", "quadriceps"}
	PullMuscleGroups = []string{"back", "biceps", "hamstrings", "traps"}
)

// imbalanceThreshold is the share of the total volume the push/pull difference may reach before it is flagged.
const imbalanceThreshold = 0.2

// ExerciseSets counts the completed sets of one exercise and the muscles it trains.
type ExerciseSets struct {
	PrimaryMuscleGroups   []string
	SecondaryMuscleGroups []string
	CompletedSets         int
}

// Imbalance flags a push/pull volume difference.
type Imbalance struct {
	// Dominant is "push" or "pull".
	Dominant   string  `json:"dominant"`
	Difference float64 `json:"difference"`
	Message    string  `json:"message"`
}

// MuscleDistribution is the set volume per muscle group with the push/pull balance.
type MuscleDistribution struct {
	// Volumes counts a primary muscle as one unit per completed set and a secondary muscle as half a unit.
	Volumes     map[string]float64 `json:"volumes"`
	TotalVolume float64            `json:"total_volume"`
	PushVolume  float64            `json:"push_volume"`
	PullVolume  float64            `json:"pull_volume"`
	// PushRatio and PullRatio are shares of TotalVolume.
	PushRatio float64    `json:"push_ratio"`
	PullRatio float64    `json:"pull_ratio"`
	Imbalance *Imbalance `json:"imbalance,omitempty"`
}

// AnalyzeMuscleDistribution spreads completed sets over the muscles each exercise trains.
func AnalyzeMuscleDistribution(exercises []ExerciseSets) MuscleDistribution {
	volumes := make(map[string]float64)
	for _, e := range exercises {
		if e.CompletedSets <= 0 {
			continue
		}
		sets := float64(e.CompletedSets)
		for _, m := range e.PrimaryMuscleGroups {
			volumes[strings.ToLower(m)] += sets
		}
		for _, m := range e.SecondaryMuscleGroups {
			volumes[strings.ToLower(m)] += sets * 0.5 //nolint:mnd // secondary muscles count half.
		}
	}

	d := MuscleDistribution{Volumes: volumes} //nolint:exhaustruct // computed below.
	for _, v := range volumes {
		d.TotalVolume += v
	}
	for _, m := range PushMuscleGroups {
		d.PushVolume += volumes[m]
	}
	for _, m := range PullMuscleGroups {
		d.PullVolume += volumes[m]
	}

	if d.TotalVolume == 0 {
		return d
	}
	d.PushRatio = round(d.PushVolume/d.TotalVolume, 2)
	d.PullRatio = round(d.PullVolume/d.TotalVolume, 2)

	diff := d.PushVolume - d.PullVolume
	if math.Abs(diff) > imbalanceThreshold*d.TotalVolume {
		imbalance := Imbalance{Dominant: "push", Difference: round(math.Abs(diff), 2), Message: ""}
		if diff < 0 {
			imbalance.Dominant = "pull"
		}
		imbalance.Message = fmt.Sprintf(
			"Your %s volume exceeds the other side by %.1f sets. Consider adding more %s exercises.",
			imbalance.Dominant, imbalance.Difference, opposite(imbalance.Dominant))
		d.Imbalance = &imbalance
	}
	return d
}

func opposite(side string) string {
	if side == "push" {
		return "pull"
	}
	return "push"
}
