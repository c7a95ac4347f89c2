package workout

import (
	"time"

	"github.com/myrjola/liftcoach/internal/stats"
)

// Category represents the type of exercise.
type Category string

const (
	CategoryFullBody Category = "full_body"
	CategoryUpper    Category = "upper"
	CategoryLower    Category = "lower"
)

// Difficulty is the experience level an exercise is suited for.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Exercise represents a single exercise type, e.g. Squat, Bench Press, etc.
type Exercise struct {
	ID                    int        `json:"id"`
	Name                  string     `json:"name"`
	Category              Category   `json:"category"`
	Difficulty            Difficulty `json:"difficulty"`
	DescriptionMarkdown   string     `json:"description_markdown"`
	PrimaryMuscleGroups   []string   `json:"primary_muscle_groups"`
	SecondaryMuscleGroups []string   `json:"secondary_muscle_groups"`
	Equipment             []string   `json:"equipment"`
}

// Status is the lifecycle state of a workout. Completed and cancelled are terminal.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Set is a single logged set. Only completed sets count towards volume and records.
type Set struct {
	ID        int      `json:"id"`
	SetNumber int      `json:"set_number"`
	WeightKg  float64  `json:"weight_kg"`
	Reps      int      `json:"reps"`
	RPE       *float64 `json:"rpe"`
	Completed bool     `json:"completed"`
}

func (s Set) performance() stats.SetPerformance {
	return stats.SetPerformance{WeightKg: s.WeightKg, Reps: s.Reps, Completed: s.Completed}
}

// SetInput is a set as logged by the user. A nil SetNumber appends a new set.
type SetInput struct {
	SetNumber *int
	WeightKg  float64
	Reps      int
	RPE       *float64
	Completed bool
}

// WorkoutExercise is an exercise performed within a workout with its sets in logged order.
type WorkoutExercise struct {
	ID       int      `json:"id"`
	Position int      `json:"position"`
	Exercise Exercise `json:"exercise"`
	Sets     []Set    `json:"sets"`
}

// Summary holds the aggregates computed when a workout is completed.
type Summary struct {
	TotalVolume float64  `json:"total_volume"`
	TotalSets   int      `json:"total_sets"`
	TotalReps   int      `json:"total_reps"`
	AverageRPE  *float64 `json:"average_rpe"`
}

// Workout is a training session owned by a single user.
type Workout struct {
	ID              int               `json:"id"`
	UserID          int               `json:"user_id"`
	Name            string            `json:"name"`
	Status          Status            `json:"status"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at"`
	DurationMinutes *int              `json:"duration_minutes"`
	Summary         Summary           `json:"summary"`
	Exercises       []WorkoutExercise `json:"exercises,omitempty"`
}

// PersonalRecord is one entry in the append-only history of a user's bests.
type PersonalRecord struct {
	ID           int              `json:"id"`
	UserID       int              `json:"user_id"`
	ExerciseID   int              `json:"exercise_id"`
	ExerciseName string           `json:"exercise_name"`
	RecordType   stats.RecordType `json:"record_type"`
	Value        float64          `json:"value"`
	Reps         *int             `json:"reps"`
	BodyWeightKg *float64         `json:"body_weight_kg"`
	WorkoutID    int              `json:"workout_id"`
	AchievedAt   time.Time        `json:"achieved_at"`
}

// CompletionResult is returned when a workout is completed.
type CompletionResult struct {
	Workout Workout          `json:"workout"`
	NewPRs  []PersonalRecord `json:"new_prs"`
	// PRDetectionFailed distinguishes a failed record check from a session without records.
	PRDetectionFailed bool `json:"pr_detection_failed"`
	XPAwarded         int  `json:"xp_awarded"`
}

// BodyWeight is a single body-weight log entry.
type BodyWeight struct {
	ID         int       `json:"id"`
	WeightKg   float64   `json:"weight_kg"`
	RecordedAt time.Time `json:"recorded_at"`
}

// User holds the profile and gamification progress of a user.
type User struct {
	ID              int        `json:"id"`
	DisplayName     string     `json:"display_name"`
	HeightCm        *float64   `json:"height_cm"`
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	LastWorkoutDate *time.Time `json:"last_workout_date"`
	XP              int        `json:"xp"`
}

// StrengthProfile scores the best estimated one-rep maxes of the powerlifting lifts.
type StrengthProfile struct {
	stats.StrengthProfile

	// Lifts maps exercise name to its best estimated one-rep max.
	Lifts map[string]float64 `json:"lifts"`
}
