package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/myrjola/liftcoach/internal/e2etest"
	"github.com/myrjola/liftcoach/internal/logging"
	"github.com/myrjola/liftcoach/internal/testhelpers"
	"github.com/myrjola/liftcoach/internal/workout"
)

// smokeUserIDBase keeps smoke test users apart from real users.
const smokeUserIDBase = 1_000_000_000

// TestWorkoutFlow starts, logs, and completes a workout and reads it back from the dashboard.
func TestWorkoutFlow(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	var exercises []workout.Exercise
	if err := client.Get(ctx, "/api/exercises", &exercises); err != nil {
		return fmt.Errorf("list exercises: %w", err)
	}
	if len(exercises) == 0 {
		return fmt.Errorf("empty exercise catalog")
	}

	var wo workout.Workout
	if err := client.Post(ctx, "/api/workouts", map[string]string{"name": "Smoke test"}, &wo); err != nil {
		return fmt.Errorf("start workout: %w", err)
	}
	var we workout.WorkoutExercise
	if err := client.Post(ctx, fmt.Sprintf("/api/workouts/%d/exercises", wo.ID),
		map[string]int{"exercise_id": exercises[0].ID}, &we); err != nil {
		return fmt.Errorf("add exercise: %w", err)
	}
	set := map[string]any{"weight_kg": 20, "reps": 10, "completed": true}
	if err := client.Post(ctx, fmt.Sprintf("/api/workouts/%d/exercises/%d/sets", wo.ID, we.ID), set,
		nil); err != nil {
		return fmt.Errorf("log set: %w", err)
	}
	if err := client.Post(ctx, fmt.Sprintf("/api/workouts/%d/complete", wo.ID), nil, nil); err != nil {
		return fmt.Errorf("complete workout: %w", err)
	}

	var dashboard workout.Dashboard
	if err := client.Get(ctx, "/api/dashboard", &dashboard); err != nil {
		return fmt.Errorf("get dashboard: %w", err)
	}
	if len(dashboard.RecentWorkouts) == 0 || dashboard.RecentWorkouts[0].ID != wo.ID {
		return fmt.Errorf("completed workout %d missing from dashboard", wo.ID)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
		userID   = smokeUserIDBase + rand.IntN(smokeUserIDBase) //nolint:gosec // not security sensitive.
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname), slog.Int("user_id", userID))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	client := e2etest.NewClient(url, userID)
	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err := TestWorkoutFlow(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing workout flow", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
