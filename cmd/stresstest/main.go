package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/myrjola/liftcoach/internal/e2etest"
	"github.com/myrjola/liftcoach/internal/logging"
	"github.com/myrjola/liftcoach/internal/testhelpers"
	"github.com/myrjola/liftcoach/internal/workout"
	"golang.org/x/sync/errgroup"
)

const (
	scenarioTimeout         = 30 * time.Second
	historyTimeout          = 5 * time.Minute
	maxConcurrentHistories  = 10
	maxConcurrentOperations = 20
	numUsers                = 10
	historyWorkouts         = 12
	exercisesPerWorkout     = 3
	setsPerExercise         = 3
	baseWeight              = 15.0
	weightRange             = 20
	baseReps                = 8
	repsRange               = 8
	successRateThreshold    = 95.0
	expectedArgsCount       = 2
	percentageMultiplier    = 100
	stressUserIDBase        = 2_000_000_000
)

// StressUser is a synthetic user identified by the gateway header.
type StressUser struct {
	Client *e2etest.Client
	UserID int
}

// SetupUsers creates clients for numUsers fresh user IDs.
func SetupUsers(url string, n int) []*StressUser {
	base := stressUserIDBase + rand.IntN(stressUserIDBase/2) //nolint:gosec // not security sensitive.
	users := make([]*StressUser, n)
	for i := range users {
		users[i] = &StressUser{Client: e2etest.NewClient(url, base+i), UserID: base + i}
	}
	return users
}

// completeWorkout runs one full workout for the user and returns the completion result.
func completeWorkout(ctx context.Context, client *e2etest.Client, exercises []workout.Exercise) (int, error) {
	var wo workout.Workout
	if err := client.Post(ctx, "/api/workouts", map[string]string{"name": "Stress test"}, &wo); err != nil {
		return 0, fmt.Errorf("start workout: %w", err)
	}
	for range exercisesPerWorkout {
		ex := exercises[rand.IntN(len(exercises))] //nolint:gosec // not security sensitive.
		var we workout.WorkoutExercise
		if err := client.Post(ctx, fmt.Sprintf("/api/workouts/%d/exercises", wo.ID),
			map[string]int{"exercise_id": ex.ID}, &we); err != nil {
			return 0, fmt.Errorf("add exercise %d: %w", ex.ID, err)
		}
		for range setsPerExercise {
			set := map[string]any{
				"weight_kg": baseWeight + float64(rand.IntN(weightRange)), //nolint:gosec // not security sensitive.
				"reps":      baseReps + rand.IntN(repsRange),              //nolint:gosec // not security sensitive.
				"completed": true,
			}
			if err := client.Post(ctx, fmt.Sprintf("/api/workouts/%d/exercises/%d/sets", wo.ID, we.ID), set,
				nil); err != nil {
				return 0, fmt.Errorf("log set: %w", err)
			}
		}
	}
	return wo.ID, nil
}

// GenerateWorkoutHistory completes historyWorkouts workouts in sequence so that statistics have data.
func GenerateWorkoutHistory(ctx context.Context, user *StressUser, exercises []workout.Exercise) error {
	for i := range historyWorkouts {
		id, err := completeWorkout(ctx, user.Client, exercises)
		if err != nil {
			return fmt.Errorf("workout %d: %w", i, err)
		}
		if err = user.Client.Post(ctx, fmt.Sprintf("/api/workouts/%d/complete", id), nil, nil); err != nil {
			return fmt.Errorf("complete workout %d: %w", i, err)
		}
	}
	return nil
}

// GenerateWorkoutHistoryForUsers generates workout history for all users concurrently.
func GenerateWorkoutHistoryForUsers(
	ctx context.Context,
	users []*StressUser,
	exercises []workout.Exercise,
	logger *slog.Logger,
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentHistories)
	for _, u := range users {
		g.Go(func() error {
			historyCtx, cancel := context.WithTimeout(ctx, historyTimeout)
			defer cancel()
			if err := GenerateWorkoutHistory(historyCtx, u, exercises); err != nil {
				return fmt.Errorf("user %d: %w", u.UserID, err)
			}
			logger.LogAttrs(historyCtx, slog.LevelDebug, "Generated workout history", slog.Int("user_id", u.UserID))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("workout history generation: %w", err)
	}
	return nil
}

// WorkoutScenario logs a workout, races two completions of it, and reads the statistics pages.
func WorkoutScenario(ctx context.Context, user *StressUser, exercises []workout.Exercise, logger *slog.Logger) error {
	client := user.Client
	id, err := completeWorkout(ctx, client, exercises)
	if err != nil {
		return err
	}

	// Exactly one of concurrent completions may succeed.
	var succeeded, conflicted atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for range 2 {
		g.Go(func() error {
			err := client.Post(gctx, fmt.Sprintf("/api/workouts/%d/complete", id), nil, nil)
			switch {
			case err == nil:
				succeeded.Add(1)
			case e2etest.StatusCode(err) == http.StatusConflict:
				conflicted.Add(1)
			default:
				return fmt.Errorf("complete workout: %w", err)
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return err //nolint:wrapcheck // already wrapped.
	}
	if succeeded.Load() != 1 || conflicted.Load() != 1 {
		return fmt.Errorf("concurrent completion: %d succeeded, %d conflicted", succeeded.Load(), conflicted.Load())
	}

	for _, path := range []string{
		"/api/dashboard",
		"/api/stats/volume?timeframe=month",
		"/api/stats/consistency",
		"/api/stats/muscle-distribution",
		"/api/personal-records",
	} {
		if err = client.Get(ctx, path, nil); err != nil {
			return fmt.Errorf("get %s: %w", path, err)
		}
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Workout scenario completed",
		slog.Int("user_id", user.UserID),
		slog.Int("workout_id", id))
	return nil
}

// RunLoadTest runs the workout scenario for every user concurrently.
func RunLoadTest(ctx context.Context, users []*StressUser, exercises []workout.Exercise, logger *slog.Logger) error {
	userCount := len(users)
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_users", userCount))

	var successCount, failureCount atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for _, u := range users {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			if err := WorkoutScenario(scenarioCtx, u, exercises, logger); err != nil {
				failureCount.Add(1)
				// Failures are counted against the success rate instead of stopping the other scenarios.
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.Int("user_id", u.UserID),
					slog.Any("error", err))
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(userCount) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	probe := e2etest.NewClient(url, stressUserIDBase)
	if err := probe.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	var exercises []workout.Exercise
	err := probe.Get(ctx, "/api/exercises", &exercises)
	if err == nil && len(exercises) == 0 {
		err = errors.New("empty exercise catalog")
	}
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to list exercises", slog.Any("error", err))
		os.Exit(1)
	}

	users := SetupUsers(url, numUsers)

	historyStart := time.Now()
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting workout history generation",
		slog.Int("num_users", len(users)),
		slog.Int("workouts_per_user", historyWorkouts))
	if err = GenerateWorkoutHistoryForUsers(ctx, users, exercises, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "some workout history generation failed, continuing with load test",
			slog.Any("error", err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Workout history generation completed",
		slog.Duration("history_duration", time.Since(historyStart)))

	loadTestStart := time.Now()
	if err = RunLoadTest(ctx, users, exercises, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Duration("load_test_duration", time.Since(loadTestStart)),
		slog.Int("users_tested", len(users)))
}
