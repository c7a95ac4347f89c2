package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/liftcoach/internal/contexthelpers"
	"github.com/myrjola/liftcoach/internal/sqlite"
	"github.com/myrjola/liftcoach/internal/stats"
)

// sqliteWorkoutRepository implements workoutRepository.
type sqliteWorkoutRepository struct {
	baseRepository
	logger       *slog.Logger
	exerciseRepo *sqliteExerciseRepository
}

// newSQLiteWorkoutRepository creates a new SQLite workout repository.
func newSQLiteWorkoutRepository(
	db *sqlite.Database,
	logger *slog.Logger,
	exerciseRepo *sqliteExerciseRepository,
) *sqliteWorkoutRepository {
	return &sqliteWorkoutRepository{
		baseRepository: newBaseRepository(db),
		logger:         logger,
		exerciseRepo:   exerciseRepo,
	}
}

const workoutColumns = `id, user_id, name, status, started_at, completed_at, duration_minutes,
	total_volume, total_sets, total_reps, average_rpe`

// Create starts a new in-progress workout for the authenticated user.
func (r *sqliteWorkoutRepository) Create(ctx context.Context, name string, startedAt time.Time) (Workout, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	var id int
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO workouts (user_id, name, status, started_at)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			userID, name, StatusInProgress, sqlite.FormatTimestamp(startedAt)).Scan(&id)
		if err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
				return fmt.Errorf("another workout is in progress: %w", ErrInvalidState)
			}
			return fmt.Errorf("insert workout: %w", err)
		}
		return nil
	})
	if err != nil {
		return Workout{}, fmt.Errorf("create workout: %w", err)
	}
	return r.Get(ctx, id)
}

// Get loads a workout of any user with its exercises and sets.
func (r *sqliteWorkoutRepository) Get(ctx context.Context, id int) (Workout, error) {
	return r.load(ctx, r.db.ReadOnly, id)
}

// load reads a workout through q so that it can run inside a transaction.
func (r *sqliteWorkoutRepository) load(ctx context.Context, q querier, id int) (Workout, error) {
	w, err := scanWorkout(q.QueryRowContext(ctx, `SELECT `+workoutColumns+` FROM workouts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Workout{}, ErrNotFound
	}
	if err != nil {
		return Workout{}, fmt.Errorf("query workout %d: %w", id, err)
	}

	indexByID := make(map[int]int)
	err = scanRows(ctx, q, `
		SELECT id, position, exercise_id
		FROM workout_exercises
		WHERE workout_id = ?
		ORDER BY position`, []any{id}, func(rows *sql.Rows) error {
		var we WorkoutExercise
		if err := rows.Scan(&we.ID, &we.Position, &we.Exercise.ID); err != nil {
			return fmt.Errorf("scan workout exercise: %w", err)
		}
		we.Sets = []Set{}
		indexByID[we.ID] = len(w.Exercises)
		w.Exercises = append(w.Exercises, we)
		return nil
	})
	if err != nil {
		return Workout{}, fmt.Errorf("load workout exercises: %w", err)
	}
	if len(w.Exercises) == 0 {
		return w, nil
	}

	err = scanRows(ctx, q, `
		SELECT s.workout_exercise_id, s.id, s.set_number, s.weight_kg, s.reps, s.rpe, s.completed
		FROM workout_sets s
		JOIN workout_exercises we ON we.id = s.workout_exercise_id
		WHERE we.workout_id = ?
		ORDER BY s.workout_exercise_id, s.set_number`, []any{id}, func(rows *sql.Rows) error {
		var (
			workoutExerciseID int
			set               Set
			rpe               sql.NullFloat64
		)
		if err := rows.Scan(&workoutExerciseID, &set.ID, &set.SetNumber, &set.WeightKg, &set.Reps, &rpe,
			&set.Completed); err != nil {
			return fmt.Errorf("scan set: %w", err)
		}
		if rpe.Valid {
			set.RPE = &rpe.Float64
		}
		we := &w.Exercises[indexByID[workoutExerciseID]]
		we.Sets = append(we.Sets, set)
		return nil
	})
	if err != nil {
		return Workout{}, fmt.Errorf("load sets: %w", err)
	}

	// Exercise details come from the catalog, which is never written inside a workout transaction.
	exercises := make([]Exercise, len(w.Exercises))
	for i, we := range w.Exercises {
		exercises[i] = Exercise{ID: we.Exercise.ID} //nolint:exhaustruct // details are loaded below.
	}
	if err = r.exerciseRepo.hydrate(ctx, exercises); err != nil {
		return Workout{}, fmt.Errorf("load exercises: %w", err)
	}
	for i := range w.Exercises {
		w.Exercises[i].Exercise = exercises[i]
	}
	return w, nil
}

func scanWorkout(row interface{ Scan(dest ...any) error }) (Workout, error) {
	var (
		w              Workout
		startedAtStr   string
		completedAtStr sql.NullString
		duration       sql.NullInt64
		averageRPE     sql.NullFloat64
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.Status, &startedAtStr, &completedAtStr, &duration,
		&w.Summary.TotalVolume, &w.Summary.TotalSets, &w.Summary.TotalReps, &averageRPE); err != nil {
		return Workout{}, err //nolint:wrapcheck // callers wrap and check sql.ErrNoRows.
	}
	var err error
	if w.StartedAt, err = sqlite.ParseTimestamp(startedAtStr); err != nil {
		return Workout{}, fmt.Errorf("parse started_at: %w", err)
	}
	if w.CompletedAt, err = sqlite.ParseNullTimestamp(completedAtStr); err != nil {
		return Workout{}, fmt.Errorf("parse completed_at: %w", err)
	}
	if duration.Valid {
		minutes := int(duration.Int64)
		w.DurationMinutes = &minutes
	}
	if averageRPE.Valid {
		w.Summary.AverageRPE = &averageRPE.Float64
	}
	return w, nil
}

// List returns the authenticated user's workouts, most recent first, without exercises.
func (r *sqliteWorkoutRepository) List(ctx context.Context, filter listFilter) ([]Workout, error) {
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE user_id = ?`
	args := []any{contexthelpers.AuthenticatedUserID(ctx)}
	if filter.status != nil {
		query += ` AND status = ?`
		args = append(args, *filter.status)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, filter.limit)

	var workouts []Workout
	err := scanRows(ctx, r.db.ReadOnly, query, args, func(rows *sql.Rows) error {
		w, err := scanWorkout(rows)
		if err != nil {
			return fmt.Errorf("scan workout: %w", err)
		}
		workouts = append(workouts, w)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return workouts, nil
}

// requireInProgress classifies why the workout cannot be changed by the authenticated user.
func requireInProgress(ctx context.Context, q querier, workoutID int) error {
	var (
		userID int
		status Status
	)
	err := q.QueryRowContext(ctx, `SELECT user_id, status FROM workouts WHERE id = ?`, workoutID).
		Scan(&userID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query workout status: %w", err)
	}
	if userID != contexthelpers.AuthenticatedUserID(ctx) {
		return ErrNotOwned
	}
	if status != StatusInProgress {
		return fmt.Errorf("workout is %s: %w", status, ErrInvalidState)
	}
	return nil
}

// AddExercise appends an exercise to an in-progress workout.
func (r *sqliteWorkoutRepository) AddExercise(ctx context.Context, workoutID int, exerciseID int) (
	WorkoutExercise, error) {
	var we WorkoutExercise
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := requireInProgress(ctx, tx, workoutID); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO workout_exercises (workout_id, exercise_id, position)
			SELECT ?, ?, COALESCE(MAX(position), 0) + 1
			FROM workout_exercises
			WHERE workout_id = ?
			RETURNING id, position`,
			workoutID, exerciseID, workoutID).Scan(&we.ID, &we.Position)
		if err != nil {
			return fmt.Errorf("insert workout exercise: %w", err)
		}
		return nil
	})
	if err != nil {
		return WorkoutExercise{}, fmt.Errorf("add exercise %d to workout %d: %w", exerciseID, workoutID, err)
	}

	if we.Exercise, err = r.exerciseRepo.Get(ctx, exerciseID); err != nil {
		return WorkoutExercise{}, fmt.Errorf("get exercise: %w", err)
	}
	we.Sets = []Set{}
	return we, nil
}

// SaveSet inserts or replaces a set of a workout exercise. A zero set number appends a new set.
func (r *sqliteWorkoutRepository) SaveSet(ctx context.Context, workoutExerciseID int, set Set) (Set, error) {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var workoutID int
		err := tx.QueryRowContext(ctx, `SELECT workout_id FROM workout_exercises WHERE id = ?`, workoutExerciseID).
			Scan(&workoutID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("query workout exercise: %w", err)
		}
		if err = requireInProgress(ctx, tx, workoutID); err != nil {
			return err
		}

		if set.SetNumber == 0 {
			if err = tx.QueryRowContext(ctx, `
				SELECT COALESCE(MAX(set_number), 0) + 1 FROM workout_sets WHERE workout_exercise_id = ?`,
				workoutExerciseID).Scan(&set.SetNumber); err != nil {
				return fmt.Errorf("next set number: %w", err)
			}
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO workout_sets (workout_exercise_id, set_number, weight_kg, reps, rpe, completed)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (workout_exercise_id, set_number) DO UPDATE SET
				weight_kg = excluded.weight_kg,
				reps = excluded.reps,
				rpe = excluded.rpe,
				completed = excluded.completed
			RETURNING id`,
			workoutExerciseID, set.SetNumber, set.WeightKg, set.Reps, set.RPE, set.Completed).Scan(&set.ID)
		if err != nil {
			return fmt.Errorf("upsert set: %w", err)
		}
		return nil
	})
	if err != nil {
		return Set{}, fmt.Errorf("save set: %w", err)
	}
	return set, nil
}

// Complete transitions an in-progress workout to completed together with the owner's progress.
func (r *sqliteWorkoutRepository) Complete(
	ctx context.Context,
	id int,
	completeFn func(w *Workout, u *User) error,
) (Workout, error) {
	var w Workout
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := requireInProgress(ctx, tx, id); err != nil {
			return err
		}
		var err error
		if w, err = r.load(ctx, tx, id); err != nil {
			return err
		}
		u, err := loadUser(ctx, tx, w.UserID)
		if err != nil {
			return err
		}

		if err = completeFn(&w, &u); err != nil {
			return fmt.Errorf("complete function: %w", err)
		}

		// The status guard makes the transition a check-and-set even if the checks above are bypassed.
		res, err := tx.ExecContext(ctx, `
			UPDATE workouts
			SET status = ?, completed_at = ?, duration_minutes = ?,
				total_volume = ?, total_sets = ?, total_reps = ?, average_rpe = ?
			WHERE id = ? AND user_id = ? AND status = ?`,
			StatusCompleted, sqlite.FormatTimestamp(*w.CompletedAt), w.DurationMinutes,
			w.Summary.TotalVolume, w.Summary.TotalSets, w.Summary.TotalReps, w.Summary.AverageRPE,
			id, w.UserID, StatusInProgress)
		if err != nil {
			return fmt.Errorf("update workout: %w", err)
		}
		var n int64
		if n, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return ErrInvalidState
		}

		return saveProgress(ctx, tx, u)
	})
	if err != nil {
		return Workout{}, fmt.Errorf("complete workout %d: %w", id, err)
	}
	w.Status = StatusCompleted
	return w, nil
}

// Cancel transitions an in-progress workout to cancelled.
func (r *sqliteWorkoutRepository) Cancel(ctx context.Context, id int) error {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := requireInProgress(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE workouts SET status = ? WHERE id = ? AND status = ?`,
			StatusCancelled, id, StatusInProgress); err != nil {
			return fmt.Errorf("update workout: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel workout %d: %w", id, err)
	}
	return nil
}

// CompletedVolumes returns the total volume of every workout completed in [from, to).
func (r *sqliteWorkoutRepository) CompletedVolumes(ctx context.Context, from, to time.Time) (
	[]stats.WorkoutVolume, error) {
	var volumes []stats.WorkoutVolume
	err := scanRows(ctx, r.db.ReadOnly, `
		SELECT completed_at, total_volume
		FROM workouts
		WHERE user_id = ? AND status = ? AND completed_at >= ? AND completed_at < ?
		ORDER BY completed_at`,
		[]any{contexthelpers.AuthenticatedUserID(ctx), StatusCompleted,
			sqlite.FormatTimestamp(from), sqlite.FormatTimestamp(to)},
		func(rows *sql.Rows) error {
			var (
				completedAt string
				v           stats.WorkoutVolume
				err         error
			)
			if err = rows.Scan(&completedAt, &v.Volume); err != nil {
				return fmt.Errorf("scan volume: %w", err)
			}
			if v.CompletedAt, err = sqlite.ParseTimestamp(completedAt); err != nil {
				return err
			}
			volumes = append(volumes, v)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("query completed volumes: %w", err)
	}
	return volumes, nil
}

// CompletionTimes returns the completion time of every completed workout.
func (r *sqliteWorkoutRepository) CompletionTimes(ctx context.Context) ([]time.Time, error) {
	var times []time.Time
	err := scanRows(ctx, r.db.ReadOnly, `
		SELECT completed_at
		FROM workouts
		WHERE user_id = ? AND status = ?
		ORDER BY completed_at`,
		[]any{contexthelpers.AuthenticatedUserID(ctx), StatusCompleted},
		func(rows *sql.Rows) error {
			var completedAt string
			if err := rows.Scan(&completedAt); err != nil {
				return fmt.Errorf("scan completed_at: %w", err)
			}
			t, err := sqlite.ParseTimestamp(completedAt)
			if err != nil {
				return err
			}
			times = append(times, t)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("query completion times: %w", err)
	}
	return times, nil
}

// ExerciseSetCounts counts completed sets per workout exercise of workouts completed since.
func (r *sqliteWorkoutRepository) ExerciseSetCounts(ctx context.Context, since time.Time) (
	[]stats.ExerciseSets, error) {
	type count struct {
		exerciseID int
		sets       int
	}
	var counts []count
	err := scanRows(ctx, r.db.ReadOnly, `
		SELECT we.exercise_id, SUM(s.completed)
		FROM workouts w
		JOIN workout_exercises we ON we.workout_id = w.id
		JOIN workout_sets s ON s.workout_exercise_id = we.id
		WHERE w.user_id = ? AND w.status = ? AND w.completed_at >= ?
		GROUP BY we.id
		HAVING SUM(s.completed) > 0`,
		[]any{contexthelpers.AuthenticatedUserID(ctx), StatusCompleted, sqlite.FormatTimestamp(since)},
		func(rows *sql.Rows) error {
			var c count
			if err := rows.Scan(&c.exerciseID, &c.sets); err != nil {
				return fmt.Errorf("scan set count: %w", err)
			}
			counts = append(counts, c)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("query set counts: %w", err)
	}

	exercises := make([]Exercise, len(counts))
	for i, c := range counts {
		exercises[i] = Exercise{ID: c.exerciseID} //nolint:exhaustruct // details are loaded below.
	}
	if err = r.exerciseRepo.hydrate(ctx, exercises); err != nil {
		return nil, fmt.Errorf("load exercises: %w", err)
	}

	result := make([]stats.ExerciseSets, len(counts))
	for i, c := range counts {
		result[i] = stats.ExerciseSets{
			PrimaryMuscleGroups:   exercises[i].PrimaryMuscleGroups,
			SecondaryMuscleGroups: exercises[i].SecondaryMuscleGroups,
			CompletedSets:         c.sets,
		}
	}
	return result, nil
}

// RecentlyTrained returns the primary muscle groups hit by completed sets of the most recent completed workouts.
func (r *sqliteWorkoutRepository) RecentlyTrained(ctx context.Context, limit int) ([]stats.TrainedWorkout, error) {
	var (
		trained []stats.TrainedWorkout
		ids     []any
	)
	indexByID := make(map[int]int)
	err := scanRows(ctx, r.db.ReadOnly, `
		SELECT id, completed_at
		FROM workouts
		WHERE user_id = ? AND status = ?
		ORDER BY completed_at DESC
		LIMIT ?`,
		[]any{contexthelpers.AuthenticatedUserID(ctx), StatusCompleted, limit},
		func(rows *sql.Rows) error {
			var (
				id          int
				completedAt string
			)
			if err := rows.Scan(&id, &completedAt); err != nil {
				return fmt.Errorf("scan workout: %w", err)
			}
			t, err := sqlite.ParseTimestamp(completedAt)
			if err != nil {
				return err
			}
			indexByID[id] = len(trained)
			ids = append(ids, id)
			trained = append(trained, stats.TrainedWorkout{CompletedAt: t, PrimaryMuscleGroups: nil})
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("query recent workouts: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err = scanRows(ctx, r.db.ReadOnly, `
		SELECT DISTINCT we.workout_id, emg.muscle_group_name
		FROM workout_exercises we
		JOIN exercise_muscle_groups emg ON emg.exercise_id = we.exercise_id AND emg.is_primary = 1
		WHERE we.workout_id IN (`+placeholders(len(ids))+`)
		  AND EXISTS (SELECT 1 FROM workout_sets s WHERE s.workout_exercise_id = we.id AND s.completed = 1)
		ORDER BY we.workout_id, emg.muscle_group_name`, ids,
		func(rows *sql.Rows) error {
			var (
				workoutID int
				muscle    string
			)
			if err := rows.Scan(&workoutID, &muscle); err != nil {
				return fmt.Errorf("scan muscle group: %w", err)
			}
			tw := &trained[indexByID[workoutID]]
			tw.PrimaryMuscleGroups = append(tw.PrimaryMuscleGroups, muscle)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("query trained muscle groups: %w", err)
	}
	return trained, nil
}
