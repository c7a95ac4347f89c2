package workout

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/liftcoach/internal/sqlite"
	"github.com/myrjola/liftcoach/internal/stats"
)

// workoutRepository persists workouts with their exercises and sets. Reads are scoped to the authenticated user
// only where noted so that the service can tell a missing workout from one owned by someone else.
type workoutRepository interface {
	// Create starts a new in-progress workout for the authenticated user.
	Create(ctx context.Context, name string, startedAt time.Time) (Workout, error)
	// Get loads a workout of any user with its exercises and sets.
	Get(ctx context.Context, id int) (Workout, error)
	// List returns the authenticated user's workouts, most recent first, without exercises.
	List(ctx context.Context, filter listFilter) ([]Workout, error)
	// AddExercise appends an exercise to an in-progress workout.
	AddExercise(ctx context.Context, workoutID int, exerciseID int) (WorkoutExercise, error)
	// SaveSet inserts or replaces a set of a workout exercise.
	SaveSet(ctx context.Context, workoutExerciseID int, set Set) (Set, error)
	// Complete transitions an in-progress workout of the authenticated user to completed in a single transaction.
	// completeFn receives the workout and its owner as loaded inside the transaction and fills in the completion
	// fields and the user's progress, which are persisted together.
	Complete(ctx context.Context, id int, completeFn func(w *Workout, u *User) error) (Workout, error)
	// Cancel transitions an in-progress workout to cancelled.
	Cancel(ctx context.Context, id int) error
	// CompletedVolumes returns the total volume of every workout completed in [from, to).
	CompletedVolumes(ctx context.Context, from, to time.Time) ([]stats.WorkoutVolume, error)
	// CompletionTimes returns the completion time of every completed workout.
	CompletionTimes(ctx context.Context) ([]time.Time, error)
	// ExerciseSetCounts counts completed sets per workout exercise of workouts completed since.
	ExerciseSetCounts(ctx context.Context, since time.Time) ([]stats.ExerciseSets, error)
	// RecentlyTrained returns the primary muscle groups of the most recent completed workouts.
	RecentlyTrained(ctx context.Context, limit int) ([]stats.TrainedWorkout, error)
}

type listFilter struct {
	status *Status
	limit  int
}

// exerciseRepository reads the exercise catalog.
type exerciseRepository interface {
	Get(ctx context.Context, id int) (Exercise, error)
	List(ctx context.Context) ([]Exercise, error)
	ListMuscleGroups(ctx context.Context) ([]string, error)
	// ListByIDs returns the exercises with the given IDs in the order of ids.
	ListByIDs(ctx context.Context, ids []int) ([]Exercise, error)
	// FindByNames returns the exercises with the given names in catalog order.
	FindByNames(ctx context.Context, names []string) ([]Exercise, error)
	// Save inserts the exercise or replaces the one with the same name.
	Save(ctx context.Context, ex Exercise) (Exercise, error)
}

// recordRepository persists personal records.
type recordRepository interface {
	// Bests returns the authenticated user's current best per record type for an exercise.
	Bests(ctx context.Context, exerciseID int) (map[stats.RecordType]float64, error)
	// Append stores new records in one transaction.
	Append(ctx context.Context, records []PersonalRecord) ([]PersonalRecord, error)
	// ListBests returns the current best of every exercise and record type, optionally for one exercise.
	ListBests(ctx context.Context, exerciseID *int) ([]PersonalRecord, error)
	// History returns every record of an exercise in the order they were achieved.
	History(ctx context.Context, exerciseID int) ([]PersonalRecord, error)
}

// userRepository persists the user profile.
type userRepository interface {
	// Get returns the authenticated user. A user without a row yet is returned with zero progress.
	Get(ctx context.Context) (User, error)
	SetHeight(ctx context.Context, heightCm float64) error
}

// bodyRepository persists the body-weight log.
type bodyRepository interface {
	Add(ctx context.Context, weightKg float64, recordedAt time.Time) (BodyWeight, error)
	// List returns entries recorded since the given time in ascending order. A nil since returns all entries.
	List(ctx context.Context, since *time.Time) ([]BodyWeight, error)
	// LatestAtOrBefore returns the most recent weight recorded at or before t, or nil when there is none.
	LatestAtOrBefore(ctx context.Context, t time.Time) (*float64, error)
}

// repository aggregates the per-aggregate repositories.
type repository struct {
	workouts  workoutRepository
	exercises exerciseRepository
	records   recordRepository
	users     userRepository
	body      bodyRepository
}

// repositoryFactory creates repositories.
type repositoryFactory struct {
	db     *sqlite.Database
	logger *slog.Logger
}

// newRepositoryFactory creates a new repository factory.
func newRepositoryFactory(db *sqlite.Database, logger *slog.Logger) *repositoryFactory {
	return &repositoryFactory{
		db:     db,
		logger: logger,
	}
}

// newRepository creates a new repository with all sub-repositories.
func (f *repositoryFactory) newRepository() *repository {
	exercises := newSQLiteExerciseRepository(f.db)
	return &repository{
		workouts:  newSQLiteWorkoutRepository(f.db, f.logger, exercises),
		exercises: exercises,
		records:   newSQLiteRecordRepository(f.db),
		users:     newSQLiteUserRepository(f.db),
		body:      newSQLiteBodyRepository(f.db),
	}
}

// baseRepository provides common functionality for all repositories.
type baseRepository struct {
	db *sqlite.Database
}

func newBaseRepository(db *sqlite.Database) baseRepository {
	return baseRepository{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ensureUser creates the user row on the first write so that foreign keys hold.
func ensureUser(ctx context.Context, q querier, userID int) error {
	_, err := q.ExecContext(ctx, `INSERT INTO users (id) VALUES (?) ON CONFLICT (id) DO NOTHING`, userID)
	return err //nolint:wrapcheck // callers wrap.
}

// placeholders returns n comma separated SQL parameter placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
