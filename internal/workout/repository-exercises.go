package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/myrjola/liftcoach/internal/sqlite"
)

// sqliteExerciseRepository implements exerciseRepository.
type sqliteExerciseRepository struct {
	baseRepository
}

// newSQLiteExerciseRepository creates a new SQLite exercise repository.
func newSQLiteExerciseRepository(db *sqlite.Database) *sqliteExerciseRepository {
	return &sqliteExerciseRepository{
		baseRepository: newBaseRepository(db),
	}
}

// Get retrieves a single exercise by ID.
func (r *sqliteExerciseRepository) Get(ctx context.Context, id int) (Exercise, error) {
	var exercise Exercise

	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT id, name, category, difficulty, description_markdown
		FROM exercises
		WHERE id = ?`, id).Scan(
		&exercise.ID,
		&exercise.Name,
		&exercise.Category,
		&exercise.Difficulty,
		&exercise.DescriptionMarkdown,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Exercise{}, ErrNotFound
	}
	if err != nil {
		return Exercise{}, fmt.Errorf("query exercise: %w", err)
	}

	exercises := []Exercise{exercise}
	if err = r.attachDetails(ctx, exercises); err != nil {
		return Exercise{}, fmt.Errorf("attach details for exercise %d: %w", id, err)
	}
	return exercises[0], nil
}

// List returns all available exercises with their muscle groups and equipment.
func (r *sqliteExerciseRepository) List(ctx context.Context) ([]Exercise, error) {
	return r.query(ctx, `
		SELECT id, name, category, difficulty, description_markdown
		FROM exercises
		ORDER BY id`)
}

// FindByNames returns the exercises with the given names in catalog order.
func (r *sqliteExerciseRepository) FindByNames(ctx context.Context, names []string) ([]Exercise, error) {
	if len(names) == 0 {
		return nil, nil
	}
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	return r.query(ctx, `
		SELECT id, name, category, difficulty, description_markdown
		FROM exercises
		WHERE name IN (`+placeholders(len(names))+`)
		ORDER BY id`, args...)
}

func (r *sqliteExerciseRepository) query(ctx context.Context, query string, args ...any) (_ []Exercise, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var exercises []Exercise
	for rows.Next() {
		var exercise Exercise
		if err = rows.Scan(&exercise.ID, &exercise.Name, &exercise.Category, &exercise.Difficulty,
			&exercise.DescriptionMarkdown); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		exercises = append(exercises, exercise)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err = r.attachDetails(ctx, exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// attachDetails loads muscle groups and equipment for exercises in two queries.
func (r *sqliteExerciseRepository) attachDetails(ctx context.Context, exercises []Exercise) error {
	if len(exercises) == 0 {
		return nil
	}
	byID := make(map[int]*Exercise, len(exercises))
	args := make([]any, len(exercises))
	for i := range exercises {
		byID[exercises[i].ID] = &exercises[i]
		args[i] = exercises[i].ID
	}
	in := placeholders(len(exercises))

	err := scanRows(ctx, r.db.ReadOnly, `
		SELECT exercise_id, muscle_group_name, is_primary
		FROM exercise_muscle_groups
		WHERE exercise_id IN (`+in+`)
		ORDER BY exercise_id, muscle_group_name`, args, func(rows *sql.Rows) error {
		var (
			exerciseID int
			name       string
			isPrimary  bool
		)
		if err := rows.Scan(&exerciseID, &name, &isPrimary); err != nil {
			return fmt.Errorf("scan muscle group row: %w", err)
		}
		ex := byID[exerciseID]
		if isPrimary {
			ex.PrimaryMuscleGroups = append(ex.PrimaryMuscleGroups, name)
		} else {
			ex.SecondaryMuscleGroups = append(ex.SecondaryMuscleGroups, name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fetch muscle groups: %w", err)
	}

	err = scanRows(ctx, r.db.ReadOnly, `
		SELECT exercise_id, equipment_name
		FROM exercise_equipment
		WHERE exercise_id IN (`+in+`)
		ORDER BY exercise_id, equipment_name`, args, func(rows *sql.Rows) error {
		var (
			exerciseID int
			name       string
		)
		if err := rows.Scan(&exerciseID, &name); err != nil {
			return fmt.Errorf("scan equipment row: %w", err)
		}
		byID[exerciseID].Equipment = append(byID[exerciseID].Equipment, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("fetch equipment: %w", err)
	}
	return nil
}

// Save inserts the exercise or replaces the existing one with the same name. The stored embedding is cleared
// because it no longer describes the exercise.
func (r *sqliteExerciseRepository) Save(ctx context.Context, ex Exercise) (Exercise, error) {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO exercises (name, category, difficulty, description_markdown)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET
				category = excluded.category,
				difficulty = excluded.difficulty,
				description_markdown = excluded.description_markdown,
				embedding = NULL,
				embedding_model = NULL
			RETURNING id`,
			ex.Name, ex.Category, ex.Difficulty, ex.DescriptionMarkdown).Scan(&ex.ID); err != nil {
			return fmt.Errorf("upsert exercise: %w", err)
		}

		for _, stmt := range []string{
			`DELETE FROM exercise_muscle_groups WHERE exercise_id = ?`,
			`DELETE FROM exercise_equipment WHERE exercise_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, ex.ID); err != nil {
				return fmt.Errorf("clear exercise details: %w", err)
			}
		}
		if err := insertMuscleGroups(ctx, tx, ex.ID, ex.PrimaryMuscleGroups, true); err != nil {
			return fmt.Errorf("insert primary muscle groups: %w", err)
		}
		if err := insertMuscleGroups(ctx, tx, ex.ID, ex.SecondaryMuscleGroups, false); err != nil {
			return fmt.Errorf("insert secondary muscle groups: %w", err)
		}
		for _, name := range ex.Equipment {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO exercise_equipment (exercise_id, equipment_name) VALUES (?, ?)`,
				ex.ID, name); err != nil {
				return fmt.Errorf("insert equipment %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return Exercise{}, fmt.Errorf("save exercise %s: %w", ex.Name, err)
	}
	return ex, nil
}

// insertMuscleGroups inserts muscle groups for an exercise.
func insertMuscleGroups(ctx context.Context, tx *sql.Tx, exerciseID int, muscleGroups []string, isPrimary bool) error {
	for _, muscleGroup := range muscleGroups {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO exercise_muscle_groups (exercise_id, muscle_group_name, is_primary)
			VALUES (?, ?, ?)`,
			exerciseID, muscleGroup, isPrimary)
		if err != nil {
			return fmt.Errorf("insert muscle group %s: %w", muscleGroup, err)
		}
	}
	return nil
}

// ListMuscleGroups retrieves all available muscle groups.
func (r *sqliteExerciseRepository) ListMuscleGroups(ctx context.Context) ([]string, error) {
	var muscleGroups []string
	err := scanRows(ctx, r.db.ReadOnly, `SELECT name FROM muscle_groups ORDER BY name`, nil,
		func(rows *sql.Rows) error {
			var name string
			if err := rows.Scan(&name); err != nil {
				return fmt.Errorf("scan muscle group: %w", err)
			}
			muscleGroups = append(muscleGroups, name)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list muscle groups: %w", err)
	}
	return muscleGroups, nil
}

// scanRows runs query and calls scan for every row.
func scanRows(ctx context.Context, q querier, query string, args []any, scan func(rows *sql.Rows) error) (err error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	for rows.Next() {
		if err = scan(rows); err != nil {
			return err
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}

// sameExercise reports whether two exercises describe the same catalog entry, ignoring IDs.
func sameExercise(a, b Exercise) bool {
	return a.Name == b.Name && a.Category == b.Category && a.Difficulty == b.Difficulty &&
		a.DescriptionMarkdown == b.DescriptionMarkdown &&
		slices.Equal(sortedCopy(a.PrimaryMuscleGroups), sortedCopy(b.PrimaryMuscleGroups)) &&
		slices.Equal(sortedCopy(a.SecondaryMuscleGroups), sortedCopy(b.SecondaryMuscleGroups)) &&
		slices.Equal(sortedCopy(a.Equipment), sortedCopy(b.Equipment))
}

func sortedCopy(s []string) []string {
	c := slices.Clone(s)
	slices.Sort(c)
	return c
}

// ListByIDs returns the exercises with the given IDs in the order of ids.
func (r *sqliteExerciseRepository) ListByIDs(ctx context.Context, ids []int) ([]Exercise, error) {
	exercises := make([]Exercise, len(ids))
	for i, id := range ids {
		exercises[i] = Exercise{ID: id} //nolint:exhaustruct // details are loaded by hydrate.
	}
	if err := r.hydrate(ctx, exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// hydrate replaces every exercise with the catalog entry of the same ID, keeping order and duplicates.
func (r *sqliteExerciseRepository) hydrate(ctx context.Context, exercises []Exercise) error {
	if len(exercises) == 0 {
		return nil
	}
	ids := make([]any, 0, len(exercises))
	seen := make(map[int]bool, len(exercises))
	for _, ex := range exercises {
		if !seen[ex.ID] {
			seen[ex.ID] = true
			ids = append(ids, ex.ID)
		}
	}
	loaded, err := r.query(ctx, `
		SELECT id, name, category, difficulty, description_markdown
		FROM exercises
		WHERE id IN (`+placeholders(len(ids))+`)`, ids...)
	if err != nil {
		return err
	}
	byID := make(map[int]Exercise, len(loaded))
	for _, ex := range loaded {
		byID[ex.ID] = ex
	}
	for i, ex := range exercises {
		found, ok := byID[ex.ID]
		if !ok {
			return fmt.Errorf("exercise %d: %w", ex.ID, ErrNotFound)
		}
		exercises[i] = found
	}
	return nil
}
