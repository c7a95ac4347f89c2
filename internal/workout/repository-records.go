package workout

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/myrjola/liftcoach/internal/contexthelpers"
	"github.com/myrjola/liftcoach/internal/sqlite"
	"github.com/myrjola/liftcoach/internal/stats"
)

// sqliteRecordRepository implements recordRepository.
type sqliteRecordRepository struct {
	baseRepository
}

func newSQLiteRecordRepository(db *sqlite.Database) *sqliteRecordRepository {
	return &sqliteRecordRepository{baseRepository: newBaseRepository(db)}
}

// Bests returns the authenticated user's current best per record type for an exercise.
func (r *sqliteRecordRepository) Bests(ctx context.Context, exerciseID int) (map[stats.RecordType]float64, error) {
	bests := make(map[stats.RecordType]float64)
	err := scanRows(ctx, r.db.ReadOnly, `
		SELECT record_type, MAX(value)
		FROM personal_records
		WHERE user_id = ? AND exercise_id = ?
		GROUP BY record_type`,
		[]any{contexthelpers.AuthenticatedUserID(ctx), exerciseID},
		func(rows *sql.Rows) error {
			var (
				recordType stats.RecordType
				value      float64
			)
			if err := rows.Scan(&recordType, &value); err != nil {
				return fmt.Errorf("scan best: %w", err)
			}
			if !recordType.Valid() {
				return fmt.Errorf("unknown record type %q", recordType)
			}
			bests[recordType] = value
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("query bests for exercise %d: %w", exerciseID, err)
	}
	return bests, nil
}

// Append stores new records in one transaction and returns them with their IDs.
func (r *sqliteRecordRepository) Append(ctx context.Context, records []PersonalRecord) ([]PersonalRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	saved := make([]PersonalRecord, len(records))
	copy(saved, records)
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i := range saved {
			pr := &saved[i]
			if err := tx.QueryRowContext(ctx, `
				INSERT INTO personal_records (
					user_id, exercise_id, record_type, value, reps, body_weight_kg, workout_id, achieved_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				RETURNING id`,
				pr.UserID, pr.ExerciseID, pr.RecordType, pr.Value, pr.Reps, pr.BodyWeightKg, pr.WorkoutID,
				sqlite.FormatTimestamp(pr.AchievedAt)).Scan(&pr.ID); err != nil {
				return fmt.Errorf("insert %s record for exercise %d: %w", pr.RecordType, pr.ExerciseID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append personal records: %w", err)
	}
	return saved, nil
}

const recordColumns = `pr.id, pr.user_id, pr.exercise_id, e.name, pr.record_type, pr.value, pr.reps,
	pr.body_weight_kg, pr.workout_id, pr.achieved_at`

// ListBests returns the current best of every exercise and record type, optionally for one exercise.
func (r *sqliteRecordRepository) ListBests(ctx context.Context, exerciseID *int) ([]PersonalRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM personal_records pr
		JOIN exercises e ON e.id = pr.exercise_id
		WHERE pr.user_id = ?
		  AND pr.id = (SELECT p2.id
		               FROM personal_records p2
		               WHERE p2.user_id = pr.user_id
		                 AND p2.exercise_id = pr.exercise_id
		                 AND p2.record_type = pr.record_type
		               ORDER BY p2.value DESC, p2.achieved_at
		               LIMIT 1)`
	args := []any{contexthelpers.AuthenticatedUserID(ctx)}
	if exerciseID != nil {
		query += ` AND pr.exercise_id = ?`
		args = append(args, *exerciseID)
	}
	query += ` ORDER BY e.name, pr.record_type`
	return r.list(ctx, query, args)
}

// History returns every record of an exercise in the order they were achieved.
func (r *sqliteRecordRepository) History(ctx context.Context, exerciseID int) ([]PersonalRecord, error) {
	return r.list(ctx, `
		SELECT `+recordColumns+`
		FROM personal_records pr
		JOIN exercises e ON e.id = pr.exercise_id
		WHERE pr.user_id = ? AND pr.exercise_id = ?
		ORDER BY pr.achieved_at, pr.id`,
		[]any{contexthelpers.AuthenticatedUserID(ctx), exerciseID})
}

func (r *sqliteRecordRepository) list(ctx context.Context, query string, args []any) ([]PersonalRecord, error) {
	var records []PersonalRecord
	err := scanRows(ctx, r.db.ReadOnly, query, args, func(rows *sql.Rows) error {
		var (
			pr         PersonalRecord
			reps       sql.NullInt64
			bodyWeight sql.NullFloat64
			achievedAt string
			err        error
		)
		if err = rows.Scan(&pr.ID, &pr.UserID, &pr.ExerciseID, &pr.ExerciseName, &pr.RecordType, &pr.Value, &reps,
			&bodyWeight, &pr.WorkoutID, &achievedAt); err != nil {
			return fmt.Errorf("scan personal record: %w", err)
		}
		if !pr.RecordType.Valid() {
			return fmt.Errorf("unknown record type %q in personal record %d", pr.RecordType, pr.ID)
		}
		if reps.Valid {
			n := int(reps.Int64)
			pr.Reps = &n
		}
		if bodyWeight.Valid {
			pr.BodyWeightKg = &bodyWeight.Float64
		}
		if pr.AchievedAt, err = sqlite.ParseTimestamp(achievedAt); err != nil {
			return err
		}
		records = append(records, pr)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list personal records: %w", err)
	}
	return records, nil
}
