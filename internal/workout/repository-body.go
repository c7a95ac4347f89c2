package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/myrjola/liftcoach/internal/contexthelpers"
	"github.com/myrjola/liftcoach/internal/sqlite"
)

// sqliteBodyRepository implements bodyRepository.
type sqliteBodyRepository struct {
	baseRepository
}

func newSQLiteBodyRepository(db *sqlite.Database) *sqliteBodyRepository {
	return &sqliteBodyRepository{baseRepository: newBaseRepository(db)}
}

// Add appends a weight entry for the authenticated user.
func (r *sqliteBodyRepository) Add(ctx context.Context, weightKg float64, recordedAt time.Time) (BodyWeight, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	entry := BodyWeight{ID: 0, WeightKg: weightKg, RecordedAt: recordedAt.UTC().Truncate(time.Millisecond)}
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO body_weights (user_id, weight_kg, recorded_at)
			VALUES (?, ?, ?)
			RETURNING id`,
			userID, weightKg, sqlite.FormatTimestamp(recordedAt)).Scan(&entry.ID); err != nil {
			return fmt.Errorf("insert body weight: %w", err)
		}
		return nil
	})
	if err != nil {
		return BodyWeight{}, fmt.Errorf("add body weight: %w", err)
	}
	return entry, nil
}

// List returns entries recorded since the given time in ascending order. A nil since returns all entries.
func (r *sqliteBodyRepository) List(ctx context.Context, since *time.Time) ([]BodyWeight, error) {
	lowerBound := ""
	if since != nil {
		lowerBound = sqlite.FormatTimestamp(*since)
	}
	var entries []BodyWeight
	err := scanRows(ctx, r.db.ReadOnly, `
		SELECT id, weight_kg, recorded_at
		FROM body_weights
		WHERE user_id = ? AND recorded_at >= ?
		ORDER BY recorded_at, id`,
		[]any{contexthelpers.AuthenticatedUserID(ctx), lowerBound},
		func(rows *sql.Rows) error {
			var (
				e          BodyWeight
				recordedAt string
				err        error
			)
			if err = rows.Scan(&e.ID, &e.WeightKg, &recordedAt); err != nil {
				return fmt.Errorf("scan body weight: %w", err)
			}
			if e.RecordedAt, err = sqlite.ParseTimestamp(recordedAt); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list body weights: %w", err)
	}
	return entries, nil
}

// LatestAtOrBefore returns the most recent weight recorded at or before t, or nil when there is none.
func (r *sqliteBodyRepository) LatestAtOrBefore(ctx context.Context, t time.Time) (*float64, error) {
	var weight float64
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT weight_kg
		FROM body_weights
		WHERE user_id = ? AND recorded_at <= ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`,
		contexthelpers.AuthenticatedUserID(ctx), sqlite.FormatTimestamp(t)).Scan(&weight)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no weight logged yet.
	}
	if err != nil {
		return nil, fmt.Errorf("query latest body weight: %w", err)
	}
	return &weight, nil
}
