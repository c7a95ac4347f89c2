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

// sqliteUserRepository implements userRepository.
type sqliteUserRepository struct {
	baseRepository
}

func newSQLiteUserRepository(db *sqlite.Database) *sqliteUserRepository {
	return &sqliteUserRepository{baseRepository: newBaseRepository(db)}
}

// Get returns the authenticated user. A user without a row yet is returned with zero progress.
func (r *sqliteUserRepository) Get(ctx context.Context) (User, error) {
	return loadUser(ctx, r.db.ReadOnly, contexthelpers.AuthenticatedUserID(ctx))
}

// SetHeight stores the authenticated user's height.
func (r *sqliteUserRepository) SetHeight(ctx context.Context, heightCm float64) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET height_cm = ? WHERE id = ?`, heightCm, userID); err != nil {
			return fmt.Errorf("update height: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set height: %w", err)
	}
	return nil
}

func loadUser(ctx context.Context, q querier, userID int) (User, error) {
	var (
		u               User
		heightCm        sql.NullFloat64
		lastWorkoutDate sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, display_name, height_cm, current_streak, longest_streak, last_workout_date, xp
		FROM users
		WHERE id = ?`, userID).Scan(
		&u.ID, &u.DisplayName, &heightCm, &u.CurrentStreak, &u.LongestStreak, &lastWorkoutDate, &u.XP)
	if errors.Is(err, sql.ErrNoRows) {
		return User{ID: userID}, nil //nolint:exhaustruct // a new user has no progress.
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	if heightCm.Valid {
		u.HeightCm = &heightCm.Float64
	}
	if lastWorkoutDate.Valid {
		var d time.Time
		if d, err = time.Parse(time.DateOnly, lastWorkoutDate.String); err != nil {
			return User{}, fmt.Errorf("parse last_workout_date: %w", err)
		}
		u.LastWorkoutDate = &d
	}
	return u, nil
}

// saveProgress persists the streak and XP of a user, creating the row when missing.
func saveProgress(ctx context.Context, q querier, u User) error {
	var lastWorkoutDate *string
	if u.LastWorkoutDate != nil {
		d := formatDate(*u.LastWorkoutDate)
		lastWorkoutDate = &d
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO users (id, current_streak, longest_streak, last_workout_date, xp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_workout_date = excluded.last_workout_date,
			xp = excluded.xp`,
		u.ID, u.CurrentStreak, u.LongestStreak, lastWorkoutDate, u.XP); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
