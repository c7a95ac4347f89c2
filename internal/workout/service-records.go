package workout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/myrjola/liftcoach/internal/contexthelpers"
	"github.com/myrjola/liftcoach/internal/stats"
)

// CheckAndSavePRs compares a completed workout against the authenticated user's bests and appends a record for
// every value that beats them. The body weight logged closest before completion is stored with each record.
//
// Running it again for the same workout finds nothing new.
func (s *Service) CheckAndSavePRs(ctx context.Context, workoutID int) ([]PersonalRecord, error) {
	w, err := s.repo.workouts.Get(ctx, workoutID)
	if err != nil {
		return nil, fmt.Errorf("get workout %d: %w", workoutID, err)
	}
	if w.UserID != contexthelpers.AuthenticatedUserID(ctx) {
		return nil, fmt.Errorf("check workout %d: %w", workoutID, ErrNotOwned)
	}
	if w.Status != StatusCompleted || w.CompletedAt == nil {
		return nil, fmt.Errorf("check %s workout %d: %w", w.Status, workoutID, ErrInvalidState)
	}

	bodyWeight, err := s.repo.body.LatestAtOrBefore(ctx, *w.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("latest body weight: %w", err)
	}

	// An exercise may appear more than once in a workout. Its sets are pooled in logged order.
	type session struct {
		exercise Exercise
		sets     []stats.SetPerformance
	}
	var order []int
	sessions := make(map[int]*session)
	for _, we := range w.Exercises {
		sess, ok := sessions[we.Exercise.ID]
		if !ok {
			sess = &session{exercise: we.Exercise, sets: nil}
			sessions[we.Exercise.ID] = sess
			order = append(order, we.Exercise.ID)
		}
		for _, set := range we.Sets {
			sess.sets = append(sess.sets, set.performance())
		}
	}

	var records []PersonalRecord
	for _, exerciseID := range order {
		sess := sessions[exerciseID]
		bests, bestsErr := s.repo.records.Bests(ctx, exerciseID)
		if bestsErr != nil {
			return nil, fmt.Errorf("get bests: %w", bestsErr)
		}
		for _, c := range stats.DetectRecords(sess.sets, bests) {
			records = append(records, PersonalRecord{
				ID:           0,
				UserID:       w.UserID,
				ExerciseID:   exerciseID,
				ExerciseName: sess.exercise.Name,
				RecordType:   c.Type,
				Value:        c.Value,
				Reps:         c.Reps,
				BodyWeightKg: bodyWeight,
				WorkoutID:    w.ID,
				AchievedAt:   *w.CompletedAt,
			})
		}
	}

	saved, err := s.repo.records.Append(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("save personal records: %w", err)
	}
	for _, pr := range saved {
		s.observer.PersonalRecordSet(pr.RecordType)
	}
	if len(saved) > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "personal records set",
			slog.Int("workout_id", workoutID), slog.Int("count", len(saved)))
	}
	return saved, nil
}

// ListPersonalRecords returns the current best of every exercise and record type. A non-nil exerciseID limits the
// result to that exercise.
func (s *Service) ListPersonalRecords(ctx context.Context, exerciseID *int) ([]PersonalRecord, error) {
	records, err := s.repo.records.ListBests(ctx, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("list personal records: %w", err)
	}
	return records, nil
}

// PersonalRecordHistory returns every record of an exercise in the order they were achieved.
func (s *Service) PersonalRecordHistory(ctx context.Context, exerciseID int) ([]PersonalRecord, error) {
	records, err := s.repo.records.History(ctx, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("personal record history: %w", err)
	}
	return records, nil
}
