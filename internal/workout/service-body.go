package workout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/stats"
)

const (
	maxBodyWeightKg = 700
	minHeightCm     = 50
	maxHeightCm     = 300
)

// LogBodyWeight appends a body-weight entry. A nil recordedAt means now.
func (s *Service) LogBodyWeight(ctx context.Context, weightKg float64, recordedAt *time.Time) (BodyWeight, error) {
	if weightKg <= 0 || weightKg >= maxBodyWeightKg {
		return BodyWeight{}, errors.Wrap(ErrValidation, "body weight out of range", slog.Float64("weight_kg", weightKg))
	}
	at := s.now()
	if recordedAt != nil {
		if recordedAt.After(at) {
			return BodyWeight{}, errors.Wrap(ErrValidation, "body weight recorded in the future",
				slog.Time("recorded_at", *recordedAt))
		}
		at = *recordedAt
	}
	entry, err := s.repo.body.Add(ctx, weightKg, at)
	if err != nil {
		return BodyWeight{}, fmt.Errorf("log body weight: %w", err)
	}
	return entry, nil
}

// SetHeight stores the user's height used for BMI.
func (s *Service) SetHeight(ctx context.Context, heightCm float64) error {
	if heightCm < minHeightCm || heightCm > maxHeightCm {
		return errors.Wrap(ErrValidation, "height out of range", slog.Float64("height_cm", heightCm))
	}
	if err := s.repo.users.SetHeight(ctx, heightCm); err != nil {
		return fmt.Errorf("set height: %w", err)
	}
	return nil
}

// BodyTrend analyses the body-weight log of the timeframe.
func (s *Service) BodyTrend(ctx context.Context, tf stats.BodyTimeframe) (stats.BodyTrend, error) {
	now := s.now()
	var since *time.Time
	if t, ok := tf.Since(now); ok {
		since = &t
	}
	entries, err := s.repo.body.List(ctx, since)
	if err != nil {
		return stats.BodyTrend{}, fmt.Errorf("body trend: %w", err)
	}
	user, err := s.repo.users.Get(ctx)
	if err != nil {
		return stats.BodyTrend{}, fmt.Errorf("body trend: %w", err)
	}

	weights := make([]stats.WeightEntry, len(entries))
	for i, e := range entries {
		weights[i] = stats.WeightEntry{RecordedAt: e.RecordedAt, WeightKg: e.WeightKg}
	}
	return stats.AnalyzeBodyWeight(weights, user.HeightCm, now), nil
}
