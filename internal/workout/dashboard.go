package workout

import (
	"context"
	"fmt"

	"github.com/myrjola/liftcoach/internal/stats"
	"golang.org/x/sync/errgroup"
)

const dashboardRecentWorkouts = 5

// statsSource is the part of Service the dashboard reads from.
type statsSource interface {
	VolumeStats(ctx context.Context, tf stats.Timeframe) (stats.VolumeSummary, error)
	ConsistencyStats(ctx context.Context) (stats.Consistency, error)
	RecoveryStatus(ctx context.Context) ([]stats.MuscleRecovery, error)
	RecentWorkouts(ctx context.Context, limit int) ([]Workout, error)
	GetUser(ctx context.Context) (User, error)
}

// Dashboard is the home screen payload.
type Dashboard struct {
	User           User                   `json:"user"`
	WeeklyVolume   stats.VolumeSummary    `json:"weekly_volume"`
	Consistency    stats.Consistency      `json:"consistency"`
	Recovery       []stats.MuscleRecovery `json:"recovery"`
	RecentWorkouts []Workout              `json:"recent_workouts"`
}

// DashboardAggregator composes the statistics shown on the dashboard.
type DashboardAggregator struct {
	source statsSource
}

// NewDashboardAggregator creates a dashboard aggregator reading from source, usually a *Service.
func NewDashboardAggregator(source statsSource) *DashboardAggregator {
	return &DashboardAggregator{source: source}
}

// Dashboard reads all dashboard sections concurrently. The first failing section fails the whole dashboard.
func (a *DashboardAggregator) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if d.User, err = a.source.GetUser(ctx); err != nil {
			return fmt.Errorf("dashboard user: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if d.WeeklyVolume, err = a.source.VolumeStats(ctx, stats.TimeframeWeek); err != nil {
			return fmt.Errorf("dashboard volume: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if d.Consistency, err = a.source.ConsistencyStats(ctx); err != nil {
			return fmt.Errorf("dashboard consistency: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if d.Recovery, err = a.source.RecoveryStatus(ctx); err != nil {
			return fmt.Errorf("dashboard recovery: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if d.RecentWorkouts, err = a.source.RecentWorkouts(ctx, dashboardRecentWorkouts); err != nil {
			return fmt.Errorf("dashboard recent workouts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err //nolint:wrapcheck // already wrapped per section.
	}
	return d, nil
}
