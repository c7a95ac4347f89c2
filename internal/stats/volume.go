package stats

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/myrjola/liftcoach/internal/errors"
)

// ErrUnknownTimeframe is returned when parsing an unsupported timeframe.
var ErrUnknownTimeframe = errors.NewSentinel("unknown timeframe")

// Timeframe selects the window for volume statistics.
type Timeframe string

const (
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
)

// ParseTimeframe parses s, defaulting to a week for the empty string.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(s); tf {
	case "":
		return TimeframeWeek, nil
	case TimeframeWeek, TimeframeMonth, TimeframeYear:
		return tf, nil
	default:
		return "", errors.Wrap(ErrUnknownTimeframe, "parse timeframe", slog.String("timeframe", s))
	}
}

// Since returns the start of the window ending at now.
func (tf Timeframe) Since(now time.Time) time.Time {
	switch tf {
	case TimeframeMonth:
		return now.AddDate(0, 0, -30) //nolint:mnd // days in a month window.
	case TimeframeYear:
		return now.AddDate(0, 0, -365) //nolint:mnd // days in a year window.
	case TimeframeWeek:
		return now.AddDate(0, 0, -7) //nolint:mnd // days in a week window.
	default:
		return now.AddDate(0, 0, -7) //nolint:mnd // days in a week window.
	}
}

// WorkoutVolume is the total completed-set volume of one workout.
type WorkoutVolume struct {
	CompletedAt time.Time
	Volume      float64
}

// VolumePoint is the summed volume of a single calendar date.
type VolumePoint struct {
	Date   string  `json:"date"`
	Volume float64 `json:"volume"`
}

// VolumeSummary aggregates training volume over a window.
type VolumeSummary struct {
	TotalVolume  float64 `json:"total_volume"`
	WorkoutCount int     `json:"workout_count"`
	// Trend is sorted by date ascending.
	Trend []VolumePoint `json:"trend"`
}

// AnalyzeVolume sums workout volumes into a per-date trend.
func AnalyzeVolume(workouts []WorkoutVolume, loc *time.Location) VolumeSummary {
	byDate := make(map[string]float64)
	var total float64
	for _, w := range workouts {
		byDate[w.CompletedAt.In(loc).Format(DateFormat)] += w.Volume
		total += w.Volume
	}
	trend := make([]VolumePoint, 0, len(byDate))
	for date, v := range byDate {
		trend = append(trend, VolumePoint{Date: date, Volume: round(v, 2)})
	}
	slices.SortFunc(trend, func(a, b VolumePoint) int { return strings.Compare(a.Date, b.Date) })
	return VolumeSummary{TotalVolume: round(total, 2), WorkoutCount: len(workouts), Trend: trend}
}
