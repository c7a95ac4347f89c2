package stats

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/myrjola/liftcoach/internal/errors"
)

// BodyTimeframe selects the window for body-weight trends.
type BodyTimeframe string

const (
	BodyTimeframeMonth       BodyTimeframe = "1m"
	BodyTimeframeThreeMonths BodyTimeframe = "3m"
	BodyTimeframeSixMonths   BodyTimeframe = "6m"
	BodyTimeframeYear        BodyTimeframe = "1y"
	BodyTimeframeAll         BodyTimeframe = "all"
)

// ParseBodyTimeframe parses s, defaulting to three months for the empty string.
func ParseBodyTimeframe(s string) (BodyTimeframe, error) {
	switch tf := BodyTimeframe(s); tf {
	case "":
		return BodyTimeframeThreeMonths, nil
	case BodyTimeframeMonth, BodyTimeframeThreeMonths, BodyTimeframeSixMonths, BodyTimeframeYear, BodyTimeframeAll:
		return tf, nil
	default:
		return "", errors.Wrap(ErrUnknownTimeframe, "parse body timeframe", slog.String("timeframe", s))
	}
}

// Since returns the start of the window ending at now. The all timeframe reports false.
func (tf BodyTimeframe) Since(now time.Time) (time.Time, bool) {
	switch tf {
	case BodyTimeframeMonth:
		return now.AddDate(0, -1, 0), true
	case BodyTimeframeThreeMonths:
		return now.AddDate(0, -3, 0), true //nolint:mnd // three months.
	case BodyTimeframeSixMonths:
		return now.AddDate(0, -6, 0), true //nolint:mnd // six months.
	case BodyTimeframeYear:
		return now.AddDate(-1, 0, 0), true
	case BodyTimeframeAll:
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// Weekly rate thresholds in kg per week.
const (
	maintenanceRate = 0.1
	rapidLossRate   = -1.0
	rapidGainRate   = 0.5
	// rateWindow is the trailing window used for the weekly rate.
	rateWindow = 14 * 24 * time.Hour
	rateWeeks  = 2
)

// AnalysisNoData is the analysis text for a user without weight entries.
const AnalysisNoData = "No weight data yet. Log your weight to see trends."

// WeightEntry is one body-weight measurement.
type WeightEntry struct {
	RecordedAt time.Time
	WeightKg   float64
}

// WeightTrendPoint pairs a measurement with its fitted trend value.
type WeightTrendPoint struct {
	RecordedAt time.Time `json:"recorded_at"`
	WeightKg   float64   `json:"weight_kg"`
	TrendKg    float64   `json:"trend_kg"`
}

// BodyTrend is the analysed body-weight history.
type BodyTrend struct {
	CurrentWeight    float64 `json:"current_weight"`
	InitialWeight    float64 `json:"initial_weight"`
	TotalChange      float64 `json:"total_change"`
	ChangePercentage float64 `json:"change_percentage"`
	// BMI is nil without a known height.
	BMI *float64 `json:"bmi,omitempty"`
	// WeeklyRate is the change over the trailing two weeks divided by two.
	WeeklyRate float64            `json:"weekly_rate"`
	Trend      []WeightTrendPoint `json:"trend"`
	Analysis   string             `json:"analysis"`
}

// AnalyzeBodyWeight summarises entries, which should already be limited to the requested timeframe.
func AnalyzeBodyWeight(entries []WeightEntry, heightCm *float64, now time.Time) BodyTrend {
	if len(entries) == 0 {
		return BodyTrend{
			CurrentWeight:    0,
			InitialWeight:    0,
			TotalChange:      0,
			ChangePercentage: 0,
			BMI:              nil,
			WeeklyRate:       0,
			Trend:            []WeightTrendPoint{},
			Analysis:         AnalysisNoData,
		}
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b WeightEntry) int { return a.RecordedAt.Compare(b.RecordedAt) })

	initial := sorted[0].WeightKg
	current := sorted[len(sorted)-1].WeightKg
	change := current - initial
	var percentage float64
	if initial > 0 {
		percentage = round(change/initial*100, 2) //nolint:mnd // percent.
	}

	var bmi *float64
	if heightCm != nil && *heightCm > 0 {
		m := *heightCm / 100 //nolint:mnd // cm to m.
		v := round(current/(m*m), 1)
		bmi = &v
	}

	weights := make([]float64, len(sorted))
	for i, e := range sorted {
		weights[i] = e.WeightKg
	}
	regression := LinearRegression(weights)
	trend := make([]WeightTrendPoint, len(sorted))
	for i, e := range sorted {
		trendKg := e.WeightKg
		if regression.Trend != nil {
			trendKg = regression.Trend[i]
		}
		trend[i] = WeightTrendPoint{RecordedAt: e.RecordedAt, WeightKg: e.WeightKg, TrendKg: trendKg}
	}

	rate := WeeklyRate(sorted, now)
	return BodyTrend{
		CurrentWeight:    current,
		InitialWeight:    initial,
		TotalChange:      round(change, 2),
		ChangePercentage: percentage,
		BMI:              bmi,
		WeeklyRate:       rate,
		Trend:            trend,
		Analysis:         DescribeWeeklyRate(rate),
	}
}

// WeeklyRate is the weight change across entries of the trailing two weeks divided by two. Entries must be sorted.
// Fewer than two entries in the window give zero.
func WeeklyRate(sorted []WeightEntry, now time.Time) float64 {
	cutoff := now.Add(-rateWindow)
	var window []WeightEntry
	for _, e := range sorted {
		if !e.RecordedAt.Before(cutoff) {
			window = append(window, e)
		}
	}
	if len(window) < 2 { //nolint:mnd // a rate needs two points.
		return 0
	}
	return round((window[len(window)-1].WeightKg-window[0].WeightKg)/rateWeeks, 2)
}

// DescribeWeeklyRate turns a weekly rate into advice.
func DescribeWeeklyRate(rate float64) string {
	switch {
	case math.Abs(rate) < maintenanceRate:
		return "Your weight is stable. You are in maintenance."
	case rate < rapidLossRate:
		return fmt.Sprintf("You are losing %.2f kg per week. Rapid loss warning: losing more than 1 kg per week "+
			"can cost muscle mass.", -rate)
	case rate < 0:
		return fmt.Sprintf("You are losing %.2f kg per week, a healthy rate of loss.", -rate)
	case rate > rapidGainRate:
		return fmt.Sprintf("You are gaining %.2f kg per week. Rapid gain warning: consider a smaller calorie "+
			"surplus.", rate)
	default:
		return fmt.Sprintf("You are gaining %.2f kg per week, a moderate rate of gain.", rate)
	}
}
