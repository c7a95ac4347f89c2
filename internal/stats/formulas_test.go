package stats_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/liftcoach/internal/stats"
)

func TestEstimateOneRepMax(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
		reps   int
		want   float64
	}{
		{name: "single rep is the weight", weight: 120, reps: 1, want: 120},
		{name: "ten reps averages four formulas", weight: 80, reps: 10, want: 105.33},
		{name: "zero reps", weight: 100, reps: 0, want: 0},
		{name: "negative reps", weight: 100, reps: -3, want: 0},
		{name: "zero weight", weight: 0, reps: 5, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stats.EstimateOneRepMax(tt.weight, tt.reps); got != tt.want {
				t.Errorf("EstimateOneRepMax(%v, %d) = %v, want %v", tt.weight, tt.reps, got, tt.want)
			}
		})
	}
}

func TestEstimateOneRepMax_highRepsStayFinite(t *testing.T) {
	for _, reps := range []int{36, 37, 38, 40, 100} {
		got := stats.EstimateOneRepMax(60, reps)
		if math.IsInf(got, 0) || math.IsNaN(got) || got <= 0 {
			t.Errorf("EstimateOneRepMax(60, %d) = %v, want a finite positive estimate", reps, got)
		}
	}
}

func TestEstimateOneRepMax_monotonic(t *testing.T) {
	for reps := 2; reps <= 20; reps++ {
		prev := 0.0
		for weight := 20.0; weight <= 200; weight += 2.5 {
			got := stats.EstimateOneRepMax(weight, reps)
			if got <= prev {
				t.Fatalf("reps %d: estimate %v at %vkg not above %v", reps, got, weight, prev)
			}
			prev = got
		}
	}

	// Every formula grows with reps while its denominator stays positive.
	prev := 0.0
	for reps := 1; reps <= 36; reps++ {
		got := stats.EstimateOneRepMax(100, reps)
		if got <= prev {
			t.Fatalf("estimate %v at %d reps not above %v", got, reps, prev)
		}
		prev = got
	}
}

func TestWilksScore(t *testing.T) {
	if got := stats.WilksScore(500, 100); math.Abs(got-304.3) > 0.05 {
		t.Errorf("WilksScore(500, 100) = %v, want about 304.3", got)
	}
	if got := stats.WilksScore(500, 0); got != 0 {
		t.Errorf("WilksScore with zero body weight = %v, want 0", got)
	}
	if got := stats.WilksScore(0, 80); got != 0 {
		t.Errorf("WilksScore with zero total = %v, want 0", got)
	}
	if stats.WilksScore(400, 60) <= stats.WilksScore(400, 90) {
		t.Error("expected the lighter lifter to score higher for the same total")
	}
}

func TestClassifyStrength(t *testing.T) {
	tests := []struct {
		total      float64
		bodyWeight float64
		want       stats.StrengthLevel
	}{
		{total: 650, bodyWeight: 100, want: stats.StrengthElite},
		{total: 500, bodyWeight: 100, want: stats.StrengthAdvanced},
		{total: 375, bodyWeight: 100, want: stats.StrengthIntermediate},
		{total: 374.9, bodyWeight: 100, want: stats.StrengthNovice},
		{total: 250, bodyWeight: 100, want: stats.StrengthNovice},
		{total: 200, bodyWeight: 100, want: stats.StrengthBeginner},
		{total: 300, bodyWeight: 0, want: stats.StrengthBeginner},
	}
	for _, tt := range tests {
		if got := stats.ClassifyStrength(tt.total, tt.bodyWeight); got != tt.want {
			t.Errorf("ClassifyStrength(%v, %v) = %s, want %s", tt.total, tt.bodyWeight, got, tt.want)
		}
	}
}

func TestAnalyzeStrength(t *testing.T) {
	got := stats.AnalyzeStrength([]float64{180, 120, 220}, 80)
	if got.Total != 520 {
		t.Errorf("Total = %v, want 520", got.Total)
	}
	if got.Level != stats.StrengthAdvanced {
		t.Errorf("Level = %s, want %s", got.Level, stats.StrengthAdvanced)
	}
	if got.Wilks <= 0 {
		t.Errorf("Wilks = %v, want positive", got.Wilks)
	}
}

func TestLinearRegression(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   stats.Regression
	}{
		{
			name:   "straight line",
			values: []float64{10, 12, 14},
			want:   stats.Regression{Slope: 2, Intercept: 10, Trend: []float64{10, 12, 14}},
		},
		{
			name:   "flat line",
			values: []float64{5, 5, 5, 5},
			want:   stats.Regression{Slope: 0, Intercept: 5, Trend: []float64{5, 5, 5, 5}},
		},
		{
			name:   "single point",
			values: []float64{70},
			want:   stats.Regression{Slope: 0, Intercept: 0, Trend: nil},
		},
		{
			name:   "no points",
			values: nil,
			want:   stats.Regression{Slope: 0, Intercept: 0, Trend: nil},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stats.LinearRegression(tt.values)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("LinearRegression() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
