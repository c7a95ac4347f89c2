// Package stats holds the pure computations behind workout statistics: one-rep max estimation, personal record
// detection, streaks, volume, muscle distribution, recovery, and body-weight trends.
//
// Nothing in this package performs I/O. Callers fetch the data and pass it in.
package stats

import (
	"math"
)

// EstimateOneRepMax estimates the one-repetition maximum from a set of reps at weight.
//
// The estimate is the mean of the Epley, Brzycki, Lander, and Lombardi formulas rounded to two decimals. A single
// rep returns the weight itself. Formulas whose denominator is not positive at high rep counts (Brzycki from 37
// reps, Lander from 38 reps) are left out of the mean.
func EstimateOneRepMax(weight float64, reps int) float64 {
	if weight <= 0 || reps <= 0 {
		return 0
	}
	if reps == 1 {
		return weight
	}

	r := float64(reps)
	estimates := make([]float64, 0, 4) //nolint:mnd // four formulas.
	estimates = append(estimates, weight*(1+r/30))
	if d := 37 - r; d > 0 {
		estimates = append(estimates, weight*36/d)
	}
	if d := 101.3 - 2.67123*r; d > 0 {
		estimates = append(estimates, 100*weight/d)
	}
	estimates = append(estimates, weight*math.Pow(r, 0.10))

	var sum float64
	for _, e := range estimates {
		sum += e
	}
	return round(sum/float64(len(estimates)), 2)
}

// Wilks coefficients for men.
const (
	wilksA = -216.0475144
	wilksB = 16.2606339
	wilksC = -0.002388645
	wilksD = -0.00113732
	wilksE = 7.01863e-06
	wilksF = -1.291e-08
)

// WilksScore normalises a powerlifting total by body weight so lifters of different weight classes can be compared.
func WilksScore(total, bodyWeight float64) float64 {
	if total <= 0 || bodyWeight <= 0 {
		return 0
	}
	x := bodyWeight
	denominator := wilksA + wilksB*x + wilksC*x*x + wilksD*math.Pow(x, 3) + wilksE*math.Pow(x, 4) + wilksF*math.Pow(x, 5)
	if denominator == 0 {
		return 0
	}
	return round(total*500/denominator, 2)
}

// StrengthLevel classifies a lifter's total relative to body weight.
type StrengthLevel string

const (
	StrengthBeginner     StrengthLevel = "Beginner"
	StrengthNovice       StrengthLevel = "Novice"
	StrengthIntermediate StrengthLevel = "Intermediate"
	StrengthAdvanced     StrengthLevel = "Advanced"
	StrengthElite        StrengthLevel = "Elite"
)

// ClassifyStrength maps the total to body-weight ratio to a strength standard.
func ClassifyStrength(total, bodyWeight float64) StrengthLevel {
	if bodyWeight <= 0 {
		return StrengthBeginner
	}
	ratio := total / bodyWeight
	switch {
	case ratio >= 6.5: //nolint:mnd // strength standard thresholds.
		return StrengthElite
	case ratio >= 5.0: //nolint:mnd // strength standard thresholds.
		return StrengthAdvanced
	case ratio >= 3.75: //nolint:mnd // strength standard thresholds.
		return StrengthIntermediate
	case ratio >= 2.5: //nolint:mnd // strength standard thresholds.
		return StrengthNovice
	default:
		return StrengthBeginner
	}
}

// Regression is a least-squares line fitted over series index as x.
type Regression struct {
	Slope     float64
	Intercept float64
	// Trend holds the fitted value for every input point.
	Trend []float64
}

// LinearRegression fits values[i] = Slope*i + Intercept. It needs at least two points and returns the zero
// Regression otherwise.
func LinearRegression(values []float64) Regression {
	n := float64(len(values))
	if len(values) < 2 { //nolint:mnd // a line needs two points.
		return Regression{Slope: 0, Intercept: 0, Trend: nil}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	intercept := (sumY - slope*sumX) / n

	trend := make([]float64, len(values))
	for i := range values {
		trend[i] = round(slope*float64(i)+intercept, 2)
	}
	return Regression{Slope: slope, Intercept: intercept, Trend: trend}
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// StrengthProfile rates a powerlifting total against body weight.
type StrengthProfile struct {
	Total      float64       `json:"total"`
	BodyWeight float64       `json:"body_weight"`
	Wilks      float64       `json:"wilks"`
	Level      StrengthLevel `json:"level"`
}

// AnalyzeStrength sums the one-rep maxes of the contested lifts into a total and scores it.
func AnalyzeStrength(oneRepMaxes []float64, bodyWeight float64) StrengthProfile {
	var total float64
	for _, v := range oneRepMaxes {
		total += v
	}
	total = round(total, 2)
	return StrengthProfile{
		Total:      total,
		BodyWeight: bodyWeight,
		Wilks:      WilksScore(total, bodyWeight),
		Level:      ClassifyStrength(total, bodyWeight),
	}
}
