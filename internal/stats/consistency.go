package stats

import (
	"slices"
	"time"
)

// DateFormat is the calendar date layout used in statistics output.
const DateFormat = time.DateOnly

// streakTolerance absorbs daylight saving shifts between consecutive calendar days.
const streakTolerance = 1.1

// Consistency describes how regularly a user trains.
type Consistency struct {
	// Heatmap counts completed workouts per calendar date.
	Heatmap                map[string]int `json:"heatmap"`
	CurrentStreak          int            `json:"current_streak"`
	LongestStreak          int            `json:"longest_streak"`
	TotalWorkouts          int            `json:"total_workouts"`
	AverageWorkoutsPerWeek float64        `json:"average_workouts_per_week"`
}

// AnalyzeConsistency derives the heatmap and streaks from workout completion times.
func AnalyzeConsistency(completedAt []time.Time, now time.Time) Consistency {
	heatmap := make(map[string]int, len(completedAt))
	for _, t := range completedAt {
		heatmap[t.In(now.Location()).Format(DateFormat)]++
	}
	days := distinctDays(completedAt, now.Location())

	var avg float64
	if len(days) > 0 {
		weeks := max(1, daysBetween(days[0], calendarDay(now, now.Location()))/7) //nolint:mnd // days per week.
		avg = round(float64(len(completedAt))/weeks, 2)
	}

	return Consistency{
		Heatmap:                heatmap,
		CurrentStreak:          CurrentStreak(completedAt, now),
		LongestStreak:          LongestStreak(completedAt, now.Location()),
		TotalWorkouts:          len(completedAt),
		AverageWorkoutsPerWeek: avg,
	}
}

// CurrentStreak counts consecutive training days ending today or yesterday.
//
// A streak whose most recent day is older than yesterday is broken and counts as zero.
func CurrentStreak(completedAt []time.Time, now time.Time) int {
	days := distinctDays(completedAt, now.Location())
	if len(days) == 0 {
		return 0
	}
	slices.Reverse(days)

	if daysBetween(days[0], calendarDay(now, now.Location())) > streakTolerance {
		return 0
	}
	streak := 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i], days[i-1]) > streakTolerance {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak returns the longest run of consecutive training days.
func LongestStreak(completedAt []time.Time, loc *time.Location) int {
	days := distinctDays(completedAt, loc)
	if len(days) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i-1], days[i]) <= streakTolerance {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// StreakState is the streak bookkeeping persisted per user.
type StreakState struct {
	Current         int
	Longest         int
	LastWorkoutDate *time.Time
}

// NextStreak advances the persisted streak for a workout completed at completedAt.
//
// Completing another workout on the same day keeps the streak, completing on the day after the last workout extends
// it, and any larger gap starts a new streak of one.
func NextStreak(s StreakState, completedAt time.Time) StreakState {
	today := calendarDay(completedAt, completedAt.Location())
	next := StreakState{Current: 1, Longest: s.Longest, LastWorkoutDate: &today}
	if s.LastWorkoutDate != nil {
		// The stored date is a calendar date without a zone, so only its components matter.
		l := *s.LastWorkoutDate
		last := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, completedAt.Location())
		switch gap := daysBetween(last, today); {
		case gap < 1 && gap > -1:
			next.Current = max(s.Current, 1)
		case gap <= streakTolerance && gap > 0:
			next.Current = s.Current + 1
		}
	}
	next.Longest = max(next.Longest, next.Current)
	return next
}

// StreakAsOf returns s as seen at now. A streak whose last workout is older than yesterday is broken and counts as
// zero; the longest streak is kept.
func StreakAsOf(s StreakState, now time.Time) StreakState {
	if s.LastWorkoutDate == nil {
		s.Current = 0
		return s
	}
	l := *s.LastWorkoutDate
	last := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, now.Location())
	if daysBetween(last, calendarDay(now, now.Location())) > streakTolerance {
		s.Current = 0
	}
	return s
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// daysBetween returns the possibly fractional number of days from a to b.
func daysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24 //nolint:mnd // hours per day.
}

// distinctDays returns the sorted unique calendar days of times.
func distinctDays(times []time.Time, loc *time.Location) []time.Time {
	days := make([]time.Time, 0, len(times))
	for _, t := range times {
		days = append(days, calendarDay(t, loc))
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(days, func(a, b time.Time) bool { return a.Equal(b) })
}
