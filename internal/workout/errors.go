package workout

import (
	"github.com/myrjola/liftcoach/internal/errors"
)

var (
	// ErrNotFound is returned when a workout, workout exercise, or exercise does not exist.
	ErrNotFound = errors.NewSentinel("not found")
	// ErrNotOwned is returned when the workout belongs to another user.
	ErrNotOwned = errors.NewSentinel("workout not owned by user")
	// ErrInvalidState is returned when the workout is not in a state that allows the operation, e.g. completing an
	// already completed workout.
	ErrInvalidState = errors.NewSentinel("invalid workout state")
	// ErrValidation is returned for invalid input.
	ErrValidation = errors.NewSentinel("validation failed")
)
