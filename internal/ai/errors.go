package ai

import "github.com/myrjola/liftcoach/internal/errors"

var (
	// ErrConfiguration is returned when a client is constructed without the credentials it needs.
	ErrConfiguration = errors.NewSentinel("ai not configured")
	// ErrEmbedding is returned when the embedding provider fails.
	ErrEmbedding = errors.NewSentinel("embedding failed")
	// ErrGeneration is returned when the language model fails or its output cannot be used.
	ErrGeneration = errors.NewSentinel("workout generation failed")
	// ErrNoCandidates is returned when no catalog exercise matches the generation filters.
	ErrNoCandidates = errors.NewSentinel("no candidate exercises")
	// ErrInvalidRequest is returned for generation requests that fail validation.
	ErrInvalidRequest = errors.NewSentinel("invalid generation request")
)
