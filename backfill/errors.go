package backfill

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidRetention is returned when a retention window is <= 0
	ErrInvalidRetention = errors.New("retention must be greater than 0")
)
