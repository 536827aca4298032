package model

import "errors"

// Root error kinds shared across the engine. Package-specific sentinels wrap
// one of these so callers can classify with errors.Is.
var (
	// ErrConfiguration is fatal at construction time (bad bounds, duplicate keys).
	ErrConfiguration = errors.New("configuration error")
	// ErrLoadFailure marks a dataset that could not be loaded; it is recoverable.
	ErrLoadFailure = errors.New("load failure")
	// ErrInvalidSelectionTarget is returned when a selection names an entity
	// that is not part of the current snapshot.
	ErrInvalidSelectionTarget = errors.New("invalid selection target")
	// ErrInvalidEvaluation rejects malformed evaluation responses.
	ErrInvalidEvaluation = errors.New("invalid evaluation")
)
