package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound = errors.New("evaluation not found")
	ErrClosed   = errors.New("store closed")
	ErrCorrupt  = errors.New("stored evaluation is corrupt")
)
