package worker

import "errors"

var (
	ErrStopped = errors.New("dispatcher stopped")
	ErrPanic   = errors.New("command panicked")
)
