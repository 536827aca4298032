package queue

import "errors"

var (
	ErrClosed     = errors.New("queue closed")
	ErrNilCommand = errors.New("command has no run function")
)
