package animation

import (
	"errors"
	"fmt"

	"github.com/okian/ladder/internal/domain/model"
)

var (
	// ErrInvalidBounds is returned when minYear > maxYear.
	ErrInvalidBounds = fmt.Errorf("%w: min year exceeds max year", model.ErrConfiguration)
	// ErrInvalidInterval is returned for a non-positive step interval.
	ErrInvalidInterval = fmt.Errorf("%w: step interval must be positive", model.ErrConfiguration)
	// ErrDisposed is returned by transitions after Dispose.
	ErrDisposed = errors.New("animation controller disposed")
	// ErrYearOutOfRange is returned by Seek.
	ErrYearOutOfRange = errors.New("year outside animation range")
)
