package snapshot

import (
	"errors"
	"fmt"

	"github.com/okian/ladder/internal/domain/model"
)

var (
	// ErrDuplicateKey is raised when a dataset repeats a key.
	ErrDuplicateKey = fmt.Errorf("%w: duplicate key", model.ErrConfiguration)
	// ErrEmptyKey is raised when a row has no country name or shape id.
	ErrEmptyKey = fmt.Errorf("%w: empty key", model.ErrConfiguration)
	// ErrUnknownYear is returned when a year has no rows in the series.
	ErrUnknownYear = errors.New("year not present in series")
)
