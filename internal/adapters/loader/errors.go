package loader

import (
	"fmt"

	"github.com/okian/ladder/internal/domain/model"
)

var (
	// ErrSourceUnavailable is returned when a source cannot be read.
	ErrSourceUnavailable = fmt.Errorf("%w: source unavailable", model.ErrLoadFailure)
	// ErrMalformed is returned when a source cannot be parsed.
	ErrMalformed = fmt.Errorf("%w: malformed data", model.ErrLoadFailure)
	// ErrMissingColumn is returned when a required CSV column is absent.
	ErrMissingColumn = fmt.Errorf("%w: missing column", model.ErrLoadFailure)
)
