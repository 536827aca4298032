package colorscale

import (
	"errors"
	"fmt"

	"github.com/okian/ladder/internal/domain/model"
)

var (
	// ErrInvalidDomain is returned for inverted or non-finite bounds.
	ErrInvalidDomain = fmt.Errorf("%w: invalid color domain", model.ErrConfiguration)
	// ErrEmptyDomain is returned when an extent is requested over no values.
	ErrEmptyDomain = errors.New("cannot derive domain from empty input")
	// ErrUnknownRamp is returned by RampByName.
	ErrUnknownRamp = fmt.Errorf("%w: unknown color ramp", model.ErrConfiguration)
)
