package linker

import (
	"fmt"

	"github.com/okian/ladder/internal/domain/model"
)

var (
	// ErrAmbiguousName is raised when two records normalize to the same key.
	ErrAmbiguousName = fmt.Errorf("%w: ambiguous record name", model.ErrConfiguration)
	// ErrInvalidThreshold rejects acceptance thresholds outside [0,1].
	ErrInvalidThreshold = fmt.Errorf("%w: fuzzy threshold must be within [0,1]", model.ErrConfiguration)
)
