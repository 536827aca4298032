package service

import (
	"errors"
	"strings"

	"github.com/okian/ladder/internal/domain/types"
)

var (
	// ErrDataUnavailable is returned by views whose dataset is pending or failed.
	ErrDataUnavailable = errors.New("data not yet available")
	ErrUnknownDataset  = errors.New("unknown dataset")
	ErrUnknownView     = errors.New("unknown legend view")
	ErrStopped         = errors.New("service stopped")
)

// UnavailableError lists the datasets a view is waiting for.
type UnavailableError struct {
	Datasets []types.DatasetStatus
}

func (e *UnavailableError) Error() string {
	parts := make([]string, len(e.Datasets))
	for i, d := range e.Datasets {
		parts[i] = d.Name + " " + d.Status
	}
	return ErrDataUnavailable.Error() + ": " + strings.Join(parts, ", ")
}

func (e *UnavailableError) Unwrap() error { return ErrDataUnavailable }
