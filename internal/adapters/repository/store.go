// Package repository persists evaluation responses keyed by phase.
package repository

import (
	"context"

	"github.com/okian/ladder/internal/domain/model"
)

// Store provides read/write access to evaluation responses.
type Store interface {
	// Put stores the response for phase, replacing any previous one.
	Put(ctx context.Context, phase string, e model.Evaluation) error

	// Get returns the response for phase.
	// Returns ErrNotFound if nothing was stored.
	Get(ctx context.Context, phase string) (model.Evaluation, error)

	// Delete removes the response for phase. Missing phases are not an error.
	Delete(ctx context.Context, phase string) error

	// Export returns every response keyed by phase.
	Export(ctx context.Context) (map[string]model.Evaluation, error)

	// ExportJSON renders Export as one JSON document keyed by phase.
	ExportJSON(ctx context.Context) ([]byte, error)

	// Count returns the number of stored phases.
	Count(ctx context.Context) int

	Close() error
}
