// Package loader reads the snapshot, series and shape datasets.
//
// Sources are file paths or http(s) URLs. Every failure wraps
// model.ErrLoadFailure, except duplicate keys, which surface as the
// configuration errors produced by the snapshot package.
package loader

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/pkg/logger"
)

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for URL sources.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithNameProperty sets the GeoJSON property holding region names.
func WithNameProperty(p string) Option {
	return func(l *Loader) {
		if p != "" {
			l.nameProp = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// Loader turns sources into snapshots.
type Loader struct {
	client   *http.Client
	nameProp string
	logger   logger.Logger
}

// New returns a loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		client:   &http.Client{Timeout: 30 * time.Second},
		nameProp: "name",
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Records loads the yearless snapshot.
func (l *Loader) Records(ctx context.Context, src string) (*snapshot.Records, error) {
	data, err := l.fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	rows, err := ParseRecords(data)
	if err != nil {
		return nil, err
	}
	recs, err := snapshot.NewRecords(rows)
	if err != nil {
		return nil, err
	}
	l.logger.Info(ctx, "snapshot loaded", logger.String("source", src), logger.Int("records", recs.Len()))
	return recs, nil
}

// Series loads the multi-year series.
func (l *Loader) Series(ctx context.Context, src string) (*snapshot.Series, error) {
	data, err := l.fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	rows, err := ParseSeries(data)
	if err != nil {
		return nil, err
	}
	s, err := snapshot.NewSeries(rows)
	if err != nil {
		return nil, err
	}
	l.logger.Info(ctx, "series loaded", logger.String("source", src),
		logger.Int("rows", s.Len()), logger.Int("years", len(s.Years())))
	return s, nil
}

// Shapes loads the shape catalog.
func (l *Loader) Shapes(ctx context.Context, src string) (*snapshot.Shapes, error) {
	data, err := l.fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	features, err := ParseShapes(data, l.nameProp)
	if err != nil {
		return nil, err
	}
	s, err := snapshot.NewShapes(features)
	if err != nil {
		return nil, err
	}
	l.logger.Info(ctx, "shapes loaded", logger.String("source", src), logger.Int("features", s.Len()))
	return s, nil
}
