// Package snapshot holds immutable, versioned copies of the loaded datasets.
//
// A snapshot is built once per successful load and replaced wholesale on
// reload. Every snapshot carries a process-unique version so derived caches
// can be keyed by it and discarded when the version changes.
package snapshot

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/okian/ladder/internal/domain/model"
)

var versions atomic.Uint64

func nextVersion() uint64 { return versions.Add(1) }

// Records is a yearless set of country records keyed by country name.
type Records struct {
	version uint64
	items   []model.CountryRecord
	index   map[string]int
}

// NewRecords validates and freezes items. Duplicate or empty country names
// are configuration errors.
func NewRecords(items []model.CountryRecord) (*Records, error) {
	r := &Records{
		version: nextVersion(),
		items:   make([]model.CountryRecord, len(items)),
		index:   make(map[string]int, len(items)),
	}
	for i, it := range items {
		if strings.TrimSpace(it.Country) == "" {
			return nil, fmt.Errorf("%w: row %d", ErrEmptyKey, i)
		}
		if _, dup := r.index[it.Country]; dup {
			return nil, fmt.Errorf("%w: country %q", ErrDuplicateKey, it.Country)
		}
		r.index[it.Country] = i
		r.items[i] = cloneRecord(it)
	}
	return r, nil
}

// Version identifies this snapshot.
func (r *Records) Version() uint64 { return r.version }

// Len returns the number of records.
func (r *Records) Len() int { return len(r.items) }

// All returns deep copies of the records in load order.
func (r *Records) All() []model.CountryRecord {
	out := make([]model.CountryRecord, len(r.items))
	for i, it := range r.items {
		out[i] = cloneRecord(it)
	}
	return out
}

// Names returns the country names in load order.
func (r *Records) Names() []string {
	out := make([]string, len(r.items))
	for i, it := range r.items {
		out[i] = it.Country
	}
	return out
}

// Lookup finds a record by its exact key.
func (r *Records) Lookup(country string) (model.CountryRecord, bool) {
	i, ok := r.index[country]
	if !ok {
		return model.CountryRecord{}, false
	}
	return cloneRecord(r.items[i]), true
}

// cloneRecord copies everything a record references so neither side can
// reach the other's factors or whiskers.
func cloneRecord(in model.CountryRecord) model.CountryRecord {
	out := in
	if in.Factors != nil {
		out.Factors = maps.Clone(in.Factors)
	}
	if in.Upper != nil {
		v := *in.Upper
		out.Upper = &v
	}
	if in.Lower != nil {
		v := *in.Lower
		out.Lower = &v
	}
	return out
}

type seriesKey struct {
	country string
	year    int
}

// Series is a multi-year set of records keyed by (country, year).
type Series struct {
	version uint64
	items   []model.TimeSeriesRecord
	years   []int

	mu     sync.Mutex
	slices map[int]*Records
}

// NewSeries validates and freezes items. A repeated (country, year) pair is
// a configuration error.
func NewSeries(items []model.TimeSeriesRecord) (*Series, error) {
	s := &Series{
		version: nextVersion(),
		items:   make([]model.TimeSeriesRecord, len(items)),
		slices:  make(map[int]*Records),
	}
	seen := make(map[seriesKey]struct{}, len(items))
	yearSet := make(map[int]struct{})
	for i, it := range items {
		if strings.TrimSpace(it.Country) == "" {
			return nil, fmt.Errorf("%w: row %d", ErrEmptyKey, i)
		}
		k := seriesKey{country: it.Country, year: it.Year}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: country %q year %d", ErrDuplicateKey, it.Country, it.Year)
		}
		seen[k] = struct{}{}
		yearSet[it.Year] = struct{}{}
		row := it
		row.CountryRecord = cloneRecord(it.CountryRecord)
		s.items[i] = row
	}
	for y := range yearSet {
		s.years = append(s.years, y)
	}
	slices.Sort(s.years)
	return s, nil
}

// Version identifies this snapshot.
func (s *Series) Version() uint64 { return s.version }

// Len returns the number of rows.
func (s *Series) Len() int { return len(s.items) }

// Years returns the distinct years in ascending order.
func (s *Series) Years() []int { return slices.Clone(s.years) }

// Rows returns the rows for one year in load order.
func (s *Series) Rows(year int) []model.TimeSeriesRecord {
	var out []model.TimeSeriesRecord
	for _, it := range s.items {
		if it.Year == year {
			row := it
			row.CountryRecord = cloneRecord(it.CountryRecord)
			out = append(out, row)
		}
	}
	return out
}

// Slice returns the year's rows as a yearless record set. Slices are built
// once per series and keep a stable version, so linker results cached for a
// year stay valid until the series itself is replaced.
func (s *Series) Slice(year int) (*Records, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.slices[year]; ok {
		return r, nil
	}
	if _, found := slices.BinarySearch(s.years, year); !found {
		return nil, fmt.Errorf("%w: %d", ErrUnknownYear, year)
	}
	rows := s.Rows(year)
	recs := make([]model.CountryRecord, len(rows))
	for i, row := range rows {
		recs[i] = row.CountryRecord
	}
	r, err := NewRecords(recs)
	if err != nil {
		return nil, err
	}
	s.slices[year] = r
	return r, nil
}

// Shapes is the geographic feature catalog keyed by feature id.
type Shapes struct {
	version uint64
	items   []model.ShapeFeature
	index   map[string]int
}

// NewShapes validates and freezes features. Ids must be unique; names may
// repeat since multi-part regions are sometimes split across features.
func NewShapes(items []model.ShapeFeature) (*Shapes, error) {
	s := &Shapes{
		version: nextVersion(),
		items:   slices.Clone(items),
		index:   make(map[string]int, len(items)),
	}
	for i, it := range s.items {
		if it.ID == "" {
			return nil, fmt.Errorf("%w: feature %d", ErrEmptyKey, i)
		}
		if _, dup := s.index[it.ID]; dup {
			return nil, fmt.Errorf("%w: feature id %q", ErrDuplicateKey, it.ID)
		}
		s.index[it.ID] = i
	}
	return s, nil
}

// Version identifies this snapshot.
func (s *Shapes) Version() uint64 { return s.version }

// Len returns the number of features.
func (s *Shapes) Len() int { return len(s.items) }

// All returns the features in source order. Geometry values are shared.
func (s *Shapes) All() []model.ShapeFeature { return slices.Clone(s.items) }

// Lookup finds a feature by id.
func (s *Shapes) Lookup(id string) (model.ShapeFeature, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.ShapeFeature{}, false
	}
	return s.items[i], true
}
