// Package model contains the immutable records shared by every component.
package model

// CountryRecord is one row of the yearless snapshot.
type CountryRecord struct {
	Country     string
	LadderScore float64
	Factors     map[Factor]float64
	// Upper and Lower are the optional whisker bounds of the ladder score.
	Upper *float64
	Lower *float64
}

// Score returns the ladder score.
func (r CountryRecord) Score() float64 { return r.LadderScore }

// Name returns the record key.
func (r CountryRecord) Name() string { return r.Country }

// Value returns the named factor. Missing factors read as 0.
func (r CountryRecord) Value(f Factor) float64 {
	if f == LadderScore {
		return r.LadderScore
	}
	return r.Factors[f]
}

// Has reports whether the factor is present on the record.
func (r CountryRecord) Has(f Factor) bool {
	if f == LadderScore {
		return true
	}
	_, ok := r.Factors[f]
	return ok
}

// TimeSeriesRecord is one (country, year) row of the multi-year series.
type TimeSeriesRecord struct {
	CountryRecord
	Year           int
	PositiveAffect float64
	NegativeAffect float64
}

// Value extends CountryRecord.Value with the affect scores.
func (r TimeSeriesRecord) Value(f Factor) float64 {
	switch f {
	case PositiveAffect:
		return r.PositiveAffect
	case NegativeAffect:
		return r.NegativeAffect
	default:
		return r.CountryRecord.Value(f)
	}
}

// ShapeFeature is a geographic region. Geometry is carried opaquely.
type ShapeFeature struct {
	ID       string
	Name     string
	Geometry any
}

// Scored is implemented by anything that can be ranked by ladder score.
type Scored interface {
	Score() float64
}

// Valued is implemented by records exposing named factors.
type Valued interface {
	Value(f Factor) float64
}

// Named is implemented by records keyed by country name.
type Named interface {
	Name() string
}
