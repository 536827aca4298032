// Package aggregate summarizes record sets for the comparison views.
package aggregate

import (
	"math"
	"sort"

	"github.com/okian/ladder/internal/domain/colorscale"
	"github.com/okian/ladder/internal/domain/model"
)

// DefaultTopK is the subset size used by the comparison views.
const DefaultTopK = 25

// Average returns the mean of factor across records, 0 for no records.
func Average[R model.Valued](records []R, factor model.Factor) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range records {
		sum += r.Value(factor)
	}
	return sum / float64(len(records))
}

// TopN returns the first n records sorted by key descending. Ties keep
// input order. n <= 0 returns every record sorted.
func TopN[R model.Valued](records []R, n int, key model.Factor) []R {
	out := make([]R, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value(key) > out[j].Value(key)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Comparison is one factor's subset average against the population.
type Comparison struct {
	Factor model.Factor `json:"factor"`
	Label  string       `json:"label"`
	Subset float64      `json:"subset"`
	Global float64      `json:"global"`
	// Share is Subset relative to the largest Subset in the same result.
	Share float64 `json:"share"`
}

// Compare averages each factor over the top k records by ladder score and
// over all records.
func Compare[R model.Valued](records []R, k int, factors []model.Factor) []Comparison {
	if len(factors) == 0 {
		factors = model.ContributingFactors
	}
	top := TopN(records, k, model.LadderScore)
	out := make([]Comparison, len(factors))
	peak := 0.0
	for i, f := range factors {
		out[i] = Comparison{
			Factor: f,
			Label:  f.Label(),
			Subset: Average(top, f),
			Global: Average(records, f),
		}
		peak = math.Max(peak, out[i].Subset)
	}
	if peak > 0 {
		for i := range out {
			out[i].Share = out[i].Subset / peak
		}
	}
	return out
}

// CompositeEntry is a record scored by the sum of selected factors.
type CompositeEntry struct {
	Country string                   `json:"country"`
	Total   float64                  `json:"total"`
	Parts   map[model.Factor]float64 `json:"parts"`
}

// Composite ranks records by the sum of factors, descending, ties in input
// order. An empty factor list sums every contributing factor.
func Composite(records []model.CountryRecord, factors []model.Factor) []CompositeEntry {
	if len(factors) == 0 {
		factors = model.ContributingFactors
	}
	out := make([]CompositeEntry, len(records))
	for i, r := range records {
		e := CompositeEntry{Country: r.Country, Parts: make(map[model.Factor]float64, len(factors))}
		for _, f := range factors {
			v := r.Value(f)
			e.Parts[f] = v
			e.Total += v
		}
		out[i] = e
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// Bubble radius bounds in pixels.
const (
	MinRadius = 10.0
	MaxRadius = 80.0
)

// Bubble is one country in the bubble view.
type Bubble struct {
	Country string  `json:"country"`
	Score   float64 `json:"score"`
	Value   float64 `json:"value"`
	Radius  float64 `json:"radius"`
	Color   string  `json:"color"`
}

// Bubbles takes the top k records by ladder score and sizes each by factor
// on a square-root scale over the subset's extent. Colors use YlGn over the
// same extent.
func Bubbles(records []model.CountryRecord, k int, factor model.Factor) []Bubble {
	top := TopN(records, k, model.LadderScore)
	if len(top) == 0 {
		return []Bubble{}
	}
	domain, err := colorscale.Extent(top, func(r model.CountryRecord) float64 { return r.Value(factor) })
	if err != nil {
		return []Bubble{}
	}
	scale := colorscale.New(domain, false, colorscale.WithRamp(colorscale.YlGn))

	lo, hi := signedSqrt(domain.Min), signedSqrt(domain.Max)
	out := make([]Bubble, len(top))
	for i, r := range top {
		v := r.Value(factor)
		radius := MinRadius
		if hi > lo {
			radius = MinRadius + (MaxRadius-MinRadius)*(signedSqrt(v)-lo)/(hi-lo)
		}
		out[i] = Bubble{
			Country: r.Country,
			Score:   r.LadderScore,
			Value:   v,
			Radius:  radius,
			Color:   scale.Hex(v),
		}
	}
	return out
}

func signedSqrt(v float64) float64 {
	if v < 0 {
		return -math.Sqrt(-v)
	}
	return math.Sqrt(v)
}
