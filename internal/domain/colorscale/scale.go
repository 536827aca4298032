// Package colorscale maps numeric values onto color ramps.
package colorscale

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Well-known colors.
const (
	FallbackColor  = "#cccccc"
	HighlightColor = "#ffd700"
)

// Domain is the closed numeric range mapped onto a ramp.
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Fixed validates explicit bounds.
func Fixed(lo, hi float64) (Domain, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return Domain{}, fmt.Errorf("%w: non-finite bounds", ErrInvalidDomain)
	}
	if lo > hi {
		return Domain{}, fmt.Errorf("%w: min %v > max %v", ErrInvalidDomain, lo, hi)
	}
	return Domain{Min: lo, Max: hi}, nil
}

// Extent derives the domain from the values of items. NaN values are skipped.
func Extent[T any](items []T, value func(T) float64) (Domain, error) {
	d := Domain{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, it := range items {
		v := value(it)
		if math.IsNaN(v) {
			continue
		}
		d.Min = math.Min(d.Min, v)
		d.Max = math.Max(d.Max, v)
	}
	if d.Min > d.Max {
		return Domain{}, ErrEmptyDomain
	}
	return d, nil
}

// Clamp pulls v into the domain.
func (d Domain) Clamp(v float64) float64 {
	return math.Max(d.Min, math.Min(d.Max, v))
}

// Option configures a Scale.
type Option func(*Scale)

// WithRamp selects the color ramp. YlGnBu by default.
func WithRamp(r Ramp) Option {
	return func(s *Scale) {
		if len(r.stops) >= 2 {
			s.ramp = r
		}
	}
}

// Scale is a continuous value to color mapping.
type Scale struct {
	domain   Domain
	reversed bool
	ramp     Ramp
}

// New builds a scale. When reversed the domain maximum maps to the light end
// of the ramp instead of the dark end.
func New(domain Domain, reversed bool, opts ...Option) *Scale {
	s := &Scale{domain: domain, reversed: reversed, ramp: YlGnBu}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Domain returns the bounds.
func (s *Scale) Domain() Domain { return s.domain }

// Reversed reports the direction.
func (s *Scale) Reversed() bool { return s.reversed }

// Ramp returns the ramp in use.
func (s *Scale) Ramp() Ramp { return s.ramp }

// Position maps v to [0,1] along the ramp after clamping. A degenerate
// domain maps every value to the start of the ramp.
func (s *Scale) Position(v float64) float64 {
	if math.IsNaN(v) {
		v = s.domain.Min
	}
	t := 0.0
	if width := s.domain.Max - s.domain.Min; width > 0 {
		t = (s.domain.Clamp(v) - s.domain.Min) / width
	}
	if s.reversed {
		return 1 - t
	}
	return t
}

// Color returns the interpolated color.
func (s *Scale) Color(v float64) colorful.Color {
	return s.ramp.At(s.Position(v))
}

// Hex returns the color as #rrggbb.
func (s *Scale) Hex(v float64) string {
	return s.Color(v).Hex()
}

// Stop is one legend entry.
type Stop struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Legend returns n evenly spaced stops from Min to Max. n below 2 is raised to 2.
func (s *Scale) Legend(n int) []Stop {
	if n < 2 {
		n = 2
	}
	out := make([]Stop, n)
	step := (s.domain.Max - s.domain.Min) / float64(n-1)
	for i := range out {
		v := s.domain.Min + step*float64(i)
		if i == n-1 {
			v = s.domain.Max
		}
		out[i] = Stop{Value: v, Color: s.Hex(v)}
	}
	return out
}
