package colorscale

import (
	"fmt"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Ramp is an ordered list of color stops interpolated in Lab space.
type Ramp struct {
	name  string
	stops []colorful.Color
}

// Colorbrewer sequential ramps, light to dark.
var (
	YlGnBu = mustRamp("YlGnBu",
		"#ffffd9", "#edf8b1", "#c7e9b4", "#7fcdbb", "#41b6c4",
		"#1d91c0", "#225ea8", "#253494", "#081d58")
	YlGn = mustRamp("YlGn",
		"#ffffe5", "#f7fcb9", "#d9f0a3", "#addd8e", "#78c679",
		"#41ab5d", "#238443", "#006837", "#004529")
	Blues = mustRamp("Blues",
		"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6",
		"#4292c6", "#2171b5", "#08519c", "#08306b")
)

var ramps = map[string]Ramp{
	"ylgnbu": YlGnBu,
	"ylgn":   YlGn,
	"blues":  Blues,
}

// NewRamp builds a ramp from hex stops. At least two stops are required.
func NewRamp(name string, hexes ...string) (Ramp, error) {
	if len(hexes) < 2 {
		return Ramp{}, fmt.Errorf("%w: ramp %q needs two stops", ErrUnknownRamp, name)
	}
	r := Ramp{name: name, stops: make([]colorful.Color, len(hexes))}
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return Ramp{}, fmt.Errorf("ramp %q stop %d: %w", name, i, err)
		}
		r.stops[i] = c
	}
	return r, nil
}

func mustRamp(name string, hexes ...string) Ramp {
	r, err := NewRamp(name, hexes...)
	if err != nil {
		panic(err)
	}
	return r
}

// RampByName looks up a built-in ramp, case-insensitively.
func RampByName(name string) (Ramp, error) {
	r, ok := ramps[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Ramp{}, fmt.Errorf("%w: %q", ErrUnknownRamp, name)
	}
	return r, nil
}

// Name returns the ramp name.
func (r Ramp) Name() string { return r.name }

// At returns the color at t in [0,1]. Out of range t is clamped.
func (r Ramp) At(t float64) colorful.Color {
	switch {
	case math.IsNaN(t) || t <= 0:
		return r.stops[0]
	case t >= 1:
		return r.stops[len(r.stops)-1]
	}
	span := t * float64(len(r.stops)-1)
	i := int(span)
	return r.stops[i].BlendLab(r.stops[i+1], span-float64(i)).Clamped()
}
