// Package selection holds the selected country and the cross-filter derived
// from it.
package selection

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
)

// State is a copy of the selection.
type State struct {
	Selected  *model.CountryRecord `json:"selected,omitempty"`
	Threshold float64              `json:"threshold"`
	// Revision increases on every change so renderers can detect staleness.
	Revision uint64 `json:"revision"`
}

// HasSelection reports whether a country is selected.
func (s State) HasSelection() bool { return s.Selected != nil }

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithListener registers a listener called after every change.
func WithListener(fn func(State)) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.listeners = append(c.listeners, fn)
		}
	}
}

// Coordinator owns the SelectionState.
type Coordinator struct {
	mu        sync.RWMutex
	state     State
	listeners []func(State)
}

// New returns a coordinator with nothing selected.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Select replaces the selection. A nil record clears it.
func (c *Coordinator) Select(rec *model.CountryRecord) {
	c.mu.Lock()
	if rec == nil {
		c.state.Selected = nil
		c.state.Threshold = 0
	} else {
		cp := *rec
		c.state.Selected = &cp
		c.state.Threshold = cp.LadderScore
	}
	c.state.Revision++
	st, ls := c.copyLocked(), slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, fn := range ls {
		fn(st)
	}
}

// Clear removes the selection.
func (c *Coordinator) Clear() { c.Select(nil) }

// SelectIn selects country from records. A name absent from the snapshot
// clears the selection and returns ErrInvalidSelectionTarget.
func (c *Coordinator) SelectIn(records *snapshot.Records, country string) error {
	if records == nil {
		c.Clear()
		return fmt.Errorf("%w: no snapshot loaded", model.ErrInvalidSelectionTarget)
	}
	rec, ok := records.Lookup(country)
	if !ok {
		c.Clear()
		return fmt.Errorf("%w: %q", model.ErrInvalidSelectionTarget, country)
	}
	c.Select(&rec)
	return nil
}

// Revalidate re-reads the selected country from a freshly loaded snapshot.
// The selection is replaced with the new record, or cleared when the
// country no longer exists. It reports whether the selection survived.
func (c *Coordinator) Revalidate(records *snapshot.Records) bool {
	st := c.State()
	if st.Selected == nil {
		return true
	}
	return c.SelectIn(records, st.Selected.Country) == nil
}

// State returns a copy of the selection.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyLocked()
}

// Threshold returns the current score threshold.
func (c *Coordinator) Threshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Threshold
}

// ThresholdIn returns the selected country's score within another record
// set, such as one year of the series. It reports false when nothing is
// selected or the country is absent there.
func (c *Coordinator) ThresholdIn(records *snapshot.Records) (float64, bool) {
	st := c.State()
	if st.Selected == nil || records == nil {
		return 0, false
	}
	rec, ok := records.Lookup(st.Selected.Country)
	if !ok {
		return 0, false
	}
	return rec.LadderScore, true
}

// RankedSubset filters records by the current threshold, sorts them by
// score descending and truncates to limit when limit > 0.
func (c *Coordinator) RankedSubset(records []model.CountryRecord, limit int) []model.CountryRecord {
	return Ranked(records, c.Threshold(), limit)
}

func (c *Coordinator) copyLocked() State {
	st := c.state
	if st.Selected != nil {
		cp := *st.Selected
		st.Selected = &cp
	}
	return st
}

// Ranked keeps items scoring at least threshold, sorted descending with ties
// in input order, truncated to limit when limit > 0. The input is not
// modified.
func Ranked[R model.Scored](items []R, threshold float64, limit int) []R {
	out := make([]R, 0, len(items))
	for _, it := range items {
		if it.Score() >= threshold {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
