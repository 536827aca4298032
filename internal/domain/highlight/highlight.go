// Package highlight runs a periodic on/off highlight over a set of ids.
//
// A Blinker is independent from the animation timer but follows the same
// disposal rules: one outstanding timer at most, and callbacks from a
// superseded or disposed timer are ignored.
package highlight

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/okian/ladder/internal/domain/timer"
)

// DefaultPeriod is the time between phase flips.
const DefaultPeriod = time.Second

// ErrDisposed is returned by Start after Dispose.
var ErrDisposed = errors.New("highlight disposed")

// State is a snapshot of the blinker.
type State struct {
	IDs    []string `json:"ids"`
	On     bool     `json:"on"`
	Active bool     `json:"active"`
}

// Option configures a Blinker.
type Option func(*Blinker)

// WithPeriod sets the flip period.
func WithPeriod(d time.Duration) Option {
	return func(b *Blinker) {
		if d > 0 {
			b.period = d
		}
	}
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s timer.Scheduler) Option {
	return func(b *Blinker) {
		if s != nil {
			b.scheduler = s
		}
	}
}

// WithListener registers a listener called after every change.
func WithListener(fn func(State)) Option {
	return func(b *Blinker) {
		if fn != nil {
			b.listeners = append(b.listeners, fn)
		}
	}
}

// Blinker toggles a highlight phase for a bound id set.
type Blinker struct {
	mu        sync.Mutex
	ids       map[string]struct{}
	on        bool
	period    time.Duration
	scheduler timer.Scheduler
	cancel    timer.Cancel
	gen       uint64
	disposed  bool
	listeners []func(State)
}

// New returns an inactive blinker.
func New(opts ...Option) *Blinker {
	b := &Blinker{
		ids:       map[string]struct{}{},
		period:    DefaultPeriod,
		scheduler: timer.NewTicker(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start binds ids and begins flipping, highlighted first. A previous
// binding is replaced.
func (b *Blinker) Start(ids []string) error {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return ErrDisposed
	}
	b.stopLocked()
	b.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		b.ids[id] = struct{}{}
	}
	b.on = true
	b.gen++
	gen := b.gen
	b.cancel = b.scheduler.Every(b.period, func() { b.flip(gen) })
	st, ls := b.stateLocked(), slices.Clone(b.listeners)
	b.mu.Unlock()

	notify(ls, st)
	return nil
}

// Stop cancels the timer and clears the binding.
func (b *Blinker) Stop() {
	b.mu.Lock()
	if b.cancel == nil && len(b.ids) == 0 {
		b.mu.Unlock()
		return
	}
	b.stopLocked()
	b.gen++
	b.ids = map[string]struct{}{}
	b.on = false
	st, ls := b.stateLocked(), slices.Clone(b.listeners)
	b.mu.Unlock()

	notify(ls, st)
}

// Dispose stops the blinker permanently. It is idempotent.
func (b *Blinker) Dispose() {
	b.Stop()
	b.mu.Lock()
	b.disposed = true
	b.mu.Unlock()
}

// IsHighlighted reports whether id is bound and the phase is on.
func (b *Blinker) IsHighlighted(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.ids[id]
	return ok && b.on
}

// State returns a snapshot.
func (b *Blinker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Blinker) flip(gen uint64) {
	b.mu.Lock()
	if b.disposed || gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.on = !b.on
	st, ls := b.stateLocked(), slices.Clone(b.listeners)
	b.mu.Unlock()

	notify(ls, st)
}

func (b *Blinker) stopLocked() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *Blinker) stateLocked() State {
	ids := make([]string, 0, len(b.ids))
	for id := range b.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return State{IDs: ids, On: b.on, Active: b.cancel != nil}
}

func notify(ls []func(State), st State) {
	for _, fn := range ls {
		fn(st)
	}
}
