// Package animation drives a discrete year cursor through a bounded range.
//
// The controller starts Idle on the most recent year. Start resets the
// cursor to the first year and ticks forward once per step interval until
// the last year is reached, then returns to Idle. Each Start bumps a
// generation counter and callbacks from older timers are ignored, so a
// late tick after Toggle, Dispose or a restart never moves the cursor.
package animation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/ladder/internal/domain/timer"
	"github.com/okian/ladder/pkg/logger"
)

// Phase is the playback state.
type Phase int

const (
	Idle Phase = iota
	Playing
	Paused
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase by name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for _, c := range []Phase{Idle, Playing, Paused} {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// State is a consistent copy of the controller state.
type State struct {
	CurrentYear  int           `json:"currentYear"`
	MinYear      int           `json:"minYear"`
	MaxYear      int           `json:"maxYear"`
	Phase        Phase         `json:"phase"`
	IsPlaying    bool          `json:"isPlaying"`
	StepInterval time.Duration `json:"-"`
}

// IntervalMs returns the step interval in milliseconds.
func (s State) IntervalMs() int64 { return s.StepInterval.Milliseconds() }

// Controller owns one AnimationState.
type Controller struct {
	mu        sync.Mutex
	state     State
	scheduler timer.Scheduler
	cancel    timer.Cancel
	gen       uint64
	disposed  bool
	listeners []func(State)
	logger    logger.Logger
}

// New validates the bounds and returns an Idle controller positioned on
// maxYear.
func New(minYear, maxYear int, opts ...Option) (*Controller, error) {
	if minYear > maxYear {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidBounds, minYear, maxYear)
	}
	c := &Controller{
		state: State{
			CurrentYear:  maxYear,
			MinYear:      minYear,
			MaxYear:      maxYear,
			Phase:        Idle,
			StepInterval: DefaultStepInterval,
		},
		scheduler: timer.NewTicker(),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.state.StepInterval <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterval, c.state.StepInterval)
	}
	return c, nil
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for state changes and returns an unsubscribe func.
// Listeners run on the goroutine that caused the change, after the lock is
// released, in registration order.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
	idx := len(c.listeners) - 1
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.listeners) {
			c.listeners[idx] = nil
		}
	}
}

// Start resets the cursor to minYear and begins playback. Any previous
// timer is cancelled first.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.startLocked()
	st, ls := c.state, c.snapshotListeners()
	c.mu.Unlock()

	c.logger.Debug(context.Background(), "animation started", logger.Int("year", st.CurrentYear))
	notify(ls, st)
	return nil
}

func (c *Controller) startLocked() {
	c.stopTimerLocked()
	c.gen++
	gen := c.gen
	c.state.CurrentYear = c.state.MinYear
	c.setPhaseLocked(Playing)
	c.cancel = c.scheduler.Every(c.state.StepInterval, func() { c.tick(gen) })
}

// Toggle stops playback when Playing, otherwise starts it.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.state.Phase == Playing {
		c.stopTimerLocked()
		c.setPhaseLocked(Idle)
	} else {
		c.startLocked()
	}
	st, ls := c.state, c.snapshotListeners()
	c.mu.Unlock()

	notify(ls, st)
	return nil
}

// Pause holds the cursor where it is. It only affects a playing controller.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.state.Phase != Playing {
		c.mu.Unlock()
		return nil
	}
	c.stopTimerLocked()
	c.setPhaseLocked(Paused)
	st, ls := c.state, c.snapshotListeners()
	c.mu.Unlock()

	notify(ls, st)
	return nil
}

// Seek moves the cursor. Seeking while Playing pauses playback.
func (c *Controller) Seek(year int) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if year < c.state.MinYear || year > c.state.MaxYear {
		lo, hi := c.state.MinYear, c.state.MaxYear
		c.mu.Unlock()
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrYearOutOfRange, year, lo, hi)
	}
	if c.state.Phase == Playing {
		c.stopTimerLocked()
		c.setPhaseLocked(Paused)
	}
	c.state.CurrentYear = year
	st, ls := c.state, c.snapshotListeners()
	c.mu.Unlock()

	notify(ls, st)
	return nil
}

// Dispose cancels any outstanding timer. It is idempotent.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.gen++
	c.stopTimerLocked()
	wasPlaying := c.state.Phase == Playing
	if wasPlaying {
		c.setPhaseLocked(Idle)
	}
	st, ls := c.state, c.snapshotListeners()
	c.mu.Unlock()

	if wasPlaying {
		notify(ls, st)
	}
}

// Disposed reports whether Dispose was called.
func (c *Controller) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if c.disposed || gen != c.gen || c.state.Phase != Playing {
		c.mu.Unlock()
		return
	}
	if c.state.CurrentYear < c.state.MaxYear {
		c.state.CurrentYear++
	}
	if c.state.CurrentYear >= c.state.MaxYear {
		c.stopTimerLocked()
		c.setPhaseLocked(Idle)
	}
	st, ls := c.state, c.snapshotListeners()
	c.mu.Unlock()

	notify(ls, st)
}

func (c *Controller) setPhaseLocked(p Phase) {
	c.state.Phase = p
	c.state.IsPlaying = p == Playing
}

func (c *Controller) stopTimerLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) snapshotListeners() []func(State) {
	if len(c.listeners) == 0 {
		return nil
	}
	out := make([]func(State), len(c.listeners))
	copy(out, c.listeners)
	return out
}

func notify(ls []func(State), st State) {
	for _, fn := range ls {
		if fn != nil {
			fn(st)
		}
	}
}
