package animation

import (
	"time"

	"github.com/okian/ladder/internal/domain/timer"
	"github.com/okian/ladder/pkg/logger"
)

// DefaultStepInterval is the playback period.
const DefaultStepInterval = 300 * time.Millisecond

// Option configures a Controller.
type Option func(*Controller)

// WithStepInterval sets the tick period.
func WithStepInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.state.StepInterval = d
	}
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s timer.Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithListener registers a state listener at construction.
func WithListener(fn func(State)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.listeners = append(c.listeners, fn)
		}
	}
}
