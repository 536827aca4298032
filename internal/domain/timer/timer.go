// Package timer provides cancellable repeating actions.
package timer

import (
	"sync"
	"time"
)

// Cancel stops a repeating action. It is safe to call more than once.
type Cancel func()

// Scheduler runs fn every period until cancelled.
type Scheduler interface {
	Every(period time.Duration, fn func()) Cancel
}

// Ticker is the wall-clock Scheduler backed by time.Ticker.
type Ticker struct{}

// NewTicker returns the wall-clock scheduler.
func NewTicker() Ticker { return Ticker{} }

// Every starts a goroutine that calls fn on each tick.
func (Ticker) Every(period time.Duration, fn func()) Cancel {
	stop := make(chan struct{})
	t := time.NewTicker(period)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

// Wrapped decorates every callback before handing it to the inner scheduler.
type Wrapped struct {
	inner Scheduler
	wrap  func(func()) func()
}

// Wrap returns a scheduler whose callbacks pass through wrap. The service
// uses it to route timer callbacks through its command queue.
func Wrap(inner Scheduler, wrap func(func()) func()) Wrapped {
	return Wrapped{inner: inner, wrap: wrap}
}

// Every schedules the wrapped callback.
func (w Wrapped) Every(period time.Duration, fn func()) Cancel {
	return w.inner.Every(period, w.wrap(fn))
}
