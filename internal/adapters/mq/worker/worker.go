// Package worker runs engine commands one at a time.
//
// A single Dispatcher reads the command queue and applies each command in
// FIFO order, so state transitions never interleave. Timer callbacks and
// HTTP handlers only enqueue.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Queue is the part of the command queue the dispatcher needs.
type Queue interface {
	Enqueue(ctx context.Context, c queue.Command) error
	Dequeue(ctx context.Context) <-chan queue.Command
}

// Worker processes commands until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the command in flight.
	Shutdown(ctx context.Context) error
}

type dispatchKey struct{}

// Dispatcher is the single serial consumer of the command queue.
type Dispatcher struct {
	queue Queue
	name  string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	running      sync.Once

	logger logger.Logger
}

// NewDispatcher creates a dispatcher over q.
func NewDispatcher(q Queue, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    q,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}

	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named(d.name)

	return d
}

// Run applies commands until ctx ends, Shutdown is called or the queue is
// closed and drained. Only the first call runs; later calls return at once.
func (d *Dispatcher) Run(ctx context.Context) {
	started := false
	d.running.Do(func() { started = true })
	if !started {
		return
	}
	defer close(d.done)

	ctx = context.WithValue(ctx, dispatchKey{}, d)
	commands := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case c, ok := <-commands:
			if !ok {
				return
			}
			d.execute(ctx, c)
		}
	}
}

// Shutdown signals the loop to stop and waits for it.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.shutdownOnce.Do(func() { close(d.shutdown) })

	// Never started.
	started := true
	d.running.Do(func() { started = false })
	if !started {
		close(d.done)
		return nil
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Submit enqueues fn without waiting for it to run. Called from inside a
// command it runs fn inline, since the loop cannot wait on itself.
func (d *Dispatcher) Submit(ctx context.Context, kind string, fn func(ctx context.Context) error) error {
	if d.inside(ctx) {
		d.execute(ctx, queue.NewCommand(kind, fn))
		return nil
	}
	return d.queue.Enqueue(ctx, queue.NewCommand(kind, fn))
}

// Do enqueues fn and waits for its result.
func (d *Dispatcher) Do(ctx context.Context, kind string, fn func(ctx context.Context) error) error {
	if d.inside(ctx) {
		return d.run(ctx, queue.NewCommand(kind, fn))
	}

	c := queue.NewCommand(kind, fn)
	c.Done = make(chan error, 1)
	if err := d.queue.Enqueue(ctx, c); err != nil {
		return err
	}

	select {
	case err := <-c.Done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", kind, ctx.Err())
	case <-d.done:
		// Stopped before reaching the command; it may still have finished.
		select {
		case err := <-c.Done:
			return err
		default:
			return ErrStopped
		}
	}
}

func (d *Dispatcher) inside(ctx context.Context) bool {
	owner, _ := ctx.Value(dispatchKey{}).(*Dispatcher)
	return owner == d
}

func (d *Dispatcher) execute(ctx context.Context, c queue.Command) {
	err := d.run(ctx, c)
	if c.Done != nil {
		c.Done <- err
		return
	}
	if err != nil {
		d.logger.Error(ctx, "command failed",
			logger.String("id", c.ID),
			logger.String("kind", c.Kind),
			logger.Error(err),
		)
	}
}

func (d *Dispatcher) run(ctx context.Context, c queue.Command) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPanic, c.Kind, r)
			metrics.RecordErrorByComponent("dispatcher", "panic")
		}
		metrics.RecordCommand(c.Kind, float64(time.Since(start).Microseconds())/1000, err != nil)
	}()
	return c.Run(ctx)
}
