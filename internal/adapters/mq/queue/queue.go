// Package queue carries engine commands from producers (HTTP handlers,
// timers, loaders) to the single dispatcher that applies them.
//
// Enqueue blocks while the queue is full. Commands are never dropped or
// coalesced; a producer gives up only when its context ends or the queue
// is closed.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ladder/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Command is one unit of work for the dispatcher.
type Command struct {
	ID       string
	Kind     string
	Run      func(ctx context.Context) error
	Enqueued time.Time

	// Done, when set, receives the result of Run exactly once.
	Done chan error
}

// NewCommand stamps a command with a fresh ID.
func NewCommand(kind string, run func(ctx context.Context) error) Command {
	return Command{
		ID:   uuid.NewString(),
		Kind: kind,
		Run:  run,
	}
}

// Queue provides blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue waits for space and adds c to the queue.
	Enqueue(ctx context.Context, c Command) error

	// Dequeue returns a channel that receives commands in FIFO order.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Command

	// Len returns the number of queued commands.
	Len(ctx context.Context) int

	// Close stops accepting commands.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	commands chan Command
	closing  chan struct{}
	capacity int

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		closing:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	q.commands = make(chan Command, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a command, waiting while the queue is full.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Command) error {
	if c.Run == nil {
		return ErrNilCommand
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	start := time.Now()
	c.Enqueued = start

	select {
	case q.commands <- c:
	default:
		// Full: wait for the dispatcher to make room.
		select {
		case q.commands <- c:
		case <-q.closing:
			metrics.RecordQueueEnqueueError()
			metrics.RecordErrorByComponent("queue", "closed")
			return ErrClosed
		case <-ctx.Done():
			metrics.RecordQueueEnqueueError()
			metrics.RecordErrorByComponent("queue", "context_cancelled")
			return fmt.Errorf("enqueue %s: %w", c.Kind, ctx.Err())
		}
	}

	metrics.RecordQueueWait(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordQueueEnqueue()
	q.observe()
	return nil
}

// Dequeue returns a channel that will receive commands as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Command {
	out := make(chan Command)
	go func() {
		defer close(out)
		for c := range q.commands {
			select {
			case out <- c:
				metrics.RecordQueueDequeue()
				q.observe()
			case <-ctx.Done():
				if c.Done != nil {
					c.Done <- ctx.Err()
				}
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued commands.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.observe()
}

func (q *InMemoryQueue) observe() int {
	size := len(q.commands)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close stops accepting commands. Producers blocked in Enqueue return
// ErrClosed; commands already queued remain readable through Dequeue.
func (q *InMemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		close(q.closing)

		q.mu.Lock()
		defer q.mu.Unlock()
		close(q.commands)
		q.closed = true
	})
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
