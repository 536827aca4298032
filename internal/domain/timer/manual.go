package timer

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven explicitly by Fire. It is meant for tests.
type Manual struct {
	mu    sync.Mutex
	next  int
	tasks map[int]manualTask
}

type manualTask struct {
	period time.Duration
	fn     func()
}

// NewManual returns an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{tasks: make(map[int]manualTask)}
}

// Every registers fn. Nothing runs until Fire.
func (m *Manual) Every(period time.Duration, fn func()) Cancel {
	m.mu.Lock()
	id := m.next
	m.next++
	m.tasks[id] = manualTask{period: period, fn: fn}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.tasks, id)
		m.mu.Unlock()
	}
}

// Fire runs every active task once, oldest first, and returns how many ran.
func (m *Manual) Fire() int {
	m.mu.Lock()
	ids := make([]int, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.tasks[id].fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// FireN calls Fire n times.
func (m *Manual) FireN(n int) {
	for i := 0; i < n; i++ {
		m.Fire()
	}
}

// Active returns the number of uncancelled tasks.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Periods returns the periods of active tasks, oldest first.
func (m *Manual) Periods() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]time.Duration, len(ids))
	for i, id := range ids {
		out[i] = m.tasks[id].period
	}
	return out
}
