// Package geclock provides a striped lock table keyed by graph execution
// context handle, so the facade can serialize set_input/compute/get_output
// calls against the same gec while letting cross-model calls proceed
// concurrently, per spec.md §4.5/§5.
package geclock

import "sync"

// Table hands out a *sync.Mutex per gec, creating it lazily on first
// use. The table itself is guarded by its own RWMutex; the per-gec locks
// it returns are what callers actually serialize compute calls on.
type Table struct {
	mu    sync.RWMutex
	locks map[uint32]*sync.Mutex
}

// New returns an empty Table.
func New() *Table {
	return &Table{locks: make(map[uint32]*sync.Mutex)}
}

// Lock acquires (creating if necessary) the mutex for gec and returns an
// unlock function.
func (t *Table) Lock(gec uint32) (unlock func()) {
	t.mu.RLock()
	m, ok := t.locks[gec]
	t.mu.RUnlock()

	if !ok {
		t.mu.Lock()
		m, ok = t.locks[gec]
		if !ok {
			m = &sync.Mutex{}
			t.locks[gec] = m
		}
		t.mu.Unlock()
	}

	m.Lock()
	return m.Unlock
}

// Forget removes the lock entry for gec. Call this from drop_model_state
// so the table doesn't grow unbounded across many prefetch/preempt
// cycles. It is safe to call even while another goroutine holds the
// lock; the mutex value they hold remains valid, it's just no longer
// reachable for new callers.
func (t *Table) Forget(gec uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.locks, gec)
}
