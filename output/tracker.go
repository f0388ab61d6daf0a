// SPDX-License-Identifier: EPL-2.0

package output

import (
	"sync"
	"time"
)

// StateTracker holds a stream state and lets callers wait for it to
// change. Backends that drive their stream in software embed one.
type StateTracker struct {
	mu      sync.Mutex
	state   StreamState
	changed chan struct{}
}

func NewStateTracker(initial StreamState) *StateTracker {
	return &StateTracker{state: initial, changed: make(chan struct{})}
}

func (t *StateTracker) Load() StreamState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

func (t *StateTracker) Store(s StreamState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.storeLocked(s)
}

// CompareAndSwap sets next only when the state is one of from.
func (t *StateTracker) CompareAndSwap(next StreamState, from ...StreamState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, f := range from {
		if t.state == f {
			t.storeLocked(next)
			return true
		}
	}

	return false
}

func (t *StateTracker) storeLocked(s StreamState) {
	if t.state == s {
		return
	}

	t.state = s
	close(t.changed)
	t.changed = make(chan struct{})
}

// Wait blocks until the state differs from current or timeout expires.
func (t *StateTracker) Wait(current StreamState, timeout time.Duration) (StreamState, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		t.mu.Lock()
		st, ch := t.state, t.changed
		t.mu.Unlock()

		if st != current {
			return st, nil
		}

		select {
		case <-ch:
		case <-timer.C:
			return t.Load(), ErrTimeout
		}
	}
}
