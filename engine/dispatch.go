// SPDX-License-Identifier: EPL-2.0

package engine

import "sync"

// dispatcher delivers notifications in order on one goroutine. post never
// blocks, so it is safe to call while holding the control lock.
type dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)

	go d.run()

	return d
}

func (d *dispatcher) post(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.queue = append(d.queue, fn)
	d.cond.Signal()
}

// close lets the queue drain and then stops the goroutine.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
}

func (d *dispatcher) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}

		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}

		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		fn()
	}
}
