// SPDX-License-Identifier: EPL-2.0

package output

import (
	"sync"
	"time"
)

// FrameQueue is a bounded FIFO of whole frames between a push mode writer
// and a device that drains it on its own schedule.
type FrameQueue struct {
	frameSize int

	mu    sync.Mutex
	buf   []byte
	r, n  int
	limit int
	space chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewFrameQueue allocates room for capacity frames. The usable limit
// starts at the full capacity.
func NewFrameQueue(capacity, frameSize int) *FrameQueue {
	return &FrameQueue{
		frameSize: frameSize,
		buf:       make([]byte, capacity*frameSize),
		limit:     capacity * frameSize,
		space:     make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// SetLimit bounds the queue to frames, which is clamped to the capacity.
func (q *FrameQueue) SetLimit(frames int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.limit = min(max(frames, 0)*q.frameSize, len(q.buf))
}

// Queued is the number of frames waiting to be read.
func (q *FrameQueue) Queued() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.n / q.frameSize
}

// Write queues frames from p, blocking while the queue is full. It returns
// the frames queued before timeout expired or the queue was closed.
func (q *FrameQueue) Write(p []byte, frames int, timeout time.Duration) (int, error) {
	if n := frames * q.frameSize; n < len(p) {
		p = p[:n]
	}

	var timer *time.Timer
	written := 0

	for len(p) > 0 {
		select {
		case <-q.done:
			return written / q.frameSize, ErrClosed
		default:
		}

		n := q.push(p)
		written += n
		p = p[n:]

		if len(p) == 0 {
			break
		}

		if timer == nil {
			timer = time.NewTimer(timeout)
			defer timer.Stop()
		}

		select {
		case <-q.space:
		case <-q.done:
			return written / q.frameSize, ErrClosed
		case <-timer.C:
			return written / q.frameSize, nil
		}
	}

	return written / q.frameSize, nil
}

func (q *FrameQueue) push(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	free := q.limit - q.n
	free -= free % q.frameSize
	n := min(free, len(p))

	for copied := 0; copied < n; {
		w := (q.r + q.n) % len(q.buf)
		c := copy(q.buf[w:min(len(q.buf), w+n-copied)], p[copied:n])
		copied += c
		q.n += c
	}

	return n
}

// Read drains up to len(p) bytes into p and zero fills whatever it could
// not. It never blocks and returns the number of queued bytes copied.
func (q *FrameQueue) Read(p []byte) int {
	q.mu.Lock()

	n := min(q.n, len(p))
	for copied := 0; copied < n; {
		c := copy(p[copied:n], q.buf[q.r:min(len(q.buf), q.r+n-copied)])
		copied += c
		q.r = (q.r + c) % len(q.buf)
		q.n -= c
	}

	q.mu.Unlock()

	clear(p[n:])

	if n > 0 {
		select {
		case q.space <- struct{}{}:
		default:
		}
	}

	return n
}

// Reset drops everything queued.
func (q *FrameQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.r, q.n = 0, 0
}

// Close wakes blocked writers; later writes fail with ErrClosed.
func (q *FrameQueue) Close() {
	q.once.Do(func() { close(q.done) })
}
