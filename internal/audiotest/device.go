// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"
	"time"

	"github.com/ik5/pcmout/audio"
	"github.com/ik5/pcmout/output"
)

// Device is a simulated output.Backend. It consumes one burst per period
// on a clock that can be sped up, and records everything the data path
// hands it.
//
// Configure the exported fields before the first stream is opened.
type Device struct {
	// FramesPerBurst defaults to 192.
	FramesPerBurst int
	// MaxCapacity caps the requested capacity when set.
	MaxCapacity int
	// Speed divides the burst period. 0 means real time.
	Speed float64

	// StartDelay is slept inside RequestStart.
	StartDelay time.Duration

	BuilderErr error
	OpenErr    error
	StartErr   error
	// WriteErr is returned by Write after WriteErrAfter successful writes.
	WriteErr      error
	WriteErrAfter int

	mu       sync.Mutex
	streams  []*Stream
	requests []output.Request
	open     int
	accepted int64
}

var _ output.Backend = (*Device)(nil)

// NewDevice returns a Device running speed times faster than real time.
func NewDevice(speed float64) *Device {
	return &Device{Speed: speed}
}

func (d *Device) Name() string { return "audiotest" }

func (d *Device) NewBuilder() (output.Builder, error) {
	if d.BuilderErr != nil {
		return nil, d.BuilderErr
	}

	return builder{d}, nil
}

type builder struct{ d *Device }

func (b builder) Open(req output.Request) (output.Stream, error) {
	d := b.d

	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, req)
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}

	burst := d.FramesPerBurst
	if burst <= 0 {
		burst = 192
	}

	capacity := req.CapacityFrames
	if capacity <= 0 {
		capacity = burst * 8
	}
	if d.MaxCapacity > 0 && capacity > d.MaxCapacity {
		capacity = d.MaxCapacity
	}

	s := &Stream{
		dev:        d,
		req:        req,
		burst:      burst,
		capacity:   capacity,
		bufferSize: capacity,
		bpf:        req.Format.BytesPerSample() * req.Channels,
		state:      output.StateOpen,
		changed:    make(chan struct{}),
	}
	d.streams = append(d.streams, s)
	d.open++

	return s, nil
}

// Opened is the number of streams ever opened.
func (d *Device) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.streams)
}

// OpenStreams is the number of streams not yet closed.
func (d *Device) OpenStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.open
}

// AcceptedBytes is the total the device consumed across all streams.
func (d *Device) AcceptedBytes() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.accepted
}

// Requests returns a copy of every request passed to Open.
func (d *Device) Requests() []output.Request {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]output.Request(nil), d.requests...)
}

// Last returns the most recently opened stream, or nil.
func (d *Device) Last() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.streams) == 0 {
		return nil
	}

	return d.streams[len(d.streams)-1]
}

// InjectError disconnects every running stream and reports err through
// their error callbacks.
func (d *Device) InjectError(err error) {
	d.mu.Lock()
	streams := append([]*Stream(nil), d.streams...)
	d.mu.Unlock()

	for _, s := range streams {
		s.disconnect(err)
	}
}

func (d *Device) addAccepted(n int) {
	d.mu.Lock()
	d.accepted += int64(n)
	d.mu.Unlock()
}

func (d *Device) period(burst, rate int) time.Duration {
	p := time.Duration(burst) * time.Second / time.Duration(rate)
	if d.Speed > 0 {
		p = time.Duration(float64(p) / d.Speed)
	}

	return max(p, 50*time.Microsecond)
}

// Stream is a simulated output.Stream.
type Stream struct {
	dev      *Device
	req      output.Request
	burst    int
	capacity int
	bpf      int

	mu         sync.Mutex
	state      output.StreamState
	changed    chan struct{}
	stopCh     chan struct{}
	done       chan struct{}
	bufferSize int
	queued     int
	writes     int
	xruns      int
	callbacks  int
	accepted   int64
	closed     bool
}

var _ output.Stream = (*Stream)(nil)

func (s *Stream) SampleRate() int            { return s.req.SampleRate }
func (s *Stream) Channels() int              { return s.req.Channels }
func (s *Stream) Format() audio.SampleFormat { return s.req.Format }
func (s *Stream) FramesPerBurst() int        { return s.burst }
func (s *Stream) BufferCapacityFrames() int  { return s.capacity }
func (s *Stream) Request() output.Request    { return s.req }

func (s *Stream) BufferSizeFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bufferSize
}

func (s *Stream) SetBufferSizeFrames(frames int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bufferSize = min(max(frames, s.burst), s.capacity)

	return s.bufferSize, nil
}

func (s *Stream) XRunCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.xruns
}

// Callbacks is the number of times the data callback ran.
func (s *Stream) Callbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.callbacks
}

// Accepted is the number of bytes this stream consumed.
func (s *Stream) Accepted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.accepted
}

func (s *Stream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

func (s *Stream) State() output.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// notify wakes every waiter. Callers hold s.mu.
func (s *Stream) notify() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Stream) setState(st output.StreamState) {
	s.state = st
	s.notify()
}

func (s *Stream) RequestStart() error {
	if s.dev.StartDelay > 0 {
		time.Sleep(s.dev.StartDelay)
	}
	if s.dev.StartErr != nil {
		return s.dev.StartErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return output.ErrClosed
	case s.state == output.StateStarting || s.state == output.StateStarted:
		return nil
	}

	s.setState(output.StateStarting)
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.setState(output.StateStarted)

	go s.run(s.stopCh, s.done)

	return nil
}

func (s *Stream) RequestStop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case output.StateStarting, output.StateStarted:
		s.setState(output.StateStopping)
		close(s.stopCh)
	case output.StateOpen:
		s.setState(output.StateStopped)
	}

	return nil
}

func (s *Stream) WaitForStateChange(current output.StreamState, timeout time.Duration) (output.StreamState, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		st, ch := s.state, s.changed
		s.mu.Unlock()

		if st != current {
			return st, nil
		}

		select {
		case <-ch:
		case <-timer.C:
			return st, output.ErrTimeout
		}
	}
}

func (s *Stream) Write(buf []byte, frames int, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	written := 0

	for written < frames {
		s.mu.Lock()
		switch {
		case s.closed:
			s.mu.Unlock()
			return written, output.ErrClosed
		case s.state == output.StateDisconnected:
			s.mu.Unlock()
			return written, audio.ErrDeviceError
		case s.state != output.StateOpen && s.state != output.StateStarting && s.state != output.StateStarted:
			s.mu.Unlock()
			return written, output.ErrNotStarted
		case s.dev.WriteErr != nil && s.writes >= s.dev.WriteErrAfter:
			s.mu.Unlock()
			return written, s.dev.WriteErr
		}

		if free := s.bufferSize - s.queued; free > 0 {
			n := min(free, frames-written)
			s.queued += n
			s.writes++
			s.accepted += int64(n * s.bpf)
			written += n
			s.mu.Unlock()
			s.dev.addAccepted(n * s.bpf)

			continue
		}

		ch := s.changed
		s.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return written, nil
		}

		select {
		case <-ch:
		case <-time.After(remaining):
			return written, nil
		}
	}

	return written, nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	if s.state == output.StateStarting || s.state == output.StateStarted {
		s.setState(output.StateStopping)
		close(s.stopCh)
	}
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}

	s.mu.Lock()
	s.setState(output.StateClosing)
	s.closed = true
	s.setState(output.StateClosed)
	s.mu.Unlock()

	s.dev.mu.Lock()
	s.dev.open--
	s.dev.mu.Unlock()

	return nil
}

func (s *Stream) disconnect(err error) {
	s.mu.Lock()
	if s.state != output.StateStarted {
		s.mu.Unlock()
		return
	}

	s.setState(output.StateDisconnected)
	close(s.stopCh)
	s.mu.Unlock()

	if s.req.ErrorCallback != nil {
		go s.req.ErrorCallback(s, err)
	}
}

// run is the device clock. In pull mode it calls the data callback once per
// burst; in push mode it drains one burst from the queue. Bursts missed
// because the goroutine was late are caught up so the clock tracks wall
// time.
func (s *Stream) run(stop, done chan struct{}) {
	defer close(done)

	period := s.dev.period(s.burst, s.req.SampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var buf []byte
	if s.req.DataCallback != nil {
		buf = make([]byte, s.burst*s.bpf)
	}

	begin := time.Now()
	processed := 0

	for {
		select {
		case <-stop:
			s.mu.Lock()
			if s.state == output.StateStopping {
				s.setState(output.StateStopped)
			}
			s.mu.Unlock()

			return
		case <-ticker.C:
		}

		for due := int(time.Since(begin) / period); processed < due; processed++ {
			if isClosed(stop) {
				break
			}

			if buf == nil {
				s.drain()
				continue
			}

			if !s.pull(buf) {
				return
			}
		}
	}
}

// pull runs one callback and reports whether the stream keeps running.
func (s *Stream) pull(buf []byte) bool {
	res := s.req.DataCallback(s, buf, s.burst)

	s.mu.Lock()
	s.callbacks++
	s.accepted += int64(len(buf))
	stopped := res == output.Stop && s.state == output.StateStarted
	if stopped {
		s.setState(output.StateStopped)
	}
	s.mu.Unlock()
	s.dev.addAccepted(len(buf))

	return !stopped
}

func (s *Stream) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queued > 0 && s.queued < s.burst {
		s.xruns++
	}
	s.queued = max(0, s.queued-s.burst)
	s.notify()
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
