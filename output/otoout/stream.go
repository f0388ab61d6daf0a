// SPDX-License-Identifier: EPL-2.0

package otoout

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/ik5/pcmout/audio"
	"github.com/ik5/pcmout/output"
)

// errPollInterval is how often a started player is checked for errors.
const errPollInterval = 20 * time.Millisecond

// Stream feeds one oto player. The player pulls through Read; in pull mode
// Read calls the data callback once per burst, in push mode it drains the
// frame queue.
type Stream struct {
	req       output.Request
	frameSize int
	burst     int
	capacity  int

	player *oto.Player
	state  *output.StateTracker
	queue  *output.FrameQueue

	bufferSize atomic.Int64
	xruns      atomic.Int64

	// stopped is set once the callback returns Stop.
	stopped atomic.Bool

	closeOnce sync.Once
	closed    chan struct{}
}

func newStream(req output.Request, burst, capacity int) *Stream {
	s := &Stream{
		req:       req,
		frameSize: req.Format.BytesPerSample() * req.Channels,
		burst:     burst,
		capacity:  capacity,
		state:     output.NewStateTracker(output.StateOpen),
		closed:    make(chan struct{}),
	}
	s.bufferSize.Store(int64(capacity))

	if req.DataCallback == nil {
		s.queue = output.NewFrameQueue(capacity, s.frameSize)
	}

	return s
}

func (s *Stream) SampleRate() int            { return s.req.SampleRate }
func (s *Stream) Channels() int              { return s.req.Channels }
func (s *Stream) Format() audio.SampleFormat { return s.req.Format }
func (s *Stream) FramesPerBurst() int        { return s.burst }
func (s *Stream) BufferCapacityFrames() int  { return s.capacity }
func (s *Stream) BufferSizeFrames() int      { return int(s.bufferSize.Load()) }
func (s *Stream) XRunCount() int             { return int(s.xruns.Load()) }
func (s *Stream) State() output.StreamState  { return s.state.Load() }

func (s *Stream) SetBufferSizeFrames(frames int) (int, error) {
	if s.state.Load() == output.StateClosed {
		return 0, output.ErrClosed
	}

	frames = min(max(frames, s.burst), s.capacity)
	s.bufferSize.Store(int64(frames))
	s.player.SetBufferSize(frames * s.frameSize)

	if s.queue != nil {
		s.queue.SetLimit(frames)
	}

	return frames, nil
}

func (s *Stream) RequestStart() error {
	if !s.state.CompareAndSwap(output.StateStarting, output.StateOpen, output.StateStopped) {
		return output.ErrClosed
	}

	s.stopped.Store(false)
	s.player.Play()
	s.state.Store(output.StateStarted)

	go s.watch()

	return nil
}

// RequestStop lets the queued and buffered audio play out before the
// player is paused. The state moves to Stopped once that is done.
func (s *Stream) RequestStop() error {
	switch s.state.Load() {
	case output.StateClosing, output.StateClosed:
		return output.ErrClosed
	case output.StateOpen, output.StateDisconnected:
		s.player.Pause()
		s.state.Store(output.StateStopped)
		return nil
	}

	if s.state.CompareAndSwap(output.StateStopping, output.StateStarting, output.StateStarted) {
		go s.drain()
	}

	return nil
}

func (s *Stream) drain() {
	rate := time.Duration(s.req.SampleRate)
	tail := time.Duration(s.BufferSizeFrames()) * time.Second / rate
	deadline := time.Now().Add(2 * time.Duration(s.capacity) * time.Second / rate)
	burst := time.Duration(s.burst) * time.Second / rate

	for s.queue != nil && s.queue.Queued() > 0 && time.Now().Before(deadline) {
		select {
		case <-s.closed:
			return
		case <-time.After(burst):
		}
	}

	select {
	case <-s.closed:
		return
	case <-time.After(tail):
	}

	s.player.Pause()
	s.state.CompareAndSwap(output.StateStopped, output.StateStopping)
}

func (s *Stream) WaitForStateChange(current output.StreamState, timeout time.Duration) (output.StreamState, error) {
	return s.state.Wait(current, timeout)
}

func (s *Stream) Write(buf []byte, frames int, timeout time.Duration) (int, error) {
	if s.queue == nil {
		return 0, output.ErrModeUnsupported
	}

	switch s.state.Load() {
	case output.StateClosing, output.StateClosed:
		return 0, output.ErrClosed
	case output.StateDisconnected:
		return 0, audio.ErrDeviceError
	case output.StateStopping, output.StateStopped:
		return 0, output.ErrNotStarted
	}

	return s.queue.Write(buf, frames, timeout)
}

func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(output.StateClosing)
		close(s.closed)

		if s.queue != nil {
			s.queue.Close()
		}

		s.player.Pause()
		_ = s.player.Close()
		s.state.Store(output.StateClosed)
	})

	return nil
}

// Read is called by the oto mixer. It always fills p.
func (s *Stream) Read(p []byte) (int, error) {
	p = p[:len(p)-len(p)%s.frameSize]

	st := s.state.Load()
	if st != output.StateStarted && st != output.StateStopping {
		clear(p)
		return len(p), nil
	}

	if s.queue != nil {
		if n := s.queue.Read(p); st == output.StateStarted && n > 0 && n < len(p) {
			s.xruns.Add(1)
		}

		return len(p), nil
	}

	if s.fill(p, st) {
		go s.RequestStop()
	}

	return len(p), nil
}

// fill runs the data callback once per burst of p. It reports whether this
// call saw the callback return Stop for the first time.
func (s *Stream) fill(p []byte, st output.StreamState) bool {
	first := false

	step := s.burst * s.frameSize
	for off := 0; off < len(p); off += step {
		chunk := p[off:min(off+step, len(p))]

		if st == output.StateStopping || s.stopped.Load() {
			clear(chunk)
			continue
		}

		if s.req.DataCallback(s, chunk, len(chunk)/s.frameSize) == output.Stop {
			s.stopped.Store(true)
			first = true
		}
	}

	return first
}

// watch reports a player error once through the error callback.
func (s *Stream) watch() {
	t := time.NewTicker(errPollInterval)
	defer t.Stop()

	for {
		select {
		case <-s.closed:
			return
		case <-t.C:
		}

		st := s.state.Load()
		if st != output.StateStarted && st != output.StateStarting {
			return
		}

		if err := s.player.Err(); err != nil {
			s.state.Store(output.StateDisconnected)

			if s.req.ErrorCallback != nil {
				s.req.ErrorCallback(s, err)
			}

			return
		}
	}
}
