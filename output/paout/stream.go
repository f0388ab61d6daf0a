// SPDX-License-Identifier: EPL-2.0

package paout

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/gordonklaus/portaudio"

	"github.com/ik5/pcmout/audio"
	"github.com/ik5/pcmout/output"
)

type sample interface {
	int16 | portaudio.Int24 | int32 | float32
}

func asBytes[T sample](b []T) []byte {
	if len(b) == 0 {
		return nil
	}

	var z T
	return unsafe.Slice((*byte)(unsafe.Pointer(&b[0])), len(b)*int(unsafe.Sizeof(z)))
}

// Stream wraps a PortAudio stream. Pull mode streams use a PortAudio
// callback, push mode streams use the blocking write API with a buffer of
// exactly one burst.
type Stream struct {
	req       output.Request
	frameSize int
	burst     int
	capacity  int
	rate      int

	pa    *portaudio.Stream
	state *output.StateTracker

	// push mode buffer, shared with PortAudio
	out []byte
	// ioMu keeps Pa_WriteStream and Pa_StopStream apart.
	ioMu sync.Mutex

	bufferSize atomic.Int64
	xruns      atomic.Int64
	stopped    atomic.Bool

	closeOnce sync.Once
}

func newStream(req output.Request, burst, capacity int) *Stream {
	s := &Stream{
		req:       req,
		frameSize: req.Format.BytesPerSample() * req.Channels,
		burst:     burst,
		capacity:  capacity,
		rate:      req.SampleRate,
		state:     output.NewStateTracker(output.StateOpen),
	}
	s.bufferSize.Store(int64(capacity))

	return s
}

func (s *Stream) open(p portaudio.StreamParameters) error {
	var err error

	switch s.req.Format {
	case audio.FormatInt16:
		s.pa, err = openTyped[int16](s, p)
	case audio.FormatInt24Packed:
		s.pa, err = openTyped[portaudio.Int24](s, p)
	case audio.FormatInt32:
		s.pa, err = openTyped[int32](s, p)
	case audio.FormatFloat32:
		s.pa, err = openTyped[float32](s, p)
	default:
		return output.ErrModeUnsupported
	}

	if err != nil {
		return err
	}

	if info := s.pa.Info(); info != nil && info.SampleRate > 0 {
		s.rate = int(info.SampleRate)
	}

	return nil
}

func openTyped[T sample](s *Stream, p portaudio.StreamParameters) (*portaudio.Stream, error) {
	if s.req.DataCallback != nil {
		return portaudio.OpenStream(p, func(out []T, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			s.process(asBytes(out), flags)
		})
	}

	buf := make([]T, s.burst*s.req.Channels)
	s.out = asBytes(buf)

	return portaudio.OpenStream(p, &buf)
}

func (s *Stream) SampleRate() int            { return s.rate }
func (s *Stream) Channels() int              { return s.req.Channels }
func (s *Stream) Format() audio.SampleFormat { return s.req.Format }
func (s *Stream) FramesPerBurst() int        { return s.burst }
func (s *Stream) BufferCapacityFrames() int  { return s.capacity }
func (s *Stream) BufferSizeFrames() int      { return int(s.bufferSize.Load()) }
func (s *Stream) XRunCount() int             { return int(s.xruns.Load()) }
func (s *Stream) State() output.StreamState  { return s.state.Load() }

// SetBufferSizeFrames only records the size. PortAudio fixes its latency
// when the stream is opened.
func (s *Stream) SetBufferSizeFrames(frames int) (int, error) {
	if s.state.Load() == output.StateClosed {
		return 0, output.ErrClosed
	}

	frames = min(max(frames, s.burst), s.capacity)
	s.bufferSize.Store(int64(frames))

	return frames, nil
}

func (s *Stream) RequestStart() error {
	if !s.state.CompareAndSwap(output.StateStarting, output.StateOpen, output.StateStopped) {
		return output.ErrClosed
	}

	s.stopped.Store(false)

	if err := s.pa.Start(); err != nil {
		s.state.Store(output.StateOpen)
		return err
	}

	s.state.Store(output.StateStarted)

	return nil
}

// RequestStop returns at once. PortAudio plays out what it has buffered
// before the state moves to Stopped.
func (s *Stream) RequestStop() error {
	switch s.state.Load() {
	case output.StateClosing, output.StateClosed:
		return output.ErrClosed
	case output.StateOpen:
		s.state.Store(output.StateStopped)
		return nil
	}

	if !s.state.CompareAndSwap(output.StateStopping, output.StateStarting, output.StateStarted, output.StateDisconnected) {
		return nil
	}

	go func() {
		s.ioMu.Lock()
		defer s.ioMu.Unlock()

		if s.state.Load() != output.StateStopping {
			return
		}

		_ = s.pa.Stop()
		s.state.CompareAndSwap(output.StateStopped, output.StateStopping)
	}()

	return nil
}

func (s *Stream) WaitForStateChange(current output.StreamState, timeout time.Duration) (output.StreamState, error) {
	return s.state.Wait(current, timeout)
}

// Write sends frames one burst at a time. PortAudio's blocking write has no
// timeout, a burst is accepted as soon as the device has room for it.
func (s *Stream) Write(buf []byte, frames int, _ time.Duration) (int, error) {
	if s.out == nil {
		return 0, output.ErrModeUnsupported
	}

	written := 0
	for written < frames {
		switch s.state.Load() {
		case output.StateClosing, output.StateClosed:
			return written, output.ErrClosed
		case output.StateDisconnected:
			return written, audio.ErrDeviceError
		case output.StateOpen, output.StateStarting, output.StateStarted:
		default:
			return written, output.ErrNotStarted
		}

		n := min(frames-written, s.burst)
		if err := s.writeBurst(buf[written*s.frameSize:], n); err != nil {
			return written, err
		}

		written += n
	}

	return written, nil
}

func (s *Stream) writeBurst(buf []byte, frames int) error {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	n := copy(s.out, buf[:frames*s.frameSize])
	clear(s.out[n:])

	err := s.pa.Write()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, portaudio.OutputUnderflowed):
		s.xruns.Add(1)
		return nil
	default:
		s.state.Store(output.StateDisconnected)
		s.report(err)

		return err
	}
}

func (s *Stream) Close() error {
	var err error

	s.closeOnce.Do(func() {
		s.state.Store(output.StateClosing)

		s.ioMu.Lock()
		defer s.ioMu.Unlock()

		err = s.pa.Close()
		s.state.Store(output.StateClosed)
	})

	return err
}

// process runs on PortAudio's callback thread.
func (s *Stream) process(out []byte, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.OutputUnderflow != 0 {
		s.xruns.Add(1)
	}

	if s.stopped.Load() || s.state.Load() != output.StateStarted {
		clear(out)
		return
	}

	if s.req.DataCallback(s, out, len(out)/s.frameSize) == output.Stop {
		s.stopped.Store(true)
		go s.RequestStop()
	}
}

func (s *Stream) report(err error) {
	if s.req.ErrorCallback != nil {
		go s.req.ErrorCallback(s, err)
	}
}
