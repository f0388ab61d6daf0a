// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/pcmout/audio"
	"github.com/ik5/pcmout/output"
	"github.com/ik5/pcmout/probe"
)

// bufferCapacityMultiplier scales the burst duration into the push write
// timeout.
const bufferCapacityMultiplier = 4

type outcome int32

const (
	outcomeNone outcome = iota
	outcomeStopped
	outcomeEndOfStream
	outcomeError
)

// session is one start-to-stop run. The data path observes reader and
// stream through it but never closes them.
type session struct {
	reader audio.Reader
	stream output.Stream
	probe  *probe.Probe
	mode   output.DataPath

	playing    atomic.Bool
	shouldStop atomic.Bool

	result atomic.Int32
	err    error // written once by the winner of result
	done   chan struct{}

	// fileMu guards reader between the writer and the control goroutine.
	fileMu     sync.Mutex
	writerDone chan struct{}

	bytes   atomic.Int64
	buffers atomic.Int64

	terminal sync.Once
}

func newSession(r audio.Reader, mode output.DataPath, p *probe.Probe) *session {
	return &session{
		reader: r,
		mode:   mode,
		probe:  p,
		done:   make(chan struct{}),
	}
}

// finish records how the session ended. Only the first call counts.
func (s *session) finish(o outcome, err error) {
	if s.result.CompareAndSwap(int32(outcomeNone), int32(o)) {
		s.err = err
		close(s.done)
	}
}

// ending waits for the outcome to be published and returns it.
func (s *session) ending() (outcome, error) {
	<-s.done

	return outcome(s.result.Load()), s.err
}

func (s *session) stats() Stats {
	return Stats{
		BytesDelivered: s.bytes.Load(),
		Buffers:        s.buffers.Load(),
	}
}

// onData is the realtime callback.
func (s *session) onData(st output.Stream, buf []byte, frames int) output.CallbackResult {
	if !s.playing.Load() {
		clear(buf)

		return output.Continue
	}

	if !s.reader.IsOpen() {
		clear(buf)
		s.playing.Store(false)
		s.finish(outcomeError, ErrReaderClosed)

		return output.Stop
	}

	n := min(frames*st.Format().BytesPerSample()*st.Channels(), len(buf))
	dst := buf[:n]

	got := s.reader.ReadAudioData(dst)
	s.bytes.Add(int64(got))

	if got < n {
		// reader zero-filled the tail
		s.buffers.Add(1)
		s.playing.Store(false)
		s.finish(outcomeEndOfStream, nil)

		return output.Stop
	}

	if s.probe != nil {
		s.probe.Apply(dst)
	}
	s.buffers.Add(1)

	return output.Continue
}

// onError receives asynchronous device errors.
func (s *session) onError(_ output.Stream, err error) {
	s.playing.Store(false)
	s.finish(outcomeError, fmt.Errorf("%w: %w", audio.ErrDeviceError, err))
}

func (s *session) startWriter() {
	s.writerDone = make(chan struct{})

	go s.write()
}

// write is the push mode data path: one burst per iteration, read under
// fileMu, written without it.
func (s *session) write() {
	defer close(s.writerDone)

	burst := s.stream.FramesPerBurst()
	buf := make([]byte, burst*output.BytesPerFrame(s.stream))
	timeout := output.BurstDuration(s.stream) * bufferCapacityMultiplier
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}

	for s.playing.Load() && !s.shouldStop.Load() {
		s.fileMu.Lock()
		got := s.reader.ReadAudioData(buf)
		s.fileMu.Unlock()

		s.bytes.Add(int64(got))
		eos := got < len(buf)

		if !eos && s.probe != nil {
			s.probe.Apply(buf)
		}

		if err := s.writeBurst(buf, burst, timeout); err != nil {
			if s.shouldStop.Load() || errors.Is(err, errShuttingDown) {
				return
			}

			s.playing.Store(false)
			s.finish(outcomeError, fmt.Errorf("%w: %w", audio.ErrDeviceError, err))

			return
		}
		s.buffers.Add(1)

		if eos {
			s.playing.Store(false)
			s.finish(outcomeEndOfStream, nil)

			return
		}
	}
}

// writeBurst retries partial writes until the burst is queued.
func (s *session) writeBurst(buf []byte, frames int, timeout time.Duration) error {
	bpf := len(buf) / frames
	written := 0

	for written < frames {
		if s.shouldStop.Load() {
			return errShuttingDown
		}

		n, err := s.stream.Write(buf[written*bpf:], frames-written, timeout)
		if err != nil {
			return err
		}
		if n < 0 {
			return audio.ErrDeviceError
		}

		written += n
	}

	return nil
}
