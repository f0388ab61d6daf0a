// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/pcmout/audio"
	"github.com/ik5/pcmout/output"
	"github.com/ik5/pcmout/probe"
)

// Engine plays one wave file at a time through an output backend.
//
// Start, Stop, Release and SetConfig are serialised by a control lock that
// the data path never takes. End-of-stream and device errors detected on
// the data path are completed by a per-session watcher goroutine.
type Engine struct {
	backend     output.Backend
	mode        output.DataPath
	log         zerolog.Logger
	listener    Listener
	probe       *probe.Probe
	stopTimeout time.Duration
	openReader  ReaderOpener

	controlMu sync.Mutex
	cfg       audio.Configuration
	cur       *session
	released  bool

	state atomic.Int32
	live  atomic.Pointer[session]
	last  atomic.Pointer[Stats]

	notes *dispatcher
}

func New(backend output.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:     backend,
		mode:        output.PullMode,
		log:         zerolog.Nop(),
		listener:    nopListener{},
		stopTimeout: DefaultStopTimeout,
		openReader:  openWav,
		cfg:         audio.DefaultConfiguration(),
	}

	for _, o := range opts {
		o(e)
	}

	e.log = e.log.With().Str("backend", backend.Name()).Str("mode", e.mode.String()).Logger()
	e.notes = newDispatcher()

	return e
}

func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) Mode() output.DataPath { return e.mode }

func (e *Engine) setState(s State) {
	prev := State(e.state.Swap(int32(s)))
	if prev != s {
		e.log.Debug().Stringer("from", prev).Stringer("to", s).Msg("state")
	}
}

// Config returns the configuration used by the next Start.
func (e *Engine) Config() audio.Configuration {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	return e.cfg
}

// SetConfig replaces the configuration. It fails unless the engine is idle.
func (e *Engine) SetConfig(cfg audio.Configuration) error {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	if e.released {
		return ErrReleased
	}
	if e.cur != nil || e.State() != Idle {
		return ErrNotIdle
	}

	e.cfg = cfg
	e.log.Info().Stringer("config", cfg).Msg("configuration updated")

	return nil
}

// Stats reports the running session, or the last one when idle.
func (e *Engine) Stats() Stats {
	if s := e.live.Load(); s != nil {
		return s.stats()
	}

	if st := e.last.Load(); st != nil {
		return *st
	}

	return Stats{}
}

// Start opens the configured file and the output stream and starts
// playback. On failure every step taken is undone and the engine is Idle.
func (e *Engine) Start() (err error) {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	if e.released {
		return ErrReleased
	}
	if e.cur != nil || e.State() != Idle {
		return ErrNotIdle
	}

	e.setState(Starting)
	cfg := e.cfg
	log := e.log.With().Str("path", cfg.AudioFilePath).Logger()

	var undo []func()
	defer func() {
		if err == nil {
			return
		}

		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		e.setState(Idle)
		log.Error().Err(err).Msg("start failed")
	}()

	reader, err := e.openReader(cfg.AudioFilePath)
	if err != nil {
		return err
	}
	undo = append(undo, func() { reader.Close() })

	sess := newSession(reader, e.mode, e.probe)

	stream, err := output.Configure(e.backend, output.Params{
		SampleRate: reader.SampleRate(),
		Channels:   reader.ChannelCount(),
		Format:     reader.SampleFormat(),
		Config:     cfg,
	}, e.mode, sess.onData, sess.onError)
	if err != nil {
		return err
	}
	sess.stream = stream
	undo = append(undo, func() { stream.Close() })

	if stream.SampleRate() != reader.SampleRate() || stream.Channels() != reader.ChannelCount() ||
		stream.Format() != reader.SampleFormat() {
		log.Warn().
			Int("file_rate", reader.SampleRate()).Int("rate", stream.SampleRate()).
			Int("file_channels", reader.ChannelCount()).Int("channels", stream.Channels()).
			Stringer("file_format", reader.SampleFormat()).Stringer("format", stream.Format()).
			Msg("device parameters differ from file")
	}

	log.Info().
		Int("rate", stream.SampleRate()).
		Int("channels", stream.Channels()).
		Stringer("format", stream.Format()).
		Int("burst", stream.FramesPerBurst()).
		Int("capacity", stream.BufferCapacityFrames()).
		Int("buffer", stream.BufferSizeFrames()).
		Msg("stream opened")

	if sess.probe != nil {
		if perr := sess.probe.Open(); perr != nil {
			log.Warn().Err(perr).Msg("latency probe running without gpio")
		}
		undo = append(undo, func() { sess.probe.Close() })
	}

	sess.playing.Store(true)
	undo = append(undo, func() { sess.playing.Store(false) })

	if err = output.Start(stream); err != nil {
		return err
	}

	if e.mode == output.PushMode {
		sess.startWriter()
	}

	e.cur = sess
	e.live.Store(sess)
	e.setState(Running)
	e.notes.post(e.listener.OnPlaybackStarted)

	go e.watch(sess)

	return nil
}

// Stop ends playback and waits for the device to stop. It is a no-op when
// idle.
func (e *Engine) Stop() {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	e.stopLocked()
}

// Release stops playback and shuts down notification delivery. The engine
// cannot be started again.
func (e *Engine) Release() {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	e.stopLocked()

	if !e.released {
		e.released = true
		e.notes.close()
		e.log.Debug().Msg("released")
	}
}

// watch completes the shutdown the data path asked for.
func (e *Engine) watch(sess *session) {
	<-sess.done

	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	if e.cur != sess {
		return
	}

	if o, _ := sess.ending(); o == outcomeError {
		e.setState(Error)
	}

	e.stopLocked()
}

func (e *Engine) stopLocked() {
	sess := e.cur
	if sess == nil {
		return
	}

	e.setState(Stopping)
	sess.playing.Store(false)
	sess.shouldStop.Store(true)
	sess.finish(outcomeStopped, nil)

	e.teardown(sess)

	e.cur = nil
	e.live.Store(nil)
	e.setState(Idle)

	o, err := sess.ending()
	sess.terminal.Do(func() {
		if o == outcomeError {
			reason := err.Error()
			e.log.Error().Err(err).Msg("playback error")
			e.notes.post(func() { e.listener.OnPlaybackError(reason) })

			return
		}

		e.log.Info().Bool("eos", o == outcomeEndOfStream).Msg("playback stopped")
		e.notes.post(e.listener.OnPlaybackStopped)
	})
}

// teardown stops the device, joins the writer and releases the stream,
// probe and reader in that order.
func (e *Engine) teardown(sess *session) {
	if err := sess.stream.RequestStop(); err != nil {
		e.log.Warn().Err(err).Msg("request stop")
	}

	e.waitStopped(sess.stream)

	if sess.writerDone != nil {
		<-sess.writerDone
	}

	st := sess.stats()
	st.XRuns = sess.stream.XRunCount()
	e.last.Store(&st)
	e.log.Info().Int("xruns", st.XRuns).Int64("bytes", st.BytesDelivered).Msg("stream stopped")

	if err := sess.stream.Close(); err != nil {
		e.log.Warn().Err(err).Msg("close stream")
	}

	if sess.probe != nil {
		if err := sess.probe.Close(); err != nil {
			e.log.Warn().Err(err).Msg("close latency probe")
		}
	}

	sess.fileMu.Lock()
	if err := sess.reader.Close(); err != nil {
		e.log.Warn().Err(err).Msg("close reader")
	}
	sess.fileMu.Unlock()
}

func (e *Engine) waitStopped(s output.Stream) {
	deadline := time.Now().Add(e.stopTimeout)

	st := s.State()
	for st == output.StateStarting || st == output.StateStarted || st == output.StateStopping {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			e.log.Warn().Stringer("state", st).Dur("timeout", e.stopTimeout).Msg("device did not stop in time")

			return
		}

		next, err := s.WaitForStateChange(st, remaining)
		if err != nil {
			e.log.Warn().Err(err).Stringer("state", next).Msg("wait for stop")

			return
		}
		st = next
	}
}
