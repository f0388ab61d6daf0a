// SPDX-License-Identifier: EPL-2.0

package host

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ik5/pcmout/audio"
	"github.com/ik5/pcmout/engine"
	"github.com/ik5/pcmout/output"
)

// Listener receives playback notifications from the engine.
type Listener = engine.Listener

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Started func()
	Stopped func()
	Error   func(reason string)
}

func (l ListenerFuncs) OnPlaybackStarted() {
	if l.Started != nil {
		l.Started()
	}
}

func (l ListenerFuncs) OnPlaybackStopped() {
	if l.Stopped != nil {
		l.Stopped()
	}
}

func (l ListenerFuncs) OnPlaybackError(reason string) {
	if l.Error != nil {
		l.Error(reason)
	}
}

// Bridge is the host facing control surface. It owns the one engine
// instance and answers every call with a plain success flag, logging the
// reason for a refusal.
type Bridge struct {
	backend  output.Backend
	listener Listener
	engOpts  []engine.Option
	log      zerolog.Logger

	mu      sync.Mutex
	eng     *engine.Engine
	playing atomic.Bool
}

type Option func(*Bridge)

func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithEngineOptions passes options through to engine.New.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(b *Bridge) { b.engOpts = append(b.engOpts, opts...) }
}

func NewBridge(backend output.Backend, listener Listener, opts ...Option) *Bridge {
	if listener == nil {
		listener = ListenerFuncs{}
	}

	b := &Bridge{
		backend:  backend,
		listener: listener,
		log:      zerolog.Nop(),
	}

	for _, o := range opts {
		o(b)
	}

	return b
}

// Initialize creates the engine and sets the file to play. Calling it
// again only changes the file.
func (b *Bridge) Initialize(filePath string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eng == nil {
		opts := append([]engine.Option{
			engine.WithLogger(b.log),
			engine.WithListener(b.forward()),
		}, b.engOpts...)

		b.eng = engine.New(b.backend, opts...)
	}

	cfg := b.eng.Config()
	if p := strings.TrimSpace(filePath); p != "" {
		cfg.AudioFilePath = p
	}

	if err := b.eng.SetConfig(cfg); err != nil {
		b.log.Warn().Err(err).Msg("initialize")
		return false
	}

	b.log.Info().Str("path", cfg.AudioFilePath).Msg("initialized")

	return true
}

// SetConfig applies the host's string values. It is refused while playing.
func (b *Bridge) SetConfig(usage, contentType, performanceMode, sharingMode, filePath string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eng == nil {
		b.log.Warn().Msg("set config before initialize")
		return false
	}

	cfg := audio.ParseConfiguration(usage, contentType, performanceMode, sharingMode, filePath)
	if err := b.eng.SetConfig(cfg); err != nil {
		b.log.Warn().Err(err).Msg("cannot change config while playing")
		return false
	}

	return true
}

func (b *Bridge) StartPlayback() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eng == nil {
		b.log.Warn().Msg("start before initialize")
		return false
	}

	path := b.eng.Config().AudioFilePath
	if !validPath(path) {
		b.log.Warn().Str("path", path).Msg("invalid audio file path")
		return false
	}

	if err := b.eng.Start(); err != nil {
		b.log.Error().Err(err).Str("path", path).Msg("start playback")
		return false
	}

	return true
}

func (b *Bridge) StopPlayback() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eng != nil {
		b.eng.Stop()
	}
}

// Release stops playback and drops the engine. Initialize may be called
// again afterwards.
func (b *Bridge) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eng == nil {
		return
	}

	b.eng.Release()
	b.eng = nil
	b.log.Info().Msg("released")
}

// IsPlaying mirrors the last notification delivered to the host.
func (b *Bridge) IsPlaying() bool { return b.playing.Load() }

// State is the engine's state, or Idle before Initialize.
func (b *Bridge) State() engine.State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eng == nil {
		return engine.Idle
	}

	return b.eng.State()
}

// Stats of the current or last session.
func (b *Bridge) Stats() engine.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eng == nil {
		return engine.Stats{}
	}

	return b.eng.Stats()
}

func (b *Bridge) forward() Listener {
	return ListenerFuncs{
		Started: func() {
			b.playing.Store(true)
			b.listener.OnPlaybackStarted()
		},
		Stopped: func() {
			b.playing.Store(false)
			b.listener.OnPlaybackStopped()
		},
		Error: func(reason string) {
			b.playing.Store(false)
			b.listener.OnPlaybackError(reason)
		},
	}
}

func validPath(p string) bool {
	if strings.TrimSpace(p) == "" {
		return false
	}

	return strings.EqualFold(filepath.Ext(p), ".wav")
}
