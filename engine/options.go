// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/pcmout/audio"
	"github.com/ik5/pcmout/formats/wav"
	"github.com/ik5/pcmout/output"
	"github.com/ik5/pcmout/probe"
)

// DefaultStopTimeout bounds how long Stop waits for the device to stop.
const DefaultStopTimeout = 60 * time.Second

// ReaderOpener opens the file named in the configuration.
type ReaderOpener func(path string) (audio.Reader, error)

type Option func(*Engine)

// WithMode selects the pull (callback) or push (writer) data path.
func WithMode(m output.DataPath) Option {
	return func(e *Engine) { e.mode = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithListener(l Listener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listener = l
		}
	}
}

// WithProbe enables the latency probe. A nil probe disables it.
func WithProbe(p *probe.Probe) Option {
	return func(e *Engine) { e.probe = p }
}

func WithStopTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.stopTimeout = d
		}
	}
}

func WithReaderOpener(open ReaderOpener) Option {
	return func(e *Engine) {
		if open != nil {
			e.openReader = open
		}
	}
}

func WithConfiguration(cfg audio.Configuration) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func openWav(path string) (audio.Reader, error) {
	r, err := wav.Open(path)
	if err != nil {
		return nil, err
	}

	return r, nil
}
