// SPDX-License-Identifier: EPL-2.0

package otoout

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"

	"github.com/ik5/pcmout/audio"
	"github.com/ik5/pcmout/output"
)

// Name is the registry name of the backend.
const Name = "oto"

// BurstDuration is the amount of audio handed to the callback per call.
const BurstDuration = 4 * time.Millisecond

var ErrContextMismatch = errors.New("otoout: context already created with other parameters")

// Backend plays through the process wide oto context. The context is
// created by the first Open and fixes the rate, channels and format of
// every later stream.
type Backend struct {
	log zerolog.Logger

	mu      sync.Mutex
	ctx     *oto.Context
	ctxOpts oto.NewContextOptions
}

type Option func(*Backend)

func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) { b.log = l }
}

func New(opts ...Option) *Backend {
	b := &Backend{log: zerolog.Nop()}
	for _, o := range opts {
		o(b)
	}

	return b
}

func (b *Backend) Name() string { return Name }

func (b *Backend) NewBuilder() (output.Builder, error) { return builder{b}, nil }

type builder struct{ b *Backend }

func (bl builder) Open(req output.Request) (output.Stream, error) {
	format, err := otoFormat(req.Format)
	if err != nil {
		return nil, err
	}

	if req.Channels < 1 || req.Channels > 2 {
		return nil, fmt.Errorf("%w: %d channels", output.ErrModeUnsupported, req.Channels)
	}

	burst := burstFrames(req.SampleRate)
	capacity := max(req.CapacityFrames, burst)

	opts := oto.NewContextOptions{
		SampleRate:   req.SampleRate,
		ChannelCount: req.Channels,
		Format:       format,
		BufferSize:   time.Duration(capacity) * time.Second / time.Duration(req.SampleRate),
	}

	ctx, err := bl.b.context(opts)
	if err != nil {
		return nil, err
	}

	s := newStream(req, burst, capacity)
	s.player = ctx.NewPlayer(s)
	s.player.SetBufferSize(capacity * s.frameSize)

	bl.b.log.Debug().
		Int("rate", req.SampleRate).
		Int("channels", req.Channels).
		Stringer("format", req.Format).
		Int("burst", burst).
		Int("capacity", capacity).
		Msg("oto stream opened")

	return s, nil
}

func (b *Backend) context(opts oto.NewContextOptions) (*oto.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx != nil {
		if opts.SampleRate != b.ctxOpts.SampleRate ||
			opts.ChannelCount != b.ctxOpts.ChannelCount ||
			opts.Format != b.ctxOpts.Format {
			return nil, ErrContextMismatch
		}

		return b.ctx, nil
	}

	ctx, ready, err := oto.NewContext(&opts)
	if err != nil {
		return nil, err
	}
	<-ready

	b.ctx, b.ctxOpts = ctx, opts

	return ctx, nil
}

func otoFormat(f audio.SampleFormat) (oto.Format, error) {
	switch f {
	case audio.FormatInt16:
		return oto.FormatSignedInt16LE, nil
	case audio.FormatFloat32:
		return oto.FormatFloat32LE, nil
	default:
		return 0, fmt.Errorf("%w: %s", output.ErrModeUnsupported, f)
	}
}

func burstFrames(rate int) int {
	return max(int(int64(rate)*int64(BurstDuration)/int64(time.Second)), 1)
}
