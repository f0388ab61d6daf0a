// SPDX-License-Identifier: EPL-2.0

package paout

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/ik5/pcmout/audio"
	"github.com/ik5/pcmout/output"
)

// Name is the registry name of the backend.
const Name = "portaudio"

// Burst sizes per performance mode.
const (
	LowLatencyBurst  = 4 * time.Millisecond
	PowerSavingBurst = 10 * time.Millisecond
)

// Backend opens streams on the default PortAudio output device. The
// library is initialised by the first NewBuilder and terminated by Close.
type Backend struct {
	log zerolog.Logger

	mu   sync.Mutex
	refs int
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

func (b *Backend) NewBuilder() (output.Builder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.refs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return nil, fmt.Errorf("portaudio: initialize: %w", err)
		}

		b.log.Debug().Str("version", portaudio.VersionText()).Msg("portaudio initialized")
	}
	b.refs++

	return builder{b}, nil
}

// Close terminates PortAudio once for every successful NewBuilder.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	for ; b.refs > 0; b.refs-- {
		if e := portaudio.Terminate(); e != nil && err == nil {
			err = e
		}
	}

	return err
}

type builder struct{ b *Backend }

func (bl builder) Open(req output.Request) (output.Stream, error) {
	if !supported(req.Format) {
		return nil, fmt.Errorf("%w: %s", output.ErrModeUnsupported, req.Format)
	}

	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("portaudio: default output device: %w", err)
	}

	params := streamParameters(dev, req)
	s := newStream(req, params.FramesPerBuffer, max(req.CapacityFrames, params.FramesPerBuffer))

	if err := s.open(params); err != nil {
		return nil, fmt.Errorf("portaudio: open %s: %w", dev.Name, err)
	}

	bl.b.log.Debug().
		Str("device", dev.Name).
		Int("rate", s.SampleRate()).
		Int("channels", req.Channels).
		Stringer("format", req.Format).
		Int("burst", s.burst).
		Int("capacity", s.capacity).
		Msg("portaudio stream opened")

	return s, nil
}

func supported(f audio.SampleFormat) bool {
	switch f {
	case audio.FormatInt16, audio.FormatInt24Packed, audio.FormatInt32, audio.FormatFloat32:
		return true
	default:
		return false
	}
}

// streamParameters maps the request onto PortAudio's latency presets. The
// requested capacity becomes the suggested output latency.
func streamParameters(dev *portaudio.DeviceInfo, req output.Request) portaudio.StreamParameters {
	var p portaudio.StreamParameters

	burst := LowLatencyBurst
	if req.PerformanceMode == audio.PerformancePowerSaving {
		p = portaudio.HighLatencyParameters(nil, dev)
		burst = PowerSavingBurst
	} else {
		p = portaudio.LowLatencyParameters(nil, dev)
	}

	p.Output.Channels = req.Channels
	p.SampleRate = float64(req.SampleRate)
	p.FramesPerBuffer = burstFrames(req.SampleRate, burst)

	if req.CapacityFrames > 0 {
		p.Output.Latency = time.Duration(req.CapacityFrames) * time.Second / time.Duration(req.SampleRate)
	}

	return p
}

func burstFrames(rate int, d time.Duration) int {
	return max(int(int64(rate)*int64(d)/int64(time.Second)), 1)
}
