// SPDX-License-Identifier: EPL-2.0

package output

import (
	"errors"
	"fmt"
	"time"

	"github.com/ik5/pcmout/audio"
)

// Capacity and buffer sizing per performance mode.
const (
	LowLatencyCapacity  = 40 * time.Millisecond
	PowerSavingCapacity = 100 * time.Millisecond

	LowLatencyBursts  = 2
	PowerSavingBursts = 4
)

// Params are the reader's PCM parameters plus the host configuration.
type Params struct {
	SampleRate int
	Channels   int
	Format     audio.SampleFormat
	Config     audio.Configuration
}

// RequestedCapacity is the buffer capacity in frames asked of the device.
func RequestedCapacity(sampleRate int, mode audio.PerformanceMode) int {
	d := LowLatencyCapacity
	if mode == audio.PerformancePowerSaving {
		d = PowerSavingCapacity
	}

	return int(int64(sampleRate) * int64(d) / int64(time.Second))
}

// TargetBufferSize is the buffer size in frames once the device reports its
// burst, clamped to capacity.
func TargetBufferSize(framesPerBurst int, mode audio.PerformanceMode, capacity int) int {
	bursts := LowLatencyBursts
	if mode == audio.PerformancePowerSaving {
		bursts = PowerSavingBursts
	}

	size := framesPerBurst * bursts
	if capacity > 0 && size > capacity {
		size = capacity
	}

	return size
}

// Configure opens a stream on backend for p and applies the buffer sizing
// policy. In PushMode onData is ignored.
func Configure(backend Backend, p Params, path DataPath, onData DataCallback, onError ErrorCallback) (Stream, error) {
	builder, err := backend.NewBuilder()
	if err != nil {
		return nil, errors.Join(ErrBuilderCreateFailed, err)
	}

	req := Request{
		SampleRate:      p.SampleRate,
		Channels:        p.Channels,
		Format:          p.Format,
		Usage:           p.Config.Usage,
		ContentType:     p.Config.ContentType,
		PerformanceMode: p.Config.PerformanceMode,
		SharingMode:     p.Config.SharingMode,
		CapacityFrames:  RequestedCapacity(p.SampleRate, p.Config.PerformanceMode),
		ErrorCallback:   onError,
	}
	if path == PullMode {
		req.DataCallback = onData
	}

	s, err := builder.Open(req)
	if err != nil {
		return nil, errors.Join(ErrOpenFailed, err)
	}

	target := TargetBufferSize(s.FramesPerBurst(), p.Config.PerformanceMode, s.BufferCapacityFrames())
	if _, err := s.SetBufferSizeFrames(target); err != nil {
		s.Close()

		return nil, errors.Join(ErrOpenFailed, fmt.Errorf("set buffer size %d: %w", target, err))
	}

	return s, nil
}

// Start requests the device to start s.
func Start(s Stream) error {
	if err := s.RequestStart(); err != nil {
		return errors.Join(ErrRequestStartFailed, err)
	}

	return nil
}

// BurstDuration is how long one burst of s plays for.
func BurstDuration(s Stream) time.Duration {
	if s.SampleRate() <= 0 {
		return 0
	}

	return time.Duration(s.FramesPerBurst()) * time.Second / time.Duration(s.SampleRate())
}
