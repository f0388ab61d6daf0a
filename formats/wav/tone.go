// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/pcmout/utils"
)

const toneChunkFrames = 4096

// ToneSpec describes a generated sine tone.
type ToneSpec struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Float         bool

	Frequency float64 // Hz, defaults to 440
	Amplitude float64 // 0..1, defaults to 0.5

	// Frames takes precedence over Duration when set.
	Frames   int
	Duration time.Duration
}

func (s ToneSpec) frames() int {
	if s.Frames > 0 {
		return s.Frames
	}

	return int(int64(s.SampleRate) * int64(s.Duration) / int64(time.Second))
}

func (s ToneSpec) sample(i int) float64 {
	freq := s.Frequency
	if freq == 0 {
		freq = 440
	}

	amp := s.Amplitude
	if amp == 0 {
		amp = 0.5
	}

	return amp * math.Sin(2*math.Pi*freq*float64(i)/float64(s.SampleRate))
}

// GenerateTone writes a complete wave file holding a sine tone. Integer PCM
// at 16, 24 and 32 bits and 32-bit float are supported.
func GenerateTone(ws io.WriteSeeker, tone ToneSpec) error {
	if tone.SampleRate <= 0 || tone.Channels <= 0 {
		return fmt.Errorf("%w: rate %d, channels %d", ErrUnsupportedEncoder, tone.SampleRate, tone.Channels)
	}

	if tone.Float {
		if tone.BitsPerSample != 32 {
			return fmt.Errorf("%w: %d-bit float", ErrUnsupportedEncoder, tone.BitsPerSample)
		}

		return writeFloatTone(ws, tone)
	}

	switch tone.BitsPerSample {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d-bit PCM", ErrUnsupportedEncoder, tone.BitsPerSample)
	}

	return writeIntTone(ws, tone)
}

func writeIntTone(ws io.WriteSeeker, tone ToneSpec) error {
	enc := gowav.NewEncoder(ws, tone.SampleRate, tone.BitsPerSample, tone.Channels, FormatPCM)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: tone.Channels, SampleRate: tone.SampleRate},
		Data:           make([]int, toneChunkFrames*tone.Channels),
		SourceBitDepth: tone.BitsPerSample,
	}

	total := tone.frames()
	for i := 0; i < total; i += toneChunkFrames {
		n := min(toneChunkFrames, total-i)
		buf.Data = buf.Data[:n*tone.Channels]

		for f := range n {
			v := utils.FloatToInt(tone.sample(i+f), tone.BitsPerSample)
			for c := range tone.Channels {
				buf.Data[f*tone.Channels+c] = v
			}
		}

		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("encode tone: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode tone: %w", err)
	}

	return nil
}

func writeFloatTone(w io.Writer, tone ToneSpec) error {
	total := tone.frames()
	hdr := Header{
		AudioFormat:   FormatIEEEFloat,
		NumChannels:   uint16(tone.Channels),
		SampleRate:    uint32(tone.SampleRate),
		BitsPerSample: 32,
		DataSize:      uint32(total * tone.Channels * 4),
	}

	if err := WriteHeader(w, hdr); err != nil {
		return err
	}

	buf := make([]byte, toneChunkFrames*tone.Channels*4)
	for i := 0; i < total; i += toneChunkFrames {
		n := min(toneChunkFrames, total-i)
		chunk := buf[:n*tone.Channels*4]

		for f := range n {
			bits := math.Float32bits(float32(tone.sample(i + f)))
			for c := range tone.Channels {
				off := (f*tone.Channels + c) * 4
				binary.LittleEndian.PutUint32(chunk[off:off+4], bits)
			}
		}

		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("encode tone: %w", err)
		}
	}

	return nil
}
