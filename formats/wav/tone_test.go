// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	gowav "github.com/go-audio/wav"

	"github.com/ik5/pcmout/audio"
)

func generateFile(t *testing.T, spec ToneSpec) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()

	if err := GenerateTone(f, spec); err != nil {
		t.Fatalf("GenerateTone() error = %v", err)
	}

	return path
}

func TestGenerateTone_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec ToneSpec
		want audio.SampleFormat
	}{
		{"int16 stereo", ToneSpec{SampleRate: 48000, Channels: 2, BitsPerSample: 16, Frames: 4800}, audio.FormatInt16},
		{"int24 mono", ToneSpec{SampleRate: 44100, Channels: 1, BitsPerSample: 24, Frames: 5000}, audio.FormatInt24Packed},
		{"int32 stereo", ToneSpec{SampleRate: 96000, Channels: 2, BitsPerSample: 32, Frames: 9000}, audio.FormatInt32},
		{"float32 mono", ToneSpec{SampleRate: 48000, Channels: 1, BitsPerSample: 32, Float: true, Frames: 4800}, audio.FormatFloat32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := generateFile(t, tt.spec)

			r, err := Open(path)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer r.Close()

			if r.SampleFormat() != tt.want {
				t.Errorf("SampleFormat() = %v, want %v", r.SampleFormat(), tt.want)
			}
			if r.SampleRate() != tt.spec.SampleRate {
				t.Errorf("SampleRate() = %d, want %d", r.SampleRate(), tt.spec.SampleRate)
			}
			if r.ChannelCount() != tt.spec.Channels {
				t.Errorf("ChannelCount() = %d, want %d", r.ChannelCount(), tt.spec.Channels)
			}

			wantSize := uint32(tt.spec.Frames * tt.spec.Channels * tt.spec.BitsPerSample / 8)
			if r.Header().DataSize != wantSize {
				t.Errorf("DataSize = %d, want %d", r.Header().DataSize, wantSize)
			}
		})
	}
}

func TestGenerateTone_MatchesGoAudioDecoder(t *testing.T) {
	t.Parallel()

	path := generateFile(t, ToneSpec{SampleRate: 48000, Channels: 2, BitsPerSample: 16, Duration: 250 * time.Millisecond})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	dec := gowav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		t.Fatal("go-audio decoder rejected the generated file")
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if int(dec.SampleRate) != r.SampleRate() {
		t.Errorf("SampleRate: go-audio %d, reader %d", dec.SampleRate, r.SampleRate())
	}
	if int(dec.NumChans) != r.ChannelCount() {
		t.Errorf("NumChans: go-audio %d, reader %d", dec.NumChans, r.ChannelCount())
	}
	if int(dec.BitDepth) != r.BitsPerSample() {
		t.Errorf("BitDepth: go-audio %d, reader %d", dec.BitDepth, r.BitsPerSample())
	}
	if r.Header().DataSize != 48000/4*4 {
		t.Errorf("DataSize = %d, want %d", r.Header().DataSize, 48000/4*4)
	}
}

func TestGenerateTone_FloatSamples(t *testing.T) {
	t.Parallel()

	spec := ToneSpec{SampleRate: 8000, Channels: 1, BitsPerSample: 32, Float: true, Frequency: 1000, Amplitude: 1, Frames: 8}
	r, err := Open(generateFile(t, spec))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	buf := make([]byte, 8*4)
	if n := r.ReadAudioData(buf); n != len(buf) {
		t.Fatalf("ReadAudioData() = %d, want %d", n, len(buf))
	}

	// 1 kHz at 8 kHz peaks on the third sample
	peak := math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12]))
	if math.Abs(float64(peak)-1) > 1e-6 {
		t.Errorf("sample[2] = %v, want 1", peak)
	}
}

func TestGenerateTone_Rejects(t *testing.T) {
	t.Parallel()

	tests := []ToneSpec{
		{SampleRate: 48000, Channels: 2, BitsPerSample: 8, Frames: 10},
		{SampleRate: 48000, Channels: 2, BitsPerSample: 16, Float: true, Frames: 10},
		{SampleRate: 0, Channels: 2, BitsPerSample: 16, Frames: 10},
	}

	for _, spec := range tests {
		f, err := os.Create(filepath.Join(t.TempDir(), "x.wav"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		err = GenerateTone(f, spec)
		f.Close()

		if !errors.Is(err, audio.ErrUnsupported) {
			t.Errorf("GenerateTone(%+v) error = %v, want audio.ErrUnsupported", spec, err)
		}
	}
}
