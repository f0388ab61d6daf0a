// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/pcmout/formats/wav"
)

// FileSpec describes a fixture file.
type FileSpec struct {
	SampleRate int
	Channels   int
	Bits       int
	Float      bool
	DataBytes  int
}

// S1 is 1 s of 48 kHz stereo 16-bit PCM: 192000 data bytes.
var S1 = FileSpec{SampleRate: 48000, Channels: 2, Bits: 16, DataBytes: 192000}

// S5 is 1 s of 48 kHz mono 32-bit float.
var S5 = FileSpec{SampleRate: 48000, Channels: 1, Bits: 32, Float: true, DataBytes: 192000}

// Bytes returns a complete file for spec. Sample bytes are a non-zero
// pattern so zero-filled tails are distinguishable.
func (spec FileSpec) Bytes() []byte {
	format := uint16(wav.FormatPCM)
	if spec.Float {
		format = wav.FormatIEEEFloat
	}

	buf := new(bytes.Buffer)
	wav.WriteHeader(buf, wav.Header{
		AudioFormat:   format,
		NumChannels:   uint16(spec.Channels),
		SampleRate:    uint32(spec.SampleRate),
		BitsPerSample: uint16(spec.Bits),
		DataSize:      uint32(spec.DataBytes),
	})

	data := make([]byte, spec.DataBytes)
	for i := range data {
		data[i] = byte(i%251 + 1)
	}
	buf.Write(data)

	return buf.Bytes()
}

// WriteWAV writes spec into a temporary directory and returns the path.
func WriteWAV(tb testing.TB, spec FileSpec) string {
	tb.Helper()

	return WriteFile(tb, "fixture.wav", spec.Bytes())
}

// WriteFile writes data under a temporary directory and returns the path.
func WriteFile(tb testing.TB, name string, data []byte) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatalf("write fixture: %v", err)
	}

	return path
}

// WriteBadMagic writes a file whose first four bytes are XXXX.
func WriteBadMagic(tb testing.TB) string {
	tb.Helper()

	data := S1.Bytes()
	copy(data, "XXXX")

	return WriteFile(tb, "bad.wav", data)
}
