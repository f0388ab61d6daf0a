// SPDX-License-Identifier: EPL-2.0

// Package audio holds the vocabulary shared by the reader, the output layer
// and the playback engine.
//
// # Sample Formats
//
// SampleFormat names the four layouts an output stream can carry:
//
//	audio.FormatInt16        // 2 bytes
//	audio.FormatInt24Packed  // 3 bytes
//	audio.FormatInt32        // 4 bytes
//	audio.FormatFloat32      // 4 bytes
//
// A frame is one sample per channel, so the size of a frame is
// BytesPerSample() * channels.
//
// # Reader Interface
//
// The engine pulls PCM through the Reader interface:
//
//	type Reader interface {
//	    SampleRate() int
//	    ChannelCount() int
//	    SampleFormat() SampleFormat
//	    ReadAudioData(dst []byte) int
//	    IsOpen() bool
//	    Close() error
//	}
//
// ReadAudioData always leaves exactly len(dst) usable bytes in dst: when the
// file runs out the tail is zeroed and the short count signals end-of-stream.
//
// # Configuration
//
// Hosts describe a playback with a Configuration. The string parsers accept
// both short names (MEDIA, MUSIC, LOW_LATENCY, SHARED) and the platform
// spellings (AAUDIO_USAGE_MEDIA, ...); anything unknown maps to the default:
//
//	cfg := audio.ParseConfiguration("GAME", "MUSIC", "LOW_LATENCY", "SHARED", "/data/a.wav")
//
// # Errors
//
// ErrInvalidFormat, ErrIO, ErrUnsupported, ErrStreamOpenFailed and
// ErrDeviceError are the error kinds surfaced by every layer. Use errors.Is
// to classify a failure.
package audio
