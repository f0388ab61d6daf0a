// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes RIFF/WAVE files holding uncompressed PCM.
//
// # Supported Formats
//
//   - Integer PCM, 16, 24 (packed) and 32 bits
//   - IEEE float, 32 bits
//   - 1 to 16 channels, up to 192 kHz
//
// 8-bit files have a valid header but no output format; Open reports them
// as audio.ErrUnsupported.
//
// # Reading
//
// The header is found by walking the sub-chunks, so files carrying LIST,
// fact or other chunks before the samples work, and odd-sized chunks are
// skipped together with their pad byte:
//
//	r, err := wav.Open("/data/48k_2ch_16bit.wav")
//	if err != nil {
//	    // errors.Is(err, audio.ErrIO), audio.ErrInvalidFormat, audio.ErrUnsupported
//	}
//	defer r.Close()
//
//	buf := make([]byte, 192*4)
//	for r.ReadAudioData(buf) == len(buf) {
//	    // deliver buf
//	}
//
// ReadAudioData is safe to call from a realtime thread: it reads through a
// buffered reader, never allocates, and zero-fills whatever the file could
// not supply. Once it returns a short count every later call returns 0.
//
// # Writing
//
// WriteHeader emits the canonical 44-byte header. GenerateTone writes a
// complete sine tone file, useful for fixtures and for checking an output
// path by ear:
//
//	f, _ := os.Create("tone.wav")
//	err := wav.GenerateTone(f, wav.ToneSpec{
//	    SampleRate:    48000,
//	    Channels:      2,
//	    BitsPerSample: 16,
//	    Duration:      time.Second,
//	})
package wav
