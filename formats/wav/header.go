// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/riff"

	"github.com/ik5/pcmout/audio"
)

// Audio format tags found in the fmt chunk.
const (
	FormatPCM       = 1
	FormatIEEEFloat = 3
)

// Validation limits.
const (
	MaxSampleRate = 192000
	MaxChannels   = 16
)

// canonicalHeaderSize is RIFF(12) + fmt(8+16) + data(8).
const canonicalHeaderSize = 44

// Header is the decoded description of a wave file.
type Header struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
	// DataStart is the absolute byte offset of the first sample.
	DataStart int64
}

// SampleFormat maps the format tag and bit depth to an output sample
// format. Combinations without a mapping return audio.ErrUnsupported.
func (h Header) SampleFormat() (audio.SampleFormat, error) {
	switch {
	case h.AudioFormat == FormatPCM && h.BitsPerSample == 16:
		return audio.FormatInt16, nil
	case h.AudioFormat == FormatPCM && h.BitsPerSample == 24:
		return audio.FormatInt24Packed, nil
	case h.AudioFormat == FormatPCM && h.BitsPerSample == 32:
		return audio.FormatInt32, nil
	case h.AudioFormat == FormatIEEEFloat && h.BitsPerSample == 32:
		return audio.FormatFloat32, nil
	}

	return audio.FormatInvalid, fmt.Errorf("%w: format %d with %d bits",
		audio.ErrUnsupported, h.AudioFormat, h.BitsPerSample)
}

// Validate checks the ranges a playable header must satisfy.
func (h Header) Validate() error {
	switch {
	case h.AudioFormat != FormatPCM && h.AudioFormat != FormatIEEEFloat:
		return fmt.Errorf("%w: audio format %d", audio.ErrInvalidFormat, h.AudioFormat)
	case h.NumChannels < 1 || h.NumChannels > MaxChannels:
		return fmt.Errorf("%w: %d channels", audio.ErrInvalidFormat, h.NumChannels)
	case h.SampleRate == 0 || h.SampleRate > MaxSampleRate:
		return fmt.Errorf("%w: sample rate %d", audio.ErrInvalidFormat, h.SampleRate)
	case h.BitsPerSample != 8 && h.BitsPerSample != 16 && h.BitsPerSample != 24 && h.BitsPerSample != 32:
		return fmt.Errorf("%w: %d bits per sample", audio.ErrInvalidFormat, h.BitsPerSample)
	case h.DataSize == 0:
		return fmt.Errorf("%w: empty data chunk", audio.ErrInvalidFormat)
	}

	return nil
}

// FrameSize is the number of bytes in one interleaved frame.
func (h Header) FrameSize() int {
	return int(h.NumChannels) * int(h.BitsPerSample/8)
}

// Duration of the data chunk.
func (h Header) Duration() time.Duration {
	fs := h.FrameSize()
	if fs == 0 || h.SampleRate == 0 {
		return 0
	}

	frames := int64(h.DataSize) / int64(fs)

	return time.Duration(frames) * time.Second / time.Duration(h.SampleRate)
}

// FormatInfo returns a one-line human readable summary.
func (h Header) FormatInfo() string {
	kind := "PCM"
	if h.AudioFormat == FormatIEEEFloat {
		kind = "Float"
	}

	return fmt.Sprintf("%s %d-bit, %d ch, %d Hz, %d bytes (%.3fs)",
		kind, h.BitsPerSample, h.NumChannels, h.SampleRate, h.DataSize,
		h.Duration().Seconds())
}

// countingReader keeps track of the absolute offset while walking chunks.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}

func (c *countingReader) readFull(p []byte) error {
	if _, err := io.ReadFull(c, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncatedHeader
		}

		return errors.Join(audio.ErrIO, err)
	}

	return nil
}

func (c *countingReader) skip(n int64) error {
	if n <= 0 {
		return nil
	}

	if _, err := io.CopyN(io.Discard, c, n); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrTruncatedHeader
		}

		return errors.Join(audio.ErrIO, err)
	}

	return nil
}

// ParseHeader walks the RIFF chunks of r up to the start of the data chunk.
// On success r is positioned at the first sample byte. Unknown chunks are
// skipped and odd-sized chunks are followed by one pad byte.
func ParseHeader(r io.Reader) (Header, error) {
	h, err := parseChunks(r)
	if err != nil {
		return Header{}, err
	}

	if err := h.Validate(); err != nil {
		return Header{}, err
	}

	return h, nil
}

func parseChunks(r io.Reader) (Header, error) {
	cr := &countingReader{r: r}

	var riffHdr [12]byte
	if err := cr.readFull(riffHdr[:]); err != nil {
		if errors.Is(err, ErrTruncatedHeader) {
			return Header{}, ErrNotWavFile
		}

		return Header{}, err
	}

	if [4]byte(riffHdr[0:4]) != riff.RiffID || [4]byte(riffHdr[8:12]) != riff.WavFormatID {
		return Header{}, ErrNotWavFile
	}

	var (
		h      Header
		hasFmt bool
		chunk  [8]byte
		body   [16]byte
	)

	for {
		if err := cr.readFull(chunk[:]); err != nil {
			if errors.Is(err, ErrTruncatedHeader) {
				return Header{}, ErrMissingDataChunk
			}

			return Header{}, err
		}

		id := [4]byte(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		pad := size & 1

		switch id {
		case riff.FmtID:
			if size < int64(len(body)) {
				return Header{}, ErrBadFmtChunk
			}

			if err := cr.readFull(body[:]); err != nil {
				return Header{}, err
			}

			h.AudioFormat = binary.LittleEndian.Uint16(body[0:2])
			h.NumChannels = binary.LittleEndian.Uint16(body[2:4])
			h.SampleRate = binary.LittleEndian.Uint32(body[4:8])
			h.ByteRate = binary.LittleEndian.Uint32(body[8:12])
			h.BlockAlign = binary.LittleEndian.Uint16(body[12:14])
			h.BitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			hasFmt = true

			// cbSize and any extension bytes
			if err := cr.skip(size - int64(len(body)) + pad); err != nil {
				return Header{}, err
			}

		case riff.DataFormatID:
			if !hasFmt {
				return Header{}, ErrMissingFmtChunk
			}

			h.DataSize = uint32(size)
			h.DataStart = cr.n

			return h, nil

		default:
			if err := cr.skip(size + pad); err != nil {
				return Header{}, err
			}
		}
	}
}

// WriteHeader writes the canonical 44-byte header for h. ByteRate and
// BlockAlign are derived from the other fields when zero.
func WriteHeader(w io.Writer, h Header) error {
	blockAlign := h.BlockAlign
	if blockAlign == 0 {
		blockAlign = h.NumChannels * (h.BitsPerSample / 8)
	}

	byteRate := h.ByteRate
	if byteRate == 0 {
		byteRate = h.SampleRate * uint32(blockAlign)
	}

	var buf [canonicalHeaderSize]byte

	// RIFF header (12 bytes)
	copy(buf[0:4], riff.RiffID[:])
	binary.LittleEndian.PutUint32(buf[4:8], canonicalHeaderSize-8+h.DataSize)
	copy(buf[8:12], riff.WavFormatID[:])

	// fmt chunk (24 bytes)
	copy(buf[12:16], riff.FmtID[:])
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], h.AudioFormat)
	binary.LittleEndian.PutUint16(buf[22:24], h.NumChannels)
	binary.LittleEndian.PutUint32(buf[24:28], h.SampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], byteRate)
	binary.LittleEndian.PutUint16(buf[32:34], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], h.BitsPerSample)

	// data chunk header (8 bytes)
	copy(buf[36:40], riff.DataFormatID[:])
	binary.LittleEndian.PutUint32(buf[40:44], h.DataSize)

	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}
