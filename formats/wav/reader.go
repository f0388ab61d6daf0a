// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/ik5/pcmout/audio"
)

// readBufferSize is large enough that a realtime read rarely reaches the
// file system.
const readBufferSize = 64 * 1024

// Reader serves the PCM bytes of a wave file sequentially.
//
// ReadAudioData is meant for a single data path goroutine. Close may be
// called from another goroutine once that data path has stopped.
type Reader struct {
	closer io.Closer
	br     *bufio.Reader

	hdr    Header
	format audio.SampleFormat

	pos       int64 // absolute file offset
	remaining int64
	eof       bool
	err       error

	open atomic.Bool
}

var _ audio.Reader = (*Reader)(nil)

// Open opens path and parses its header. The returned error wraps one of
// audio.ErrIO, audio.ErrInvalidFormat or audio.ErrUnsupported.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(audio.ErrIO, err)
	}

	r, err := NewReader(f)
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return r, nil
}

// NewReader parses the header from src. If src is an io.Closer it is closed
// by Reader.Close.
func NewReader(src io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(src, readBufferSize)

	hdr, err := ParseHeader(br)
	if err != nil {
		return nil, err
	}

	format, err := hdr.SampleFormat()
	if err != nil {
		return nil, err
	}

	r := &Reader{
		br:        br,
		hdr:       hdr,
		format:    format,
		pos:       hdr.DataStart,
		remaining: int64(hdr.DataSize),
	}
	if c, ok := src.(io.Closer); ok {
		r.closer = c
	}
	r.open.Store(true)

	return r, nil
}

func (r *Reader) SampleRate() int                  { return int(r.hdr.SampleRate) }
func (r *Reader) ChannelCount() int                { return int(r.hdr.NumChannels) }
func (r *Reader) BitsPerSample() int               { return int(r.hdr.BitsPerSample) }
func (r *Reader) SampleFormat() audio.SampleFormat { return r.format }
func (r *Reader) Header() Header                   { return r.hdr }
func (r *Reader) IsOpen() bool                     { return r.open.Load() }

// Position is the absolute file offset of the next byte to be served. It
// stays within [DataStart, DataStart+DataSize].
func (r *Reader) Position() int64 { return r.pos }

// Err returns the read error that ended the stream early, if any.
func (r *Reader) Err() error { return r.err }

// ReadAudioData copies the next len(dst) bytes into dst and returns how many
// came from the file. A short count marks end-of-stream; the remainder of dst
// is zeroed and every later call returns 0.
func (r *Reader) ReadAudioData(dst []byte) int {
	if !r.open.Load() {
		r.err = ErrClosed
		clear(dst)

		return 0
	}

	if r.eof {
		clear(dst)

		return 0
	}

	want := len(dst)
	if int64(want) > r.remaining {
		want = int(r.remaining)
	}

	n, err := io.ReadFull(r.br, dst[:want])
	r.pos += int64(n)
	r.remaining -= int64(n)

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		r.err = errors.Join(audio.ErrIO, err)
	}

	if n < len(dst) {
		r.eof = true
		clear(dst[n:])
	}

	return n
}

// Close releases the file. Calling it more than once is safe.
func (r *Reader) Close() error {
	if !r.open.Swap(false) {
		return nil
	}

	if r.closer == nil {
		return nil
	}

	if err := r.closer.Close(); err != nil {
		return errors.Join(audio.ErrIO, err)
	}

	return nil
}
