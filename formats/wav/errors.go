package wav

import (
	"errors"
	"fmt"

	"github.com/ik5/pcmout/audio"
)

var (
	ErrNotWavFile         = fmt.Errorf("%w: not a RIFF/WAVE file", audio.ErrInvalidFormat)
	ErrTruncatedHeader    = fmt.Errorf("%w: truncated header", audio.ErrInvalidFormat)
	ErrMissingFmtChunk    = fmt.Errorf("%w: data chunk before fmt chunk", audio.ErrInvalidFormat)
	ErrMissingDataChunk   = fmt.Errorf("%w: no data chunk", audio.ErrInvalidFormat)
	ErrBadFmtChunk        = fmt.Errorf("%w: fmt chunk shorter than 16 bytes", audio.ErrInvalidFormat)
	ErrUnsupportedEncoder = fmt.Errorf("%w: encoding not supported", audio.ErrUnsupported)
	ErrClosed             = errors.New("wav reader is closed")
)
