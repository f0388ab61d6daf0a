// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidFormat    = errors.New("invalid wave format")
	ErrIO               = errors.New("audio file i/o error")
	ErrUnsupported      = errors.New("unsupported sample format")
	ErrStreamOpenFailed = errors.New("output stream open failed")
	ErrDeviceError      = errors.New("output device error")
)
