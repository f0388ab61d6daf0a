// SPDX-License-Identifier: EPL-2.0

package output

import (
	"errors"
	"fmt"

	"github.com/ik5/pcmout/audio"
)

var (
	ErrBuilderCreateFailed = fmt.Errorf("%w: builder create failed", audio.ErrStreamOpenFailed)
	ErrOpenFailed          = fmt.Errorf("%w: open failed", audio.ErrStreamOpenFailed)
	ErrRequestStartFailed  = fmt.Errorf("%w: request start failed", audio.ErrStreamOpenFailed)

	ErrTimeout         = errors.New("output: timed out")
	ErrClosed          = errors.New("output: stream closed")
	ErrModeUnsupported = errors.New("output: data path not supported by backend")
	ErrUnknownBackend  = errors.New("output: unknown backend")
	ErrNotStarted      = errors.New("output: stream not running")
)
