package probe

import "errors"

var ErrLineClosed = errors.New("gpio line is closed")
