package engine

import "errors"

var (
	ErrNotIdle      = errors.New("engine: not idle")
	ErrReleased     = errors.New("engine: released")
	ErrReaderClosed = errors.New("engine: reader closed during playback")
	errShuttingDown = errors.New("engine: shutting down")
)
