// SPDX-License-Identifier: EPL-2.0

package output

import (
	"strings"
	"time"

	"github.com/ik5/pcmout/audio"
)

// StreamState is the device side state of a stream.
type StreamState int

const (
	StateUninitialized StreamState = iota
	StateOpen
	StateStarting
	StateStarted
	StateStopping
	StateStopped
	StateClosing
	StateClosed
	StateDisconnected
)

var stateNames = [...]string{
	StateUninitialized: "uninitialized",
	StateOpen:          "open",
	StateStarting:      "starting",
	StateStarted:       "started",
	StateStopping:      "stopping",
	StateStopped:       "stopped",
	StateClosing:       "closing",
	StateClosed:        "closed",
	StateDisconnected:  "disconnected",
}

func (s StreamState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// CallbackResult tells the device whether to keep calling the data callback.
type CallbackResult int

const (
	Continue CallbackResult = iota
	Stop
)

// DataCallback fills buf with frames frames of audio. It runs on the
// device's realtime thread and must not block or allocate.
type DataCallback func(s Stream, buf []byte, frames int) CallbackResult

// ErrorCallback reports an asynchronous device error. It may run on any
// goroutine.
type ErrorCallback func(s Stream, err error)

// DataPath selects how audio reaches the device.
type DataPath int

const (
	// PullMode has the device call back for audio.
	PullMode DataPath = iota
	// PushMode has a writer goroutine block on Stream.Write.
	PushMode
)

func (d DataPath) String() string {
	if d == PushMode {
		return "push"
	}

	return "pull"
}

// ParseDataPath accepts "pull" and "push"; anything else is pull.
func ParseDataPath(s string) DataPath {
	if strings.EqualFold(strings.TrimSpace(s), "push") {
		return PushMode
	}

	return PullMode
}

// Request is everything a Builder needs to open a stream.
type Request struct {
	SampleRate int
	Channels   int
	Format     audio.SampleFormat

	Usage           audio.Usage
	ContentType     audio.ContentType
	PerformanceMode audio.PerformanceMode
	SharingMode     audio.SharingMode

	CapacityFrames int

	// DataCallback is nil for push mode streams.
	DataCallback  DataCallback
	ErrorCallback ErrorCallback
}

// Backend is a platform audio output.
type Backend interface {
	Name() string
	NewBuilder() (Builder, error)
}

// Builder opens streams.
type Builder interface {
	Open(req Request) (Stream, error)
}

// Stream is an opened output stream. The reported parameters may differ
// from the requested ones.
type Stream interface {
	SampleRate() int
	Channels() int
	Format() audio.SampleFormat

	FramesPerBurst() int
	BufferCapacityFrames() int
	BufferSizeFrames() int
	// SetBufferSizeFrames returns the size actually applied.
	SetBufferSizeFrames(frames int) (int, error)

	RequestStart() error
	RequestStop() error
	State() StreamState
	// WaitForStateChange blocks until the state differs from current or the
	// timeout expires, and returns the latest state.
	WaitForStateChange(current StreamState, timeout time.Duration) (StreamState, error)

	// Write blocks until frames frames from buf are queued or timeout
	// expires. It returns the number of frames written.
	Write(buf []byte, frames int, timeout time.Duration) (int, error)

	XRunCount() int
	Close() error
}

// BytesPerFrame is the frame size of s.
func BytesPerFrame(s Stream) int {
	return s.Format().BytesPerSample() * s.Channels()
}
