// SPDX-License-Identifier: EPL-2.0

package engine

// State is the engine's lifecycle state.
type State int32

const (
	Idle State = iota
	Starting
	Running
	Stopping
	Error
)

var stateNames = [...]string{
	Idle:     "idle",
	Starting: "starting",
	Running:  "running",
	Stopping: "stopping",
	Error:    "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// Listener receives playback notifications. Calls arrive in order on a
// single goroutine owned by the engine.
type Listener interface {
	OnPlaybackStarted()
	OnPlaybackStopped()
	OnPlaybackError(reason string)
}

type nopListener struct{}

func (nopListener) OnPlaybackStarted()     {}
func (nopListener) OnPlaybackStopped()     {}
func (nopListener) OnPlaybackError(string) {}

// Stats describes the current or most recent session.
type Stats struct {
	// BytesDelivered counts bytes read from the file and handed to the
	// device, excluding zero fill.
	BytesDelivered int64
	// Buffers is the number of callbacks or writes that carried audio.
	Buffers int64
	XRuns   int
}
