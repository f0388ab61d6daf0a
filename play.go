// SPDX-License-Identifier: EPL-2.0

package pcmout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ik5/pcmout/engine"
	"github.com/ik5/pcmout/output"
)

// ErrPlaybackFailed is returned by Play when the session ends in an error
// notification.
var ErrPlaybackFailed = errors.New("pcmout: playback failed")

type waiter struct {
	done chan string
}

func (w waiter) OnPlaybackStarted()            {}
func (w waiter) OnPlaybackStopped()            { w.done <- "" }
func (w waiter) OnPlaybackError(reason string) { w.done <- reason }

// Play plays the wave file at path on backend and blocks until the file
// has been played, the device fails, or ctx is done. Cancelling ctx stops
// playback and is not reported as an error.
//
// opts are passed to engine.New; a listener option is replaced by Play's
// own.
//
// Example:
//
//	stats, err := pcmout.Play(ctx, otoout.New(), "tone.wav",
//	    engine.WithMode(output.PushMode),
//	)
func Play(ctx context.Context, backend output.Backend, path string, opts ...engine.Option) (engine.Stats, error) {
	w := waiter{done: make(chan string, 1)}

	eng := engine.New(backend, append(opts, engine.WithListener(w))...)
	defer eng.Release()

	cfg := eng.Config()
	if p := strings.TrimSpace(path); p != "" {
		cfg.AudioFilePath = p
	}

	if err := eng.SetConfig(cfg); err != nil {
		return engine.Stats{}, err
	}

	if err := eng.Start(); err != nil {
		return engine.Stats{}, err
	}

	var reason string
	select {
	case reason = <-w.done:
	case <-ctx.Done():
		eng.Stop()
		reason = <-w.done
	}

	if reason != "" {
		return eng.Stats(), fmt.Errorf("%w: %s", ErrPlaybackFailed, reason)
	}

	return eng.Stats(), nil
}
