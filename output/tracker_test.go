// SPDX-License-Identifier: EPL-2.0

package output_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ik5/pcmout/output"
)

func TestStateTracker_Wait(t *testing.T) {
	t.Parallel()

	tr := output.NewStateTracker(output.StateOpen)

	go func() {
		time.Sleep(10 * time.Millisecond)
		tr.Store(output.StateStarted)
	}()

	st, err := tr.Wait(output.StateOpen, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, output.StateStarted, st)

	// already different
	st, err = tr.Wait(output.StateOpen, 0)
	assert.NoError(t, err)
	assert.Equal(t, output.StateStarted, st)
}

func TestStateTracker_Timeout(t *testing.T) {
	t.Parallel()

	tr := output.NewStateTracker(output.StateStarted)

	st, err := tr.Wait(output.StateStarted, 5*time.Millisecond)
	assert.ErrorIs(t, err, output.ErrTimeout)
	assert.Equal(t, output.StateStarted, st)
}

func TestStateTracker_CompareAndSwap(t *testing.T) {
	t.Parallel()

	tr := output.NewStateTracker(output.StateOpen)

	assert.False(t, tr.CompareAndSwap(output.StateStopping, output.StateStarted))
	assert.True(t, tr.CompareAndSwap(output.StateStarting, output.StateOpen, output.StateStopped))
	assert.Equal(t, output.StateStarting, tr.Load())
}
