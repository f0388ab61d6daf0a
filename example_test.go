// SPDX-License-Identifier: EPL-2.0

package pcmout_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ik5/pcmout"
	"github.com/ik5/pcmout/engine"
	"github.com/ik5/pcmout/formats/wav"
	"github.com/ik5/pcmout/internal/audiotest"
	"github.com/ik5/pcmout/output"
)

// Example_play writes a short tone and plays it through a simulated
// device in push mode.
func Example_play() {
	dir, err := os.MkdirTemp("", "pcmout")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		fmt.Println(err)
		return
	}

	err = wav.GenerateTone(f, wav.ToneSpec{SampleRate: 48000, Channels: 2, BitsPerSample: 16, Frames: 4800})
	f.Close()
	if err != nil {
		fmt.Println(err)
		return
	}

	stats, err := pcmout.Play(context.Background(), audiotest.NewDevice(10), path,
		engine.WithMode(output.PushMode),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("played %d bytes\n", stats.BytesDelivered)
	// Output: played 19200 bytes
}
