// SPDX-License-Identifier: EPL-2.0

// Package pcmout plays PCM wave files with low latency.
//
// The work is split over a few sub-packages:
//   - formats/wav parses RIFF/WAVE headers and streams the data chunk
//   - output is the contract with the audio device, with backends in
//     output/otoout and output/paout
//   - engine runs a playback session in pull (callback) or push (writer)
//     mode and reports Started, Stopped and Error notifications
//   - probe mutes the output periodically and drives a GPIO line for
//     latency measurements
//   - host wraps the engine in a boolean API for an embedding host
//   - config reads PCMOUT_* environment variables and JSON presets
//
// # Quick Start
//
// Play blocks until the file has been played:
//
//	stats, err := pcmout.Play(ctx, otoout.New(), "/data/48k_2ch_16bit.wav")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(stats.BytesDelivered, "bytes,", stats.XRuns, "underruns")
//
// For control over the session lifetime use engine.New directly, see the
// engine package.
//
// # Supported Files
//
// Uncompressed PCM wave files with 16, 24 or 32 bit integer samples or 32
// bit float samples, 1 to 16 channels and up to 192 kHz. Which of those a
// device accepts depends on the backend.
package pcmout
