// SPDX-License-Identifier: EPL-2.0

// Package output is the contract between the playback engine and an audio
// device.
//
// A Backend hands out Builders, a Builder opens a Stream for a Request. The
// stream reports the parameters the device actually granted, which may
// differ from the request.
//
// Configure applies the buffer sizing policy:
//
//	performance mode  capacity requested  buffer size
//	LOW_LATENCY       40 ms               2 bursts
//	POWER_SAVING      100 ms              4 bursts
//
// and the buffer size is clamped to the capacity the device reports.
//
// Backends that drive the device from software can build on StateTracker
// for the stream state machine and FrameQueue for push mode buffering.
package output
