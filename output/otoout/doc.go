// SPDX-License-Identifier: EPL-2.0

// Package otoout is an output.Backend on top of github.com/ebitengine/oto/v3.
//
// oto allows a single context per process, so the first stream opened
// fixes the sample rate, channel count and format for the life of the
// Backend. Only 16 bit integer and 32 bit float samples with one or two
// channels are accepted.
//
// The oto player pulls audio through Stream.Read. In pull mode Read hands
// the data callback one burst at a time; in push mode it drains a bounded
// output.FrameQueue filled by Stream.Write. RequestStop lets the buffered
// audio play out before pausing the player.
package otoout
