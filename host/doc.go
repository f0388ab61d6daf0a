// SPDX-License-Identifier: EPL-2.0

// Package host exposes the engine to an embedding host through a small
// boolean API: initialize, configure with plain strings, start, stop and
// release. Notifications are forwarded to the host's Listener and
// IsPlaying mirrors the last one delivered.
//
// Only files with a .wav extension are accepted by StartPlayback.
package host
