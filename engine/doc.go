// SPDX-License-Identifier: EPL-2.0

// Package engine plays a wave file through an output backend with either a
// realtime pull callback or a push writer goroutine.
//
// # Lifecycle
//
//	Idle ──Start──▶ Starting ──▶ Running ──Stop / end-of-stream / error──▶ Stopping ──▶ Idle
//
// Start opens the reader, configures the stream, marks the session as
// playing and requests the device start, in that order. Any failure undoes
// the steps already taken and leaves the engine Idle without sending a
// notification; the error is returned instead.
//
// Stop is idempotent. It waits (bounded by WithStopTimeout) for the device
// to report Stopped before closing the stream and the reader.
//
// # Data Paths
//
// In pull mode the device calls back on its own thread. The callback reads
// straight from the reader, never blocks on the control lock and never
// allocates. In push mode a writer goroutine reads one burst at a time and
// blocks in Stream.Write with a timeout of four burst durations.
//
// When the data path reaches end-of-stream, or the device reports an
// error, it only records the outcome. A watcher goroutine then takes the
// control lock and performs the same shutdown as Stop.
//
// # Notifications
//
// Every successful Start produces exactly one OnPlaybackStarted followed by
// exactly one OnPlaybackStopped or OnPlaybackError. Notifications are
// delivered in order on a dedicated goroutine, so a listener may call back
// into the engine.
//
// Example:
//
//	eng := engine.New(backend,
//	    engine.WithMode(output.PushMode),
//	    engine.WithListener(listener),
//	    engine.WithLogger(logger),
//	)
//	defer eng.Release()
//
//	if err := eng.SetConfig(cfg); err != nil {
//	    return err
//	}
//	if err := eng.Start(); err != nil {
//	    return err
//	}
package engine
