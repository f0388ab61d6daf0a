// SPDX-License-Identifier: EPL-2.0

// Package paout is an output.Backend on top of
// github.com/gordonklaus/portaudio. It supports 16, 24 and 32 bit integer
// and 32 bit float samples on the default output device.
//
// Pull mode streams hand the PortAudio callback buffer straight to the data
// callback. Push mode streams use the blocking write API one burst at a
// time, so the write timeout is not honoured.
//
// Call Backend.Close when done to terminate the library.
package paout
