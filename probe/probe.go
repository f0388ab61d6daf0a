// SPDX-License-Identifier: EPL-2.0

package probe

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// DefaultInterval is the number of buffers between toggles.
const DefaultInterval = 100

// Probe mutes the output and flips a GPIO line every Interval buffers, so
// that a logic analyzer can line up the electrical edge with the audible
// gap.
//
// Apply runs on the data path goroutine only. Open and Close run on the
// control goroutine while the data path is stopped.
type Probe struct {
	interval int
	path     string
	open     func(path string) (Line, error)
	log      zerolog.Logger

	line  Line
	count int

	muted   atomic.Bool
	toggles atomic.Int64
}

type Option func(*Probe)

// WithInterval sets the number of buffers between toggles.
func WithInterval(n int) Option {
	return func(p *Probe) {
		if n > 0 {
			p.interval = n
		}
	}
}

// WithGPIOPath sets the sysfs value file. An empty path disables the line.
func WithGPIOPath(path string) Option {
	return func(p *Probe) { p.path = path }
}

// WithLineOpener replaces OpenSysfsLine.
func WithLineOpener(open func(path string) (Line, error)) Option {
	return func(p *Probe) { p.open = open }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Probe) { p.log = l }
}

func New(opts ...Option) *Probe {
	p := &Probe{
		interval: DefaultInterval,
		path:     DefaultGPIOPath,
		open: func(path string) (Line, error) {
			return OpenSysfsLine(path)
		},
		log: zerolog.Nop(),
	}

	for _, o := range opts {
		o(p)
	}

	return p
}

// Open resets the counters and opens the GPIO line. When the line cannot
// be opened the error is returned and the probe keeps working without it.
func (p *Probe) Open() error {
	p.count = 0
	p.muted.Store(false)
	p.toggles.Store(0)

	if p.path == "" {
		return nil
	}

	line, err := p.open(p.path)
	if err != nil {
		return err
	}

	p.line = line
	p.log.Debug().Str("gpio", p.path).Int("interval", p.interval).Msg("latency probe armed")

	return nil
}

// Apply is called once per delivered buffer.
func (p *Probe) Apply(buf []byte) {
	p.count++
	if p.count%p.interval == 0 {
		m := !p.muted.Load()
		p.muted.Store(m)
		p.toggles.Add(1)

		if p.line != nil {
			// low while muted
			_ = p.line.Set(!m)
		}
	}

	if p.muted.Load() {
		clear(buf)
	}
}

func (p *Probe) Muted() bool { return p.muted.Load() }

func (p *Probe) Toggles() int64 { return p.toggles.Load() }

func (p *Probe) Interval() int { return p.interval }

// Close releases the GPIO line. It is safe to call without Open.
func (p *Probe) Close() error {
	if p.line == nil {
		return nil
	}

	err := p.line.Close()
	p.line = nil
	p.log.Debug().Int64("toggles", p.toggles.Load()).Msg("latency probe closed")

	return err
}
