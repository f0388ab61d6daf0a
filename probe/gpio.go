// SPDX-License-Identifier: EPL-2.0

package probe

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DefaultGPIOPath is the value file of the measurement line.
const DefaultGPIOPath = "/sys/class/gpio/gpio376/value"

// Line is a digital output.
type Line interface {
	Set(high bool) error
	Close() error
}

var (
	levelHigh = [1]byte{'1'}
	levelLow  = [1]byte{'0'}
)

// SysfsLine drives a GPIO through its sysfs value file. The file is opened
// once so Set is a single pwrite.
type SysfsLine struct {
	fd   int
	path string
}

var _ Line = (*SysfsLine)(nil)

func OpenSysfsLine(path string) (*SysfsLine, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open gpio %s: %w", path, err)
	}

	return &SysfsLine{fd: fd, path: path}, nil
}

func (l *SysfsLine) Set(high bool) error {
	if l.fd < 0 {
		return ErrLineClosed
	}

	b := levelLow[:]
	if high {
		b = levelHigh[:]
	}

	if _, err := unix.Pwrite(l.fd, b, 0); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (l *SysfsLine) Close() error {
	if l.fd < 0 {
		return nil
	}

	fd := l.fd
	l.fd = -1

	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close gpio %s: %w", l.path, err)
	}

	return nil
}
