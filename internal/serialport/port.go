// Package serialport opens and fakes the UART devices the helmet talks to:
// the IMU bridge, the BLE-UART link module and the LED strip controller.
package serialport

import (
	"io"

	"go.bug.st/serial"
)

// Porter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// Opener opens a serial port at path. Open is the real implementation;
// tests substitute a function returning a TestablePort.
type Opener func(path string, opts PortOptions) (Porter, error)

// Open opens a real serial port at the given path using the provided options.
func Open(path string, opts PortOptions) (Porter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}
