// Package transport defines the byte stream the sensor protocol runs on.
package transport

import (
	"errors"
	"io"
)

// Standard rates supported by the sensor.
const (
	Baud9600   = 9600
	Baud115200 = 115200
)

var (
	// ErrClosed indicates the port is already closed.
	ErrClosed = errors.New("port closed")
)

// Port is an opened byte stream.
// Read may return 0 bytes with a nil error when the read timeout of the
// port expires, it never blocks forever.
// Available reports bytes which can be read right away.
type Port interface {
	io.ReadWriter
	io.Closer

	Available() int
	IsOpen() bool
}

// Opener opens a Port at a specific baud rate.
type Opener interface {
	Open(baud int) (Port, error)
}

// OpenFunc is func type of Opener.
type OpenFunc func(baud int) (Port, error)

// Open implements Opener.
func (f OpenFunc) Open(baud int) (Port, error) {
	return f(baud)
}

// AlternateBaud returns the other standard rate.
func AlternateBaud(baud int) int {
	if baud == Baud115200 {
		return Baud9600
	}
	return Baud115200
}

// IsSupportedBaud checks if baud is one of the standard rates.
func IsSupportedBaud(baud int) bool {
	return baud == Baud9600 || baud == Baud115200
}
