package transport

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// Default timeouts of a serial port.
const (
	DefaultReadTimeout = 500 * time.Millisecond
	DefaultPollTimeout = 50 * time.Millisecond
)

// SerialOpener opens a UART device node with go.bug.st/serial.
type SerialOpener struct {
	Path string
	// ReadTimeout bounds a single Read. An idle gap of this length
	// ends a bulk transfer.
	ReadTimeout time.Duration
	// PollTimeout is how long Available waits for bytes to show up.
	PollTimeout time.Duration
}

// NewSerialOpener creates a SerialOpener with default timeouts.
func NewSerialOpener(path string) *SerialOpener {
	return &SerialOpener{
		Path:        path,
		ReadTimeout: DefaultReadTimeout,
		PollTimeout: DefaultPollTimeout,
	}
}

// Open implements Opener.
func (o *SerialOpener) Open(baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(o.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.Path, err)
	}
	if err = port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("reset %s: %w", o.Path, err)
	}
	p, err := NewSerialPort(port, o.ReadTimeout, o.PollTimeout)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("configure %s: %w", o.Path, err)
	}
	glog.V(2).Infof("opened %s at %d baud", o.Path, baud)
	return p, nil
}

// SerialPort adapts serial.Port to Port.
// go.bug.st/serial can't report the number of buffered bytes, so
// Available reads ahead with a short timeout and keeps what it got.
type SerialPort struct {
	port        serial.Port
	readTimeout time.Duration
	pollTimeout time.Duration
	pending     []byte
	buf         []byte
	closed      bool
}

// NewSerialPort wraps an opened serial.Port.
func NewSerialPort(port serial.Port, readTimeout, pollTimeout time.Duration) (*SerialPort, error) {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		return nil, err
	}
	return &SerialPort{
		port:        port,
		readTimeout: readTimeout,
		pollTimeout: pollTimeout,
		buf:         make([]byte, 256),
	}, nil
}

// Read implements io.Reader.
func (p *SerialPort) Read(b []byte) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	if len(p.pending) > 0 {
		n := copy(b, p.pending)
		p.pending = p.pending[n:]
		return n, nil
	}
	return p.port.Read(b)
}

// Write implements io.Writer.
func (p *SerialPort) Write(b []byte) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	return p.port.Write(b)
}

// Available implements Port.
func (p *SerialPort) Available() int {
	if p.closed {
		return 0
	}
	if len(p.pending) > 0 {
		return len(p.pending)
	}
	if err := p.port.SetReadTimeout(p.pollTimeout); err != nil {
		return 0
	}
	defer p.port.SetReadTimeout(p.readTimeout)
	n, err := p.port.Read(p.buf)
	if err != nil || n <= 0 {
		return 0
	}
	p.pending = append(p.pending, p.buf[:n]...)
	return len(p.pending)
}

// IsOpen implements Port.
func (p *SerialPort) IsOpen() bool {
	return !p.closed
}

// Close implements io.Closer.
func (p *SerialPort) Close() error {
	if p.closed {
		return nil
	}
	p.closed, p.pending = true, nil
	return p.port.Close()
}
