package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady indicates the port is not open.
	ErrNotReady = errors.New("not ready")
	// ErrNoData indicates nothing has been received yet when reading
	// without waiting. Poll again later.
	ErrNoData = errors.New("no data yet")
	// ErrTimeout indicates no response packet arrived in time.
	ErrTimeout = errors.New("response timeout")
	// ErrShortTransfer indicates a bulk transfer ended before the
	// expected amount of data arrived.
	ErrShortTransfer = errors.New("short transfer")
)

// TransportError wraps failures of the underlying port. The connection
// may be unusable after it.
type TransportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError checks if err is caused by the port.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te) || errors.Is(err, ErrNotReady)
}
