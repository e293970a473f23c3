package sensor

import (
	"errors"

	"github.com/robotalks/fpsensor.go/pkg/comm"
	"github.com/robotalks/fpsensor.go/pkg/proto"
)

var (
	// ErrUnsupportedBaud indicates a rate other than 9600 and 115200.
	ErrUnsupportedBaud = errors.New("unsupported baud rate")
	// ErrNoDevice indicates the sensor doesn't answer on any rate.
	ErrNoDevice = errors.New("no device responding")
	// ErrNotConnected indicates no transport is connected.
	ErrNotConnected = errors.New("not connected")
	// ErrInvalidSlot indicates a negative slot other than AutoSlot.
	ErrInvalidSlot = errors.New("invalid slot")
	// ErrDatabaseFull indicates no free slot is left for auto enrollment.
	ErrDatabaseFull = errors.New("no free slot")
	// ErrTemplateSize indicates a template of wrong length.
	ErrTemplateSize = errors.New("invalid template size")
	// ErrBadPayload indicates a data packet with wrong checksum.
	ErrBadPayload = errors.New("bad data packet")
	// ErrNoPayload indicates the data packet didn't arrive.
	ErrNoPayload = errors.New("data packet missing")
)

// IsRetryable tells whether the failed transaction may succeed when
// issued again.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, comm.ErrTimeout),
		errors.Is(err, proto.ErrCorruptFrame),
		errors.Is(err, comm.ErrShortTransfer),
		errors.Is(err, ErrBadPayload),
		errors.Is(err, ErrNoPayload):
		return true
	}
	return proto.IsNack(err)
}
