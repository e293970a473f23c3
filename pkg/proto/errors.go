package proto

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptFrame indicates a packet failed checksum validation.
	ErrCorruptFrame = errors.New("corrupt frame")
)

// ErrorCode is the parameter of a NACK response.
type ErrorCode uint32

// Error codes reported by the sensor.
const (
	NackTimeout            ErrorCode = 0x1001
	NackInvalidBaudrate    ErrorCode = 0x1003
	NackInvalidPos         ErrorCode = 0x1004
	NackIsNotUsed          ErrorCode = 0x1005
	NackIsAlreadyUsed      ErrorCode = 0x1006
	NackCommErr            ErrorCode = 0x1007
	NackVerifyFailed       ErrorCode = 0x1008
	NackIdentifyFailed     ErrorCode = 0x1009
	NackDBIsFull           ErrorCode = 0x100A
	NackDBIsEmpty          ErrorCode = 0x100B
	NackTurnErr            ErrorCode = 0x100C
	NackBadFinger          ErrorCode = 0x100D
	NackEnrollFailed       ErrorCode = 0x100E
	NackIsNotSupported     ErrorCode = 0x100F
	NackDevErr             ErrorCode = 0x1010
	NackCaptureCanceled    ErrorCode = 0x1011
	NackInvalidParam       ErrorCode = 0x1012
	NackFingerIsNotPressed ErrorCode = 0x1013
)

var errorCodeNames = map[ErrorCode]string{
	NackTimeout:            "timeout",
	NackInvalidBaudrate:    "invalid baudrate",
	NackInvalidPos:         "invalid position",
	NackIsNotUsed:          "slot not used",
	NackIsAlreadyUsed:      "slot already used",
	NackCommErr:            "communication error",
	NackVerifyFailed:       "verification failed",
	NackIdentifyFailed:     "identification failed",
	NackDBIsFull:           "database full",
	NackDBIsEmpty:          "database empty",
	NackTurnErr:            "enrollment out of order",
	NackBadFinger:          "bad finger",
	NackEnrollFailed:       "enrollment failed",
	NackIsNotSupported:     "not supported",
	NackDevErr:             "device error",
	NackCaptureCanceled:    "capture canceled",
	NackInvalidParam:       "invalid parameter",
	NackFingerIsNotPressed: "finger not pressed",
}

// IsDuplicate reports whether the code is a slot index, which the sensor
// returns when the finger is already enrolled.
func (c ErrorCode) IsDuplicate() bool {
	return c < 0x1000
}

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	if c.IsDuplicate() {
		return fmt.Sprintf("duplicate of slot %d", uint32(c))
	}
	return fmt.Sprintf("error 0x%04x", uint32(c))
}

// NackError is returned when the sensor rejects a command.
type NackError struct {
	Command Command
	Code    ErrorCode
}

// Error implements error.
func (e *NackError) Error() string {
	return fmt.Sprintf("%s nack: %s", e.Command, e.Code)
}

// IsNack checks if err is a NackError, optionally with one of codes.
func IsNack(err error, codes ...ErrorCode) bool {
	var nack *NackError
	if !errors.As(err, &nack) {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if nack.Code == c {
			return true
		}
	}
	return false
}
