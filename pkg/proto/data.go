package proto

import "encoding/binary"

// Sizes of known data packet bodies.
const (
	TemplateSize    = 498
	ImageSize       = 256 * 256
	RawImageSize    = 320 * 240 / 4
	dataPayloadWrap = 4 // device id + checksum
)

// TemplatePayloadSize is the number of bytes following the data marker
// when a template is transferred.
const TemplatePayloadSize = TemplateSize + dataPayloadWrap

// DataPayload is the content of a data packet following the 0x5A 0xA5
// marker: device id, body and checksum.
type DataPayload []byte

// PayloadSize returns the payload size for a body of n bytes.
func PayloadSize(n int) int {
	return n + dataPayloadWrap
}

// EncodeData wraps body into a data payload (without the marker).
func EncodeData(body []byte) DataPayload {
	p := make(DataPayload, len(body)+dataPayloadWrap)
	p[0], p[1] = DeviceID0, DeviceID1
	copy(p[2:], body)
	sum := uint16(DataStart0) + uint16(DataStart1) + Checksum(p[:len(p)-2])
	binary.LittleEndian.PutUint16(p[len(p)-2:], sum)
	return p
}

// Body returns the data between the device id and the checksum.
func (p DataPayload) Body() []byte {
	if len(p) < dataPayloadWrap {
		return nil
	}
	return p[2 : len(p)-2]
}

// ChecksumValid verifies the trailing checksum, which covers the marker,
// the device id and the body.
func (p DataPayload) ChecksumValid() bool {
	if len(p) < dataPayloadWrap {
		return false
	}
	n := len(p) - 2
	sum := uint16(DataStart0) + uint16(DataStart1) + Checksum(p[:n])
	return sum == binary.LittleEndian.Uint16(p[n:])
}

// WithMarker prefixes the payload with the data packet marker, as the
// sensor expects for uploads.
func WithMarker(payload []byte) []byte {
	b := make([]byte, len(payload)+2)
	b[0], b[1] = DataStart0, DataStart1
	copy(b[2:], payload)
	return b
}
