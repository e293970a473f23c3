// Package proto provides the frame codec of the fingerprint sensor protocol.
package proto

// The sensor speaks a request/response protocol over a UART. Every command
// and every response is a fixed 12-byte packet:
//
//	0x55 0xAA | 0x01 0x00 | param (LE32) | cmd/ack (LE16) | checksum (LE16)
//
// The checksum is the low 16 bits of the sum of the first 10 bytes.
// Some responses are followed by a data packet starting with 0x5A 0xA5,
// the device id, a variable length body and another 16-bit checksum.
// Data packets carry no length, the host must know what to expect.
//
// Producer: host (commands), sensor (responses and data)
// Consumer: sensor (commands), host (responses and data)
