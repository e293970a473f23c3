package proto

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PacketSize is the size of a command or response packet.
const PacketSize = 12

// Packet markers and constants.
const (
	PacketStart0 byte = 0x55
	PacketStart1 byte = 0xAA
	DataStart0   byte = 0x5A
	DataStart1   byte = 0xA5

	DeviceID0 byte = 0x01
	DeviceID1 byte = 0x00

	Ack  byte = 0x30
	Nack byte = 0x31
)

// Packet is an encoded command or response packet.
type Packet [PacketSize]byte

// Response contains the fields decoded from a response packet.
type Response struct {
	Ack           bool
	Param         uint32
	Code          uint16
	ChecksumValid bool
}

// Checksum calculates the additive 16-bit checksum.
func Checksum(b []byte) uint16 {
	var sum uint16
	for _, v := range b {
		sum += uint16(v)
	}
	return sum
}

func encode(param uint32, code uint16) (p Packet) {
	p[0], p[1] = PacketStart0, PacketStart1
	p[2], p[3] = DeviceID0, DeviceID1
	binary.LittleEndian.PutUint32(p[4:8], param)
	binary.LittleEndian.PutUint16(p[8:10], code)
	binary.LittleEndian.PutUint16(p[10:12], Checksum(p[:10]))
	return
}

// EncodeCommand builds a command packet. It panics if cmd is not in the
// command table.
func EncodeCommand(cmd Command, param uint32) Packet {
	if !cmd.IsValid() {
		panic(fmt.Sprintf("unknown command 0x%04x", uint16(cmd)))
	}
	return encode(param, uint16(cmd))
}

// EncodeResponse builds a response packet as the sensor sends it.
func EncodeResponse(ack bool, param uint32) Packet {
	code := uint16(Nack)
	if ack {
		code = uint16(Ack)
	}
	return encode(param, code)
}

// DecodeResponse decodes a response packet.
func DecodeResponse(p Packet) Response {
	return Response{
		Ack:           p[8] == Ack,
		Param:         binary.LittleEndian.Uint32(p[4:8]),
		Code:          binary.LittleEndian.Uint16(p[8:10]),
		ChecksumValid: binary.LittleEndian.Uint16(p[10:12]) == Checksum(p[:10]),
	}
}

// Command interprets the packet as a command packet.
func (p *Packet) Command() Command {
	return Command(binary.LittleEndian.Uint16(p[8:10]))
}

// Param returns the parameter field.
func (p *Packet) Param() uint32 {
	return binary.LittleEndian.Uint32(p[4:8])
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() []byte {
	return p[:]
}

// WriteTo writes encoded bytes.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p[:])
	if err == nil && n < PacketSize {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// Err converts the response into an error for the command which
// produced it. It returns nil for a valid ACK.
func (r Response) Err(cmd Command) error {
	if !r.ChecksumValid {
		return ErrCorruptFrame
	}
	if !r.Ack {
		return &NackError{Command: cmd, Code: ErrorCode(r.Param)}
	}
	return nil
}
