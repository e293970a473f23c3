// Package comm runs command/response transactions with the sensor.
package comm

// A transaction writes one command packet and reads one response packet,
// optionally followed by a data packet. The protocol has no request ids,
// so only one transaction may be in flight on a port at a time and a Conn
// is not safe for concurrent use.
//
// Reading a response goes through these states:
//
//	AwaitingSync -> HeaderMatched -> FrameComplete [-> DataPending -> DataComplete]
//
// Data packets carry no length. The bulk reader keeps reading until the
// port returns nothing within its read timeout.
