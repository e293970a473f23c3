package proto

// Parser extracts packets from a byte stream. It skips any bytes before
// the 0x55 0xAA marker, so it recovers from garbage and dropped bytes.
type Parser struct {
	state   parseState
	packet  Packet
	recvLen int
}

// SyncState indicates where the parser is in a frame.
type SyncState int

const (
	// SyncStateAwaiting means no packet marker has been seen yet.
	SyncStateAwaiting SyncState = iota
	// SyncStateHeaderMatched means the marker matched and the rest of
	// the packet is being received.
	SyncStateHeaderMatched
	// SyncStateComplete means a full packet has been received.
	SyncStateComplete
)

// String implements fmt.Stringer.
func (s SyncState) String() string {
	switch s {
	case SyncStateAwaiting:
		return "AwaitingSync"
	case SyncStateHeaderMatched:
		return "HeaderMatched"
	case SyncStateComplete:
		return "FrameComplete"
	}
	return "Unknown"
}

// ParseResult indicates the result after one parsing step.
type ParseResult struct {
	State  SyncState
	Packet *Packet
}

type parseState int

const (
	stateStart0 parseState = iota // waiting for PacketStart0
	stateStart1                   // waiting for PacketStart1
	stateBody                     // receiving the remaining bytes
)

// State gets the current sync state.
func (p *Parser) State() SyncState {
	if p.state == stateBody {
		return SyncStateHeaderMatched
	}
	return SyncStateAwaiting
}

// Reset drops any partially received packet.
func (p *Parser) Reset() {
	p.state, p.recvLen = stateStart0, 0
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	switch p.state {
	case stateStart0:
		if b == PacketStart0 {
			p.state = stateStart1
		}
	case stateStart1:
		switch b {
		case PacketStart1:
			p.packet[0], p.packet[1] = PacketStart0, PacketStart1
			p.recvLen = 2
			p.state = stateBody
		case PacketStart0:
			// stay, this may be the real start.
		default:
			p.state = stateStart0
		}
	case stateBody:
		p.packet[p.recvLen] = b
		p.recvLen++
		if p.recvLen >= PacketSize {
			pkt := p.packet
			p.Reset()
			pr.State, pr.Packet = SyncStateComplete, &pkt
			return
		}
	}
	pr.State = p.State()
	return
}
