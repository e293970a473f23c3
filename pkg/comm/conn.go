package comm

import (
	"errors"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/fpsensor.go/pkg/proto"
	"github.com/robotalks/fpsensor.go/pkg/transport"
)

// DefaultTimeout is the default time to wait for a response packet.
const DefaultTimeout = 3 * time.Second

// TxState is the state of the current transaction.
type TxState int

// Transaction states.
const (
	TxAwaitingSync TxState = iota
	TxHeaderMatched
	TxFrameComplete
	TxDataPending
	TxDataComplete
)

var txStateNames = []string{"AwaitingSync", "HeaderMatched", "FrameComplete", "DataPending", "DataComplete"}

// String implements fmt.Stringer.
func (s TxState) String() string {
	if int(s) < len(txStateNames) {
		return txStateNames[s]
	}
	return "Unknown"
}

// Reply is a received response with the optional data packet.
type Reply struct {
	proto.Response
	// Data is the payload after the data marker, nil if no data packet
	// followed the response.
	Data proto.DataPayload
}

// HasData indicates a data packet followed the response.
func (r *Reply) HasData() bool {
	return r.Data != nil
}

// Conn runs transactions over a Port.
type Conn struct {
	Port transport.Port
	// Timeout bounds waiting for a response packet, 0 waits forever.
	Timeout   time.Duration
	ChunkSize int
	Indicator Indicator
	Observer  Observer

	parser proto.Parser
	state  TxState
	buf    [1]byte
}

// NewConn creates a Conn.
func NewConn(port transport.Port) *Conn {
	return &Conn{
		Port:      port,
		Timeout:   DefaultTimeout,
		ChunkSize: DefaultChunkSize,
	}
}

// State gets the state of the last transaction.
func (c *Conn) State() TxState {
	return c.state
}

func (c *Conn) setState(s TxState) {
	if c.state != s {
		glog.V(4).Infof("tx %s -> %s", c.state, s)
		c.state = s
	}
}

func (c *Conn) ready() bool {
	return c.Port != nil && c.Port.IsOpen()
}

func (c *Conn) indicate(on bool) {
	if c.Indicator != nil {
		c.Indicator.Set(on)
	}
}

func (c *Conn) write(b []byte) error {
	if !c.ready() {
		return ErrNotReady
	}
	c.indicate(true)
	defer c.indicate(false)
	n, err := c.Port.Write(b)
	if err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if n < len(b) {
		return &TransportError{Op: "write", Err: io.ErrShortWrite}
	}
	return nil
}

// SendCommand writes a command packet.
func (c *Conn) SendCommand(cmd proto.Command, param uint32) error {
	pkt := proto.EncodeCommand(cmd, param)
	glog.V(2).Infof("SND %s(%d) % X", cmd, param, pkt.Bytes())
	return c.write(pkt.Bytes())
}

func (c *Conn) readByte() (bool, error) {
	n, err := c.Port.Read(c.buf[:])
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, &TransportError{Op: "read", Err: err}
	}
	return n > 0, nil
}

func (c *Conn) expired(start time.Time) bool {
	return c.Timeout > 0 && time.Since(start) >= c.Timeout
}

// ReadResponse reads a response packet and the data packet following it.
// When wait is false and nothing has arrived, ErrNoData is returned
// immediately.
func (c *Conn) ReadResponse(wait bool) (*Reply, error) {
	if !c.ready() {
		return nil, ErrNotReady
	}
	c.parser.Reset()
	c.setState(TxAwaitingSync)
	if !wait && c.Port.Available() == 0 {
		return nil, ErrNoData
	}
	c.indicate(true)
	defer c.indicate(false)

	start := time.Now()
	var pkt *proto.Packet
	for pkt == nil {
		got, err := c.readByte()
		if err != nil {
			return nil, err
		}
		if !got {
			if !wait && c.parser.State() == proto.SyncStateAwaiting {
				return nil, ErrNoData
			}
			if c.expired(start) {
				return nil, ErrTimeout
			}
			continue
		}
		pr := c.parser.Parse(c.buf[0])
		switch pr.State {
		case proto.SyncStateHeaderMatched:
			c.setState(TxHeaderMatched)
		case proto.SyncStateComplete:
			c.setState(TxFrameComplete)
		}
		pkt = pr.Packet
	}

	glog.V(2).Infof("RCV % X", pkt.Bytes())
	reply := &Reply{Response: proto.DecodeResponse(*pkt)}
	if !reply.ChecksumValid {
		// whatever follows can't be trusted either.
		c.Flush()
		return nil, proto.ErrCorruptFrame
	}
	if c.Port.Available() == 0 {
		return reply, nil
	}
	marker, err := c.readIdle(2)
	if err != nil {
		return nil, err
	}
	if len(marker) < 2 || marker[0] != proto.DataStart0 || marker[1] != proto.DataStart1 {
		glog.V(2).Infof("discard trailing % X", marker)
		return reply, nil
	}
	c.setState(TxDataPending)
	data, err := ReadBulk(c.Port, c.ChunkSize)
	if err != nil {
		return nil, err
	}
	c.setState(TxDataComplete)
	glog.V(2).Infof("RCV data %d bytes", len(data))
	if c.Observer != nil {
		c.Observer.BulkTransferred(Download, len(data))
	}
	reply.Data = proto.DataPayload(data)
	if reply.Data == nil {
		reply.Data = proto.DataPayload{}
	}
	return reply, nil
}

// readIdle reads up to n bytes, stopping early once the port goes idle.
func (c *Conn) readIdle(n int) ([]byte, error) {
	b := make([]byte, 0, n)
	for len(b) < n {
		got, err := c.readByte()
		if err != nil {
			return nil, err
		}
		if !got {
			break
		}
		b = append(b, c.buf[0])
	}
	return b, nil
}

// Exchange sends a command and waits for the response.
// A NACK is not an error here, check Reply.Ack.
func (c *Conn) Exchange(cmd proto.Command, param uint32) (*Reply, error) {
	start := time.Now()
	reply, err := c.exchange(cmd, param)
	if c.Observer != nil {
		c.Observer.TransactionDone(cmd, classify(reply, err), time.Since(start))
	}
	return reply, err
}

func (c *Conn) exchange(cmd proto.Command, param uint32) (*Reply, error) {
	if err := c.SendCommand(cmd, param); err != nil {
		return nil, err
	}
	return c.ReadResponse(true)
}

// Do is Exchange but converts a NACK into a *proto.NackError.
// The reply is returned along with the NACK error.
func (c *Conn) Do(cmd proto.Command, param uint32) (*Reply, error) {
	reply, err := c.Exchange(cmd, param)
	if err != nil {
		return nil, err
	}
	return reply, reply.Err(cmd)
}

// SendBulk writes payload as-is and reads the response acknowledging it.
func (c *Conn) SendBulk(payload []byte) (*Reply, error) {
	glog.V(2).Infof("SND data %d bytes", len(payload))
	if err := c.write(payload); err != nil {
		return nil, err
	}
	if c.Observer != nil {
		c.Observer.BulkTransferred(Upload, len(payload))
	}
	return c.ReadResponse(true)
}

// Flush discards pending input until the port is quiet.
func (c *Conn) Flush() int {
	if !c.ready() {
		return 0
	}
	var total int
	buf := make([]byte, 256)
	start := time.Now()
	for c.Port.Available() > 0 && !c.expired(start) {
		n, err := c.Port.Read(buf)
		if err != nil || n == 0 {
			break
		}
		total += n
	}
	if total > 0 {
		glog.V(2).Infof("flushed %d bytes", total)
	}
	c.parser.Reset()
	return total
}

func classify(reply *Reply, err error) Result {
	switch {
	case err == nil && reply.Ack:
		return ResultAck
	case err == nil:
		return ResultNack
	case errors.Is(err, ErrTimeout):
		return ResultTimeout
	case errors.Is(err, proto.ErrCorruptFrame):
		return ResultCorrupt
	}
	return ResultTransport
}
