package sensor

import (
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/fpsensor.go/pkg/comm"
	"github.com/robotalks/fpsensor.go/pkg/proto"
	"github.com/robotalks/fpsensor.go/pkg/transport"
)

// Sensor is a session with one fingerprint sensor.
// All methods are serialized, only one transaction is in flight.
type Sensor struct {
	Opener transport.Opener
	Config *Config
	// Indicator lights up during capture, the CMOS LED if nil.
	Indicator comm.Indicator
	// Activity is passed to the connection to show traffic.
	Activity comm.Indicator
	Observer comm.Observer

	lock  sync.Mutex
	conn  *comm.Conn
	state ConnectionState
}

// New creates a Sensor. A nil conf uses defaults.
func New(opener transport.Opener, conf *Config) *Sensor {
	if conf == nil {
		conf = NewConfig()
	}
	return &Sensor{Opener: opener, Config: conf}
}

// State returns the connection state.
func (s *Sensor) State() ConnectionState {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

// Connect opens the transport at baud, replacing the current one.
func (s *Sensor) Connect(baud int) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.connect(baud)
}

func (s *Sensor) connect(baud int) error {
	s.disconnect()
	port, err := s.Opener.Open(baud)
	if err != nil {
		return &comm.TransportError{Op: "open", Err: err}
	}
	conn := comm.NewConn(port)
	if s.Config.Timeout > 0 {
		conn.Timeout = s.Config.Timeout
	}
	if s.Config.ChunkSize > 0 {
		conn.ChunkSize = s.Config.ChunkSize
	}
	conn.Indicator = s.Activity
	conn.Observer = s.Observer
	s.conn = conn
	s.state = ConnectionState{Connected: true, Baud: baud}
	glog.Infof("connected at %d baud", baud)
	return nil
}

// Disconnect closes the transport.
func (s *Sensor) Disconnect() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.disconnect()
}

func (s *Sensor) disconnect() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Port.Close()
	s.conn = nil
	s.state = ConnectionState{}
	return err
}

func (s *Sensor) do(cmd proto.Command, param uint32) (*comm.Reply, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn.Do(cmd, param)
}

// slotParam converts a slot into a command parameter.
func slotParam(slot int) (uint32, error) {
	if slot < 0 {
		return 0, ErrInvalidSlot
	}
	return uint32(slot), nil
}

func (s *Sensor) exchange(cmd proto.Command, param uint32) (*comm.Reply, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn.Exchange(cmd, param)
}

// Open starts the device session.
func (s *Sensor) Open() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.open()
}

func (s *Sensor) open() error {
	if _, err := s.do(proto.CmdOpen, 0); err != nil {
		return err
	}
	s.state.Opened = true
	return nil
}

// Close ends the device session, the transport stays connected.
func (s *Sensor) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closeDevice()
}

func (s *Sensor) closeDevice() error {
	if _, err := s.do(proto.CmdClose, 0); err != nil {
		return err
	}
	s.state.Opened = false
	return nil
}

// ChangeBaud switches the device to baud and reconnects at the new rate.
func (s *Sensor) ChangeBaud(baud int) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.changeBaud(baud)
}

func (s *Sensor) changeBaud(baud int) error {
	if !transport.IsSupportedBaud(baud) {
		return ErrUnsupportedBaud
	}
	if _, err := s.do(proto.CmdChangeBaudrate, uint32(baud)); err != nil {
		return err
	}
	return s.connect(baud)
}

// SetLED turns the CMOS LED on or off.
func (s *Sensor) SetLED(on bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.setLED(on)
}

func (s *Sensor) setLED(on bool) error {
	var param uint32
	if on {
		param = 1
	}
	_, err := s.do(proto.CmdCmosLed, param)
	return err
}

func (s *Sensor) indicate(on bool) {
	if s.Indicator != nil {
		s.Indicator.Set(on)
		return
	}
	if err := s.setLED(on); err != nil {
		glog.Warningf("set LED %v error: %v", on, err)
	}
}

// EnrolledCount gets the number of enrolled fingerprints.
func (s *Sensor) EnrolledCount() (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.enrolledCount()
}

func (s *Sensor) enrolledCount() (int, error) {
	reply, err := s.do(proto.CmdGetEnrollCount, 0)
	if err != nil {
		return 0, err
	}
	return int(reply.Param), nil
}

// CheckEnrolled tells whether a slot is used.
func (s *Sensor) CheckEnrolled(slot int) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.checkEnrolled(slot)
}

func (s *Sensor) checkEnrolled(slot int) (bool, error) {
	param, err := slotParam(slot)
	if err != nil {
		return false, err
	}
	_, err = s.do(proto.CmdCheckEnrolled, param)
	if proto.IsNack(err, proto.NackIsNotUsed) {
		return false, nil
	}
	return err == nil, err
}

// CaptureFinger captures a finger image, best for a slower but better
// image used by enrollment.
func (s *Sensor) CaptureFinger(best bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.captureFinger(best)
}

func (s *Sensor) captureFinger(best bool) error {
	s.indicate(true)
	defer s.indicate(false)
	time.Sleep(s.Config.SettleDelay)
	var param uint32
	if best {
		param = 1
	}
	_, err := s.do(proto.CmdCaptureFinger, param)
	return err
}

// IsFingerPressed tells whether a finger is on the sensor.
func (s *Sensor) IsFingerPressed() (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.indicate(true)
	defer s.indicate(false)
	time.Sleep(s.Config.SettleDelay)
	reply, err := s.do(proto.CmdIsPressFinger, 0)
	if err != nil {
		return false, err
	}
	// the device reports 0 when pressed.
	return reply.Param == 0, nil
}

// Identify captures a finger and searches all slots.
func (s *Sensor) Identify() (Match, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.identify()
}

func (s *Sensor) identify() (Match, error) {
	if err := s.captureFinger(true); err != nil {
		if proto.IsNack(err) {
			return Match{Status: MatchUnknown}, nil
		}
		return Match{Status: MatchUnknown}, err
	}
	reply, err := s.exchange(proto.CmdIdentify1_N, 0)
	return matchOf(reply, err)
}

func matchOf(reply *comm.Reply, err error) (Match, error) {
	if err != nil {
		return Match{Status: MatchUnknown}, err
	}
	if !reply.Ack {
		return Match{Status: MatchNotFound}, nil
	}
	return Match{Status: MatchFound, Slot: int(reply.Param)}, nil
}

// Verify captures a finger and compares it with the one in slot.
func (s *Sensor) Verify(slot int) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	param, err := slotParam(slot)
	if err != nil {
		return false, err
	}
	if err := s.captureFinger(true); err != nil {
		return false, err
	}
	_, err = s.do(proto.CmdVerify1_1, param)
	if proto.IsNack(err, proto.NackVerifyFailed) {
		return false, nil
	}
	return err == nil, err
}

// DeleteID deletes the fingerprint in slot.
func (s *Sensor) DeleteID(slot int) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	param, err := slotParam(slot)
	if err != nil {
		return err
	}
	_, err = s.do(proto.CmdDeleteID, param)
	return err
}

// DeleteAll deletes all fingerprints.
func (s *Sensor) DeleteAll() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, err := s.do(proto.CmdDeleteAll, 0)
	return err
}
