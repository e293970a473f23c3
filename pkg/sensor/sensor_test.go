package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/fpsensor.go/pkg/comm"
	"github.com/robotalks/fpsensor.go/pkg/proto"
	"github.com/robotalks/fpsensor.go/pkg/sim"
	"github.com/robotalks/fpsensor.go/pkg/transport"
)

var (
	fingerA = sim.FingerTemplate(1)
	fingerB = sim.FingerTemplate(2)
	fingerC = sim.FingerTemplate(3)
)

func testConfig() *Config {
	conf := NewConfig()
	conf.Timeout = 50 * time.Millisecond
	conf.TryCount = 3
	conf.RetryInterval = 0
	conf.SettleDelay = 0
	return conf
}

func newTestSensor(t *testing.T) (*Sensor, *sim.Device) {
	dev := sim.New(transport.Baud115200)
	s := New(dev, testConfig())
	require.NoError(t, s.Connect(transport.Baud115200))
	return s, dev
}

func withoutLED(cmds []proto.Command) []proto.Command {
	var filtered []proto.Command
	for _, cmd := range cmds {
		if cmd != proto.CmdCmosLed {
			filtered = append(filtered, cmd)
		}
	}
	return filtered
}

func TestInitialize(t *testing.T) {
	dev := sim.New(transport.Baud115200)
	s := New(dev, testConfig())
	require.NoError(t, s.Initialize(transport.Baud115200))
	require.Equal(t, []proto.Command{proto.CmdOpen, proto.CmdClose}, dev.Received())
	require.Equal(t, ConnectionState{Connected: true, Baud: transport.Baud115200}, s.State())
}

func TestInitializeWrongBaud(t *testing.T) {
	dev := sim.New(transport.Baud9600)
	s := New(dev, testConfig())
	require.NoError(t, s.Initialize(transport.Baud115200))
	require.Equal(t, transport.Baud115200, dev.Baud())
	require.Equal(t, []proto.Command{
		proto.CmdOpen,
		proto.CmdChangeBaudrate,
		proto.CmdOpen,
		proto.CmdClose,
	}, dev.Received())
	require.Equal(t, ConnectionState{Connected: true, Baud: transport.Baud115200}, s.State())

	count, err := s.EnrolledCount()
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestInitializeNoDevice(t *testing.T) {
	dev := sim.New(transport.Baud115200)
	dev.Fail(proto.CmdOpen, -1, proto.NackDevErr)
	s := New(dev, testConfig())
	err := s.Initialize(transport.Baud115200)
	require.True(t, errors.Is(err, ErrNoDevice))
	require.False(t, s.State().Connected)

	require.Equal(t, ErrUnsupportedBaud, s.Initialize(57600))
}

func TestInitializeOpenError(t *testing.T) {
	s := New(transport.OpenFunc(func(int) (transport.Port, error) {
		return nil, errors.New("no such file")
	}), testConfig())
	err := s.Initialize(transport.Baud115200)
	require.True(t, comm.IsTransportError(err))
	require.EqualError(t, err, "transport open: no such file")
}

func TestChangeBaud(t *testing.T) {
	s, dev := newTestSensor(t)
	require.NoError(t, s.ChangeBaud(transport.Baud9600))
	require.Equal(t, transport.Baud9600, dev.Baud())
	require.Equal(t, transport.Baud9600, s.State().Baud)
	require.NoError(t, s.Open())
	require.True(t, s.State().Opened)
	require.NoError(t, s.Close())
	require.False(t, s.State().Opened)

	require.Equal(t, ErrUnsupportedBaud, s.ChangeBaud(1200))
}

func TestNotConnected(t *testing.T) {
	s := New(sim.New(transport.Baud115200), testConfig())
	require.Equal(t, ErrNotConnected, s.Open())
	_, err := s.EnrolledCount()
	require.Equal(t, ErrNotConnected, err)
	require.NoError(t, s.Disconnect())
}

func TestSetLED(t *testing.T) {
	s, dev := newTestSensor(t)
	require.NoError(t, s.SetLED(true))
	require.True(t, dev.LED())
	require.NoError(t, s.SetLED(false))
	require.False(t, dev.LED())
}

func TestDeleteAllIdempotent(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Store(0, fingerA)
	dev.Store(1, fingerB)
	count, err := s.EnrolledCount()
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, s.DeleteAll())
	require.NoError(t, s.DeleteAll())
	count, err = s.EnrolledCount()
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestDeleteID(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Store(2, fingerA)
	require.NoError(t, s.DeleteID(2))
	require.Nil(t, dev.Slot(2))
	err := s.DeleteID(2)
	require.True(t, proto.IsNack(err, proto.NackInvalidPos))
	require.True(t, IsRetryable(err))
}

func TestCheckEnrolled(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Store(2, fingerA)
	used, err := s.CheckEnrolled(2)
	require.NoError(t, err)
	require.True(t, used)
	used, err = s.CheckEnrolled(3)
	require.NoError(t, err)
	require.False(t, used)
	_, err = s.CheckEnrolled(sim.DefaultCapacity)
	require.True(t, proto.IsNack(err, proto.NackInvalidPos))
}

func TestIsFingerPressed(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Press(fingerA)
	pressed, err := s.IsFingerPressed()
	require.NoError(t, err)
	require.True(t, pressed)

	dev.Release()
	pressed, err = s.IsFingerPressed()
	require.NoError(t, err)
	require.False(t, pressed)
	require.Equal(t, 4, dev.Count(proto.CmdCmosLed))
	require.False(t, dev.LED())
}

func TestCustomIndicator(t *testing.T) {
	s, dev := newTestSensor(t)
	var lights []bool
	s.Indicator = comm.IndicatorFunc(func(on bool) { lights = append(lights, on) })
	dev.Press(fingerA)
	require.NoError(t, s.CaptureFinger(false))
	require.Equal(t, []bool{true, false}, lights)
	require.Zero(t, dev.Count(proto.CmdCmosLed))
}

func TestIdentify(t *testing.T) {
	s, dev := newTestSensor(t)
	match, err := s.Identify()
	require.NoError(t, err)
	require.Equal(t, MatchUnknown, match.Status)

	dev.Press(fingerA)
	match, err = s.Identify()
	require.NoError(t, err)
	require.Equal(t, MatchNotFound, match.Status)

	dev.Store(5, fingerA)
	match, err = s.Identify()
	require.NoError(t, err)
	require.Equal(t, Match{Status: MatchFound, Slot: 5}, match)
	require.Equal(t, "found slot 5", match.String())

	dev.Press(fingerB)
	match, err = s.Identify()
	require.NoError(t, err)
	require.Equal(t, MatchNotFound, match.Status)

	dev.CorruptNext(2)
	_, err = s.Identify()
	require.Equal(t, proto.ErrCorruptFrame, err)
}

func TestVerify(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Store(5, fingerA)
	dev.Press(fingerA)
	ok, err := s.Verify(5)
	require.NoError(t, err)
	require.True(t, ok)

	dev.Press(fingerB)
	ok, err = s.Verify(5)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.Verify(6)
	require.True(t, proto.IsNack(err, proto.NackIsNotUsed))
}

func TestTemplates(t *testing.T) {
	s, dev := newTestSensor(t)
	tmplA := []byte(proto.EncodeData(fingerA))
	tmplB := []byte(proto.EncodeData(fingerB))

	require.NoError(t, s.SetTemplate(7, tmplA))
	require.Equal(t, fingerA, dev.Slot(7))

	tmpl, err := s.GetTemplate(7)
	require.NoError(t, err)
	require.Equal(t, tmplA, tmpl)
	require.NoError(t, ValidateTemplate(tmpl))

	ok, err := s.VerifyTemplate(7, tmplA)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.VerifyTemplate(7, tmplB)
	require.NoError(t, err)
	require.False(t, ok)

	match, err := s.IdentifyTemplate(tmplA)
	require.NoError(t, err)
	require.Equal(t, Match{Status: MatchFound, Slot: 7}, match)
	match, err = s.IdentifyTemplate(tmplB)
	require.NoError(t, err)
	require.Equal(t, MatchNotFound, match.Status)

	_, err = s.GetTemplate(8)
	require.True(t, proto.IsNack(err, proto.NackIsNotUsed))
}

func TestTemplateCommandNack(t *testing.T) {
	s, dev := newTestSensor(t)
	tmpl := []byte(proto.EncodeData(fingerA))
	dev.Store(7, fingerA)

	dev.Fail(proto.CmdIdentifyTemplate1_N, 1, proto.NackIdentifyFailed)
	match, err := s.IdentifyTemplate(tmpl)
	require.NoError(t, err)
	require.Equal(t, Match{Status: MatchNotFound}, match)

	dev.Fail(proto.CmdVerifyTemplate1_1, 1, proto.NackInvalidPos)
	ok, err := s.VerifyTemplate(7, tmpl)
	require.False(t, ok)
	require.True(t, proto.IsNack(err, proto.NackInvalidPos))

	dev.Fail(proto.CmdSetTemplate, 1, proto.NackDevErr)
	require.True(t, proto.IsNack(s.SetTemplate(8, tmpl), proto.NackDevErr))
	require.Nil(t, dev.Slot(8))

	// the device is in sync after the rejected uploads.
	match, err = s.IdentifyTemplate(tmpl)
	require.NoError(t, err)
	require.Equal(t, Match{Status: MatchFound, Slot: 7}, match)
}

func TestNegativeSlot(t *testing.T) {
	s, dev := newTestSensor(t)
	tmpl := []byte(proto.EncodeData(fingerA))
	require.Equal(t, ErrInvalidSlot, s.DeleteID(-1))
	_, err := s.CheckEnrolled(-1)
	require.Equal(t, ErrInvalidSlot, err)
	_, err = s.Verify(-2)
	require.Equal(t, ErrInvalidSlot, err)
	_, err = s.GetTemplate(-1)
	require.Equal(t, ErrInvalidSlot, err)
	require.Equal(t, ErrInvalidSlot, s.SetTemplate(-1, tmpl))
	_, err = s.VerifyTemplate(-1, tmpl)
	require.Equal(t, ErrInvalidSlot, err)
	require.Empty(t, dev.Received())
}

func TestTemplateValidation(t *testing.T) {
	s, dev := newTestSensor(t)
	err := s.SetTemplate(1, fingerA)
	require.True(t, errors.Is(err, ErrTemplateSize))

	bad := []byte(proto.EncodeData(fingerA))
	bad[10] ^= 0xff
	require.Equal(t, ErrBadPayload, s.SetTemplate(1, bad))
	require.Empty(t, dev.Received())
}

func TestMakeTemplateAndImages(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Press(fingerC)
	tmpl, err := s.MakeTemplate()
	require.NoError(t, err)
	require.Equal(t, []byte(proto.EncodeData(fingerC)), tmpl)
	require.Zero(t, dev.Enrolled())

	img, err := s.GetImage()
	require.NoError(t, err)
	require.Len(t, img, proto.ImageSize)

	raw, err := s.GetRawImage()
	require.NoError(t, err)
	require.Len(t, raw, proto.RawImageSize)

	dev.Release()
	_, err = s.MakeTemplate()
	require.True(t, proto.IsNack(err, proto.NackFingerIsNotPressed))
}

func TestIsRetryable(t *testing.T) {
	testCases := []struct {
		err       error
		retryable bool
	}{
		{nil, false},
		{comm.ErrTimeout, true},
		{proto.ErrCorruptFrame, true},
		{comm.ExpectLength(nil, 3), true},
		{&proto.NackError{Command: proto.CmdEnroll1, Code: proto.NackBadFinger}, true},
		{ErrBadPayload, true},
		{&comm.TransportError{Op: "read", Err: errors.New("eof")}, false},
		{comm.ErrNotReady, false},
		{ErrNotConnected, false},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.retryable, IsRetryable(tc.err), "%v", tc.err)
	}
}
