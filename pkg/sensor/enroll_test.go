package sensor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/fpsensor.go/pkg/proto"
	"github.com/robotalks/fpsensor.go/pkg/sim"
	"github.com/robotalks/fpsensor.go/pkg/transport"
)

func TestEnrollSlot(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Press(fingerA)
	e, err := s.Enroll(3)
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, e.Outcome)
	require.Equal(t, 3, e.Slot)
	require.Equal(t, StageFinalized, e.Stage)
	require.Nil(t, e.Template)
	require.False(t, e.Downloaded)
	require.NoError(t, e.Err)
	require.Equal(t, fingerA, dev.Slot(3))
	require.Equal(t, []proto.Command{
		proto.CmdEnrollStart,
		proto.CmdCaptureFinger,
		proto.CmdEnroll1,
		proto.CmdCaptureFinger,
		proto.CmdEnroll2,
		proto.CmdCaptureFinger,
		proto.CmdEnroll3,
	}, withoutLED(dev.Received()))
}

func TestEnrollAutoSlot(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Store(0, fingerA)
	dev.Store(1, fingerB)
	dev.Press(fingerC)
	e, err := s.Enroll(AutoSlot)
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, e.Outcome)
	require.Equal(t, 2, e.Slot)
	require.True(t, e.Downloaded)
	require.Equal(t, []byte(proto.EncodeData(fingerC)), e.Template)
	require.Equal(t, fingerC, dev.Slot(2))
	require.Equal(t, 3, dev.Enrolled())
}

func TestEnrollAutoSlotSkipsUsed(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Store(1, fingerA)
	dev.Store(2, fingerB)
	dev.Press(fingerC)
	e, err := s.Enroll(AutoSlot)
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, e.Outcome)
	require.Equal(t, 3, e.Slot)
}

func TestEnrollAutoSlotDatabaseFull(t *testing.T) {
	s, dev := newTestSensor(t)
	s.Config.Capacity = 4
	dev.Store(1, fingerA)
	dev.Store(2, fingerB)
	dev.Store(3, fingerA)
	dev.Press(fingerC)
	e, err := s.Enroll(AutoSlot)
	require.Equal(t, ErrDatabaseFull, err)
	require.Equal(t, OutcomeFailed, e.Outcome)
	require.Equal(t, StageSlotAssigned, e.FailedAt)
	require.Zero(t, dev.Count(proto.CmdEnrollStart))
	require.Equal(t, 1, dev.Count(proto.CmdCheckEnrolled))
}

func TestEnrollDuplicate(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Store(4, fingerA)
	dev.Press(fingerA)
	dev.Fail(proto.CmdCaptureFinger, 1, proto.NackFingerIsNotPressed)
	e, err := s.Enroll(AutoSlot)
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, e.Outcome)
	require.Equal(t, 4, e.Slot)
	require.Equal(t, StageDuplicateCheck, e.Stage)
	require.Equal(t, 2, e.Attempts)
	require.Equal(t, 1, dev.Count(proto.CmdIdentify1_N))
	require.Zero(t, dev.Count(proto.CmdEnrollStart))
	require.Equal(t, 1, dev.Enrolled())
}

func TestEnrollDuplicateScripted(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Press(fingerB)
	dev.ScriptIdentify(9)
	e, err := s.Enroll(AutoSlot)
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, e.Outcome)
	require.Equal(t, 9, e.Slot)
	require.Zero(t, dev.Enrolled())
}

func TestEnrollDuplicateOnMerge(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Store(6, fingerA)
	dev.Press(fingerA)
	e, err := s.Enroll(3)
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, e.Outcome)
	require.Equal(t, 6, e.Slot)
	require.Nil(t, dev.Slot(3))
}

func TestEnrollNeverCaptured(t *testing.T) {
	s, dev := newTestSensor(t)
	dev.Press(fingerA)
	// every capture of the duplicate check fails, the enrollment goes on.
	dev.Fail(proto.CmdCaptureFinger, s.Config.TryCount, proto.NackFingerIsNotPressed)
	e, err := s.Enroll(AutoSlot)
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, e.Outcome)
	require.Zero(t, e.Slot)
	require.Zero(t, dev.Count(proto.CmdIdentify1_N))
}

func TestEnrollRetryBound(t *testing.T) {
	for _, tries := range []int{1, 3, 5} {
		s, dev := newTestSensor(t)
		s.Config.TryCount = tries
		dev.Press(fingerA)
		dev.Fail(proto.CmdEnrollStart, -1, proto.NackDevErr)
		e, err := s.Enroll(3)
		require.NoError(t, err)
		require.Equal(t, OutcomeFailed, e.Outcome)
		require.Equal(t, StageFailed, e.Stage)
		require.Equal(t, StageStarted, e.FailedAt)
		require.Equal(t, tries, e.Attempts)
		require.Equal(t, tries, dev.Count(proto.CmdEnrollStart))
		require.True(t, proto.IsNack(e.Err, proto.NackDevErr))
		require.Zero(t, dev.Count(proto.CmdEnroll1))
	}
}

func TestEnrollStageRetries(t *testing.T) {
	testCases := []struct {
		name    string
		cmd     proto.Command
		fails   int
		outcome EnrollOutcome
		stage   EnrollStage
	}{
		{name: "capture recovers", cmd: proto.CmdCaptureFinger, fails: 2, outcome: OutcomeCompleted},
		{name: "capture exhausted", cmd: proto.CmdCaptureFinger, fails: 3, outcome: OutcomeFailed, stage: StageCapture1},
		{name: "enroll1 recovers", cmd: proto.CmdEnroll1, fails: 2, outcome: OutcomeCompleted},
		{name: "enroll2 exhausted", cmd: proto.CmdEnroll2, fails: -1, outcome: OutcomeFailed, stage: StageEnrolled2},
		{name: "enroll3 rejected", cmd: proto.CmdEnroll3, fails: 1, outcome: OutcomeFailed, stage: StageFinalized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, dev := newTestSensor(t)
			dev.Press(fingerA)
			dev.Fail(tc.cmd, tc.fails, proto.NackBadFinger)
			e, err := s.Enroll(3)
			require.NoError(t, err)
			require.Equal(t, tc.outcome, e.Outcome)
			if tc.outcome == OutcomeFailed {
				require.Equal(t, tc.stage, e.FailedAt)
				require.True(t, proto.IsNack(e.Err, proto.NackBadFinger))
			} else {
				require.Equal(t, fingerA, dev.Slot(3))
			}
		})
	}
}

func TestEnrollBrokenSession(t *testing.T) {
	s := New(sim.New(transport.Baud115200), testConfig())
	e, err := s.Enroll(3)
	require.Equal(t, ErrNotConnected, err)
	require.Equal(t, OutcomeFailed, e.Outcome)
	require.Equal(t, 1, e.Attempts)

	_, err = s.Enroll(-2)
	require.Equal(t, ErrInvalidSlot, err)
}

func TestEnrollStageString(t *testing.T) {
	require.Equal(t, "Capture2", StageCapture2.String())
	require.Equal(t, "EnrollStage(42)", EnrollStage(42).String())
	require.Equal(t, "duplicate", OutcomeDuplicate.String())
	require.Equal(t, "not-found", MatchNotFound.String())
}
