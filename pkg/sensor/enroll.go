package sensor

import (
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/fpsensor.go/pkg/proto"
)

// AutoSlot makes Enroll check the finger isn't enrolled yet and pick
// the next free slot.
const AutoSlot = -1

// Enrollment is the result of Enroll.
type Enrollment struct {
	Outcome EnrollOutcome
	// Slot is the enrolled slot, or the slot holding the same finger
	// for OutcomeDuplicate.
	Slot int
	// Stage is the last stage reached.
	Stage EnrollStage
	// FailedAt is the stage which failed for OutcomeFailed.
	FailedAt EnrollStage
	// Template is the merged template payload, only returned with AutoSlot.
	Template   []byte
	Downloaded bool
	// Attempts made by the last stage.
	Attempts int
	Err      error
}

type enrollment struct {
	*Enrollment
	auto bool
	done bool
}

type enrollStep struct {
	stage    EnrollStage
	autoOnly bool
	run      func(s *Sensor, e *enrollment) error
}

var enrollSteps = []enrollStep{
	{stage: StageDuplicateCheck, autoOnly: true, run: (*Sensor).checkDuplicate},
	{stage: StageSlotAssigned, autoOnly: true, run: (*Sensor).assignSlot},
	{stage: StageStarted, run: enrollCommand(proto.CmdEnrollStart)},
	{stage: StageCapture1, run: (*Sensor).enrollCapture},
	{stage: StageEnrolled1, run: enrollCommand(proto.CmdEnroll1)},
	{stage: StageCapture2, run: (*Sensor).enrollCapture},
	{stage: StageEnrolled2, run: enrollCommand(proto.CmdEnroll2)},
	{stage: StageCapture3, run: (*Sensor).enrollCapture},
	{stage: StageFinalized, run: (*Sensor).finalize},
}

// Enroll registers a finger into slot, or AutoSlot. The finger is
// captured three times. Exhausted retries end in OutcomeFailed, the
// error is only returned when the session is broken.
// A failed enrollment may leave the slot partially written.
func (s *Sensor) Enroll(slot int) (*Enrollment, error) {
	if slot < AutoSlot {
		return nil, ErrInvalidSlot
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	e := &enrollment{Enrollment: &Enrollment{Slot: slot}, auto: slot == AutoSlot}
	for _, step := range enrollSteps {
		if step.autoOnly && !e.auto {
			continue
		}
		e.Stage = step.stage
		glog.V(1).Infof("enroll stage %s", step.stage)
		if err := step.run(s, e); err != nil {
			e.Outcome, e.FailedAt, e.Stage, e.Err = OutcomeFailed, step.stage, StageFailed, err
			glog.Warningf("enroll failed at %s after %d attempts: %v", step.stage, e.Attempts, err)
			if !IsRetryable(err) {
				return e.Enrollment, err
			}
			return e.Enrollment, nil
		}
		if e.done {
			return e.Enrollment, nil
		}
	}
	e.Outcome = OutcomeCompleted
	return e.Enrollment, nil
}

func (s *Sensor) checkDuplicate(e *enrollment) error {
	limit := s.tries()
	for e.Attempts = 1; ; e.Attempts++ {
		m, err := s.identify()
		if err != nil && !IsRetryable(err) {
			return err
		}
		if err == nil {
			switch m.Status {
			case MatchFound:
				glog.Infof("finger already enrolled in slot %d", m.Slot)
				e.Outcome, e.Slot, e.done = OutcomeDuplicate, m.Slot, true
				return nil
			case MatchNotFound:
				return nil
			}
		}
		if e.Attempts >= limit {
			// never captured, enroll it anyway.
			return err
		}
		time.Sleep(s.Config.RetryInterval)
	}
}

func (s *Sensor) assignSlot(e *enrollment) error {
	e.Attempts = 1
	if err := s.open(); err != nil {
		return err
	}
	slot, err := s.enrolledCount()
	if err != nil {
		return err
	}
	for ; ; slot++ {
		if slot >= s.Config.Capacity {
			return ErrDatabaseFull
		}
		used, err := s.checkEnrolled(slot)
		if err != nil {
			return err
		}
		if !used {
			break
		}
	}
	glog.Infof("enroll into slot %d", slot)
	e.Slot = slot
	return nil
}

func enrollCommand(cmd proto.Command) func(*Sensor, *enrollment) error {
	return func(s *Sensor, e *enrollment) (err error) {
		var param uint32
		if cmd == proto.CmdEnrollStart {
			param = uint32(e.Slot)
		}
		e.Attempts, err = s.retry(cmd.String(), func() error {
			_, err := s.do(cmd, param)
			return err
		})
		return
	}
}

func (s *Sensor) enrollCapture(e *enrollment) (err error) {
	e.Attempts, err = s.retry("capture", func() error {
		return s.captureFinger(true)
	})
	return
}

func (s *Sensor) finalize(e *enrollment) error {
	e.Attempts = 1
	reply, err := s.do(proto.CmdEnroll3, 0)
	var nack *proto.NackError
	if errors.As(err, &nack) && nack.Code.IsDuplicate() {
		glog.Infof("finger already enrolled in slot %d", uint32(nack.Code))
		e.Outcome, e.Slot, e.done = OutcomeDuplicate, int(nack.Code), true
		return nil
	}
	if err != nil {
		return err
	}
	if e.auto && reply.HasData() {
		e.Template = reply.Data
		e.Downloaded = reply.Param == 0 && ValidateTemplate(reply.Data) == nil
	}
	return nil
}
