package sensor

import "fmt"

// MatchStatus is the result of an identification.
type MatchStatus int

// Match statuses.
const (
	// MatchUnknown means no usable finger image was captured.
	MatchUnknown MatchStatus = iota
	MatchNotFound
	MatchFound
)

func (s MatchStatus) String() string {
	switch s {
	case MatchNotFound:
		return "not-found"
	case MatchFound:
		return "found"
	}
	return "unknown"
}

// Match is the typed result of Identify.
type Match struct {
	Status MatchStatus
	// Slot is valid when Status is MatchFound.
	Slot int
}

// Found tells whether a slot matched.
func (m Match) Found() bool {
	return m.Status == MatchFound
}

func (m Match) String() string {
	if m.Found() {
		return fmt.Sprintf("found slot %d", m.Slot)
	}
	return m.Status.String()
}

// ConnectionState is the state of the session.
type ConnectionState struct {
	Connected bool
	Baud      int
	// Opened is set after the device acknowledged Open.
	Opened bool
}

func (s ConnectionState) String() string {
	switch {
	case !s.Connected:
		return "disconnected"
	case s.Opened:
		return fmt.Sprintf("opened at %d baud", s.Baud)
	}
	return fmt.Sprintf("connected at %d baud", s.Baud)
}

// EnrollOutcome is the final result of an enrollment.
type EnrollOutcome int

// Enrollment outcomes.
const (
	OutcomeFailed EnrollOutcome = iota
	OutcomeCompleted
	// OutcomeDuplicate means the finger is already enrolled.
	OutcomeDuplicate
)

func (o EnrollOutcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeDuplicate:
		return "duplicate"
	}
	return "failed"
}

// EnrollStage is a step of the enrollment.
type EnrollStage int

// Enrollment stages in order.
const (
	StageNotStarted EnrollStage = iota
	StageDuplicateCheck
	StageSlotAssigned
	StageStarted
	StageCapture1
	StageEnrolled1
	StageCapture2
	StageEnrolled2
	StageCapture3
	StageFinalized
	StageFailed
)

var stageNames = []string{
	"NotStarted",
	"DuplicateCheck",
	"SlotAssigned",
	"Started",
	"Capture1",
	"Enrolled1",
	"Capture2",
	"Enrolled2",
	"Capture3",
	"Finalized",
	"Failed",
}

func (s EnrollStage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("EnrollStage(%d)", int(s))
}
