// Package fp provides the shell commands of the fingerprint sensor.
package fp

import (
	"fmt"
	"strconv"

	"github.com/robotalks/fpsensor.go/pkg/cli/sh"
	"github.com/robotalks/fpsensor.go/pkg/sensor"
)

// EnrollResult is the printed result of enroll.
type EnrollResult struct {
	Outcome    string `json:"outcome"`
	Slot       int    `json:"slot"`
	Stage      string `json:"stage"`
	Attempts   int    `json:"attempts"`
	Downloaded bool   `json:"downloaded,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (r *EnrollResult) String() string {
	if r.Error != "" {
		return fmt.Sprintf("%s at %s after %d attempts: %s", r.Outcome, r.Stage, r.Attempts, r.Error)
	}
	return fmt.Sprintf("%s slot %d", r.Outcome, r.Slot)
}

func parseSlot(arg string) (int, error) {
	slot, err := strconv.Atoi(arg)
	if err != nil || slot < 0 {
		return 0, fmt.Errorf("invalid SLOT %q", arg)
	}
	return slot, nil
}

func parseOnOff(arg string) (bool, error) {
	switch arg {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("expect on or off, got %q", arg)
}

// Open sends Open.
func Open(s *sensor.Sensor, args []string) (interface{}, error) {
	return nil, s.Open()
}

// Close sends Close.
func Close(s *sensor.Sensor, args []string) (interface{}, error) {
	return nil, s.Close()
}

// LED switches the CMOS LED.
func LED(s *sensor.Sensor, args []string) (interface{}, error) {
	on, err := parseOnOff(args[0])
	if err != nil {
		return nil, err
	}
	return nil, s.SetLED(on)
}

// Baud changes the baud rate.
func Baud(s *sensor.Sensor, args []string) (interface{}, error) {
	baud, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid BAUD %q", args[0])
	}
	if err := s.ChangeBaud(baud); err != nil {
		return nil, err
	}
	return s.State(), nil
}

// Count prints the number of enrolled fingerprints.
func Count(s *sensor.Sensor, args []string) (interface{}, error) {
	return s.EnrolledCount()
}

// Check tells whether a slot is used.
func Check(s *sensor.Sensor, args []string) (interface{}, error) {
	slot, err := parseSlot(args[0])
	if err != nil {
		return nil, err
	}
	return s.CheckEnrolled(slot)
}

// Pressed tells whether a finger is on the sensor.
func Pressed(s *sensor.Sensor, args []string) (interface{}, error) {
	return s.IsFingerPressed()
}

// Capture captures a finger, "best" for enrollment quality.
func Capture(s *sensor.Sensor, args []string) (interface{}, error) {
	return nil, s.CaptureFinger(len(args) > 0 && args[0] == "best")
}

// Identify identifies the finger.
func Identify(s *sensor.Sensor, args []string) (interface{}, error) {
	return s.Identify()
}

// Verify verifies the finger against a slot.
func Verify(s *sensor.Sensor, args []string) (interface{}, error) {
	slot, err := parseSlot(args[0])
	if err != nil {
		return nil, err
	}
	return s.Verify(slot)
}

// Enroll enrolls a finger into a slot or "auto", optionally saving the
// template of an auto enrollment into a file.
func Enroll(s *sensor.Sensor, args []string) (interface{}, error) {
	slot := sensor.AutoSlot
	if len(args) > 0 && args[0] != "auto" {
		var err error
		if slot, err = parseSlot(args[0]); err != nil {
			return nil, err
		}
	}
	e, err := s.Enroll(slot)
	if err != nil {
		return nil, err
	}
	res := &EnrollResult{
		Outcome:    e.Outcome.String(),
		Slot:       e.Slot,
		Stage:      e.Stage.String(),
		Attempts:   e.Attempts,
		Downloaded: e.Downloaded,
	}
	if e.Err != nil {
		res.Stage, res.Error = e.FailedAt.String(), e.Err.Error()
	}
	if len(args) > 1 && e.Downloaded {
		if err := writeFile(args[1], e.Template); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Delete deletes a slot or "all".
func Delete(s *sensor.Sensor, args []string) (interface{}, error) {
	if args[0] == "all" {
		return nil, s.DeleteAll()
	}
	slot, err := parseSlot(args[0])
	if err != nil {
		return nil, err
	}
	return nil, s.DeleteID(slot)
}

func init() {
	sh.AddCmds(
		sh.Command("open", "", 0, Open, "o"),
		sh.Command("close", "", 0, Close),
		sh.Command("led", "on|off", 1, LED),
		sh.Command("baud", "BAUD", 1, Baud),
		sh.Command("count", "", 0, Count, "n"),
		sh.Command("check", "SLOT", 1, Check),
		sh.Command("pressed", "", 0, Pressed, "p"),
		sh.Command("capture", "[best]", 0, Capture),
		sh.Command("identify", "", 0, Identify, "id"),
		sh.Command("verify", "SLOT", 1, Verify),
		sh.Command("enroll", "[SLOT|auto] [TEMPLATE-FILE]", 0, Enroll, "e"),
		sh.Command("delete", "SLOT|all", 1, Delete, "del"),
	)
}
