package daemon

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/fpsensor.go/pkg/comm"
	"github.com/robotalks/fpsensor.go/pkg/events"
	"github.com/robotalks/fpsensor.go/pkg/metrics"
	"github.com/robotalks/fpsensor.go/pkg/sensor"
)

// Request operations.
const (
	OpEnroll = "enroll"
	OpDelete = "delete"
)

// AllSlots deletes all fingerprints in a delete Request.
const AllSlots = -1

// Request is an operation submitted to the Watcher.
type Request struct {
	Op string
	// Slot is sensor.AutoSlot for enroll and AllSlots for delete.
	Slot int
}

// ParseRequest parses a command received on <device>/commands/<op>
// with payload of a slot number, "auto" or "all".
func ParseRequest(topic string, payload []byte) (Request, error) {
	req := Request{Op: path.Base(topic)}
	arg := strings.TrimSpace(string(payload))
	switch {
	case req.Op == OpEnroll && (arg == "" || arg == "auto"):
		req.Slot = sensor.AutoSlot
	case req.Op == OpDelete && arg == "all":
		req.Slot = AllSlots
	case req.Op == OpEnroll || req.Op == OpDelete:
		slot, err := strconv.Atoi(arg)
		if err != nil || slot < 0 {
			return req, fmt.Errorf("invalid slot %q", arg)
		}
		req.Slot = slot
	default:
		return req, fmt.Errorf("unknown operation %q", req.Op)
	}
	return req, nil
}

// CommandTopic is the subscription pattern of requests for a device.
func CommandTopic(deviceID string) string {
	return deviceID + "/commands/+"
}

// Watcher polls the sensor for a finger, identifies it and publishes
// events. Requests are executed between polls.
type Watcher struct {
	Sensor       *sensor.Sensor
	Publisher    events.Publisher
	Metrics      *metrics.Metrics
	DeviceID     string
	PollInterval time.Duration

	requests chan Request
	pressed  bool
}

// NewWatcher creates a Watcher.
func NewWatcher(s *sensor.Sensor, pub events.Publisher, deviceID string) *Watcher {
	return &Watcher{
		Sensor:       s,
		Publisher:    pub,
		DeviceID:     deviceID,
		PollInterval: DefaultPollInterval,
		requests:     make(chan Request, 4),
	}
}

// Name implements Named.
func (w *Watcher) Name() string {
	return "watcher"
}

// Submit queues a request, false if the queue is full.
func (w *Watcher) Submit(req Request) bool {
	select {
	case w.requests <- req:
		return true
	default:
		return false
	}
}

// HandleCommand is the events.Handler of CommandTopic.
func (w *Watcher) HandleCommand(topic string, payload []byte) {
	req, err := ParseRequest(topic, payload)
	if err != nil {
		glog.Errorf("command %s: %v", topic, err)
		return
	}
	if !w.Submit(req) {
		glog.Errorf("command %s dropped: busy", topic)
	}
}

// Run implements Runnable. It opens the device and polls until ctx is
// canceled or the session breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Sensor.Open(); err != nil {
		return err
	}
	defer w.Sensor.Close()
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()
	for {
		var err error
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-w.requests:
			err = w.Execute(req)
		case <-ticker.C:
			err = w.Poll()
		}
		if err != nil {
			if comm.IsTransportError(err) {
				return err
			}
			glog.Errorf("watcher: %v", err)
			w.publish(&events.Event{Type: events.TypeError, Error: err.Error()})
		}
	}
}

func (w *Watcher) publish(ev *events.Event) {
	ev.Device = w.DeviceID
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if err := w.Publisher.Publish(ev); err != nil {
		glog.Errorf("publish %s: %v", ev.Type, err)
	}
}

// Poll checks the finger and identifies it when it's just pressed.
func (w *Watcher) Poll() error {
	pressed, err := w.Sensor.IsFingerPressed()
	if err != nil {
		return err
	}
	if pressed == w.pressed {
		return nil
	}
	w.pressed = pressed
	if w.Metrics != nil {
		if pressed {
			w.Metrics.FingerPressed.Set(1)
		} else {
			w.Metrics.FingerPressed.Set(0)
		}
	}
	if !pressed {
		w.publish(&events.Event{Type: events.TypeFingerReleased})
		return nil
	}
	w.publish(&events.Event{Type: events.TypeFingerPressed})
	match, err := w.Sensor.Identify()
	if err != nil {
		return err
	}
	if w.Metrics != nil {
		w.Metrics.Identifications.WithLabelValues(match.Status.String()).Inc()
	}
	ev := &events.Event{Type: events.TypeIdentified, Status: match.Status.String()}
	if match.Found() {
		ev.WithSlot(match.Slot)
	}
	w.publish(ev)
	return nil
}

// Execute runs a request.
func (w *Watcher) Execute(req Request) error {
	switch req.Op {
	case OpEnroll:
		glog.Infof("enrolling into slot %d", req.Slot)
		e, err := w.Sensor.Enroll(req.Slot)
		if err != nil {
			return err
		}
		ev := (&events.Event{Type: events.TypeEnrolled, Status: e.Outcome.String()}).WithSlot(e.Slot)
		if e.Err != nil {
			ev.Error = e.Err.Error()
		}
		w.publish(ev)
	case OpDelete:
		var err error
		if req.Slot == AllSlots {
			err = w.Sensor.DeleteAll()
		} else {
			err = w.Sensor.DeleteID(req.Slot)
		}
		if err != nil {
			return err
		}
		ev := &events.Event{Type: events.TypeDeleted}
		if req.Slot != AllSlots {
			ev.WithSlot(req.Slot)
		}
		w.publish(ev)
	default:
		return fmt.Errorf("unknown operation %q", req.Op)
	}
	return nil
}
