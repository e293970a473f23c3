// Package events publishes sensor activity.
package events

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// Event types.
const (
	TypeFingerPressed  = "pressed"
	TypeFingerReleased = "released"
	TypeIdentified     = "identified"
	TypeEnrolled       = "enrolled"
	TypeDeleted        = "deleted"
	TypeError          = "error"
)

// Event is published as JSON.
type Event struct {
	Type   string    `json:"type"`
	Device string    `json:"device"`
	Time   time.Time `json:"time"`
	Slot   *int      `json:"slot,omitempty"`
	// Status is the match status or enrollment outcome.
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WithSlot sets Slot.
func (e *Event) WithSlot(slot int) *Event {
	e.Slot = &slot
	return e
}

// Publisher publishes events.
type Publisher interface {
	Publish(ev *Event) error
}

// PublisherFunc is func type of Publisher.
type PublisherFunc func(ev *Event) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ev *Event) error {
	return f(ev)
}

// LogPublisher writes events to the log.
type LogPublisher struct{}

// Publish implements Publisher.
func (LogPublisher) Publish(ev *Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	glog.Infof("event %s", payload)
	return nil
}

// DefaultPublishTimeout bounds waiting for the broker.
const DefaultPublishTimeout = 5 * time.Second

// MQTTPublisher publishes to <prefix><device>/events/<type>.
type MQTTPublisher struct {
	Queue   *Queue
	QoS     byte
	Timeout time.Duration
}

// NewMQTTPublisher creates a publisher on queue.
func NewMQTTPublisher(queue *Queue) *MQTTPublisher {
	return &MQTTPublisher{Queue: queue, QoS: 1, Timeout: DefaultPublishTimeout}
}

// Topic returns the topic of the event relative to the queue prefix.
func Topic(ev *Event) string {
	return ev.Device + "/events/" + ev.Type
}

// Publish implements Publisher.
func (p *MQTTPublisher) Publish(ev *Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	token := p.Queue.PubWith(Topic(ev), payload, p.QoS, false)
	if !token.WaitTimeout(p.Timeout) {
		return fmt.Errorf("publish %s timeout", Topic(ev))
	}
	return token.Error()
}

const appID = "fpsensor"

// MachineID retrieves an ID identifying the machine, the hostname if
// unavailable.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err == nil {
		return id[:16]
	}
	glog.Warningf("machine id unavailable: %v", err)
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
