package daemon

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/fpsensor.go/pkg/comm"
	"github.com/robotalks/fpsensor.go/pkg/events"
	"github.com/robotalks/fpsensor.go/pkg/metrics"
	"github.com/robotalks/fpsensor.go/pkg/sensor"
	"github.com/robotalks/fpsensor.go/pkg/sim"
	"github.com/robotalks/fpsensor.go/pkg/transport"
)

type eventLog struct {
	lock   sync.Mutex
	events []*events.Event
	ch     chan *events.Event
}

func newEventLog() *eventLog {
	return &eventLog{ch: make(chan *events.Event, 16)}
}

func (l *eventLog) Publish(ev *events.Event) error {
	l.lock.Lock()
	l.events = append(l.events, ev)
	l.lock.Unlock()
	select {
	case l.ch <- ev:
	default:
	}
	return nil
}

func (l *eventLog) types() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	var types []string
	for _, ev := range l.events {
		types = append(types, ev.Type)
	}
	return types
}

func newTestWatcher(t *testing.T) (*Watcher, *sim.Device, *eventLog) {
	dev := sim.New(transport.Baud115200)
	conf := sensor.NewConfig()
	conf.Timeout = 50 * time.Millisecond
	conf.TryCount = 2
	conf.RetryInterval = 0
	conf.SettleDelay = 0
	s := sensor.New(dev, conf)
	require.NoError(t, s.Connect(transport.Baud115200))
	log := newEventLog()
	w := NewWatcher(s, log, "door")
	w.PollInterval = 5 * time.Millisecond
	w.Metrics = metrics.New(prometheus.NewRegistry())
	return w, dev, log
}

func TestConfigParse(t *testing.T) {
	conf := defaultConfig
	require.NoError(t, conf.Parse([]byte(`
mqtt: mqtt://broker:1883/fp/
device-id: door
poll-interval: 50ms
metrics: ""
port: /dev/ttyAMA0
`)))
	require.Equal(t, "mqtt://broker:1883/fp/", conf.MQTTURL)
	require.Equal(t, "door", conf.ID())
	require.Equal(t, 50*time.Millisecond, conf.PollInterval)
	require.Empty(t, conf.MetricsAddr)

	sc := sensor.NewConfig()
	conf.Apply(sc)
	require.Equal(t, "/dev/ttyAMA0", sc.Port)
	require.Equal(t, transport.Baud115200, sc.Baud)

	require.Error(t, conf.Parse([]byte("poll-interval: 0s")))
	require.Error(t, conf.Parse([]byte("mqtt: [")))
}

func TestParseRequest(t *testing.T) {
	testCases := []struct {
		topic   string
		payload string
		req     Request
		fails   bool
	}{
		{topic: "door/commands/enroll", payload: "auto", req: Request{Op: OpEnroll, Slot: sensor.AutoSlot}},
		{topic: "door/commands/enroll", payload: "", req: Request{Op: OpEnroll, Slot: sensor.AutoSlot}},
		{topic: "door/commands/enroll", payload: " 12\n", req: Request{Op: OpEnroll, Slot: 12}},
		{topic: "door/commands/delete", payload: "all", req: Request{Op: OpDelete, Slot: AllSlots}},
		{topic: "door/commands/delete", payload: "3", req: Request{Op: OpDelete, Slot: 3}},
		{topic: "door/commands/delete", payload: "", fails: true},
		{topic: "door/commands/enroll", payload: "-4", fails: true},
		{topic: "door/commands/reboot", payload: "", fails: true},
	}
	for _, tc := range testCases {
		req, err := ParseRequest(tc.topic, []byte(tc.payload))
		if tc.fails {
			require.Error(t, err, tc.topic)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.req, req)
	}
	require.Equal(t, "door/commands/+", CommandTopic("door"))
}

func TestWatcherPoll(t *testing.T) {
	w, dev, log := newTestWatcher(t)
	dev.Store(2, sim.FingerTemplate(1))

	require.NoError(t, w.Poll())
	require.Empty(t, log.types())

	dev.Press(sim.FingerTemplate(1))
	require.NoError(t, w.Poll())
	require.NoError(t, w.Poll())
	dev.Press(nil)
	require.NoError(t, w.Poll())
	require.Equal(t, []string{
		events.TypeFingerPressed,
		events.TypeIdentified,
		events.TypeFingerReleased,
	}, log.types())
	identified := log.events[1]
	require.Equal(t, "door", identified.Device)
	require.Equal(t, "found", identified.Status)
	require.Equal(t, 2, *identified.Slot)
	require.False(t, identified.Time.IsZero())
}

func TestWatcherExecute(t *testing.T) {
	w, dev, log := newTestWatcher(t)
	dev.Press(sim.FingerTemplate(5))
	require.NoError(t, w.Execute(Request{Op: OpEnroll, Slot: sensor.AutoSlot}))
	require.Equal(t, 1, dev.Enrolled())
	ev := log.events[0]
	require.Equal(t, events.TypeEnrolled, ev.Type)
	require.Equal(t, "completed", ev.Status)
	require.Equal(t, 0, *ev.Slot)

	require.NoError(t, w.Execute(Request{Op: OpDelete, Slot: 0}))
	require.Zero(t, dev.Enrolled())
	require.Error(t, w.Execute(Request{Op: OpDelete, Slot: 0}))
	require.NoError(t, w.Execute(Request{Op: OpDelete, Slot: AllSlots}))
	require.Nil(t, log.events[len(log.events)-1].Slot)
	require.Error(t, w.Execute(Request{Op: "format"}))
}

func TestWatcherRun(t *testing.T) {
	w, dev, log := newTestWatcher(t)
	dev.Store(0, sim.FingerTemplate(7))
	w.HandleCommand("door/commands/delete", []byte("all"))
	w.HandleCommand("door/commands/bogus", nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	waitFor := func(typ string) *events.Event {
		for {
			select {
			case ev := <-log.ch:
				if ev.Type == typ {
					return ev
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("no %s event", typ)
				return nil
			}
		}
	}
	waitFor(events.TypeDeleted)
	require.Zero(t, dev.Enrolled())
	dev.Press(sim.FingerTemplate(7))
	ev := waitFor(events.TypeIdentified)
	require.Equal(t, "not-found", ev.Status)

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestRunner(t *testing.T) {
	r := NewRunner()
	failure := errors.New("broken")
	r.Go(
		NamedRun("fails", RunnableFunc(func(ctx context.Context) error { return failure })),
		RunnableFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	err := r.Wait()
	require.True(t, errors.Is(err, failure))
	require.EqualError(t, err, "fails: broken")
	var stopped *StopError
	require.True(t, errors.As(err, &stopped))
	require.Equal(t, "fails", stopped.Runner)
}

func TestStopErrors(t *testing.T) {
	var errs StopErrors
	errs.add(&StopError{Runner: "http :9110"})
	errs.add(&StopError{Runner: "watcher", Err: context.Canceled})
	require.NoError(t, errs.errorOrNil())

	errs.add(&StopError{Runner: "watcher", Err: comm.ErrNotReady})
	errs.add(&StopError{Runner: "http :9110", Err: errors.New("address in use")})
	err := errs.errorOrNil()
	require.EqualError(t, err, "watcher: not ready; http :9110: address in use")
	require.True(t, errors.Is(err, comm.ErrNotReady))
}

func TestHTTPServer(t *testing.T) {
	srv := NewHTTPServer("127.0.0.1:0", http.NotFoundHandler())
	require.Equal(t, "http 127.0.0.1:0", srv.Name())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.Equal(t, context.Canceled, <-errCh)

	bad := NewHTTPServer("256.0.0.1:bad", nil)
	require.Error(t, bad.Run(context.Background()))
}
