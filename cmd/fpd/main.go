package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/fpsensor.go/pkg/daemon"
	"github.com/robotalks/fpsensor.go/pkg/events"
	"github.com/robotalks/fpsensor.go/pkg/metrics"
	"github.com/robotalks/fpsensor.go/pkg/sensor"
	"github.com/robotalks/fpsensor.go/pkg/sim"
	"github.com/robotalks/fpsensor.go/pkg/transport"
)

var simulate bool

func init() {
	sensor.SetupFlags()
	daemon.SetupFlags()
	flag.BoolVar(&simulate, "sim", simulate, "Use a simulated sensor.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := daemon.NewConfig()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	sensorConf := sensor.NewConfig()
	conf.Apply(sensorConf)
	deviceID := conf.ID()

	var opener transport.Opener = transport.NewSerialOpener(sensorConf.Port)
	if simulate {
		opener = sim.NewDemo(transport.Baud9600)
	}
	s := sensor.New(opener, sensorConf)
	runner := daemon.NewRunner().HandleSignals()
	var m *metrics.Metrics
	if conf.MetricsAddr != "" {
		reg := metrics.NewRegistry()
		m = metrics.New(reg)
		s.Observer = m
		runner.Go(daemon.NewHTTPServer(conf.MetricsAddr, metrics.Handler(reg)))
	}
	if err := s.Initialize(sensorConf.Baud); err != nil {
		glog.Exitf("initialize %s: %v", sensorConf.Port, err)
	}
	defer s.Disconnect()
	glog.Infof("sensor %s ready at %d baud", deviceID, sensorConf.Baud)

	var pub events.Publisher = events.LogPublisher{}
	if conf.MQTTURL != "" {
		queue, err := events.NewQueueFromURL(conf.MQTTURL)
		if err != nil {
			glog.Exitf("mqtt: %v", err)
		}
		defer queue.Close()
		pub = events.NewMQTTPublisher(queue)
		if token := queue.Connect(); token.Wait() && token.Error() != nil {
			glog.Exitf("mqtt connect: %v", token.Error())
		}
	}

	watcher := daemon.NewWatcher(s, pub, deviceID)
	watcher.PollInterval = conf.PollInterval
	if mqttPub, ok := pub.(*events.MQTTPublisher); ok {
		mqttPub.Queue.Sub(daemon.CommandTopic(deviceID), watcher.HandleCommand)
	}

	watcher.Metrics = m
	if err := runner.Go(watcher).Wait(); err != nil {
		glog.Errorf("%v", err)
	}
}
