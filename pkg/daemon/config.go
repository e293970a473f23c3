package daemon

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/fpsensor.go/pkg/events"
	"github.com/robotalks/fpsensor.go/pkg/sensor"
)

// Config is the daemon configuration file.
//
//	mqtt: mqtt://localhost:1883/fpsensor/
//	device-id: door
//	poll-interval: 200ms
//	metrics: :9110
//	port: /dev/ttyUSB0
//	baud: 115200
type Config struct {
	// MQTTURL is the broker, e.g. mqtt://host:port/topic-prefix.
	// Events are only logged when empty.
	MQTTURL      string        `yaml:"mqtt"`
	DeviceID     string        `yaml:"device-id"`
	PollInterval time.Duration `yaml:"poll-interval"`
	// MetricsAddr is the listen address of /metrics, disabled when empty.
	MetricsAddr string `yaml:"metrics"`
	// Port and Baud override the sensor flags when set.
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// DefaultPollInterval is the interval checking for a finger.
const DefaultPollInterval = 200 * time.Millisecond

var (
	configFile string

	defaultConfig = Config{
		PollInterval: DefaultPollInterval,
		MetricsAddr:  ":9110",
	}
)

func init() {
	if val := os.Getenv("FP_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "Config file in YAML")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID, machine ID by default")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics", defaultConfig.MetricsAddr, "Metrics listen address")
}

// NewConfig creates a config with defaults, loading the file specified
// by -config if any.
func NewConfig() (*Config, error) {
	conf := defaultConfig
	if configFile != "" {
		if err := conf.Load(configFile); err != nil {
			return nil, err
		}
	}
	return &conf, nil
}

// Load merges the YAML file into the config.
func (c *Config) Load(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	return c.Parse(data)
}

// Parse merges YAML content into the config.
func (c *Config) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll-interval %v", c.PollInterval)
	}
	return nil
}

// ID returns DeviceID or the machine ID.
func (c *Config) ID() string {
	if c.DeviceID != "" {
		return c.DeviceID
	}
	return events.MachineID()
}

// Apply overrides sensor settings.
func (c *Config) Apply(sc *sensor.Config) {
	if c.Port != "" {
		sc.Port = c.Port
	}
	if c.Baud != 0 {
		sc.Baud = c.Baud
	}
}
