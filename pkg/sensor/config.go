package sensor

import (
	"flag"
	"os"
	"time"

	"github.com/robotalks/fpsensor.go/pkg/comm"
	"github.com/robotalks/fpsensor.go/pkg/transport"
)

// DefaultCapacity is the number of slots of the GT-521F32.
const DefaultCapacity = 200

// Config defines the configurations of a sensor session.
type Config struct {
	// Port is the serial device, e.g. /dev/ttyUSB0.
	Port string
	// Baud is the preferred baud rate.
	Baud    int
	Timeout time.Duration
	// TryCount bounds every retry loop.
	TryCount      int
	RetryInterval time.Duration
	// SettleDelay is applied after turning on the LED before capturing.
	SettleDelay time.Duration
	ChunkSize   int
	// Capacity bounds the free slot search of auto enrollment.
	Capacity int
}

var defaultConfig = Config{
	Port:          "/dev/ttyUSB0",
	Baud:          transport.Baud115200,
	Timeout:       comm.DefaultTimeout,
	TryCount:      10,
	RetryInterval: time.Second,
	SettleDelay:   time.Second,
	ChunkSize:     comm.DefaultChunkSize,
	Capacity:      DefaultCapacity,
}

func init() {
	if val := os.Getenv("FP_PORT"); val != "" {
		defaultConfig.Port = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port of the sensor")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Preferred baud rate, 9600 or 115200")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Response timeout")
	flag.IntVar(&defaultConfig.TryCount, "try", defaultConfig.TryCount, "Attempts of each retried step")
	flag.DurationVar(&defaultConfig.RetryInterval, "retry-interval", defaultConfig.RetryInterval, "Interval between attempts")
	flag.DurationVar(&defaultConfig.SettleDelay, "settle", defaultConfig.SettleDelay, "Delay after turning on LED")
	flag.IntVar(&defaultConfig.Capacity, "capacity", defaultConfig.Capacity, "Number of slots of the sensor")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewSensor creates a Sensor on the serial port in the config.
func (c *Config) NewSensor() *Sensor {
	return New(transport.NewSerialOpener(c.Port), c)
}
