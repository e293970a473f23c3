package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/fpsensor.go/pkg/sensor"
	"github.com/robotalks/fpsensor.go/pkg/transport"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Sensor *sensor.Sensor
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&InitCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&StateCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(s *sensor.Sensor) *Shell {
	sh := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Sensor: s,
	}
	sh.Shell.Set(shellKey, sh)
	sh.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		sh.Shell.AddCmd(cmd)
	}
	return sh
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Action is a sensor operation behind a command. The result is printed.
type Action func(s *sensor.Sensor, args []string) (interface{}, error)

// Command creates a command running action, which requires minArgs
// arguments and a connected sensor.
func Command(name, help string, minArgs int, action Action, aliases ...string) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    name,
		Aliases: aliases,
		Help:    help,
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < minArgs {
				c.Err(fmt.Errorf("usage: %s %s", name, help))
				return
			}
			s := ShellFrom(c)
			res, err := action(s.Sensor, c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			out, err := Format(res, s.OutputJSON)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(out)
		}),
	}
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if !ShellFrom(c).Sensor.State().Connected {
			c.Err(sensor.ErrNotConnected)
			return
		}
		fn(c)
	}
}

// Format prints a result for display.
func Format(v interface{}, asJSON bool) (string, error) {
	if asJSON {
		if v == nil {
			v = map[string]bool{"ok": true}
		}
		out, err := json.Marshal(v)
		return string(out), err
	}
	switch r := v.(type) {
	case nil:
		return "OK", nil
	case string:
		return r, nil
	case fmt.Stringer:
		return r.String(), nil
	}
	return fmt.Sprintf("%v", v), nil
}

func (s *Shell) updatePrompt() {
	if state := s.Sensor.State(); state.Connected {
		s.Shell.SetPrompt(fmt.Sprintf("[%d] > ", state.Baud))
		return
	}
	s.Shell.SetPrompt(unconnectedPrompt)
}

// Initialize initializes the sensor at the configured rate and opens it.
func (s *Shell) Initialize(baud int) error {
	defer s.updatePrompt()
	if err := s.Sensor.Initialize(baud); err != nil {
		return err
	}
	return s.Sensor.Open()
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Sensor.Config.Port)
		}
		if err := s.Initialize(s.Sensor.Config.Baud); err != nil {
			log.Fatalf("initialize %q failed: %v", s.Sensor.Config.Port, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func baudArg(c *ishell.Context) (int, error) {
	baud := ShellFrom(c).Sensor.Config.Baud
	if len(c.Args) > 0 {
		if _, err := fmt.Sscanf(c.Args[0], "%d", &baud); err != nil {
			return 0, fmt.Errorf("invalid BAUD %q", c.Args[0])
		}
	}
	if !transport.IsSupportedBaud(baud) {
		return 0, sensor.ErrUnsupportedBaud
	}
	return baud, nil
}

var (
	// InitCmd initializes the sensor.
	InitCmd = ishell.Cmd{
		Name:    "init",
		Aliases: []string{"i"},
		Help:    "[BAUD]",
		Func: func(c *ishell.Context) {
			baud, err := baudArg(c)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).Initialize(baud); err != nil {
				c.Err(err)
			}
		},
	}

	// ConnectCmd connects the transport without probing.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[BAUD]",
		Func: func(c *ishell.Context) {
			baud, err := baudArg(c)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			defer s.updatePrompt()
			if err := s.Sensor.Connect(baud); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects the transport.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			defer s.updatePrompt()
			if err := s.Sensor.Disconnect(); err != nil {
				c.Err(err)
			}
		},
	}

	// StateCmd prints the connection state.
	StateCmd = ishell.Cmd{
		Name: "state",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			out, err := Format(s.Sensor.State(), s.OutputJSON)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(out)
		},
	}
)

// Main is a helper to provide a single call in main.
// newOpener is called after flags are parsed, nil opens the serial port.
func Main(newOpener func(*sensor.Config) transport.Opener) {
	flag.Parse()
	conf := sensor.NewConfig()
	var opener transport.Opener
	if newOpener != nil {
		opener = newOpener(conf)
	}
	if opener == nil {
		opener = transport.NewSerialOpener(conf.Port)
	}
	New(sensor.New(opener, conf)).WithAutoConnect(true).Run(flag.Args()...)
}
