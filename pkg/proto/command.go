package proto

import "fmt"

// Command is the 16-bit opcode sent in a command packet.
type Command uint16

// Supported commands.
const (
	CmdOpen                Command = 0x01
	CmdClose               Command = 0x02
	CmdUsbInternalCheck    Command = 0x03
	CmdChangeBaudrate      Command = 0x04
	CmdCmosLed             Command = 0x12
	CmdGetEnrollCount      Command = 0x20
	CmdCheckEnrolled       Command = 0x21
	CmdEnrollStart         Command = 0x22
	CmdEnroll1             Command = 0x23
	CmdEnroll2             Command = 0x24
	CmdEnroll3             Command = 0x25
	CmdIsPressFinger       Command = 0x26
	CmdDeleteID            Command = 0x40
	CmdDeleteAll           Command = 0x41
	CmdVerify1_1           Command = 0x50
	CmdIdentify1_N         Command = 0x51
	CmdVerifyTemplate1_1   Command = 0x52
	CmdIdentifyTemplate1_N Command = 0x53
	CmdCaptureFinger       Command = 0x60
	CmdMakeTemplate        Command = 0x61
	CmdGetImage            Command = 0x62
	CmdGetRawImage         Command = 0x63
	CmdGetTemplate         Command = 0x70
	CmdSetTemplate         Command = 0x71
)

var commandNames = map[Command]string{
	CmdOpen:                "Open",
	CmdClose:               "Close",
	CmdUsbInternalCheck:    "UsbInternalCheck",
	CmdChangeBaudrate:      "ChangeBaudrate",
	CmdCmosLed:             "CmosLed",
	CmdGetEnrollCount:      "GetEnrollCount",
	CmdCheckEnrolled:       "CheckEnrolled",
	CmdEnrollStart:         "EnrollStart",
	CmdEnroll1:             "Enroll1",
	CmdEnroll2:             "Enroll2",
	CmdEnroll3:             "Enroll3",
	CmdIsPressFinger:       "IsPressFinger",
	CmdDeleteID:            "DeleteID",
	CmdDeleteAll:           "DeleteAll",
	CmdVerify1_1:           "Verify1_1",
	CmdIdentify1_N:         "Identify1_N",
	CmdVerifyTemplate1_1:   "VerifyTemplate1_1",
	CmdIdentifyTemplate1_N: "IdentifyTemplate1_N",
	CmdCaptureFinger:       "CaptureFinger",
	CmdMakeTemplate:        "MakeTemplate",
	CmdGetImage:            "GetImage",
	CmdGetRawImage:         "GetRawImage",
	CmdGetTemplate:         "GetTemplate",
	CmdSetTemplate:         "SetTemplate",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for cmd, name := range commandNames {
		m[name] = cmd
	}
	return m
}()

// IsValid checks if the command is in the command table.
func (c Command) IsValid() bool {
	_, ok := commandNames[c]
	return ok
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%02x)", uint16(c))
}

// LookupCommand finds a command by its name.
func LookupCommand(name string) (Command, bool) {
	cmd, ok := commandsByName[name]
	return cmd, ok
}

// MustLookupCommand is LookupCommand but panics on unknown names.
func MustLookupCommand(name string) Command {
	cmd, ok := LookupCommand(name)
	if !ok {
		panic(fmt.Sprintf("unknown command %q", name))
	}
	return cmd
}

// Commands returns all supported commands ordered by opcode.
func Commands() []Command {
	cmds := make([]Command, 0, len(commandNames))
	for c := Command(0); c <= CmdSetTemplate; c++ {
		if c.IsValid() {
			cmds = append(cmds, c)
		}
	}
	return cmds
}
