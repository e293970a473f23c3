package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/fpsensor.go/pkg/sensor"
)

func TestFormat(t *testing.T) {
	testCases := []struct {
		name   string
		v      interface{}
		asJSON bool
		out    string
	}{
		{name: "nil", v: nil, out: "OK"},
		{name: "nil json", v: nil, asJSON: true, out: `{"ok":true}`},
		{name: "string", v: "502 bytes", out: "502 bytes"},
		{name: "stringer", v: sensor.Match{Status: sensor.MatchFound, Slot: 2}, out: "found slot 2"},
		{name: "bool", v: true, out: "true"},
		{name: "int json", v: 12, asJSON: true, out: "12"},
		{name: "state json", v: sensor.ConnectionState{Connected: true, Baud: 9600}, asJSON: true,
			out: `{"Connected":true,"Baud":9600,"Opened":false}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Format(tc.v, tc.asJSON)
			require.NoError(t, err)
			require.Equal(t, tc.out, out)
		})
	}
}
