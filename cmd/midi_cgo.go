//go:build cgo

package cmd

import (
	"github.com/vsariola/moog/gomidi"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// OpenMIDI starts forwarding the first input whose name starts with prefix
// to target.
func OpenMIDI(target gomidi.Sender, prefix string, channel int) (*gomidi.Listener, error) {
	l := gomidi.NewListener(target, channel)
	if err := l.Open(prefix); err != nil {
		return nil, err
	}
	return l, nil
}

// MIDIInputs lists the inputs the driver can open.
func MIDIInputs() []string {
	return gomidi.InputNames()
}
