//go:build !cgo

package cmd

import (
	"errors"

	"github.com/vsariola/moog/gomidi"
)

// with no cgo there is no MIDI driver, so nothing can be opened
func OpenMIDI(target gomidi.Sender, prefix string, channel int) (*gomidi.Listener, error) {
	return nil, errors.New("built without cgo, MIDI input is not available")
}

func MIDIInputs() []string {
	return nil
}
