package gomidi

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/vsariola/moog"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

type (
	// Sender accepts events without blocking.
	Sender interface {
		Send(event moog.Event) bool
	}

	// Listener forwards messages from a MIDI input to a Sender. The driver
	// must be registered by the program, usually with a blank import.
	Listener struct {
		target   Sender
		channel  int
		in       drivers.In
		stop     func()
		received atomic.Uint64
		dropped  atomic.Uint64
	}
)

// Omni makes a Listener accept every channel.
const Omni = -1

var ErrNoInput = errors.New("no MIDI input")

// Convert turns a channel voice message into an event. Messages on other
// channels, unless channel is Omni, and message types the synth does not use
// are reported as not ok.
func Convert(msg midi.Message, channel int) (ev moog.Event, ok bool) {
	var ch, key, vel, cc, val uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		ev = moog.NoteOn(key, vel)
	case msg.GetNoteEnd(&ch, &key):
		ev = moog.NoteOff(key)
	case msg.GetControlChange(&ch, &cc, &val):
		ev = moog.ControlChange(cc, int(val))
	case msg.GetPitchBend(&ch, &rel, &abs):
		ev = moog.PitchBend(int(abs))
	default:
		return moog.Event{}, false
	}
	if channel != Omni && int(ch) != channel {
		return moog.Event{}, false
	}
	return ev, true
}

// InputNames lists the inputs of the registered driver.
func InputNames() []string {
	var ret []string
	for _, in := range midi.GetInPorts() {
		ret = append(ret, in.String())
	}
	return ret
}

func NewListener(target Sender, channel int) *Listener {
	return &Listener{target: target, channel: channel}
}

// Open starts listening to the first input whose name starts with
// namePrefix, closing the input listened to before. An empty prefix takes
// the first input.
func (l *Listener) Open(namePrefix string) error {
	var found drivers.In
	for _, in := range midi.GetInPorts() {
		if strings.HasPrefix(in.String(), namePrefix) {
			found = in
			break
		}
	}
	if found == nil {
		if namePrefix == "" {
			return ErrNoInput
		}
		return fmt.Errorf("%w starting with %q", ErrNoInput, namePrefix)
	}
	l.Close()
	stop, err := midi.ListenTo(found, l.HandleMessage)
	if err != nil {
		return fmt.Errorf("listening to MIDI input %v failed: %w", found, err)
	}
	l.in, l.stop = found, stop
	return nil
}

// HandleMessage is the driver callback. A full event queue drops the event.
func (l *Listener) HandleMessage(msg midi.Message, timestampms int32) {
	ev, ok := Convert(msg, l.channel)
	if !ok {
		return
	}
	l.received.Add(1)
	if !l.target.Send(ev) {
		l.dropped.Add(1)
	}
}

func (l *Listener) String() string {
	if l.in == nil {
		return "no input"
	}
	return l.in.String()
}

// Stats returns the number of events received and the number dropped.
func (l *Listener) Stats() (received, dropped uint64) {
	return l.received.Load(), l.dropped.Load()
}

func (l *Listener) Close() {
	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
	if l.in != nil && l.in.IsOpen() {
		l.in.Close()
	}
	l.in = nil
}
