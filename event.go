package moog

import "fmt"

type (
	EventKind int

	// Event is a control-path message delivered to a Synth. Value holds the
	// controller value (0..127) for ControlChange events and the 14-bit bend
	// position (0..16383, centre 8192) for PitchBend events.
	Event struct {
		Kind       EventKind
		Note       byte
		Velocity   byte
		Controller byte
		Value      int
	}
)

const (
	NoteOnEvent EventKind = iota
	NoteOffEvent
	ControlChangeEvent
	PitchBendEvent
)

const PitchBendCenter = 8192

func NoteOn(note, velocity byte) Event {
	return Event{Kind: NoteOnEvent, Note: note, Velocity: velocity}
}

func NoteOff(note byte) Event {
	return Event{Kind: NoteOffEvent, Note: note}
}

func ControlChange(controller byte, value int) Event {
	return Event{Kind: ControlChangeEvent, Controller: controller, Value: value}
}

func PitchBend(value int) Event {
	return Event{Kind: PitchBendEvent, Value: value}
}

func (k EventKind) String() string {
	switch k {
	case NoteOnEvent:
		return "on"
	case NoteOffEvent:
		return "off"
	case ControlChangeEvent:
		return "cc"
	case PitchBendEvent:
		return "bend"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

func (e Event) String() string {
	switch e.Kind {
	case NoteOnEvent:
		return fmt.Sprintf("on %d %d", e.Note, e.Velocity)
	case NoteOffEvent:
		return fmt.Sprintf("off %d", e.Note)
	case ControlChangeEvent:
		return fmt.Sprintf("cc %d %d", e.Controller, e.Value)
	case PitchBendEvent:
		return fmt.Sprintf("bend %d", e.Value)
	}
	return e.Kind.String()
}
