package moog

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

type (
	// Score is a list of timed events to be rendered offline. Times are in
	// seconds; events are applied at the first block boundary at or after
	// their time.
	Score struct {
		Length float64      `yaml:"length"`
		Patch  Patch        `yaml:"patch,omitempty"`
		Events []ScoreEvent `yaml:"events"`
	}

	ScoreEvent struct {
		Time       float64 `yaml:"time"`
		Type       string  `yaml:"type"` // on, off, cc or bend
		Note       byte    `yaml:"note,omitempty"`
		Velocity   byte    `yaml:"velocity,omitempty"`
		Controller byte    `yaml:"cc,omitempty"`
		Value      int     `yaml:"value,omitempty"`
	}
)

func ReadScore(r io.Reader) (Score, error) {
	var score Score
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&score); err != nil {
		return score, fmt.Errorf("could not parse score: %w", err)
	}
	return score, score.Validate()
}

func (s Score) Validate() error {
	if s.Length <= 0 {
		return fmt.Errorf("score length must be positive, got %v", s.Length)
	}
	if s.Patch != nil {
		if err := s.Patch.Validate(); err != nil {
			return fmt.Errorf("score patch: %w", err)
		}
	}
	for i, e := range s.Events {
		if e.Time < 0 {
			return fmt.Errorf("event %d: negative time", i)
		}
		if _, err := e.Event(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

// Event converts the score event into a synth event.
func (e ScoreEvent) Event() (Event, error) {
	switch e.Type {
	case "on":
		if e.Note > 127 {
			return Event{}, fmt.Errorf("note %d out of range", e.Note)
		}
		vel := e.Velocity
		if vel == 0 {
			vel = 100
		}
		return NoteOn(e.Note, vel), nil
	case "off":
		return NoteOff(e.Note), nil
	case "cc":
		if e.Controller > 127 || e.Value < 0 || e.Value > MaxController7 {
			return Event{}, fmt.Errorf("control change %d=%d out of range", e.Controller, e.Value)
		}
		return ControlChange(e.Controller, e.Value), nil
	case "bend":
		if e.Value < 0 || e.Value > MaxController14 {
			return Event{}, fmt.Errorf("pitch bend %d out of range", e.Value)
		}
		return PitchBend(e.Value), nil
	}
	return Event{}, fmt.Errorf("unknown event type %q", e.Type)
}

// Sorted returns the events ordered by time. Events with equal times keep
// their order.
func (s Score) Sorted() []ScoreEvent {
	ret := append([]ScoreEvent(nil), s.Events...)
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].Time < ret[j].Time })
	return ret
}
