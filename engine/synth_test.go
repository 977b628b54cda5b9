package engine_test

import (
	"reflect"
	"testing"

	"github.com/vsariola/moog"
	"github.com/vsariola/moog/engine"
)

func TestSynthSilentUntilNoteOn(t *testing.T) {
	s := newSynth(t, nil)
	for i, v := range renderBlocks(t, s, 4) {
		if v != [2]float32{} {
			t.Fatalf("sample %d not silent before any note: %v", i, v)
		}
	}
	s.Send(moog.NoteOn(69, 100))
	buf := renderBlocks(t, s, 40)
	var peak float32
	for i, v := range buf {
		if v[0] != v[1] {
			t.Fatalf("sample %d: channels differ: %v", i, v)
		}
		peak = max(peak, v[0], -v[0])
	}
	if peak < 0.05 {
		t.Fatalf("note on produced almost no sound, peak %v", peak)
	}
	if st := s.Stats(); st.Blocks != 44 || st.Peak <= 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestSynthLastNotePriority(t *testing.T) {
	s := newSynth(t, nil)
	kb := s.Keyboard()
	s.Send(moog.NoteOn(60, 100))
	s.Send(moog.NoteOn(64, 100))
	renderBlocks(t, s, 1)
	if kb.Note() != 64 || kb.Held() != 2 {
		t.Fatalf("expected note 64 with two keys held, got %d with %d", kb.Note(), kb.Held())
	}
	s.Send(moog.NoteOff(64))
	renderBlocks(t, s, 1)
	if kb.Note() != 60 {
		t.Fatalf("releasing the top key should fall back to 60, got %d", kb.Note())
	}
	_, amp := s.Envelopes()
	if amp.Phase() == engine.Release || amp.Phase() == engine.Idle {
		t.Fatalf("envelope released while a key is still held: %v", amp.Phase())
	}
	s.Send(moog.NoteOn(60, 0)) // running status note off
	renderBlocks(t, s, 1)
	if amp.Phase() != engine.Release {
		t.Fatalf("envelope should release with no keys held, got %v", amp.Phase())
	}
}

func TestSynthLegato(t *testing.T) {
	for _, retrigger := range []bool{false, true} {
		s := newSynth(t, func(cfg *moog.Config) { cfg.Retrigger = retrigger })
		_, amp := s.Envelopes()
		s.Send(moog.NoteOn(60, 100))
		renderBlocks(t, s, 10)
		if amp.Phase() == engine.Attack {
			t.Fatalf("attack should be over after 10 blocks")
		}
		// a slow attack so a retriggered envelope is still rising after a block
		s.Send(moog.ControlChange(27, 127))
		s.Send(moog.ControlChange(27+moog.LSBOffset, 127))
		s.Send(moog.NoteOn(67, 100))
		renderBlocks(t, s, 1)
		if got := amp.Phase() == engine.Attack; got != retrigger {
			t.Fatalf("retrigger=%v: overlapping note restarted attack: %v", retrigger, got)
		}
	}
}

func TestSynthRejectsPartialBlocks(t *testing.T) {
	s := newSynth(t, nil)
	if err := s.Render(make(moog.AudioBuffer, s.Schedule().BlockSize()+1)); err == nil {
		t.Fatalf("expected an error for a buffer that is not a whole number of blocks")
	}
}

func TestSynthDropsWhenQueueFull(t *testing.T) {
	s := newSynth(t, func(cfg *moog.Config) { cfg.EventQueue = 1 })
	if !s.Send(moog.NoteOn(60, 100)) {
		t.Fatalf("first event should fit in the queue")
	}
	if s.Send(moog.NoteOn(62, 100)) {
		t.Fatalf("second event should be dropped")
	}
	renderBlocks(t, s, 1)
	if s.Keyboard().Note() != 60 {
		t.Fatalf("the queued event was not applied")
	}
	if d := s.Stats().Dropped; d != 1 {
		t.Fatalf("expected one dropped event, got %d", d)
	}
	if !s.Send(moog.NoteOff(60)) {
		t.Fatalf("rendering should empty the queue")
	}
}

func TestSynthPitchBendAndControlChange(t *testing.T) {
	s := newSynth(t, nil)
	s.Send(moog.PitchBend(moog.MaxController14))
	s.Send(moog.ControlChange(20, 10))
	renderBlocks(t, s, 1)
	if raw := s.Store().Raw(moog.PitchBendAmount); raw != moog.MaxController14 {
		t.Fatalf("pitch bend raw %d", raw)
	}
	if v := s.Store().Get(moog.PitchBendAmount); v < 0.99 {
		t.Fatalf("full bend should scale to about 1, got %v", v)
	}
	if raw := s.Store().Raw(moog.FilterCutoff); raw != 10 {
		t.Fatalf("cutoff raw %d", raw)
	}
}

func TestSynthIsDeterministic(t *testing.T) {
	run := func() moog.AudioBuffer {
		s := newSynth(t, nil)
		s.Send(moog.ControlChange(17, 127)) // noise in the mix
		s.Send(moog.NoteOn(57, 90))
		a := renderBlocks(t, s, 20)
		s.Send(moog.NoteOff(57))
		return append(a, renderBlocks(t, s, 20)...)
	}
	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Fatalf("two synths with the same config and events rendered different audio")
	}
}

func TestSynthPatchRoundTrip(t *testing.T) {
	s := newSynth(t, nil)
	s.Send(moog.ControlChange(21, 99))
	renderBlocks(t, s, 1)
	patch := s.SavePatch()
	other := newSynth(t, nil)
	if err := other.LoadPatch(patch); err != nil {
		t.Fatalf("LoadPatch failed: %v", err)
	}
	if !reflect.DeepEqual(other.SavePatch(), patch) {
		t.Fatalf("loaded patch differs from the saved one")
	}
	if err := other.LoadPatch(moog.Patch{"filter_emphasis": 500}); err == nil {
		t.Fatalf("expected an error for an out of range value")
	}
}
