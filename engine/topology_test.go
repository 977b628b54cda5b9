package engine_test

import (
	"math"
	"testing"

	"github.com/vsariola/moog"
	"github.com/vsariola/moog/engine"
)

func newSynth(t *testing.T, mutate func(cfg *moog.Config)) *engine.Synth {
	t.Helper()
	cfg := moog.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := engine.NewSynth(cfg)
	if err != nil {
		t.Fatalf("NewSynth failed: %v", err)
	}
	return s
}

func renderBlocks(t *testing.T, s *engine.Synth, n int) moog.AudioBuffer {
	t.Helper()
	buf := make(moog.AudioBuffer, n*s.Schedule().BlockSize())
	if err := s.Render(buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return buf
}

func output(t *testing.T, s *engine.Synth, name string) engine.Block {
	t.Helper()
	id, ok := s.Topology().Graph.Find(name)
	if !ok {
		t.Fatalf("no node named %v", name)
	}
	return s.Schedule().Output(id, 0)
}

func TestTopologyCompiles(t *testing.T) {
	for _, routing := range []string{moog.RoutingShared, moog.RoutingIndependent} {
		for _, source := range []string{moog.EnvelopeAmplitude, moog.EnvelopeFilter} {
			s := newSynth(t, func(cfg *moog.Config) {
				cfg.ModWheelRouting = routing
				cfg.ModEnvelopeSource = source
			})
			checkOrder(t, s.Topology().Graph, s.Schedule().Order())
		}
	}
}

var routings = []string{moog.RoutingShared, moog.RoutingIndependent}

// modulated renders a held note with the LFO routed to both buses and the
// wheel at the given position.
func modulated(t *testing.T, routing string, wheel int) *engine.Synth {
	t.Helper()
	s := newSynth(t, func(cfg *moog.Config) { cfg.ModWheelRouting = routing })
	s.Send(moog.ControlChange(115, 127)) // osc modulation on
	s.Send(moog.ControlChange(109, 127)) // filter modulation on
	s.Send(moog.ControlChange(1, wheel))
	s.Send(moog.NoteOn(60, 100))
	renderBlocks(t, s, 4)
	return s
}

// checkBuses compares the pitch and cutoff buses with their unmodulated
// sources plus depth times the expected modulation.
func checkBuses(t *testing.T, s *engine.Synth, mod []float32) {
	t.Helper()
	top := s.Topology()
	key, tune, bend := output(t, s, "dcKeyTrack"), output(t, s, "dcOscTune"), output(t, s, "ampPitchBend")
	for i, v := range s.Schedule().Output(top.PitchBus, 0) {
		want := key[i] + tune[i] + bend[i] + engine.PitchModDepth*mod[i]
		if math.Abs(float64(v-want)) > 1e-5 {
			t.Fatalf("pitch bus %v at sample %d, expected %v", v, i, want)
		}
	}
	env, base, fkey := output(t, s, "filterEnvelope"), output(t, s, "dcFilter"), output(t, s, "dcFilterKeyTrack")
	contour := engine.ContourDepth * s.Store().Get(moog.FilterContour)
	for i, v := range s.Schedule().Output(top.CutoffBus, 0) {
		want := contour*env[i] + base[i] + fkey[i] + engine.CutoffModDepth*mod[i]
		if math.Abs(float64(v-want)) > 1e-5 {
			t.Fatalf("cutoff bus %v at sample %d, expected %v", v, i, want)
		}
	}
}

func TestModWheelAtZeroRemovesModulation(t *testing.T) {
	for _, routing := range routings {
		t.Run(routing, func(t *testing.T) {
			s := modulated(t, routing, 0)
			top := s.Topology()
			nonzero := false
			for _, v := range s.Schedule().Output(top.ModMix, 0) {
				nonzero = nonzero || v != 0
			}
			if !nonzero {
				t.Fatalf("the modulation mix was silent")
			}
			for _, id := range []engine.NodeID{top.PitchMod, top.CutoffMod} {
				for i, v := range s.Schedule().Output(id, 0) {
					if v != 0 {
						t.Fatalf("wheel at zero passed modulation %v at sample %d", v, i)
					}
				}
			}
			checkBuses(t, s, make([]float32, s.Schedule().BlockSize()))
		})
	}
}

func TestModWheelAtFullPassesModulation(t *testing.T) {
	for _, routing := range routings {
		t.Run(routing, func(t *testing.T) {
			s := modulated(t, routing, 127)
			top := s.Topology()
			mod := s.Schedule().Output(top.ModMix, 0)
			nonzero := false
			for _, id := range []engine.NodeID{top.PitchMod, top.CutoffMod} {
				wheel := s.Schedule().Output(id, 0)
				for i := range mod {
					if wheel[i] != mod[i] {
						t.Fatalf("wheel at 127 changed the modulation: %v != %v at sample %d", wheel[i], mod[i], i)
					}
					nonzero = nonzero || mod[i] != 0
				}
			}
			if !nonzero {
				t.Fatalf("the LFO modulation was silent")
			}
			checkBuses(t, s, mod)
		})
	}
}

func TestRoutingAmplifiers(t *testing.T) {
	shared := newSynth(t, nil).Topology()
	if shared.CutoffMod != shared.PitchMod {
		t.Fatalf("shared routing should use one wheel amplifier")
	}
	independent := newSynth(t, func(cfg *moog.Config) { cfg.ModWheelRouting = moog.RoutingIndependent }).Topology()
	if independent.CutoffMod == independent.PitchMod {
		t.Fatalf("independent routing should use two wheel amplifiers")
	}
}

func TestCutoffBusSumsSources(t *testing.T) {
	s := newSynth(t, nil)
	s.Send(moog.ControlChange(110, 127)) // key track 1/3
	s.Send(moog.NoteOn(81, 100))
	renderBlocks(t, s, 4)
	top := s.Topology()
	env, base, key := output(t, s, "filterEnvelope"), output(t, s, "dcFilter"), output(t, s, "dcFilterKeyTrack")
	contour := engine.ContourDepth * s.Store().Get(moog.FilterContour)
	for i, v := range s.Schedule().Output(top.CutoffBus, 0) {
		want := contour*env[i] + base[i] + key[i]
		if math.Abs(float64(v-want)) > 1e-5 {
			t.Fatalf("cutoff bus %v at sample %d, expected %v", v, i, want)
		}
	}
	if k := key[0]; math.Abs(float64(k)-1.0/3) > 1e-5 {
		t.Fatalf("one octave above the reference with 1/3 key tracking should give 1/3, got %v", k)
	}
}

func TestOsc3ControlMode(t *testing.T) {
	s := newSynth(t, nil)
	s.Send(moog.ControlChange(108, 0)) // osc3 off the keyboard
	s.Send(moog.NoteOn(84, 100))
	renderBlocks(t, s, 4)
	osc3 := output(t, s, "osc3TuneMixer")
	key := output(t, s, "dcKeyTrack")
	if key[0] == osc3[0] {
		t.Fatalf("osc3 should not follow the keyboard in control mode")
	}
	if math.Abs(float64(osc3[0])-float64(60-engine.ReferenceNote)/12) > 1e-5 {
		t.Fatalf("osc3 pitch in control mode was %v", osc3[0])
	}
}
