package engine

import (
	"fmt"
	"math"

	"github.com/vsariola/moog"
)

// Topology is the fixed voice graph together with the nodes that other code
// observes.
type Topology struct {
	Graph     *Graph
	PitchBus  NodeID // sum feeding osc1, in octaves
	CutoffBus NodeID // sum feeding the filter cutoff, in octaves above MinCutoff
	ModMix    NodeID // blend of the two modulation mixes
	// PitchMod and CutoffMod are the wheel amplifiers feeding each bus; they
	// are the same node with shared routing and two amplifiers with their own
	// gain ramps with independent routing.
	PitchMod  NodeID
	CutoffMod NodeID
	Output    NodeID
	Meter     *Meter
}

const (
	PitchModDepth  = 1 // octaves of pitch modulation at full wheel
	CutoffModDepth = 2 // octaves of cutoff modulation at full wheel
	ContourDepth   = 5 // octaves of cutoff added by the filter envelope at full contour
	osc3FixedPitch = float32(60-ReferenceNote) / 12
)

// BuildTopology wires the voice: pitch section, modulation matrix, filter
// control and the audio path from the oscillators to the output.
func BuildTopology(cfg moog.Config, store *Store, kb *Keyboard, filterEnv, ampEnv *Envelope) (*Topology, error) {
	g := NewGraph()
	fs := cfg.SampleRate
	smooth := Const(float32(cfg.BlockSize) / float32(fs))
	param := func(id moog.ParamID) Value {
		return func() float32 { return store.Get(id) }
	}
	dc := func(id moog.ParamID) Node {
		if id.Spec().Policy == moog.Smoothed {
			return NewDC(param(id), smooth, fs)
		}
		return NewDC(param(id), nil, fs)
	}
	when := func(cond func() bool) Value {
		return func() float32 {
			if cond() {
				return 1
			}
			return 0
		}
	}
	choice := func(id moog.ParamID, c int) Value {
		return when(func() bool { return store.Choice(id) == c })
	}
	on := func(id moog.ParamID) func() bool {
		return func() bool { return store.On(id) }
	}
	keyboardControl := on(moog.Osc3Control)
	keyOctaves := func() float32 {
		transpose := store.Choice(moog.Transpose) - len(moog.TransposeChoice)/2
		return float32(int(kb.Note())-ReferenceNote)/12 + float32(transpose)
	}
	glide := func() float32 {
		if !store.On(moog.PortamentoOn) {
			return 0
		}
		return store.Get(moog.PortamentoTime)
	}
	oscShape := func(id moog.ParamID) func() Waveform {
		return func() Waveform { return oscWaveforms[store.Choice(id)] }
	}
	oscRange := func(id moog.ParamID) Value {
		return func() float32 { return RangeOctaves[store.Choice(id)] }
	}
	envParams := func(a, d, s, r moog.ParamID) func() EnvelopeParams {
		return func() EnvelopeParams {
			p := EnvelopeParams{Attack: store.Get(a), Decay: store.Get(d), Sustain: store.Get(s), Release: store.Get(r)}
			if store.On(moog.DecaySwitch) {
				p.Release = p.Decay
			}
			return p
		}
	}

	// pitch
	dcKeyTrack := g.Add("dcKeyTrack", NewDC(keyOctaves, glide, fs))
	dcOscTune := g.Add("dcOscTune", dc(moog.MasterTune))
	dcPitchBend := g.Add("dcPitchBend", dc(moog.PitchBendAmount))
	ampPitchBend := g.Add("ampPitchBend", NewAmp(Const(cfg.BendRange/12)))
	g.Connect(dcPitchBend, 0, ampPitchBend, 0)
	oscModulation := when(on(moog.OscModulation))
	mainTuneMixer := g.Add("mainTuneMixer", NewMixer(Const(1), Const(1), Const(1), func() float32 {
		return PitchModDepth * oscModulation()
	}))
	g.Connect(dcKeyTrack, 0, mainTuneMixer, 0)
	g.Connect(dcOscTune, 0, mainTuneMixer, 1)
	g.Connect(ampPitchBend, 0, mainTuneMixer, 2)
	dcOsc2Tune := g.Add("dcOsc2Tune", dc(moog.Osc2Tune))
	osc2TuneMixer := g.Add("osc2TuneMixer", NewMixer(Const(1), Const(1)))
	g.Connect(mainTuneMixer, 0, osc2TuneMixer, 0)
	g.Connect(dcOsc2Tune, 0, osc2TuneMixer, 1)
	dcOsc3 := g.Add("dcOsc3", NewDC(Const(osc3FixedPitch), nil, fs))
	osc3ControlMixer := g.Add("osc3ControlMixer", NewMixer(when(keyboardControl), when(func() bool { return !keyboardControl() })))
	g.Connect(mainTuneMixer, 0, osc3ControlMixer, 0)
	g.Connect(dcOsc3, 0, osc3ControlMixer, 1)
	dcOsc3Tune := g.Add("dcOsc3Tune", dc(moog.Osc3Tune))
	osc3TuneMixer := g.Add("osc3TuneMixer", NewMixer(Const(1), Const(1)))
	g.Connect(osc3ControlMixer, 0, osc3TuneMixer, 0)
	g.Connect(dcOsc3Tune, 0, osc3TuneMixer, 1)

	// oscillators
	dcPulse := g.Add("dcPulse", NewDC(Const(0), nil, fs))
	osc1 := g.Add("osc1", NewOscillator(oscShape(moog.Osc1Waveform), oscRange(moog.Osc1Range), fs))
	osc2 := g.Add("osc2", NewOscillator(oscShape(moog.Osc2Waveform), oscRange(moog.Osc2Range), fs))
	osc3 := g.Add("osc3", NewOscillator(oscShape(moog.Osc3Waveform), oscRange(moog.Osc3Range), fs))
	g.Connect(mainTuneMixer, 0, osc1, 0)
	g.Connect(osc2TuneMixer, 0, osc2, 0)
	g.Connect(osc3TuneMixer, 0, osc3, 0)
	for _, osc := range []NodeID{osc1, osc2, osc3} {
		g.Connect(dcPulse, 0, osc, 1)
	}

	// modulation sources
	whiteNoise := g.Add("whiteNoise", NewNoise(false, cfg.Seed))
	pinkNoise := g.Add("pinkNoise", NewNoise(true, cfg.Seed*2+1))
	noiseMixer := g.Add("noiseMixer", NewMixer(choice(moog.NoiseColor, 0), choice(moog.NoiseColor, 1)))
	g.Connect(whiteNoise, 0, noiseMixer, 0)
	g.Connect(pinkNoise, 0, noiseMixer, 1)
	dcLfoFreq := g.Add("dcLfoFreq", NewDC(func() float32 {
		return float32(math.Log2(float64(store.Get(moog.LFORate))))
	}, smooth, fs))
	lfoWaveform := g.Add("lfoWaveform", NewLFO(func() Waveform { return lfoWaveforms[store.Choice(moog.LFOShape)] }, fs))
	g.Connect(dcLfoFreq, 0, lfoWaveform, 0)
	modMix1 := g.Add("modMix1", NewMixer(choice(moog.ModSource1, 0), choice(moog.ModSource1, 1)))
	g.Connect(noiseMixer, 0, modMix1, 0)
	g.Connect(lfoWaveform, 0, modMix1, 1)
	filterEnvelope := g.Add("filterEnvelope", NewEnvelopeNode(filterEnv, envParams(moog.FilterAttack, moog.FilterDecay, moog.FilterSustain, moog.FilterRelease)))
	ampEnvelope := g.Add("ampEnvelope", NewEnvelopeNode(ampEnv, envParams(moog.AmpAttack, moog.AmpDecay, moog.AmpSustain, moog.AmpRelease)))
	// osc3 can modulate its own pitch bus, so it reaches the matrix one block
	// late.
	osc3ModSend, osc3ModReturn := g.AddFeedback("osc3Mod")
	g.Connect(osc3, 0, osc3ModSend, 0)
	ampOsc3Mod := g.Add("ampOsc3Mod", NewAmp(Const(1)))
	g.Connect(osc3ModReturn, 0, ampOsc3Mod, 0)
	ampModEg := g.Add("ampModEg", NewAmp(Const(1)))
	if cfg.ModEnvelopeSource == moog.EnvelopeFilter {
		g.Connect(filterEnvelope, 0, ampModEg, 0)
	} else {
		g.Connect(ampEnvelope, 0, ampModEg, 0)
	}
	modMix2 := g.Add("modMix2", NewMixer(choice(moog.ModSource2, 0), choice(moog.ModSource2, 1)))
	g.Connect(ampOsc3Mod, 0, modMix2, 0)
	g.Connect(ampModEg, 0, modMix2, 1)
	modMixer := g.Add("modMixer", NewMixer(
		func() float32 { return 1 - store.Get(moog.ModulationMix) },
		param(moog.ModulationMix)))
	g.Connect(modMix1, 0, modMixer, 0)
	g.Connect(modMix2, 0, modMixer, 1)
	var pitchMod, cutoffMod NodeID
	switch cfg.ModWheelRouting {
	case moog.RoutingShared:
		pitchMod = g.Add("ampModWheel", NewAmp(param(moog.ModWheel)))
		cutoffMod = pitchMod
		g.Connect(modMixer, 0, pitchMod, 0)
	case moog.RoutingIndependent:
		pitchMod = g.Add("ampModWheelPitch", NewAmp(param(moog.ModWheel)))
		cutoffMod = g.Add("ampModWheelFilter", NewAmp(param(moog.ModWheel)))
		g.Connect(modMixer, 0, pitchMod, 0)
		g.Connect(modMixer, 0, cutoffMod, 0)
	default:
		return nil, fmt.Errorf("unknown mod wheel routing %q", cfg.ModWheelRouting)
	}
	g.Connect(pitchMod, 0, mainTuneMixer, 3)

	// filter control
	dcFilter := g.Add("dcFilter", dc(moog.FilterCutoff))
	dcFilterKeyTrack := g.Add("dcFilterKeyTrack", NewDC(func() float32 {
		var depth float32
		if store.On(moog.KeyTrack1) {
			depth += 1.0 / 3
		}
		if store.On(moog.KeyTrack2) {
			depth += 2.0 / 3
		}
		return depth * keyOctaves()
	}, smooth, fs))
	filterModulation := when(on(moog.FilterModulation))
	filterMixer := g.Add("filterMixer", NewMixer(
		func() float32 { return CutoffModDepth * filterModulation() },
		func() float32 { return ContourDepth * store.Get(moog.FilterContour) },
		Const(1),
		Const(1)))
	g.Connect(cutoffMod, 0, filterMixer, 0)
	g.Connect(filterEnvelope, 0, filterMixer, 1)
	g.Connect(dcFilter, 0, filterMixer, 2)
	g.Connect(dcFilterKeyTrack, 0, filterMixer, 3)

	// audio path
	oscMixer := g.Add("oscMixer", NewMixer(
		param(moog.Osc1Mix),
		param(moog.Osc2Mix),
		func() float32 {
			if !keyboardControl() {
				return 0
			}
			return store.Get(moog.Osc3Mix)
		},
		param(moog.NoiseMix)))
	g.Connect(osc1, 0, oscMixer, 0)
	g.Connect(osc2, 0, oscMixer, 1)
	g.Connect(osc3, 0, oscMixer, 2)
	g.Connect(noiseMixer, 0, oscMixer, 3)
	feedbackSend, feedbackReturn := g.AddFeedback("feedback")
	globalMixer := g.Add("globalMixer", NewMixer(Const(1), param(moog.FeedbackMix)))
	g.Connect(oscMixer, 0, globalMixer, 0)
	g.Connect(feedbackReturn, 0, globalMixer, 1)
	ampPreFilter := g.Add("ampPreFilter", NewAmp(Const(cfg.PreFilterGain)))
	g.Connect(globalMixer, 0, ampPreFilter, 0)
	vcf := g.Add("vcf", NewFilter(param(moog.FilterEmphasis), fs))
	g.Connect(ampPreFilter, 0, vcf, 0)
	g.Connect(filterMixer, 0, vcf, 1)
	band := func(i int) Value {
		return func() float32 {
			lp, bp, hp := BandWeights(store.Get(moog.FilterBand))
			return [3]float32{lp, bp, hp}[i]
		}
	}
	bandMixer := g.Add("bandMixer", NewMixer(band(0), band(1), band(2)))
	for i := 0; i < 3; i++ {
		g.Connect(vcf, i, bandMixer, i)
	}
	mainEnvelope := g.Add("mainEnvelope", NewMultiply())
	g.Connect(bandMixer, 0, mainEnvelope, 0)
	g.Connect(ampEnvelope, 0, mainEnvelope, 1)
	g.Connect(mainEnvelope, 0, feedbackSend, 0)
	bitCrushOutput := g.Add("bitCrushOutput", NewCrusher(param(moog.BitCrush)))
	g.Connect(mainEnvelope, 0, bitCrushOutput, 0)
	masterVolume := g.Add("masterVolume", NewAmp(param(moog.MasterVolume)))
	g.Connect(bitCrushOutput, 0, masterVolume, 0)
	meter := NewMeter()
	peak := g.Add("peak", meter)
	g.Connect(masterVolume, 0, peak, 0)
	output := g.Add("output", NewOutput())
	g.Connect(masterVolume, 0, output, 0)
	g.Connect(masterVolume, 0, output, 1)

	return &Topology{
		Graph:     g,
		PitchBus:  mainTuneMixer,
		CutoffBus: filterMixer,
		ModMix:    modMixer,
		PitchMod:  pitchMod,
		CutoffMod: cutoffMod,
		Output:    output,
		Meter:     meter,
	}, nil
}
