package engine

import (
	"math"
)

type (
	Waveform int

	// oscillatorNode renders a waveform whose frequency follows a pitch bus
	// in octaves: f = ref * 2^(pitch + range). Pulse widths are offset by
	// the optional width input.
	oscillatorNode struct {
		ref         float64
		sampleRate  float64
		bandLimited bool
		shape       func() Waveform
		octave      Value
		phase       float64
	}
)

const (
	Triangle Waveform = iota
	SharkTooth
	ReverseSaw
	Sawtooth
	Square
	WidePulse
	NarrowPulse
	Sine
)

const (
	ReferenceFreq = 440 // Hz of A4 at 8' with the pitch bus at zero
	ReferenceNote = 69
	LFOReference  = 1 // Hz with the rate bus at zero
)

// RangeOctaves is the octave offset of each footage, 8' being the reference.
var RangeOctaves = [...]float32{-7, -2, -1, 0, 1, 2}

var (
	oscWaveforms = [...]Waveform{Triangle, SharkTooth, ReverseSaw, Sawtooth, Square, WidePulse, NarrowPulse}
	lfoWaveforms = [...]Waveform{Triangle, Square, Sawtooth, Sine}
)

func NewOscillator(shape func() Waveform, octave Value, sampleRate int) Node {
	return &oscillatorNode{ref: ReferenceFreq, sampleRate: float64(sampleRate), bandLimited: true, shape: shape, octave: octave}
}

// NewLFO returns an oscillator without band limiting whose pitch input is
// log2 of the rate in Hz.
func NewLFO(shape func() Waveform, sampleRate int) Node {
	return &oscillatorNode{ref: LFOReference, sampleRate: float64(sampleRate), shape: shape, octave: Const(0)}
}

func (w Waveform) width() float64 {
	switch w {
	case WidePulse:
		return 0.3
	case NarrowPulse:
		return 0.1
	}
	return 0.5
}

func (n *oscillatorNode) Kind() NodeKind { return KindOscillator }
func (n *oscillatorNode) Inputs() []Input {
	return []Input{{Name: "pitch"}, {Name: "width", Optional: true}}
}
func (n *oscillatorNode) Outputs() int { return 1 }
func (n *oscillatorNode) process(in, out []Block) {
	wf := n.shape()
	octave := float64(n.octave())
	pitch, width := in[0], in[1]
	for i := range out[0] {
		dt := n.ref * math.Exp2(float64(pitch[i])+octave) / n.sampleRate
		dt = math.Min(math.Max(dt, 0), 0.49)
		w := math.Min(math.Max(wf.width()+float64(width[i]), 0.02), 0.98)
		out[0][i] = float32(n.sample(wf, n.phase, dt, w))
		n.phase += dt
		if n.phase >= 1 {
			n.phase -= 1
		}
	}
}

func (n *oscillatorNode) sample(wf Waveform, t, dt, w float64) float64 {
	if !n.bandLimited {
		dt = 0
	}
	switch wf {
	case Triangle:
		return 4*math.Abs(t-0.5) - 1
	case SharkTooth:
		const peak = 0.75
		if t < peak {
			return 2*t/peak - 1
		}
		return 1 - 2*(t-peak)/(1-peak)
	case ReverseSaw:
		return 1 - 2*t + polyBLEP(t, dt)
	case Sawtooth:
		return 2*t - 1 - polyBLEP(t, dt)
	case Sine:
		return math.Sin(2 * math.Pi * t)
	}
	v := -1.0
	if t < w {
		v = 1
	}
	v += polyBLEP(t, dt)
	v -= polyBLEP(math.Mod(t-w+1, 1), dt)
	return v
}

// polyBLEP is the polynomial correction of a unit step at phase zero.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}
