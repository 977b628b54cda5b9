package engine

import (
	"math"
)

// svfNode is a zero-delay-feedback state-variable filter with simultaneous
// lowpass, bandpass and highpass outputs. The cutoff input is a bus in
// octaves above MinCutoff.
type svfNode struct {
	emphasis   Value
	sampleRate float64
	ic1, ic2   float64
	lastCutoff float32
	g          float64
}

const (
	MinCutoff  = 20
	maxDamping = 2
	minDamping = 0.05
)

func NewFilter(emphasis Value, sampleRate int) Node {
	return &svfNode{emphasis: emphasis, sampleRate: float64(sampleRate), lastCutoff: float32(math.NaN())}
}

// BandWeights returns the lowpass, bandpass and highpass gains of the band
// select control: 0 is lowpass, 0.5 bandpass and 1 highpass.
func BandWeights(band float32) (lp, bp, hp float32) {
	band = min(max(band, 0), 1)
	lp = max(0, 1-2*band)
	bp = 1 - abs32(2*band-1)
	hp = max(0, 2*band-1)
	return
}

func (n *svfNode) Kind() NodeKind { return KindFilter }
func (n *svfNode) Inputs() []Input {
	return []Input{{Name: "in"}, {Name: "cutoff"}}
}
func (n *svfNode) Outputs() int { return 3 }
func (n *svfNode) process(in, out []Block) {
	e := float64(min(max(n.emphasis(), 0), 1))
	k := maxDamping - (maxDamping-minDamping)*e
	nyquist := 0.45 * n.sampleRate
	lp, bp, hp := out[0], out[1], out[2]
	for i, x := range in[0] {
		if c := in[1][i]; c != n.lastCutoff {
			f := math.Min(math.Max(MinCutoff*math.Exp2(float64(c)), MinCutoff), nyquist)
			n.g = math.Tan(math.Pi * f / n.sampleRate)
			n.lastCutoff = c
		}
		a1 := 1 / (1 + n.g*(n.g+k))
		a2 := n.g * a1
		a3 := n.g * a2
		v3 := float64(x) - n.ic2
		v1 := a1*n.ic1 + a2*v3
		v2 := n.ic2 + a2*n.ic1 + a3*v3
		n.ic1 = 2*v1 - n.ic1
		n.ic2 = 2*v2 - n.ic2
		lp[i] = float32(v2)
		bp[i] = float32(v1)
		hp[i] = float32(float64(x) - k*v1 - v2)
	}
}
