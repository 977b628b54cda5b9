package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/moog"
)

type (
	NodeKind int

	// Value is a control source read once per block, typically a parameter
	// of the store or a quantity derived from several of them.
	Value func() float32

	// ramp interpolates a gain from its value in the previous block to the
	// new one so that gain changes never step.
	ramp struct {
		last    float32
		started bool
	}

	dcNode struct {
		value      Value
		glide      Value // seconds to reach a new value; nil jumps
		sampleRate float32
		current    float32
		target     float32
		step       float32
		started    bool
	}

	ampNode struct {
		gain Value
		ramp ramp
	}

	mixerNode struct {
		gains [4]Value
		ramps [4]ramp
		tmp   Block
	}

	multiplyNode struct{}

	noiseNode struct {
		pink bool
		seed uint32
		b    [7]float32
	}

	envelopeNode struct {
		env    *Envelope
		params func() EnvelopeParams
	}

	crusherNode struct {
		bits Value
	}

	feedbackLine struct {
		buf Block
	}

	feedbackSend struct {
		line *feedbackLine
	}

	feedbackReturn struct {
		line *feedbackLine
	}

	// Meter observes a signal and publishes its peak and RMS level of the
	// last block for readers on other goroutines.
	Meter struct {
		peak, rms atomic.Uint32
		tmp       Block
	}

	outputNode struct {
		dst moog.AudioBuffer
	}
)

const (
	KindDC NodeKind = iota
	KindAmp
	KindMixer
	KindMultiply
	KindOscillator
	KindNoise
	KindEnvelope
	KindFilter
	KindCrusher
	KindFeedbackSend
	KindFeedbackReturn
	KindMeter
	KindOutput
)

var kindNames = [...]string{"dc", "amp", "mixer", "multiply", "oscillator", "noise", "envelope", "filter", "crusher", "feedback send", "feedback return", "meter", "output"}

func (k NodeKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
	return kindNames[k]
}

// Const returns a Value that never changes.
func Const(v float32) Value {
	return func() float32 { return v }
}

// NewDC returns a node emitting a control level. With glide set, changes of
// the value are approached linearly over the glide time.
func NewDC(value, glide Value, sampleRate int) Node {
	return &dcNode{value: value, glide: glide, sampleRate: float32(sampleRate)}
}

func NewAmp(gain Value) Node { return &ampNode{gain: gain} }

// NewMixer returns a four channel mixer. Unused channels may have nil gains.
func NewMixer(gains ...Value) Node {
	m := &mixerNode{}
	copy(m.gains[:], gains)
	return m
}

func NewMultiply() Node { return &multiplyNode{} }

func NewNoise(pink bool, seed uint32) Node {
	return &noiseNode{pink: pink, seed: seed | 1}
}

func NewEnvelopeNode(env *Envelope, params func() EnvelopeParams) Node {
	return &envelopeNode{env: env, params: params}
}

func NewCrusher(bits Value) Node { return &crusherNode{bits: bits} }

func NewMeter() *Meter { return &Meter{} }

func NewOutput() Node { return &outputNode{} }

func (r *ramp) at(target float32, i, n int) float32 {
	return r.last + (target-r.last)*float32(i+1)/float32(n)
}

func (r *ramp) start(target float32) (constant bool) {
	if !r.started {
		r.last, r.started = target, true
	}
	return r.last == target
}

// apply writes in*gain into out, ramping from the previous gain.
func (r *ramp) apply(out, in Block, target float32) {
	if r.start(target) {
		vek32.MulNumber_Into(out, in, target)
		return
	}
	for i := range out {
		out[i] = in[i] * r.at(target, i, len(out))
	}
	r.last = target
}

func (n *dcNode) Kind() NodeKind  { return KindDC }
func (n *dcNode) Inputs() []Input { return nil }
func (n *dcNode) Outputs() int    { return 1 }
func (n *dcNode) process(_, out []Block) {
	t := n.value()
	if !n.started {
		n.current, n.target, n.started = t, t, true
	}
	if t != n.target {
		n.target = t
		n.step = 0
		if n.glide == nil {
			n.current = t
		} else {
			samples := max(n.glide()*n.sampleRate, 1)
			n.step = (n.target - n.current) / samples
		}
	}
	o := out[0]
	for i := range o {
		n.current += n.step
		if (n.step > 0 && n.current >= n.target) || (n.step < 0 && n.current <= n.target) {
			n.current, n.step = n.target, 0
		}
		o[i] = n.current
	}
}

func (n *ampNode) Kind() NodeKind  { return KindAmp }
func (n *ampNode) Inputs() []Input { return []Input{{Name: "in"}} }
func (n *ampNode) Outputs() int    { return 1 }
func (n *ampNode) process(in, out []Block) {
	n.ramp.apply(out[0], in[0], n.gain())
}

func (n *mixerNode) Kind() NodeKind { return KindMixer }
func (n *mixerNode) Inputs() []Input {
	return []Input{{Name: "in0", Optional: true}, {Name: "in1", Optional: true}, {Name: "in2", Optional: true}, {Name: "in3", Optional: true}}
}
func (n *mixerNode) Outputs() int   { return 1 }
func (n *mixerNode) alloc(size int) { n.tmp = make(Block, size) }
func (n *mixerNode) process(in, out []Block) {
	o := out[0]
	vek32.Zeros_Into(o, len(o))
	for c, g := range n.gains {
		if g == nil {
			continue
		}
		n.ramps[c].apply(n.tmp, in[c], g())
		vek32.Add_Inplace(o, n.tmp)
	}
}

func (n *multiplyNode) Kind() NodeKind  { return KindMultiply }
func (n *multiplyNode) Inputs() []Input { return []Input{{Name: "in"}, {Name: "gain"}} }
func (n *multiplyNode) Outputs() int    { return 1 }
func (n *multiplyNode) process(in, out []Block) {
	vek32.Mul_Into(out[0], in[0], in[1])
}

func (n *noiseNode) Kind() NodeKind  { return KindNoise }
func (n *noiseNode) Inputs() []Input { return nil }
func (n *noiseNode) Outputs() int    { return 1 }
func (n *noiseNode) process(_, out []Block) {
	for i := range out[0] {
		w := n.rand()
		if n.pink {
			// Paul Kellet's refined pink filter
			b := &n.b
			b[0] = 0.99886*b[0] + w*0.0555179
			b[1] = 0.99332*b[1] + w*0.0750759
			b[2] = 0.96900*b[2] + w*0.1538520
			b[3] = 0.86650*b[3] + w*0.3104856
			b[4] = 0.55000*b[4] + w*0.5329522
			b[5] = -0.7616*b[5] - w*0.0168980
			pink := (b[0] + b[1] + b[2] + b[3] + b[4] + b[5] + b[6] + w*0.5362) * 0.11
			b[6] = w * 0.115926
			w = pink
		}
		out[0][i] = w
	}
}

func (n *noiseNode) rand() float32 {
	n.seed *= 16007
	return float32(int32(n.seed)) / -2147483648.0
}

func (n *envelopeNode) Kind() NodeKind  { return KindEnvelope }
func (n *envelopeNode) Inputs() []Input { return nil }
func (n *envelopeNode) Outputs() int    { return 1 }
func (n *envelopeNode) process(_, out []Block) {
	n.env.Process(out[0], n.params())
}

func (n *crusherNode) Kind() NodeKind  { return KindCrusher }
func (n *crusherNode) Inputs() []Input { return []Input{{Name: "in"}} }
func (n *crusherNode) Outputs() int    { return 1 }
func (n *crusherNode) process(in, out []Block) {
	o := out[0]
	copy(o, in[0])
	bits := n.bits()
	if bits >= 16 {
		return
	}
	step := float32(math.Exp2(float64(1 - max(bits, 1))))
	vek32.MinimumNumber_Inplace(o, 1)
	vek32.MaximumNumber_Inplace(o, -1)
	vek32.DivNumber_Inplace(o, step)
	vek32.Round_Inplace(o)
	vek32.MulNumber_Inplace(o, step)
}

func (n *feedbackSend) Kind() NodeKind  { return KindFeedbackSend }
func (n *feedbackSend) Inputs() []Input { return []Input{{Name: "in"}} }
func (n *feedbackSend) Outputs() int    { return 0 }
func (n *feedbackSend) alloc(size int)  { n.line.buf = make(Block, size) }
func (n *feedbackSend) process(in, _ []Block) {
	copy(n.line.buf, in[0])
}

func (n *feedbackReturn) Kind() NodeKind  { return KindFeedbackReturn }
func (n *feedbackReturn) Inputs() []Input { return nil }
func (n *feedbackReturn) Outputs() int    { return 1 }
func (n *feedbackReturn) process(_, out []Block) {
	copy(out[0], n.line.buf)
}

func (m *Meter) Kind() NodeKind  { return KindMeter }
func (m *Meter) Inputs() []Input { return []Input{{Name: "in"}} }
func (m *Meter) Outputs() int    { return 0 }
func (m *Meter) alloc(size int)  { m.tmp = make(Block, size) }
func (m *Meter) process(in, _ []Block) {
	vek32.Mul_Into(m.tmp, in[0], in[0])
	m.rms.Store(math.Float32bits(float32(math.Sqrt(float64(vek32.Mean(m.tmp))))))
	vek32.Abs_Into(m.tmp, in[0])
	m.peak.Store(math.Float32bits(vek32.Max(m.tmp)))
}

// Levels returns the peak and RMS level of the last block.
func (m *Meter) Levels() (peak, rms float32) {
	return math.Float32frombits(m.peak.Load()), math.Float32frombits(m.rms.Load())
}

func (n *outputNode) Kind() NodeKind  { return KindOutput }
func (n *outputNode) Inputs() []Input { return []Input{{Name: "left"}, {Name: "right"}} }
func (n *outputNode) Outputs() int    { return 0 }
func (n *outputNode) process(in, _ []Block) {
	for i := range n.dst {
		n.dst[i] = [2]float32{in[0][i], in[1][i]}
	}
}
