package engine

import (
	"fmt"
	"math"
)

type (
	EnvelopePhase int

	Curve int

	// EnvelopeParams are read once per block. Times are in seconds.
	EnvelopeParams struct {
		Attack, Decay, Sustain, Release float32
	}

	// Envelope is an ADSR contour generator. It is advanced per sample, so
	// segment timing does not depend on the block size.
	Envelope struct {
		phase      EnvelopePhase
		level      float32
		elapsed    int
		curve      Curve
		sampleRate float32
	}
)

const (
	Idle EnvelopePhase = iota
	Attack
	Decay
	Sustain
	Release
)

const (
	Linear Curve = iota
	Exponential
)

const (
	minSegment = 0.0005
	// exponential attack aims above full scale so that 1.0 is reached in
	// the attack time: 1.2 - 1.2*e^(-t) = 1 at t = ln 6
	attackTarget = 1.2
	attackShape  = 1.791759469228055 // ln(6)
	decayShape   = 4.605170185988091 // ln(100), within 1% at the decay time
	releaseShape = 6.907755278982137 // ln(1000)
	silence      = 1e-4
)

func (p EnvelopePhase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Attack:
		return "attack"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	}
	return fmt.Sprintf("EnvelopePhase(%d)", int(p))
}

func NewEnvelope(curve Curve, sampleRate int) *Envelope {
	return &Envelope{curve: curve, sampleRate: float32(sampleRate)}
}

// Gate opens or closes the gate. Opening restarts the attack from the
// current level unless already attacking; closing releases from the current
// level.
func (e *Envelope) Gate(on bool) {
	if on {
		if e.phase != Attack {
			e.enter(Attack)
		}
		return
	}
	switch e.phase {
	case Attack, Decay, Sustain:
		e.enter(Release)
	}
}

func (e *Envelope) Phase() EnvelopePhase { return e.phase }
func (e *Envelope) Level() float32       { return e.level }

// Elapsed returns the number of samples spent in the current phase.
func (e *Envelope) Elapsed() int { return e.elapsed }

func (e *Envelope) enter(p EnvelopePhase) {
	e.phase = p
	e.elapsed = 0
}

// Process writes one level per sample into out.
func (e *Envelope) Process(out []float32, p EnvelopeParams) {
	sustain := min(max(p.Sustain, 0), 1)
	attack := e.samples(p.Attack)
	decay := e.samples(p.Decay)
	release := e.samples(p.Release)
	var attackCoef, decayCoef, releaseCoef float32
	if e.curve == Exponential {
		attackCoef = coef(attackShape, attack)
		decayCoef = coef(decayShape, decay)
		releaseCoef = coef(releaseShape, release)
	}
	for i := range out {
		switch e.phase {
		case Attack:
			if e.curve == Linear {
				e.level += 1 / attack
			} else {
				e.level = attackTarget + (e.level-attackTarget)*attackCoef
			}
			if e.level >= 1 {
				e.level = 1
				e.enter(Decay)
			}
		case Decay:
			if e.approach(sustain, decay, decayCoef) {
				e.enter(Sustain)
			}
		case Sustain:
			e.approach(sustain, decay, decayCoef)
		case Release:
			if e.curve == Linear {
				e.level -= 1 / release
			} else {
				e.level *= releaseCoef
			}
			if e.level <= silence {
				e.level = 0
				e.enter(Idle)
			}
		}
		e.elapsed++
		out[i] = e.level
	}
}

// approach moves the level toward target and reports when it arrives.
func (e *Envelope) approach(target, length, c float32) bool {
	if e.level == target {
		return true
	}
	if e.curve == Linear {
		step := 1 / length
		if e.level > target {
			e.level = max(e.level-step, target)
		} else {
			e.level = min(e.level+step, target)
		}
	} else {
		e.level = target + (e.level-target)*c
		if abs32(e.level-target) < silence {
			e.level = target
		}
	}
	return e.level == target
}

func (e *Envelope) samples(sec float32) float32 {
	return max(sec, minSegment) * e.sampleRate
}

func coef(shape, length float32) float32 {
	return float32(math.Exp(-float64(shape) / float64(length)))
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
