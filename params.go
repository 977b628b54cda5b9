package moog

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	// ParamID indexes the parameter table.
	ParamID int

	// Policy tells consumers of a parameter whether a change may jump
	// (Immediate) or must be ramped across a block (Smoothed).
	Policy int

	// ParamSpec documents one parameter of the synth: how raw controller
	// values are scaled, where they come from and how consumers treat them.
	ParamSpec struct {
		Name       string // key of the parameter in patches
		Controller int    // controller number, the MSB for 14-bit parameters; -1 if none
		Bits       int    // 7 or 14
		Default    int    // raw default value
		Policy     Policy
		Required   bool     // the control mapper must map this parameter
		Choices    []string // non-empty for discrete parameters
		// Scale maps the raw value normalized to [0,1] into the engine's unit
		// for the parameter. Unused for discrete parameters.
		Scale   func(n float64) float64
		Display func(v float64) string
	}
)

const (
	Immediate Policy = iota
	Smoothed
)

const (
	ModWheel ParamID = iota
	ModulationMix
	PortamentoTime
	PortamentoOn
	MasterTune
	Osc2Tune
	Osc3Tune
	Osc1Mix
	Osc2Mix
	Osc3Mix
	NoiseMix
	FeedbackMix
	FilterBand
	FilterCutoff
	FilterEmphasis
	FilterContour
	FilterAttack
	FilterDecay
	FilterSustain
	FilterRelease
	AmpAttack
	AmpDecay
	AmpSustain
	AmpRelease
	LFORate
	BitCrush
	Osc1Range
	Osc1Waveform
	Osc2Range
	Osc2Waveform
	Osc3Range
	Osc3Waveform
	Osc3Control
	FilterModulation
	KeyTrack1
	KeyTrack2
	Transpose
	NoiseColor
	OscModulation
	DecaySwitch
	ModSource1
	ModSource2
	LFOShape
	PitchBendAmount
	MasterVolume
	NumParams
)

// Controller numbers that are not tied to a parameter.
const (
	LSBOffset       = 32 // the LSB of a 14-bit controller n arrives on n+32
	CCAskForData    = 90
	CCFunction      = 113
	MaxController7  = 127
	MaxController14 = 16383
)

var (
	RangeChoices    = []string{"lo", "32'", "16'", "8'", "4'", "2'"}
	WaveformChoices = []string{"triangle", "sharktooth", "reverse saw", "sawtooth", "square", "wide pulse", "narrow pulse"}
	LFOShapeChoices = []string{"triangle", "square", "sawtooth", "sine"}
	SwitchChoices   = []string{"off", "on"}
	TransposeChoice = []string{"-2", "-1", "0", "+1", "+2"}
	NoiseChoices    = []string{"white", "pink"}
	ModSource1Names = []string{"noise", "lfo"}
	ModSource2Names = []string{"osc3", "envelope"}
)

const (
	MinTime          = 0.001
	MaxTime          = 10
	MaxPortamento    = 5
	CutoffOctaves    = 10 // the cutoff parameter spans this many octaves above 20 Hz
	MasterTuneRange  = 2  // semitones
	OscTuneRange     = 7  // semitones
	MinLFORate       = 0.05
	MaxLFORate       = 50
	MaxBitCrushSteps = 15
)

// Params is the parameter table, indexed by ParamID.
var Params = [NumParams]ParamSpec{
	ModWheel:         {Name: "mod_wheel", Controller: 1, Bits: 7, Default: 0, Policy: Smoothed, Required: true, Scale: linear, Display: percent},
	ModulationMix:    {Name: "modulation_mix", Controller: 3, Bits: 7, Default: 0, Policy: Smoothed, Required: true, Scale: linear, Display: percent},
	PortamentoTime:   {Name: "portamento_time", Controller: 5, Bits: 14, Default: timeRaw(0.05, MaxPortamento), Policy: Immediate, Required: true, Scale: exponential(MinTime, MaxPortamento), Display: engineeringTime},
	PortamentoOn:     {Name: "portamento", Controller: 65, Bits: 7, Default: 0, Policy: Immediate, Required: true, Choices: SwitchChoices},
	MasterTune:       {Name: "master_tune", Controller: 9, Bits: 14, Default: 8192, Policy: Smoothed, Required: true, Scale: centered(MasterTuneRange / 12.0), Display: semitones},
	Osc2Tune:         {Name: "osc2_tune", Controller: 12, Bits: 14, Default: 8192, Policy: Smoothed, Required: true, Scale: centered(OscTuneRange / 12.0), Display: semitones},
	Osc3Tune:         {Name: "osc3_tune", Controller: 13, Bits: 14, Default: 8192, Policy: Smoothed, Required: true, Scale: centered(OscTuneRange / 12.0), Display: semitones},
	Osc1Mix:          {Name: "osc1_mix", Controller: 14, Bits: 14, Default: MaxController14, Policy: Smoothed, Required: true, Scale: linear, Display: percent},
	Osc2Mix:          {Name: "osc2_mix", Controller: 15, Bits: 14, Default: 0, Policy: Smoothed, Required: true, Scale: linear, Display: percent},
	Osc3Mix:          {Name: "osc3_mix", Controller: 16, Bits: 14, Default: 0, Policy: Smoothed, Required: true, Scale: linear, Display: percent},
	NoiseMix:         {Name: "noise_mix", Controller: 17, Bits: 14, Default: 0, Policy: Smoothed, Required: true, Scale: linear, Display: percent},
	FeedbackMix:      {Name: "feedback_mix", Controller: 18, Bits: 14, Default: 0, Policy: Smoothed, Required: true, Scale: linear, Display: percent},
	FilterBand:       {Name: "filter_band", Controller: 19, Bits: 7, Default: 0, Policy: Smoothed, Required: true, Scale: linear, Display: band},
	FilterCutoff:     {Name: "filter_cutoff", Controller: 20, Bits: 7, Default: 90, Policy: Smoothed, Required: true, Scale: scaled(CutoffOctaves), Display: cutoffHz},
	FilterEmphasis:   {Name: "filter_emphasis", Controller: 21, Bits: 7, Default: 20, Policy: Smoothed, Required: true, Scale: linear, Display: percent},
	FilterContour:    {Name: "filter_contour", Controller: 22, Bits: 7, Default: 40, Policy: Smoothed, Required: true, Scale: linear, Display: percent},
	FilterAttack:     {Name: "filter_attack", Controller: 23, Bits: 14, Default: timeRaw(0.01, MaxTime), Policy: Immediate, Required: true, Scale: exponential(MinTime, MaxTime), Display: engineeringTime},
	FilterDecay:      {Name: "filter_decay", Controller: 24, Bits: 14, Default: timeRaw(0.3, MaxTime), Policy: Immediate, Required: true, Scale: exponential(MinTime, MaxTime), Display: engineeringTime},
	FilterSustain:    {Name: "filter_sustain", Controller: 25, Bits: 7, Default: 40, Policy: Immediate, Required: true, Scale: linear, Display: percent},
	FilterRelease:    {Name: "filter_release", Controller: 26, Bits: 14, Default: timeRaw(0.3, MaxTime), Policy: Immediate, Required: true, Scale: exponential(MinTime, MaxTime), Display: engineeringTime},
	AmpAttack:        {Name: "amp_attack", Controller: 27, Bits: 14, Default: timeRaw(0.005, MaxTime), Policy: Immediate, Required: true, Scale: exponential(MinTime, MaxTime), Display: engineeringTime},
	AmpDecay:         {Name: "amp_decay", Controller: 28, Bits: 14, Default: timeRaw(0.3, MaxTime), Policy: Immediate, Required: true, Scale: exponential(MinTime, MaxTime), Display: engineeringTime},
	AmpSustain:       {Name: "amp_sustain", Controller: 29, Bits: 7, Default: 100, Policy: Immediate, Required: true, Scale: linear, Display: percent},
	AmpRelease:       {Name: "amp_release", Controller: 30, Bits: 14, Default: timeRaw(0.2, MaxTime), Policy: Immediate, Required: true, Scale: exponential(MinTime, MaxTime), Display: engineeringTime},
	LFORate:          {Name: "lfo_rate", Controller: 31, Bits: 7, Default: 64, Policy: Smoothed, Required: true, Scale: exponential(MinLFORate, MaxLFORate), Display: hertz},
	BitCrush:         {Name: "bitcrush", Controller: 91, Bits: 7, Default: 0, Policy: Immediate, Required: true, Scale: bitDepth, Display: bits},
	Osc1Range:        {Name: "osc1_range", Controller: 102, Bits: 7, Default: ChoiceRaw(3, len(RangeChoices)), Required: true, Choices: RangeChoices},
	Osc1Waveform:     {Name: "osc1_waveform", Controller: 103, Bits: 7, Default: ChoiceRaw(3, len(WaveformChoices)), Required: true, Choices: WaveformChoices},
	Osc2Range:        {Name: "osc2_range", Controller: 104, Bits: 7, Default: ChoiceRaw(3, len(RangeChoices)), Required: true, Choices: RangeChoices},
	Osc2Waveform:     {Name: "osc2_waveform", Controller: 105, Bits: 7, Default: ChoiceRaw(3, len(WaveformChoices)), Required: true, Choices: WaveformChoices},
	Osc3Range:        {Name: "osc3_range", Controller: 106, Bits: 7, Default: ChoiceRaw(3, len(RangeChoices)), Required: true, Choices: RangeChoices},
	Osc3Waveform:     {Name: "osc3_waveform", Controller: 107, Bits: 7, Default: ChoiceRaw(0, len(WaveformChoices)), Required: true, Choices: WaveformChoices},
	Osc3Control:      {Name: "osc3_keyboard", Controller: 108, Bits: 7, Default: MaxController7, Required: true, Choices: SwitchChoices},
	FilterModulation: {Name: "filter_modulation", Controller: 109, Bits: 7, Default: 0, Required: true, Choices: SwitchChoices},
	KeyTrack1:        {Name: "keytrack_1", Controller: 110, Bits: 7, Default: 0, Required: true, Choices: SwitchChoices},
	KeyTrack2:        {Name: "keytrack_2", Controller: 111, Bits: 7, Default: 0, Required: true, Choices: SwitchChoices},
	Transpose:        {Name: "transpose", Controller: 112, Bits: 7, Default: ChoiceRaw(2, len(TransposeChoice)), Required: true, Choices: TransposeChoice},
	NoiseColor:       {Name: "noise_color", Controller: 114, Bits: 7, Default: 0, Required: true, Choices: NoiseChoices},
	OscModulation:    {Name: "osc_modulation", Controller: 115, Bits: 7, Default: 0, Required: true, Choices: SwitchChoices},
	DecaySwitch:      {Name: "decay_switch", Controller: 116, Bits: 7, Default: 0, Required: true, Choices: SwitchChoices},
	ModSource1:       {Name: "mod_source_1", Controller: 117, Bits: 7, Default: ChoiceRaw(1, len(ModSource1Names)), Required: true, Choices: ModSource1Names},
	ModSource2:       {Name: "mod_source_2", Controller: 118, Bits: 7, Default: 0, Required: true, Choices: ModSource2Names},
	LFOShape:         {Name: "lfo_shape", Controller: 119, Bits: 7, Default: 0, Required: true, Choices: LFOShapeChoices},
	PitchBendAmount:  {Name: "pitch_bend", Controller: -1, Bits: 14, Default: PitchBendCenter, Policy: Smoothed, Scale: centered(1), Display: percent},
	MasterVolume:     {Name: "master_volume", Controller: 7, Bits: 7, Default: 100, Policy: Smoothed, Required: true, Scale: linear, Display: percent},
}

// ParamByName finds a parameter by its patch key.
func ParamByName(name string) (ParamID, bool) {
	for i := range Params {
		if Params[i].Name == name {
			return ParamID(i), true
		}
	}
	return 0, false
}

func (id ParamID) Spec() ParamSpec {
	return Params[id]
}

func (id ParamID) String() string {
	if id < 0 || id >= NumParams {
		return fmt.Sprintf("ParamID(%d)", int(id))
	}
	return Params[id].Name
}

// MaxRaw returns the largest raw value of the parameter.
func (p ParamSpec) MaxRaw() int {
	if p.Bits == 14 {
		return MaxController14
	}
	return MaxController7
}

func (p ParamSpec) Discrete() bool {
	return len(p.Choices) > 0
}

// ClampRaw clamps a raw value into the range of the parameter.
func (p ParamSpec) ClampRaw(raw int) int {
	return clamp(raw, 0, p.MaxRaw())
}

// Value returns the scaled value for a raw value. Discrete parameters
// return the index of the selected choice, using fixed thresholds
// index = raw*len(choices)/(MaxRaw+1).
func (p ParamSpec) Value(raw int) float32 {
	raw = p.ClampRaw(raw)
	if p.Discrete() {
		return float32(raw * len(p.Choices) / (p.MaxRaw() + 1))
	}
	if p.Scale == nil {
		return float32(raw) / float32(p.MaxRaw())
	}
	return float32(p.Scale(float64(raw) / float64(p.MaxRaw())))
}

// DisplayName returns a human readable name, e.g. "Filter Cutoff".
func (p ParamSpec) DisplayName() string {
	return cases.Title(language.English).String(strings.ReplaceAll(p.Name, "_", " "))
}

// Format renders a raw value for humans.
func (p ParamSpec) Format(raw int) string {
	v := p.Value(raw)
	if p.Discrete() {
		return p.Choices[int(v)]
	}
	if p.Display == nil {
		return fmt.Sprintf("%.3f", v)
	}
	return p.Display(float64(v))
}

// ChoiceRaw returns the smallest 7-bit raw value selecting choice i of n.
func ChoiceRaw(i, n int) int {
	return (i*(MaxController7+1) + n - 1) / n
}

func timeRaw(sec, max float64) int {
	n := math.Log(sec/MinTime) / math.Log(max/MinTime)
	return int(math.Round(n * MaxController14))
}

func linear(n float64) float64 { return n }

func scaled(r float64) func(float64) float64 {
	return func(n float64) float64 { return n * r }
}

func exponential(lo, hi float64) func(float64) float64 {
	return func(n float64) float64 { return lo * math.Pow(hi/lo, n) }
}

// centered maps 14-bit raw values to [-r, r] with raw 8192 exactly at zero.
func centered(r float64) func(float64) float64 {
	return func(n float64) float64 {
		raw := math.Round(n * MaxController14)
		v := (raw - PitchBendCenter) / (PitchBendCenter - 1)
		return math.Max(-1, math.Min(1, v)) * r
	}
}

func bitDepth(n float64) float64 {
	return 16 - math.Round(n*MaxBitCrushSteps)
}

func engineeringTime(sec float64) string {
	if sec < 1e-3 {
		return fmt.Sprintf("%.2f us", sec*1e6)
	} else if sec < 1 {
		return fmt.Sprintf("%.2f ms", sec*1e3)
	}
	return fmt.Sprintf("%.2f s", sec)
}

func percent(v float64) string   { return fmt.Sprintf("%.1f %%", v*100) }
func semitones(v float64) string { return fmt.Sprintf("%+.2f st", v*12) }
func hertz(v float64) string     { return fmt.Sprintf("%.2f Hz", v) }
func bits(v float64) string      { return fmt.Sprintf("%.0f bits", v) }
func cutoffHz(v float64) string  { return fmt.Sprintf("%.0f Hz", 20*math.Exp2(v)) }

func band(v float64) string {
	switch {
	case v < 0.25:
		return fmt.Sprintf("low %.2f", v)
	case v > 0.75:
		return fmt.Sprintf("high %.2f", v)
	}
	return fmt.Sprintf("band %.2f", v)
}
