package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vsariola/moog"
)

type (
	// Synth is the monophonic voice: parameter store, control mapper,
	// keyboard, envelopes and the compiled graph, ticked one block at a time.
	// Send may be called from any goroutine; Render from one goroutine only.
	Synth struct {
		cfg       moog.Config
		store     *Store
		mapper    *Mapper
		keyboard  *Keyboard
		filterEnv *Envelope
		ampEnv    *Envelope
		topology  *Topology
		schedule  *Schedule
		events    chan moog.Event
		budget    time.Duration
		now       func() time.Time
		blocks    atomic.Uint64
		overruns  atomic.Uint64
		dropped   atomic.Uint64
	}

	Stats struct {
		Blocks   uint64 // blocks rendered
		Overruns uint64 // blocks that took longer to render than to play
		Dropped  uint64 // events dropped because the queue was full
		Peak     float32
		RMS      float32
	}
)

// NewSynth builds and compiles the voice. Configuration and topology errors
// are returned here; rendering never fails because of them later.
func NewSynth(cfg moog.Config) (*Synth, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Synth{
		cfg:      cfg,
		store:    NewStore(),
		keyboard: NewKeyboard(),
		events:   make(chan moog.Event, cfg.EventQueue),
		budget:   cfg.BlockPeriod(),
		now:      time.Now,
	}
	var err error
	if s.mapper, err = NewMapper(s.store, DefaultMappings()); err != nil {
		return nil, err
	}
	curve := Exponential
	if cfg.EnvelopeCurve == moog.CurveLinear {
		curve = Linear
	}
	s.filterEnv = NewEnvelope(curve, cfg.SampleRate)
	s.ampEnv = NewEnvelope(curve, cfg.SampleRate)
	if s.topology, err = BuildTopology(cfg, s.store, s.keyboard, s.filterEnv, s.ampEnv); err != nil {
		return nil, err
	}
	if s.schedule, err = s.topology.Graph.Compile(cfg.BlockSize); err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}
	return s, nil
}

// Send queues an event for the next block. It never blocks: when the queue
// is full the event is dropped and false returned.
func (s *Synth) Send(ev moog.Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Render fills the buffer, whose length must be a multiple of the block
// size. Queued events are applied at the start of each block.
func (s *Synth) Render(buffer moog.AudioBuffer) (renderError error) {
	defer func() {
		if err := recover(); err != nil {
			renderError = fmt.Errorf("render panicced: %v", err)
		}
	}()
	bs := s.cfg.BlockSize
	if len(buffer)%bs != 0 {
		return fmt.Errorf("buffer of %d samples is not a multiple of the block size %d", len(buffer), bs)
	}
	for len(buffer) > 0 {
		start := s.now()
		s.drain()
		s.schedule.Tick(buffer[:bs])
		if s.now().Sub(start) > s.budget {
			s.overruns.Add(1)
		}
		s.blocks.Add(1)
		buffer = buffer[bs:]
	}
	return nil
}

func (s *Synth) drain() {
	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
		default:
			return
		}
	}
}

func (s *Synth) handle(ev moog.Event) {
	switch ev.Kind {
	case moog.NoteOnEvent:
		if ev.Velocity == 0 {
			s.release(ev.Note)
			return
		}
		if legato := s.keyboard.Press(ev.Note); !legato || s.cfg.Retrigger {
			s.gate(true)
		}
	case moog.NoteOffEvent:
		s.release(ev.Note)
	case moog.ControlChangeEvent:
		s.mapper.Apply(ev.Controller, ev.Value)
	case moog.PitchBendEvent:
		s.store.Set(moog.PitchBendAmount, ev.Value)
	}
}

func (s *Synth) release(note byte) {
	sounding := s.keyboard.Note()
	if s.keyboard.Release(note) {
		if s.cfg.Retrigger && s.keyboard.Note() != sounding {
			s.gate(true)
		}
		return
	}
	s.gate(false)
}

func (s *Synth) gate(on bool) {
	s.filterEnv.Gate(on)
	s.ampEnv.Gate(on)
}

// LoadPatch commits a saved parameter set.
func (s *Synth) LoadPatch(p moog.Patch) error { return s.store.Load(p) }

// SavePatch returns the current parameter set.
func (s *Synth) SavePatch() moog.Patch { return s.store.Snapshot() }

func (s *Synth) Config() moog.Config { return s.cfg }

func (s *Synth) Store() *Store { return s.store }

func (s *Synth) Mapper() *Mapper { return s.mapper }

func (s *Synth) Topology() *Topology { return s.topology }

func (s *Synth) Schedule() *Schedule { return s.schedule }

func (s *Synth) Keyboard() *Keyboard { return s.keyboard }

// Envelopes returns the filter and amplitude envelopes.
func (s *Synth) Envelopes() (filter, amp *Envelope) { return s.filterEnv, s.ampEnv }

func (s *Synth) Stats() Stats {
	peak, rms := s.topology.Meter.Levels()
	return Stats{
		Blocks:   s.blocks.Load(),
		Overruns: s.overruns.Load(),
		Dropped:  s.dropped.Load(),
		Peak:     peak,
		RMS:      rms,
	}
}
