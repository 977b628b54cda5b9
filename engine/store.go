package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/vsariola/moog"
)

// Store holds the latest committed value of every parameter. Each parameter
// is kept in its own atomic words, so readers on the audio goroutine never
// block writers and never see a torn value. There is no cross-parameter
// consistency: a reader may see one parameter updated and another not yet.
type Store struct {
	raw    [moog.NumParams]atomic.Int32
	scaled [moog.NumParams]atomic.Uint32
}

// NewStore returns a store holding the default value of every parameter.
func NewStore() *Store {
	s := &Store{}
	for i, p := range moog.Params {
		s.Set(moog.ParamID(i), p.Default)
	}
	return s
}

// Set clamps the raw value into the range of the parameter and commits it.
func (s *Store) Set(id moog.ParamID, raw int) {
	spec := moog.Params[id]
	raw = spec.ClampRaw(raw)
	s.scaled[id].Store(math.Float32bits(spec.Value(raw)))
	s.raw[id].Store(int32(raw))
}

// Get returns the scaled value of the parameter.
func (s *Store) Get(id moog.ParamID) float32 {
	return math.Float32frombits(s.scaled[id].Load())
}

// Raw returns the raw controller value last committed.
func (s *Store) Raw(id moog.ParamID) int {
	return int(s.raw[id].Load())
}

// Choice returns the selected choice of a discrete parameter.
func (s *Store) Choice(id moog.ParamID) int {
	return int(s.Get(id))
}

// On reports whether a switch parameter is on.
func (s *Store) On(id moog.ParamID) bool {
	return s.Choice(id) != 0
}

// Snapshot saves the current parameter set.
func (s *Store) Snapshot() moog.Patch {
	ret := make(moog.Patch, moog.NumParams)
	for i, p := range moog.Params {
		ret[p.Name] = s.Raw(moog.ParamID(i))
	}
	return ret
}

// Load commits every parameter of the patch. Nothing is committed if the
// patch is invalid.
func (s *Store) Load(patch moog.Patch) error {
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("cannot load patch: %w", err)
	}
	for name, raw := range patch {
		id, _ := moog.ParamByName(name)
		s.Set(id, raw)
	}
	return nil
}
