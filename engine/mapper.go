package engine

import (
	"errors"
	"fmt"

	"github.com/vsariola/moog"
)

type (
	// Half tells which part of a parameter a controller carries.
	Half int

	Mapping struct {
		Controller int
		Param      moog.ParamID
		Half       Half
	}

	// Mapper translates control changes into parameter commits. 14-bit
	// parameters are committed only once both halves have been received
	// since the last commit; a repeated half overwrites the pending one.
	// A Mapper is meant to be driven by a single goroutine.
	Mapper struct {
		store    *Store
		table    [128]entry
		pending  [moog.NumParams]pending
		mappings []Mapping
	}

	entry struct {
		param  moog.ParamID
		half   Half
		mapped bool
	}

	pending struct {
		msb, lsb       int
		hasMSB, hasLSB bool
	}
)

const (
	Whole Half = iota
	Coarse
	Fine
)

var ErrInvalidMapping = errors.New("invalid controller mapping")

func (h Half) String() string {
	switch h {
	case Coarse:
		return "msb"
	case Fine:
		return "lsb"
	}
	return "7-bit"
}

// DefaultMappings derives the controller table from the parameter table:
// 7-bit parameters on their controller, 14-bit parameters with the MSB on
// their controller and the LSB 32 controllers above.
func DefaultMappings() []Mapping {
	var ret []Mapping
	for i, p := range moog.Params {
		if p.Controller < 0 {
			continue
		}
		id := moog.ParamID(i)
		if p.Bits == 14 {
			ret = append(ret,
				Mapping{Controller: p.Controller, Param: id, Half: Coarse},
				Mapping{Controller: p.Controller + moog.LSBOffset, Param: id, Half: Fine})
			continue
		}
		ret = append(ret, Mapping{Controller: p.Controller, Param: id, Half: Whole})
	}
	return ret
}

// NewMapper validates the table and returns a mapper committing into store.
func NewMapper(store *Store, mappings []Mapping) (*Mapper, error) {
	m := &Mapper{store: store, mappings: append([]Mapping(nil), mappings...)}
	var halves [moog.NumParams][3]bool
	for _, mp := range mappings {
		if mp.Controller < 0 || mp.Controller > 127 {
			return nil, fmt.Errorf("%w: controller %d out of range", ErrInvalidMapping, mp.Controller)
		}
		if mp.Param < 0 || mp.Param >= moog.NumParams {
			return nil, fmt.Errorf("%w: controller %d maps to unknown parameter %d", ErrInvalidMapping, mp.Controller, mp.Param)
		}
		if m.table[mp.Controller].mapped {
			return nil, fmt.Errorf("%w: controller %d mapped twice", ErrInvalidMapping, mp.Controller)
		}
		spec := mp.Param.Spec()
		if (spec.Bits == 14) != (mp.Half != Whole) {
			return nil, fmt.Errorf("%w: controller %d carries %v of %d-bit parameter %v", ErrInvalidMapping, mp.Controller, mp.Half, spec.Bits, mp.Param)
		}
		if halves[mp.Param][mp.Half] {
			return nil, fmt.Errorf("%w: %v of %v mapped twice", ErrInvalidMapping, mp.Half, mp.Param)
		}
		halves[mp.Param][mp.Half] = true
		m.table[mp.Controller] = entry{param: mp.Param, half: mp.Half, mapped: true}
	}
	for i, spec := range moog.Params {
		h := halves[i]
		if spec.Bits == 14 && h[Coarse] != h[Fine] {
			return nil, fmt.Errorf("%w: %v has only one half mapped", ErrInvalidMapping, moog.ParamID(i))
		}
		if spec.Required && !h[Whole] && !h[Coarse] {
			return nil, fmt.Errorf("%w: required parameter %v is not mapped", ErrInvalidMapping, moog.ParamID(i))
		}
	}
	return m, nil
}

// Apply handles one control change. Unmapped controllers are ignored. It
// returns the parameter committed, if any.
func (m *Mapper) Apply(controller byte, value int) (moog.ParamID, bool) {
	if int(controller) >= len(m.table) {
		return 0, false
	}
	e := m.table[controller]
	if !e.mapped {
		return 0, false
	}
	value = min(max(value, 0), moog.MaxController7)
	switch e.half {
	case Whole:
		m.store.Set(e.param, value)
		return e.param, true
	case Coarse:
		p := &m.pending[e.param]
		p.msb, p.hasMSB = value, true
	case Fine:
		p := &m.pending[e.param]
		p.lsb, p.hasLSB = value, true
	}
	p := &m.pending[e.param]
	if !p.hasMSB || !p.hasLSB {
		return 0, false
	}
	m.store.Set(e.param, p.msb<<7|p.lsb)
	*p = pending{}
	return e.param, true
}

// Lookup returns the mapping of a controller.
func (m *Mapper) Lookup(controller byte) (Mapping, bool) {
	if int(controller) >= len(m.table) {
		return Mapping{}, false
	}
	e := m.table[controller]
	return Mapping{Controller: int(controller), Param: e.param, Half: e.half}, e.mapped
}

func (m *Mapper) Mappings() []Mapping {
	return append([]Mapping(nil), m.mappings...)
}
