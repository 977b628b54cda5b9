package moog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	// Patch is a saved parameter set: raw values keyed by parameter name.
	// Parameters missing from a patch keep their current value when loaded.
	Patch map[string]int

	// PatchStore loads and saves named parameter sets. Where they are kept is
	// up to the implementation.
	PatchStore interface {
		Load(name string) (Patch, error)
		Save(name string, patch Patch) error
		List() ([]string, error)
	}

	// DirStore keeps each patch as a .yml file in a directory.
	DirStore struct {
		Dir string
	}
)

var ErrUnknownPatch = errors.New("unknown patch")

// DefaultPatch returns the default raw value of every parameter.
func DefaultPatch() Patch {
	ret := make(Patch, NumParams)
	for _, p := range Params {
		ret[p.Name] = p.Default
	}
	return ret
}

// Validate checks that every key names a parameter and every value is within
// the raw range of its parameter.
func (p Patch) Validate() error {
	for name, raw := range p {
		id, ok := ParamByName(name)
		if !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
		if max := id.Spec().MaxRaw(); raw < 0 || raw > max {
			return fmt.Errorf("parameter %v: value %d out of range 0..%d", name, raw, max)
		}
	}
	return nil
}

func (p Patch) Copy() Patch {
	ret := make(Patch, len(p))
	for k, v := range p {
		ret[k] = v
	}
	return ret
}

func ReadPatch(r io.Reader) (Patch, error) {
	var patch Patch
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&patch); err != nil {
		return nil, fmt.Errorf("could not parse patch: %w", err)
	}
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid patch: %w", err)
	}
	return patch, nil
}

func (p Patch) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("could not encode patch: %w", err)
	}
	return enc.Close()
}

func (d DirStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid patch name %q", name)
	}
	return filepath.Join(d.Dir, name+".yml"), nil
}

func (d DirStore) Load(name string) (Patch, error) {
	path, err := d.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownPatch, name)
	}
	if err != nil {
		return nil, fmt.Errorf("could not open patch: %w", err)
	}
	defer f.Close()
	return ReadPatch(f)
}

func (d DirStore) Save(name string, patch Patch) error {
	path, err := d.path(name)
	if err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid patch: %w", err)
	}
	if err := os.MkdirAll(d.Dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create patch directory %v: %w", d.Dir, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create patch file: %w", err)
	}
	if err := patch.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (d DirStore) List() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(d.Dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("could not list patches: %w", err)
	}
	ret := make([]string, 0, len(files))
	for _, f := range files {
		ret = append(ret, strings.TrimSuffix(filepath.Base(f), ".yml"))
	}
	sort.Strings(ret)
	return ret, nil
}
