package engine_test

import (
	"sync"
	"testing"

	"github.com/vsariola/moog"
	"github.com/vsariola/moog/engine"
)

func TestStoreDefaults(t *testing.T) {
	s := engine.NewStore()
	for i, p := range moog.Params {
		if got := s.Raw(moog.ParamID(i)); got != p.Default {
			t.Errorf("%v: raw default %d, expected %d", p.Name, got, p.Default)
		}
	}
	if v := s.Get(moog.MasterTune); v != 0 {
		t.Errorf("centered master tune should scale to 0, got %v", v)
	}
	if v := s.Get(moog.PitchBendAmount); v != 0 {
		t.Errorf("centered pitch bend should scale to 0, got %v", v)
	}
}

func TestStoreClampsRaw(t *testing.T) {
	s := engine.NewStore()
	s.Set(moog.ModWheel, 500)
	if s.Raw(moog.ModWheel) != 127 || s.Get(moog.ModWheel) != 1 {
		t.Fatalf("expected clamp to 127, got raw %d value %v", s.Raw(moog.ModWheel), s.Get(moog.ModWheel))
	}
	s.Set(moog.ModWheel, -4)
	if s.Raw(moog.ModWheel) != 0 || s.Get(moog.ModWheel) != 0 {
		t.Fatalf("expected clamp to 0, got raw %d value %v", s.Raw(moog.ModWheel), s.Get(moog.ModWheel))
	}
	s.Set(moog.Osc1Mix, 1<<20)
	if s.Raw(moog.Osc1Mix) != moog.MaxController14 {
		t.Fatalf("expected 14-bit clamp, got %d", s.Raw(moog.Osc1Mix))
	}
}

func TestStoreConcurrentReadsSeeCommittedValues(t *testing.T) {
	s := engine.NewStore()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			s.Set(moog.FilterCutoff, (i%2)*127)
		}
	}()
	for i := 0; i < 10000; i++ {
		v := s.Get(moog.FilterCutoff)
		if v != 0 && v != moog.CutoffOctaves && v != moog.Params[moog.FilterCutoff].Value(moog.Params[moog.FilterCutoff].Default) {
			t.Fatalf("read a value that was never committed: %v", v)
		}
	}
	wg.Wait()
}

func TestStoreSnapshotAndLoad(t *testing.T) {
	s := engine.NewStore()
	s.Set(moog.FilterCutoff, 12)
	s.Set(moog.Osc2Tune, 9000)
	patch := s.Snapshot()
	other := engine.NewStore()
	if err := other.Load(patch); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if other.Raw(moog.FilterCutoff) != 12 || other.Raw(moog.Osc2Tune) != 9000 {
		t.Fatalf("loaded store differs: %d %d", other.Raw(moog.FilterCutoff), other.Raw(moog.Osc2Tune))
	}
	bad := moog.Patch{"filter_cutoff": 3, "no_such_param": 1}
	if err := other.Load(bad); err == nil {
		t.Fatalf("expected an error for an unknown parameter")
	}
	if other.Raw(moog.FilterCutoff) != 12 {
		t.Fatalf("an invalid patch was partially committed")
	}
}
