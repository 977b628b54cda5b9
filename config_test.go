package moog_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vsariola/moog"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := moog.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.SampleRate != 44100 || cfg.BlockSize != 128 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if p := cfg.BlockPeriod(); p < 2900*time.Microsecond || p > 2903*time.Microsecond {
		t.Fatalf("block period %v", p)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(c *moog.Config){
		"sample rate":      func(c *moog.Config) { c.SampleRate = 100 },
		"block size":       func(c *moog.Config) { c.BlockSize = 0 },
		"curve":            func(c *moog.Config) { c.EnvelopeCurve = "cubic" },
		"routing":          func(c *moog.Config) { c.ModWheelRouting = "both" },
		"envelope source":  func(c *moog.Config) { c.ModEnvelopeSource = "lfo" },
		"bend range":       func(c *moog.Config) { c.BendRange = 48 },
		"pre-filter gain":  func(c *moog.Config) { c.PreFilterGain = -1 },
		"event queue size": func(c *moog.Config) { c.EventQueue = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := moog.DefaultConfig()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("blocksize: 64\nmodwheelrouting: independent\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := moog.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.BlockSize != 64 || cfg.ModWheelRouting != moog.RoutingIndependent || cfg.SampleRate != 44100 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if err := os.WriteFile(path, []byte("blocksise: 64\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := moog.LoadConfig(path); err == nil {
		t.Fatalf("expected an error for an unknown key")
	}
}
