package moog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

type (
	// Config holds the settings fixed at construction time. Everything that
	// can change while playing lives in the parameter store instead.
	Config struct {
		SampleRate        int
		BlockSize         int
		EnvelopeCurve     string
		ModWheelRouting   string
		ModEnvelopeSource string
		Retrigger         bool
		BendRange         float32
		PreFilterGain     float32
		Seed              uint32
		EventQueue        int
	}
)

const (
	CurveLinear      = "linear"
	CurveExponential = "exponential"

	RoutingShared      = "shared"
	RoutingIndependent = "independent"

	EnvelopeAmplitude = "amplitude"
	EnvelopeFilter    = "filter"
)

//go:embed config.yml
var defaultConfigYaml []byte

// DefaultConfig returns the embedded default configuration.
func DefaultConfig() Config {
	var cfg Config
	if err := yaml.UnmarshalStrict(defaultConfigYaml, &cfg); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return cfg
}

// LoadConfig returns the default configuration overridden by the file at
// path. When path is empty, config.yml in the user config directory is used
// if it exists.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(configDir, "moog", "config.yml")
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config %v: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %v: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 384000 {
		return fmt.Errorf("sample rate %d out of range", c.SampleRate)
	}
	if c.BlockSize <= 0 || c.BlockSize > 8192 {
		return fmt.Errorf("block size %d out of range", c.BlockSize)
	}
	switch c.EnvelopeCurve {
	case CurveLinear, CurveExponential:
	default:
		return fmt.Errorf("unknown envelope curve %q", c.EnvelopeCurve)
	}
	switch c.ModWheelRouting {
	case RoutingShared, RoutingIndependent:
	default:
		return fmt.Errorf("unknown mod wheel routing %q", c.ModWheelRouting)
	}
	switch c.ModEnvelopeSource {
	case EnvelopeAmplitude, EnvelopeFilter:
	default:
		return fmt.Errorf("unknown modulation envelope source %q", c.ModEnvelopeSource)
	}
	if c.BendRange < 0 || c.BendRange > 24 {
		return fmt.Errorf("bend range %v out of range", c.BendRange)
	}
	if c.PreFilterGain < 0 {
		return errors.New("pre-filter gain cannot be negative")
	}
	if c.EventQueue <= 0 {
		return errors.New("event queue must have positive capacity")
	}
	return nil
}
