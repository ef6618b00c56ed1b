package rdclock

import (
	"fmt"
	"os"
	"time"

	"github.com/aknopov/rdclock/estimator"
	"github.com/aknopov/rdclock/probe"
	"gopkg.in/yaml.v3"
)

// Sampling limits of one calibration phase
type PhaseConfig struct {
	MinSamples   int     `json:"min_samples" yaml:"min_samples"`
	MaxSamples   int     `json:"max_samples" yaml:"max_samples"`
	StderrTarget float64 `json:"stderr_target" yaml:"stderr_target"`
	StableWindow int     `json:"stable_window" yaml:"stable_window"`
}

// Calibration settings
type Config struct {
	// Cost of reading the reference clock, in ticks
	Overhead PhaseConfig `json:"overhead" yaml:"overhead"`
	// Ticks per microsecond
	Scale PhaseConfig `json:"scale" yaml:"scale"`
	// Sleep of the scale phase iteration i is SleepStep * (i % SleepCycle + 1)
	SleepStep  time.Duration `json:"sleep_step" yaml:"sleep_step"`
	SleepCycle int           `json:"sleep_cycle" yaml:"sleep_cycle"`
	// Ticks per microsecond of the reference clock reader (nanoseconds)
	FallbackScale float64 `json:"fallback_scale" yaml:"fallback_scale"`
	// CPU identity source - "cpuid" or "os"
	Source string `json:"source" yaml:"source"`
}

const (
	minGettimeSamples  = 50
	maxGettimeSamples  = 100000
	gettimeStderrLimit = 850.0

	minSleepSamples  = 50
	maxSleepSamples  = 1000
	sleepStderrLimit = 50.0

	minStderrBounded = 5

	nominalScale = 1000.0
)

func DefaultConfig() Config {
	return Config{
		Overhead: PhaseConfig{
			MinSamples:   minGettimeSamples,
			MaxSamples:   maxGettimeSamples,
			StderrTarget: gettimeStderrLimit,
			StableWindow: minStderrBounded,
		},
		Scale: PhaseConfig{
			MinSamples:   minSleepSamples,
			MaxSamples:   maxSleepSamples,
			StderrTarget: sleepStderrLimit,
			StableWindow: minStderrBounded,
		},
		SleepStep:     time.Millisecond,
		SleepCycle:    10,
		FallbackScale: nominalScale,
		Source:        probe.SourceCPUID,
	}
}

// Reads YAML configuration; missing keys keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("can't read config: %w", err)
	}

	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, cfg.Validate()
}

func (cfg Config) Validate() error {
	if err := cfg.Overhead.validate("overhead"); err != nil {
		return err
	}
	if err := cfg.Scale.validate("scale"); err != nil {
		return err
	}
	if cfg.SleepStep <= 0 || cfg.SleepCycle < 1 {
		return fmt.Errorf("%w: sleep step %v, cycle %d", ErrInvalidConfig, cfg.SleepStep, cfg.SleepCycle)
	}
	if !(cfg.FallbackScale > 0) {
		return fmt.Errorf("%w: fallback scale %v", ErrInvalidConfig, cfg.FallbackScale)
	}
	if _, err := probe.SourceByName(cfg.Source); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (pc PhaseConfig) validate(phase string) error {
	switch {
	case pc.MinSamples < 2:
		return fmt.Errorf("%w: %s min_samples %d < 2", ErrInvalidConfig, phase, pc.MinSamples)
	case pc.MaxSamples < pc.MinSamples:
		return fmt.Errorf("%w: %s max_samples %d < min_samples %d", ErrInvalidConfig, phase, pc.MaxSamples, pc.MinSamples)
	case !(pc.StderrTarget >= 0):
		return fmt.Errorf("%w: %s stderr_target %v", ErrInvalidConfig, phase, pc.StderrTarget)
	case pc.StableWindow < 1:
		return fmt.Errorf("%w: %s stable_window %d < 1", ErrInvalidConfig, phase, pc.StableWindow)
	}
	return nil
}

func (pc PhaseConfig) params() estimator.Params {
	return estimator.Params{
		MinSamples:   pc.MinSamples,
		StderrTarget: pc.StderrTarget,
		StableWindow: pc.StableWindow,
	}
}
