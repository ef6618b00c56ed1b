package rdclock

import (
	"context"
	"fmt"
	"time"

	"github.com/aknopov/rdclock/estimator"
	"github.com/aknopov/rdclock/tickcount"
)

// Outcome of a successful calibration
type Calibration struct {
	// Ticks per microsecond
	Scale  float64 `json:"scale" yaml:"scale"`
	Stderr float64 `json:"stderr" yaml:"stderr"`
	// Accepted scale samples
	Iterations int `json:"iterations" yaml:"iterations"`
	// Ticks spent reading the reference clock
	OverheadMean    float64 `json:"overhead_mean" yaml:"overhead_mean"`
	OverheadStderr  float64 `json:"overhead_stderr" yaml:"overhead_stderr"`
	OverheadSamples int     `json:"overhead_samples" yaml:"overhead_samples"`
	// Samples dropped for going backwards in time, both phases
	Discarded int `json:"discarded" yaml:"discarded"`
}

// Calibrator estimates the tick rate of a counter against a reference clock.
// It runs synchronously and blocks for the accumulated sleeps of the scale phase.
type Calibrator struct {
	cfg   Config
	clock tickcount.ReferenceClock
}

// Reference clock is polled once per this many overhead samples for cancellation
const ctxPollInterval = 1024

func NewCalibrator(cfg Config, clock tickcount.ReferenceClock) *Calibrator {
	return &Calibrator{cfg: cfg, clock: clock}
}

// Estimates ticks per microsecond for the counter. Fails with ErrNotConverged when the
// standard error stays above the target and with ErrInsufficientData when the context
// is done before the estimate is complete.
func (c *Calibrator) Run(ctx context.Context, counter tickcount.Counter) (*Calibration, error) {
	res := new(Calibration)

	if err := c.measureOverhead(ctx, counter, res); err != nil {
		return nil, err
	}
	logger.Debug().
		Str("counter", counter.Name()).
		Float64("mean", res.OverheadMean).
		Float64("stderr", res.OverheadStderr).
		Int("samples", res.OverheadSamples).
		Msg("Reference clock read cost")

	est, err := c.measureScale(ctx, counter, res)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("counter", counter.Name()).
		Float64("scale", est.Mean()).
		Float64("stderr", est.Stderr()).
		Int("samples", est.Count()).
		Msg("Scale estimate")

	target := c.cfg.Scale.StderrTarget
	if !est.Evaluated() || est.Stderr() > target {
		return nil, fmt.Errorf("%w: deviation %f > %f after %d samples", ErrNotConverged, est.Stderr(), target, est.Count())
	}

	res.Scale = est.Mean()
	res.Stderr = est.Stderr()
	res.Iterations = est.Count()
	return res, nil
}

// Phase 1: counter ticks elapsing around a reference clock read.
func (c *Calibrator) measureOverhead(ctx context.Context, counter tickcount.Counter, res *Calibration) error {
	est := estimator.New(c.cfg.Overhead.params())

	for i := 1; i <= c.cfg.Overhead.MaxSamples; i++ {
		if i%ctxPollInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrInsufficientData, err)
			}
		}

		start := counter.Ticks()
		c.clock.Nanotime()
		end := counter.Ticks()
		if end < start {
			res.Discarded++
			continue
		}

		if est.Add(float64(end - start)) {
			break
		}
	}

	res.OverheadMean = est.Mean()
	res.OverheadStderr = est.Stderr()
	res.OverheadSamples = est.Count()
	return nil
}

// Phase 2: ticks per microsecond across short sleeps of varying length.
func (c *Calibrator) measureScale(ctx context.Context, counter tickcount.Counter, res *Calibration) (*estimator.Sequential, error) {
	est := estimator.New(c.cfg.Scale.params())

	for i := 1; i <= c.cfg.Scale.MaxSamples; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInsufficientData, err)
		}

		pause := c.cfg.SleepStep * time.Duration(i%c.cfg.SleepCycle+1)

		start := counter.Ticks()
		startNs := c.clock.Nanotime()
		c.clock.Sleep(pause)
		endNs := c.clock.Nanotime()
		end := counter.Ticks()

		elapsedUs := float64(endNs-startNs) / 1e3
		if elapsedUs <= 0 || end < start {
			res.Discarded++
			continue
		}

		if est.Add((float64(end-start) - res.OverheadMean) / elapsedUs) {
			break
		}
	}

	return est, nil
}
