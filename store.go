package rdclock

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aknopov/rdclock/tickcount"
)

// Diagnostic record of the last successful calibration
type Report struct {
	Implementation string  `json:"implementation" yaml:"implementation"`
	Mean           float64 `json:"mean" yaml:"mean"`
	Stderr         float64 `json:"stderr" yaml:"stderr"`
	Iterations     int     `json:"iterations" yaml:"iterations"`
}

func (r *Report) Notes() string {
	return fmt.Sprintf("%f ticks/us, deviation %f, %d iterations", r.Mean, r.Stderr, r.Iterations)
}

// ScaleStore holds ticks-per-microsecond scale and does conversions with it.
// Zero scale means "uncalibrated". There is no internal locking: the scale must be set
// before the store is shared between goroutines.
type ScaleStore struct {
	scale  float64
	report *Report
}

// Ticks per microsecond; zero if uncalibrated
func (s *ScaleStore) Scale() float64 {
	return s.scale
}

func (s *ScaleStore) Calibrated() bool {
	return s.scale > 0
}

// Last calibration report; nil when the scale is nominal or unset
func (s *ScaleStore) Report() *Report {
	return s.report
}

// Calibrates the counter and overwrites the scale and the report on success only.
func (s *ScaleStore) Calibrate(ctx context.Context, cal *Calibrator, implementation string, counter tickcount.Counter) (*Calibration, error) {
	res, err := cal.Run(ctx, counter)
	if err != nil {
		return nil, err
	}

	if s.scale != 0 {
		// Only reported - scale drift is not corrected
		drift := res.Scale - s.scale
		logger.Debug().Float64("old", s.scale).Float64("new", res.Scale).Float64("drift", drift).Msg("Recalibrated scale")
	}

	s.scale = res.Scale
	s.report = &Report{
		Implementation: implementation,
		Mean:           res.Scale,
		Stderr:         res.Stderr,
		Iterations:     res.Iterations,
	}
	return res, nil
}

func (s *ScaleStore) setNominal(scale float64) {
	s.scale = scale
	s.report = nil
}

// Microseconds in a tick interval
func (s *ScaleStore) TicksToMicroseconds(ticks uint64) (float64, error) {
	if !s.Calibrated() {
		return 0, ErrUncalibrated
	}
	return float64(ticks) / s.scale, nil
}

// Ticks in an interval given in microseconds; the fraction of a tick is truncated.
func (s *ScaleStore) MicrosecondsToTicks(us float64) (uint64, error) {
	if !s.Calibrated() {
		return 0, ErrUncalibrated
	}
	ticks := us * s.scale
	if math.IsNaN(ticks) || ticks < 0 || ticks >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %v us", ErrInvalidDuration, us)
	}
	return uint64(ticks), nil
}

// Microseconds in a tick interval rounded half away from zero:
//
//	0.50 us -> 1 us
//	0.49 us -> 0 us
func (s *ScaleStore) TicksToRoundedMicroseconds(ticks uint64) (uint64, error) {
	us, err := s.TicksToMicroseconds(ticks)
	if err != nil {
		return 0, err
	}
	return uint64(math.Round(us)), nil
}

// Tick interval as time.Duration (nanosecond resolution)
func (s *ScaleStore) Duration(ticks uint64) (time.Duration, error) {
	us, err := s.TicksToMicroseconds(ticks)
	if err != nil {
		return 0, err
	}
	return time.Duration(math.Round(us * 1e3)), nil
}
