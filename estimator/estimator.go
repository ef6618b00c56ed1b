// Package estimator implements a sequential mean estimator that decides by itself when
// enough samples were seen: the standard error of the mean must stay at or below a target
// for several consecutive evaluations.
package estimator

import (
	"math"

	"github.com/ericlagergren/decimal"
)

// Stopping rule parameters
type Params struct {
	// Evaluations start after this many samples
	MinSamples int
	// Standard error at or below this value counts as "bounded"
	StderrTarget float64
	// Number of consecutive bounded evaluations needed for stability
	StableWindow int
}

// Sequential accumulates samples and tracks mean, standard error and stability.
// Not safe for concurrent use.
type Sequential struct {
	params    Params
	count     int
	sum       *decimal.Big
	sum2      *decimal.Big
	term      *decimal.Big
	mean      float64
	stderr    float64
	bounded   int
	evaluated bool
}

var (
	precCtx = decimal.Context128
)

func New(params Params) *Sequential {
	if params.MinSamples < 2 {
		params.MinSamples = 2
	}
	if params.StableWindow < 1 {
		params.StableWindow = 1
	}
	return &Sequential{
		params: params,
		sum:    new(decimal.Big),
		sum2:   new(decimal.Big),
		term:   new(decimal.Big),
	}
}

// Adds a sample and re-evaluates the statistics once the minimum count is reached.
// Returns true when the estimate became stable.
func (s *Sequential) Add(x float64) bool {
	s.count++
	s.term.SetFloat64(x)
	precCtx.Add(s.sum, s.sum, s.term)
	precCtx.Mul(s.term, s.term, s.term)
	precCtx.Add(s.sum2, s.sum2, s.term)

	if s.count < s.params.MinSamples {
		return false
	}

	s.evaluate()
	if s.stderr > s.params.StderrTarget {
		s.bounded = 0
	} else {
		s.bounded++
	}
	return s.IsStable()
}

func (s *Sequential) evaluate() {
	n := float64(s.count)

	// sum2 - sum^2/n in decimal - no cancellation
	sq := new(decimal.Big)
	precCtx.Mul(sq, s.sum, s.sum)
	precCtx.Quo(sq, sq, decimal.New(int64(s.count), 0))
	precCtx.Sub(sq, s.sum2, sq)
	variance := math.Max(big2float(sq)/(n-1), 0)
	if math.IsNaN(variance) {
		variance = math.Inf(1)
	}

	s.mean = big2float(s.sum) / n
	s.stderr = math.Sqrt(variance) / math.Sqrt(n)
	s.evaluated = true
}

// True when the standard error stayed bounded for the whole stability window.
func (s *Sequential) IsStable() bool {
	return s.bounded >= s.params.StableWindow
}

// Number of accepted samples
func (s *Sequential) Count() int {
	return s.count
}

// Mean as of the last evaluation; zero before the first one.
func (s *Sequential) Mean() float64 {
	return s.mean
}

// Standard error of the mean as of the last evaluation; zero before the first one.
func (s *Sequential) Stderr() float64 {
	return s.stderr
}

// Whether the minimum sample count was reached at least once
func (s *Sequential) Evaluated() bool {
	return s.evaluated
}

func (s *Sequential) Params() Params {
	return s.params
}

func big2float(val *decimal.Big) float64 {
	conv, _ := val.Float64()
	return conv
}
