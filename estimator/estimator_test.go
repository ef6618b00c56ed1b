package estimator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	testParams = Params{MinSamples: 10, StderrTarget: 0.5, StableWindow: 5}
)

func TestConstantStream(t *testing.T) {
	assertT := assert.New(t)

	est := New(testParams)
	stableAt := 0
	for i := 1; i <= 100; i++ {
		if est.Add(42) {
			stableAt = i
			break
		}
	}

	// 10 samples to the first evaluation plus 4 more bounded ones
	assertT.Equal(14, stableAt)
	assertT.True(est.IsStable())
	assertT.Equal(14, est.Count())
	assertT.InDelta(42, est.Mean(), 1e-12)
	assertT.InDelta(0, est.Stderr(), 1e-12)
}

func TestNoEvaluationBeforeMinimum(t *testing.T) {
	assertT := assert.New(t)

	est := New(testParams)
	for i := 0; i < testParams.MinSamples-1; i++ {
		assertT.False(est.Add(float64(i)))
	}
	assertT.False(est.Evaluated())
	assertT.Zero(est.Mean())
	assertT.Zero(est.Stderr())

	est.Add(9)
	assertT.True(est.Evaluated())
	assertT.InDelta(4.5, est.Mean(), 1e-12)
}

func TestStandardError(t *testing.T) {
	assertT := assert.New(t)

	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	est := New(Params{MinSamples: 2, StderrTarget: 0, StableWindow: 1})
	for _, v := range vals {
		est.Add(v)
	}

	// sample variance 32/7
	expStderr := math.Sqrt(32.0/7) / math.Sqrt(8)
	assertT.InDelta(5, est.Mean(), 1e-12)
	assertT.InDelta(expStderr, est.Stderr(), 1e-12)
	assertT.False(est.IsStable())
}

func TestLargeOffsetNoCancellation(t *testing.T) {
	assertT := assert.New(t)

	est := New(Params{MinSamples: 2, StderrTarget: 1, StableWindow: 1})
	for i := 0; i < 1000; i++ {
		est.Add(1e9 + float64(i%2))
	}

	// stdev ~0.5; float64 sums of squares would lose it entirely
	assertT.InDelta(1e9+0.5, est.Mean(), 1e-6)
	assertT.InDelta(0.5/math.Sqrt(1000), est.Stderr(), 1e-4)
}

func TestWindowResetsOnJitter(t *testing.T) {
	assertT := assert.New(t)

	est := New(Params{MinSamples: 2, StderrTarget: 1, StableWindow: 3})
	est.Add(0)
	est.Add(0)
	est.Add(0)
	// bounded twice so far; a spike resets the run
	assertT.False(est.Add(100))
	assertT.False(est.IsStable())

	stable := false
	for i := 0; i < 10000 && !stable; i++ {
		stable = est.Add(0)
	}
	assertT.True(stable)
	assertT.LessOrEqual(est.Stderr(), 1.0)
}

func TestParamsDefaults(t *testing.T) {
	assertT := assert.New(t)

	est := New(Params{})
	assertT.Equal(2, est.Params().MinSamples)
	assertT.Equal(1, est.Params().StableWindow)
}
