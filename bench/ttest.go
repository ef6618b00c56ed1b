package bench

// Welch's t-test after "golang.org/x/perf/internal/stats":
// Copyright 2009 The Go Authors.

import (
	"errors"
	"math"
)

// Alternative hypothesis of a location test
type LocationHypothesis int

const (
	// First sample location is less than the second (one-tailed)
	LocationLess LocationHypothesis = -1
	// Locations differ (two-tailed)
	LocationDiffers LocationHypothesis = 0
	// First sample location is greater than the second (one-tailed)
	LocationGreater LocationHypothesis = 1
)

type TTestResult struct {
	N1, N2        int
	T             float64
	DoF           float64
	AltHypothesis LocationHypothesis
	P             float64
}

// Sample summary sufficient for the test
type tTestSample struct {
	weight   float64
	mean     float64
	variance float64
}

var (
	ErrSampleSize   = errors.New("sample is too small")
	ErrZeroVariance = errors.New("sample has zero variance")
)

func runStats2Sample(rs RunStats) tTestSample {
	return tTestSample{weight: float64(rs.Count), mean: rs.Avg, variance: rs.StdDev * rs.StdDev}
}

// Two-sample unpaired t-test that doesn't assume equal variances.
func WelchTTest(x1, x2 tTestSample, alt LocationHypothesis) (*TTestResult, error) {
	n1, n2 := x1.weight, x2.weight
	if n1 <= 1 || n2 <= 1 {
		return nil, ErrSampleSize
	}
	if x1.variance == 0 && x2.variance == 0 {
		return nil, ErrZeroVariance
	}

	q1, q2 := x1.variance/n1, x2.variance/n2
	dof := (q1 + q2) * (q1 + q2) / (q1*q1/(n1-1) + q2*q2/(n2-1))
	t := (x1.mean - x2.mean) / math.Sqrt(q1+q2)

	var p float64
	switch alt {
	case LocationDiffers:
		p = 2 * (1 - studentCDF(dof, math.Abs(t)))
	case LocationLess:
		p = studentCDF(dof, t)
	case LocationGreater:
		p = 1 - studentCDF(dof, t)
	}

	return &TTestResult{N1: int(n1), N2: int(n2), T: t, DoF: dof, AltHypothesis: alt, P: p}, nil
}

// CDF of Student's t-distribution with "dof" degrees of freedom
func studentCDF(dof, x float64) float64 {
	switch {
	case x == 0:
		return 0.5
	case x > 0:
		return 1 - 0.5*regIncBeta(dof/(dof+x*x), dof/2, 0.5)
	case x < 0:
		return 1 - studentCDF(dof, -x)
	default:
		return math.NaN()
	}
}

// Regularized incomplete beta function I_x(a, b), Numerical Recipes in C, 6.4
func regIncBeta(x, a, b float64) float64 {
	if x < 0 || x > 1 {
		return math.NaN()
	}

	front := 0.0
	if 0 < x && x < 1 {
		lab, _ := math.Lgamma(a + b)
		la, _ := math.Lgamma(a)
		lb, _ := math.Lgamma(b)
		front = math.Exp(lab - la - lb + a*math.Log(x) + b*math.Log(1-x))
	}

	if x < (a+1)/(a+b+2) {
		return front * betaFraction(x, a, b) / a
	}
	return 1 - front*betaFraction(1-x, b, a)/b
}

// Continued fraction part of I_x(a, b), modified Lentz's method
func betaFraction(x, a, b float64) float64 {
	const maxIterations = 200
	const epsilon = 3e-14

	nonZero := func(z float64) float64 {
		if math.Abs(z) < math.SmallestNonzeroFloat64 {
			return math.SmallestNonzeroFloat64
		}
		return z
	}

	c := 1.0
	d := 1 / nonZero(1-(a+b)*x/(a+1))
	h := d
	for m := 1; m <= maxIterations; m++ {
		mf := float64(m)

		even := mf * (b - mf) * x / ((a + 2*mf - 1) * (a + 2*mf))
		d = 1 / nonZero(1+even*d)
		c = nonZero(1 + even/c)
		h *= d * c

		odd := -(a + mf) * (a + b + mf) * x / ((a + 2*mf) * (a + 2*mf + 1))
		d = 1 / nonZero(1+odd*d)
		c = nonZero(1 + odd/c)
		step := d * c
		h *= step

		if math.Abs(step-1) < epsilon {
			return h
		}
	}
	return h
}
