// Package maths holds the numerical kernels and root finders used by curve
// calibration and leg integration.
package maths

import "math"

// Taylor coefficients, highest order first.
var (
	epsCoef   = []float64{1.0 / 24, 1.0 / 6, 1.0 / 2, 1}
	epsPCoef  = []float64{1.0 / 144, 1.0 / 30, 1.0 / 8, 1.0 / 3, 1.0 / 2}
	epsPPCoef = []float64{1.0 / 168, 1.0 / 36, 1.0 / 10, 1.0 / 4, 1.0 / 3}
)

const (
	epsThreshold   = 1e-10
	epsPThreshold  = 1e-7
	epsPPThreshold = 1e-5
)

// Epsilon returns (e^x - 1)/x, using a Taylor series for small |x|.
func Epsilon(x float64) float64 {
	if math.Abs(x) > epsThreshold {
		return (math.Exp(x) - 1) / x
	}
	return taylor(x, epsCoef)
}

// EpsilonP is the first derivative of Epsilon: ((x-1)e^x + 1)/x^2.
func EpsilonP(x float64) float64 {
	if math.Abs(x) > epsPThreshold {
		e := math.Exp(x) - 1
		return ((x-1)*e + x) / (x * x)
	}
	return taylor(x, epsPCoef)
}

// EpsilonPP is the second derivative of Epsilon.
func EpsilonPP(x float64) float64 {
	if math.Abs(x) > epsPPThreshold {
		e := math.Exp(x) - 1
		x2 := x * x
		return (e*(x2-2*x+2) + x2 - 2*x) / (x2 * x)
	}
	return taylor(x, epsPPCoef)
}

func taylor(x float64, coef []float64) float64 {
	sum := coef[0]
	for i := 1; i < len(coef); i++ {
		sum = coef[i] + x*sum
	}
	return sum
}
