package maths

import (
	"fmt"
	"math"
)

const (
	// DefaultAccuracy is the absolute step tolerance used by the root finders.
	DefaultAccuracy = 1e-12
	newtonMaxIter   = 100000
	derivativeEps   = 1e-5
)

// Newton is a Newton-Raphson root finder with an absolute step tolerance.
type Newton struct {
	Accuracy float64
}

// NewNewton returns a Newton root finder; a non-positive accuracy selects DefaultAccuracy.
func NewNewton(accuracy float64) Newton {
	if accuracy <= 0 {
		accuracy = DefaultAccuracy
	}
	return Newton{Accuracy: math.Abs(accuracy)}
}

// CentralDifference returns the numerical derivative of f with step eps.
func CentralDifference(f func(float64) float64, eps float64) func(float64) float64 {
	return func(x float64) float64 {
		return (f(x+eps) - f(x-eps)) / 2 / eps
	}
}

// Solve runs pure Newton from x0 with a central-difference derivative.
func (n Newton) Solve(f func(float64) float64, x0 float64) (float64, error) {
	return n.SolveWithDerivative(f, CentralDifference(f, derivativeEps), x0)
}

// SolveWithDerivative runs pure Newton from x0 with the supplied derivative.
func (n Newton) SolveWithDerivative(f, df func(float64) float64, x0 float64) (float64, error) {
	root := x0
	for i := 0; i < newtonMaxIter; i++ {
		dx := f(root) / df(root)
		if math.IsNaN(dx) {
			return 0, fmt.Errorf("Newton: NaN step at x=%g: %w", root, ErrNoConvergence)
		}
		if math.Abs(dx) <= n.Accuracy {
			return root - dx, nil
		}
		root -= dx
	}
	return 0, fmt.Errorf("Newton: exceeded %d iterations: %w", newtonMaxIter, ErrNoConvergence)
}

// RTSafe is Newton-Raphson safeguarded by bisection on the bracket [x1, x2].
// Whenever a Newton step leaves the current sign-change interval its
// midpoint is used instead.
func (n Newton) RTSafe(f, df func(float64) float64, x1, x2 float64) (float64, error) {
	y1 := f(x1)
	if math.Abs(y1) < n.Accuracy {
		return x1, nil
	}
	y2 := f(x2)
	if math.Abs(y2) < n.Accuracy {
		return x2, nil
	}
	x := (x1 + x2) / 2
	x3, x4 := x1, x2
	if y2 < 0 {
		x3, x4 = x2, x1
	}
	for i := 0; i < newtonMaxIter; i++ {
		y := f(x)
		if y < 0 {
			x3 = x
		} else {
			x4 = x
		}
		dx := -y / df(x)
		next := x + dx
		if next < math.Min(x3, x4) || next > math.Max(x3, x4) || math.IsNaN(next) {
			dx = (x4 - x3) / 2
			next = x3 + dx
		}
		if math.Abs(dx) <= n.Accuracy {
			return next, nil
		}
		x = next
	}
	return 0, fmt.Errorf("RTSafe: exceeded %d iterations: %w", newtonMaxIter, ErrNoConvergence)
}
