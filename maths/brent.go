package maths

import (
	"fmt"
	"math"
)

const brentMaxIter = 100

// Brent finds a root of f in the bracket [a, b] using Brent's method
// (inverse quadratic interpolation with bisection fallback).
func Brent(f func(float64) float64, a, b, accuracy float64) (float64, error) {
	if accuracy <= 0 {
		accuracy = DefaultAccuracy
	}
	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if fa*fb > 0 {
		return 0, fmt.Errorf("Brent: f(%g)=%g, f(%g)=%g: %w", a, fa, b, fb, ErrNotBracketed)
	}

	c, fc := b, fb
	var d, e float64
	for i := 0; i < brentMaxIter; i++ {
		if (fb > 0 && fc > 0) || (fb < 0 && fc < 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol := 2*machineEps*math.Abs(b) + 0.5*accuracy
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol || fb == 0 {
			return b, nil
		}
		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			min1 := 3*xm*q - math.Abs(tol*q)
			min2 := math.Abs(e * q)
			if 2*p < math.Min(min1, min2) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}
		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else {
			b += math.Copysign(tol, xm)
		}
		fb = f(b)
	}
	return 0, fmt.Errorf("Brent: exceeded %d iterations: %w", brentMaxIter, ErrNoConvergence)
}

const machineEps = 2.220446049250313e-16
