package maths

import (
	"fmt"
	"math"
)

const (
	bracketRatio    = 1.6
	bracketMaxSteps = 50
)

// BracketRoot expands [xLower, xUpper] geometrically until f changes sign.
// The endpoint with the smaller |f| is moved outward each step.
func BracketRoot(f func(float64) float64, xLower, xUpper float64) (float64, float64, error) {
	x1, x2 := xLower, xUpper
	f1, f2 := f(x1), f(x2)
	for count := 0; count < bracketMaxSteps; count++ {
		if f1*f2 < 0 {
			return x1, x2, nil
		}
		if math.Abs(f1) < math.Abs(f2) {
			x1 += bracketRatio * (x1 - x2)
			f1 = f(x1)
		} else {
			x2 += bracketRatio * (x2 - x1)
			f2 = f(x2)
		}
	}
	return 0, 0, fmt.Errorf("BracketRoot: [%g, %g] after %d steps: %w", x1, x2, bracketMaxSteps, ErrNotBracketed)
}

// BracketRootBounded is BracketRoot with the expansion clamped to [minX, maxX].
// A zero at either endpoint counts as bracketed.
func BracketRootBounded(f func(float64) float64, xLower, xUpper, minX, maxX float64) (float64, float64, error) {
	x1, x2 := xLower, xUpper
	f1, f2 := f(x1), f(x2)
	lowerHit, upperHit := false, false
	for count := 0; count < bracketMaxSteps; count++ {
		if f1*f2 <= 0 {
			return x1, x2, nil
		}
		switch {
		case (math.Abs(f1) < math.Abs(f2) || upperHit) && !lowerHit:
			x1 += bracketRatio * (x1 - x2)
			if x1 < minX {
				x1 = minX
				lowerHit = true
			}
			f1 = f(x1)
		case !upperHit:
			x2 += bracketRatio * (x2 - x1)
			if x2 > maxX {
				x2 = maxX
				upperHit = true
			}
			f2 = f(x2)
		default:
			return 0, 0, fmt.Errorf("BracketRootBounded: limits [%g, %g] reached: %w", minX, maxX, ErrNotBracketed)
		}
	}
	return 0, 0, fmt.Errorf("BracketRootBounded: [%g, %g] after %d steps: %w", x1, x2, bracketMaxSteps, ErrNotBracketed)
}
