package maths

import "errors"

var (
	// ErrNotBracketed is returned when bracket expansion fails to find a sign change.
	ErrNotBracketed = errors.New("root not bracketed")
	// ErrNoConvergence is returned when a root finder exhausts its iteration cap.
	ErrNoConvergence = errors.New("root finder did not converge")
	// ErrSingular is returned for a singular or ill-conditioned linear system.
	ErrSingular = errors.New("singular matrix")
)
