// Package index prices CDS indices from their constituents and adjusts the
// constituent curves so the intrinsic value matches the traded index.
package index

import (
	"errors"
	"fmt"
	"math"

	"github.com/meenmo/cdslib/curve"
)

var (
	// ErrAllDefaulted is returned by spread and upfront calculations on an
	// index with no surviving names.
	ErrAllDefaulted = errors.New("every index constituent has defaulted")
	// ErrInvalidBundle is returned for inconsistent constituent data.
	ErrInvalidBundle = errors.New("invalid index constituent data")
)

const weightTolerance = 1e-12

// IntrinsicBundle is the constituent data of an index: weights, loss given
// default, credit curves and default status. A defaulted name may have a
// nil curve.
type IntrinsicBundle struct {
	weights     []float64
	lgd         []float64
	curves      []*curve.HazardCurve
	defaulted   []bool
	nDefaults   int
	indexFactor float64
}

// NewIntrinsicBundle validates and copies the constituent data. A nil
// weights slice selects equal weights; a nil defaulted slice marks every
// name as live.
func NewIntrinsicBundle(curves []*curve.HazardCurve, recoveries, weights []float64, defaulted []bool) (*IntrinsicBundle, error) {
	n := len(curves)
	if n == 0 {
		return nil, fmt.Errorf("NewIntrinsicBundle: no constituents: %w", ErrInvalidBundle)
	}
	if len(recoveries) != n {
		return nil, fmt.Errorf("NewIntrinsicBundle: %d curves, %d recovery rates: %w", n, len(recoveries), ErrInvalidBundle)
	}
	if weights == nil {
		weights = make([]float64, n)
		for i := range weights {
			weights[i] = 1 / float64(n)
		}
	}
	if defaulted == nil {
		defaulted = make([]bool, n)
	}
	if len(weights) != n || len(defaulted) != n {
		return nil, fmt.Errorf("NewIntrinsicBundle: %d curves, %d weights, %d default flags: %w",
			n, len(weights), len(defaulted), ErrInvalidBundle)
	}

	b := &IntrinsicBundle{
		weights:     append([]float64(nil), weights...),
		lgd:         make([]float64, n),
		curves:      append([]*curve.HazardCurve(nil), curves...),
		defaulted:   append([]bool(nil), defaulted...),
		indexFactor: 1,
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		if weights[i] <= 0 {
			return nil, fmt.Errorf("NewIntrinsicBundle: weight %d is %g: %w", i, weights[i], ErrInvalidBundle)
		}
		sum += weights[i]
		lgd := 1 - recoveries[i]
		if lgd < 0 || lgd > 1 {
			return nil, fmt.Errorf("NewIntrinsicBundle: recovery rate %d is %g: %w", i, recoveries[i], ErrInvalidBundle)
		}
		b.lgd[i] = lgd
		if defaulted[i] {
			b.nDefaults++
			b.indexFactor -= weights[i]
		} else if curves[i] == nil {
			return nil, fmt.Errorf("NewIntrinsicBundle: live name %d has no credit curve: %w", i, ErrInvalidBundle)
		}
	}
	if math.Abs(sum-1) > weightTolerance {
		return nil, fmt.Errorf("NewIntrinsicBundle: weights sum to %.15f: %w", sum, ErrInvalidBundle)
	}
	return b, nil
}

func (b *IntrinsicBundle) Size() int { return len(b.weights) }

func (b *IntrinsicBundle) NumDefaults() int { return b.nDefaults }

func (b *IntrinsicBundle) Weight(i int) float64 { return b.weights[i] }

func (b *IntrinsicBundle) LGD(i int) float64 { return b.lgd[i] }

func (b *IntrinsicBundle) CreditCurve(i int) *curve.HazardCurve { return b.curves[i] }

// CreditCurves returns a copy of the curve slice.
func (b *IntrinsicBundle) CreditCurves() []*curve.HazardCurve {
	return append([]*curve.HazardCurve(nil), b.curves...)
}

func (b *IntrinsicBundle) Defaulted(i int) bool { return b.defaulted[i] }

// IndexFactor is one minus the total weight of the defaulted names.
func (b *IntrinsicBundle) IndexFactor() float64 { return b.indexFactor }

// AllDefaulted reports whether no name survives.
func (b *IntrinsicBundle) AllDefaulted() bool { return b.nDefaults == len(b.weights) }

func (b *IntrinsicBundle) clone() *IntrinsicBundle {
	return &IntrinsicBundle{
		weights:     append([]float64(nil), b.weights...),
		lgd:         append([]float64(nil), b.lgd...),
		curves:      append([]*curve.HazardCurve(nil), b.curves...),
		defaulted:   append([]bool(nil), b.defaulted...),
		nDefaults:   b.nDefaults,
		indexFactor: b.indexFactor,
	}
}

// WithCreditCurves returns a bundle with the curves replaced.
func (b *IntrinsicBundle) WithCreditCurves(curves []*curve.HazardCurve) (*IntrinsicBundle, error) {
	if len(curves) != len(b.curves) {
		return nil, fmt.Errorf("WithCreditCurves: %d curves for %d names: %w", len(curves), len(b.curves), ErrInvalidBundle)
	}
	for i, c := range curves {
		if c == nil && !b.defaulted[i] {
			return nil, fmt.Errorf("WithCreditCurves: live name %d has no credit curve: %w", i, ErrInvalidBundle)
		}
	}
	out := b.clone()
	copy(out.curves, curves)
	return out, nil
}

// WithDefault returns a bundle with the named constituents defaulted. The
// receiver is not modified.
func (b *IntrinsicBundle) WithDefault(names ...int) (*IntrinsicBundle, error) {
	out := b.clone()
	for _, i := range names {
		if i < 0 || i >= len(out.weights) {
			return nil, fmt.Errorf("WithDefault: index %d out of range: %w", i, ErrInvalidBundle)
		}
		if out.defaulted[i] {
			return nil, fmt.Errorf("WithDefault: name %d already defaulted: %w", i, ErrInvalidBundle)
		}
		out.defaulted[i] = true
		out.nDefaults++
		out.indexFactor -= out.weights[i]
	}
	return out, nil
}
