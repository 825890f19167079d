package index

import (
	"context"
	"fmt"

	"github.com/meenmo/cdslib/calibrate"
	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
)

// Constituent is one index name with its single-name quotes on the index
// pillar strip.
type Constituent struct {
	Name      string
	Weight    float64
	Recovery  float64
	Premiums  []float64
	PUF       []float64
	Defaulted bool
}

// BuildConstituentCurves calibrates every live name on workers goroutines
// and assembles the bundle. Weights are equal unless every constituent
// carries a positive weight.
func BuildConstituentCurves(ctx context.Context, b calibrate.Builder, strip []*cds.CDS, names []Constituent, yc *curve.YieldCurve, workers int) (*IntrinsicBundle, error) {
	var jobs []calibrate.Job
	var live []int
	for i, n := range names {
		if n.Defaulted {
			continue
		}
		s := make([]*cds.CDS, len(strip))
		for k, c := range strip {
			s[k] = c.WithRecoveryRate(n.Recovery)
		}
		jobs = append(jobs, calibrate.Job{Name: n.Name, Strip: s, Premiums: n.Premiums, PUF: n.PUF, YieldCurve: yc})
		live = append(live, i)
	}
	fitted, err := calibrate.CalibrateAll(ctx, b, jobs, workers)
	if err != nil {
		return nil, fmt.Errorf("BuildConstituentCurves: %w", err)
	}

	curves := make([]*curve.HazardCurve, len(names))
	for k, i := range live {
		curves[i] = fitted[k]
	}
	recoveries := make([]float64, len(names))
	defaulted := make([]bool, len(names))
	weights := make([]float64, len(names))
	explicit := len(names) > 0
	for i, n := range names {
		recoveries[i] = n.Recovery
		defaulted[i] = n.Defaulted
		weights[i] = n.Weight
		if n.Weight <= 0 {
			explicit = false
		}
	}
	if !explicit {
		weights = nil
	}
	return NewIntrinsicBundle(curves, recoveries, weights, defaulted)
}
