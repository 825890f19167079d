package calibrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
)

// Job is one independent curve calibration, typically one reference name.
type Job struct {
	Name       string
	Strip      []*cds.CDS
	Premiums   []float64
	PUF        []float64
	YieldCurve *curve.YieldCurve
}

// CalibrateAll runs the jobs on at most workers goroutines. Results are in
// job order. The first failure cancels the jobs not yet started.
func CalibrateAll(ctx context.Context, b Builder, jobs []Job, workers int) ([]*curve.HazardCurve, error) {
	out := make([]*curve.HazardCurve, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	start := time.Now()
	for i := range jobs {
		job := jobs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cc, err := b.Calibrate(job.Strip, job.Premiums, job.PUF, job.YieldCurve)
			if err != nil {
				return fmt.Errorf("CalibrateAll: %s: %w", job.Name, err)
			}
			out[i] = cc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slog.Debug("calibrate: batch done", "jobs", len(jobs), "workers", workers, "elapsed", time.Since(start))
	return out, nil
}
