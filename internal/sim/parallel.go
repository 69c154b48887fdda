package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Job builds an independent simulator. Engines are not thread-safe, so
// every job must construct its own.
type Job func() (*Simulator, error)

// Ensemble runs independent simulations concurrently.
type Ensemble struct {
	jobs    []Job
	workers int
}

func NewEnsemble(jobs []Job, workers int) *Ensemble {
	if workers < 1 {
		workers = 1
	}
	return &Ensemble{jobs: jobs, workers: workers}
}

// Run executes every job with cfg and returns results in job order.
// The first failure cancels the jobs still running.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	cfgs := make([]Config, len(e.jobs))
	for i := range cfgs {
		cfgs[i] = cfg
	}
	return e.RunConfigs(ctx, cfgs)
}

// RunConfigs is Run with a separate run configuration per job.
func (e *Ensemble) RunConfigs(ctx context.Context, cfgs []Config) ([]*Result, error) {
	if len(cfgs) != len(e.jobs) {
		return nil, fmt.Errorf("%w: %d configs for %d jobs", ErrInvalidConfig, len(cfgs), len(e.jobs))
	}
	results := make([]*Result, len(e.jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range e.jobs {
		idx := i
		g.Go(func() error {
			s, err := e.jobs[idx]()
			if err != nil {
				return err
			}
			results[idx], err = s.Run(gctx, cfgs[idx])
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
