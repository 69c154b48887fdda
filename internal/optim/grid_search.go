package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/verletsim/internal/automation"
	"github.com/san-kum/verletsim/internal/experiment"
)

var (
	ErrNoCandidate   = errors.New("optim: no parameter combination completed")
	ErrUnknownMetric = errors.New("optim: unknown metric")
)

// GridSearch runs every combination of parameter values and keeps the one
// with the lowest metric.
type GridSearch struct {
	Scene    string
	Preset   string
	Duration float64

	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Candidates is the number of runs Search performs.
func (g *GridSearch) Candidates() int {
	if len(g.ranges) == 0 {
		return 0
	}
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search minimizes metricName. Combinations whose run fails are logged and
// skipped; a metric the scene never reports fails the search.
func (g *GridSearch) Search(ctx context.Context, registry *experiment.Registry, metricName string) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64

	var search func(depth int, current map[string]float64) error
	search = func(depth int, current map[string]float64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if depth == len(g.paramNames) {
			val, err := g.evaluate(ctx, registry, current, metricName)
			if err != nil {
				if errors.Is(err, automation.ErrUnknownParameter) || errors.Is(err, ErrUnknownMetric) {
					return err
				}
				slog.Warn("grid point failed", "params", current, "err", err)
				return nil
			}
			if val < best {
				best = val
				bestParams = make(map[string]float64, len(current))
				for k, v := range current {
					bestParams[k] = v
				}
			}
			return nil
		}

		name := g.paramNames[depth]
		for _, val := range g.ranges[depth] {
			next := make(map[string]float64, len(current)+1)
			for k, v := range current {
				next[k] = v
			}
			next[name] = val
			if err := search(depth+1, next); err != nil {
				return err
			}
		}
		return nil
	}

	if err := search(0, map[string]float64{}); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoCandidate
	}
	return bestParams, best, nil
}

func (g *GridSearch) evaluate(ctx context.Context, registry *experiment.Registry, params map[string]float64, metricName string) (float64, error) {
	cfg, err := automation.StepConfig(automation.ScenarioStep{
		Scene:     g.Scene,
		Preset:    g.Preset,
		Duration:  g.Duration,
		Overrides: params,
	})
	if err != nil {
		return 0, err
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(registry, registry.DefaultMetrics(cfg.Scene.Name)); err != nil {
		return 0, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	if len(result.Errors) > 0 {
		return 0, result.Errors[0]
	}

	val, ok := result.Metrics[metricName]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, metricName)
	}
	slog.Debug("grid point", "params", params, metricName, val)
	return val, nil
}
