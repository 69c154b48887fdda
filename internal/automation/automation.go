package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"

	"github.com/san-kum/verletsim/internal/config"
	"github.com/san-kum/verletsim/internal/experiment"
	"github.com/san-kum/verletsim/internal/metrics"
	"github.com/san-kum/verletsim/internal/sim"
	"github.com/san-kum/verletsim/internal/storage"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownParameter = errors.New("automation: unknown parameter")
	ErrUnknownPreset    = errors.New("automation: unknown preset")
)

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep runs one scene. Overrides use the same parameter names as
// sweeps; SaveAs stores the run under that preset label.
type ScenarioStep struct {
	Scene     string             `yaml:"scene"`
	Preset    string             `yaml:"preset"`
	Duration  float64            `yaml:"duration"`
	Overrides map[string]float64 `yaml:"overrides"`
	SaveAs    string             `yaml:"save_as"`
}

// StepResult pairs a scenario step with its outcome.
type StepResult struct {
	Step   ScenarioStep
	Result *sim.Result
	RunID  string
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// Parameters lists the names accepted by ApplyOverride.
func Parameters() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var setters = map[string]func(*config.Config, float64){
	"sub_steps":  func(c *config.Config, v float64) { c.Engine.SubSteps = int(math.Round(v)) },
	"frame_rate": func(c *config.Config, v float64) { c.Engine.FrameRate = v },
	"cell_size":  func(c *config.Config, v float64) { c.Engine.CellSize = v },
	"gravity_x":  func(c *config.Config, v float64) { c.Engine.GravityX = v },
	"gravity_y":  func(c *config.Config, v float64) { c.Engine.GravityY = v },
	"radius":     func(c *config.Config, v float64) { c.Particle.Radius = v },
	"rigidness":  func(c *config.Config, v float64) { c.Particle.Rigidness = v },
	"stiffness":  func(c *config.Config, v float64) { c.Link.Stiffness = v },
	"count":      func(c *config.Config, v float64) { c.Scene.Count = int(math.Round(v)) },
	"seed":       func(c *config.Config, v float64) { c.Scene.Seed = int64(math.Round(v)) },
}

// integerParams are rounded to the nearest whole number when applied.
var integerParams = map[string]bool{"sub_steps": true, "count": true, "seed": true}

// AppliedValue is the value ApplyOverride actually stores for name.
func AppliedValue(name string, value float64) float64 {
	if integerParams[name] {
		return math.Round(value)
	}
	return value
}

// ApplyOverride sets one named numeric parameter on cfg.
func ApplyOverride(cfg *config.Config, name string, value float64) error {
	set, ok := setters[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	set(cfg, value)
	return nil
}

// baseConfig resolves a scene and optional preset into a fresh config.
func baseConfig(scene, preset string) (*config.Config, error) {
	if preset == "" {
		cfg := config.DefaultConfig()
		if scene != "" {
			cfg.Scene.Name = scene
		}
		return cfg, nil
	}
	cfg := config.GetPreset(scene, preset)
	if cfg == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownPreset, scene, preset)
	}
	return cfg, nil
}

// StepConfig builds the validated configuration for one step.
func StepConfig(step ScenarioStep) (*config.Config, error) {
	cfg, err := baseConfig(step.Scene, step.Preset)
	if err != nil {
		return nil, err
	}
	if step.Duration > 0 {
		cfg.Run.Duration = step.Duration
	}
	names := make([]string, 0, len(step.Overrides))
	for name := range step.Overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ApplyOverride(cfg, name, step.Overrides[name]); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunScenario executes every step in order. Steps with SaveAs are written
// to store when it is not nil. The results gathered before a failure are
// returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, store *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		slog.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "scene", step.Scene, "preset", step.Preset)

		cfg, err := StepConfig(step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg)
		if err := exp.Setup(registry, registry.DefaultMetrics(cfg.Scene.Name)); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Step: step, Result: result}
		if step.SaveAs != "" && store != nil {
			id, err := store.Save(cfg, step.SaveAs, result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			sr.RunID = id
		}
		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep runs one scene across evenly spaced values of a parameter.
type ParameterSweep struct {
	Scene    string
	Preset   string
	Param    string
	Min      float64
	Max      float64
	Steps    int
	Duration float64
	Workers  int
}

type SweepResult struct {
	Value      float64
	Metrics    map[string]float64
	StepsTaken int
	Particles  int
	Errors     []error
}

// Values returns the parameter values a sweep visits.
func (s *ParameterSweep) Values() []float64 {
	if s.Steps < 2 {
		return []float64{s.Min}
	}
	step := (s.Max - s.Min) / float64(s.Steps-1)
	vals := make([]float64, s.Steps)
	for i := range vals {
		vals[i] = s.Min + float64(i)*step
	}
	return vals
}

// RunSweep runs every sweep point concurrently on Workers goroutines and
// returns results in parameter order.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry) ([]SweepResult, error) {
	if _, ok := setters[sweep.Param]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, sweep.Param)
	}

	values := sweep.Values()
	for i, v := range values {
		values[i] = AppliedValue(sweep.Param, v)
	}
	cfgs := make([]*config.Config, len(values))
	for i, v := range values {
		cfg, err := StepConfig(ScenarioStep{
			Scene:     sweep.Scene,
			Preset:    sweep.Preset,
			Duration:  sweep.Duration,
			Overrides: map[string]float64{sweep.Param: v},
		})
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		cfgs[i] = cfg
	}

	jobs := make([]sim.Job, len(cfgs))
	simCfgs := make([]sim.Config, len(cfgs))
	for i, cfg := range cfgs {
		jobs[i] = experimentJob(cfg, registry)
		simCfgs[i] = experiment.New(cfg).SimConfig()
	}

	runs, err := sim.NewEnsemble(jobs, sweep.Workers).RunConfigs(ctx, simCfgs)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(runs))
	for i, r := range runs {
		results[i] = SweepResult{
			Value:      values[i],
			Metrics:    r.Metrics,
			StepsTaken: r.StepsTaken,
			Errors:     r.Errors,
		}
		if n := len(r.Frames); n > 0 {
			results[i].Particles = len(r.Frames[n-1].Particles)
		}
		slog.Debug("sweep point", "param", sweep.Param, "value", values[i], "steps", r.StepsTaken)
	}
	return results, nil
}

func experimentJob(cfg *config.Config, registry *experiment.Registry) sim.Job {
	return func() (*sim.Simulator, error) {
		exp := experiment.New(cfg)
		if err := exp.Setup(registry, registry.DefaultMetrics(cfg.Scene.Name)); err != nil {
			return nil, err
		}
		return exp.GetSimulator(), nil
	}
}

// MonteCarloConfig reruns a scene with consecutive seeds.
type MonteCarloConfig struct {
	Scene     string
	Preset    string
	NumTrials int
	Seed      int64
	Duration  float64
	Workers   int
	// Tolerance is the containment slack used for the stability check.
	// Zero means one particle radius.
	Tolerance float64
}

type MonteCarloResult struct {
	TrialID     int
	Seed        int64
	MaxOverlap  float64
	Containment float64
	// Stable is set when the run finished without errors and every frame
	// kept all particles inside the bounds.
	Stable bool
}

// RunMonteCarlo runs NumTrials seeded variations of a scene.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, registry *experiment.Registry) ([]MonteCarloResult, error) {
	if mc.NumTrials < 1 {
		return nil, fmt.Errorf("%w: trials must be positive, got %d", config.ErrInvalidConfig, mc.NumTrials)
	}
	jobs := make([]sim.Job, mc.NumTrials)
	var simCfg sim.Config
	for trial := range jobs {
		cfg, err := StepConfig(ScenarioStep{
			Scene:     mc.Scene,
			Preset:    mc.Preset,
			Duration:  mc.Duration,
			Overrides: map[string]float64{"seed": float64(mc.Seed + int64(trial))},
		})
		if err != nil {
			return nil, err
		}
		tol := mc.Tolerance
		if tol <= 0 {
			tol = cfg.Particle.Radius
		}
		simCfg = experiment.New(cfg).SimConfig()
		jobs[trial] = func() (*sim.Simulator, error) {
			exp := experiment.New(cfg)
			ms := []sim.Metric{metrics.NewMaxOverlap(), metrics.NewContainment(tol)}
			if err := exp.Setup(registry, ms); err != nil {
				return nil, err
			}
			return exp.GetSimulator(), nil
		}
	}

	runs, err := sim.NewEnsemble(jobs, mc.Workers).Run(ctx, simCfg)
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for i, r := range runs {
		containment := r.Metrics["containment"]
		results[i] = MonteCarloResult{
			TrialID:     i,
			Seed:        mc.Seed + int64(i),
			MaxOverlap:  r.Metrics["max_overlap"],
			Containment: containment,
			Stable:      len(r.Errors) == 0 && containment == 1,
		}
	}
	return results, nil
}

// MonteCarloStats counts stable and unstable trials.
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
