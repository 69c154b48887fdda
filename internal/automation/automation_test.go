package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/verletsim/internal/config"
	"github.com/san-kum/verletsim/internal/experiment"
	"github.com/san-kum/verletsim/internal/storage"
)

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	data := []byte(`name: smoke
description: quick checks
steps:
  - scene: cloth
    preset: elastic
    duration: 0.5
    overrides:
      sub_steps: 8
    save_as: cloth-8
  - scene: pile
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "smoke" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	step := sc.Steps[0]
	if step.Preset != "elastic" || step.Overrides["sub_steps"] != 8 || step.SaveAs != "cloth-8" {
		t.Errorf("unexpected step %+v", step)
	}

	if _, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStepConfig(t *testing.T) {
	cfg, err := StepConfig(ScenarioStep{
		Scene:     "chain",
		Preset:    "spring",
		Duration:  2,
		Overrides: map[string]float64{"sub_steps": 6, "cell_size": 12, "rigidness": 0.5},
	})
	if err != nil {
		t.Fatalf("step config: %v", err)
	}
	if cfg.Engine.SubSteps != 6 || cfg.Engine.CellSize != 12 || cfg.Particle.Rigidness != 0.5 {
		t.Errorf("overrides not applied: %+v %+v", cfg.Engine, cfg.Particle)
	}
	if cfg.Run.Duration != 2 || !cfg.Link.Spring {
		t.Errorf("expected preset with duration 2, got %+v", cfg.Run)
	}

	tests := []struct {
		name string
		step ScenarioStep
		want error
	}{
		{"unknown parameter", ScenarioStep{Scene: "pile", Overrides: map[string]float64{"viscosity": 1}}, ErrUnknownParameter},
		{"unknown preset", ScenarioStep{Scene: "pile", Preset: "nope"}, ErrUnknownPreset},
		{"invalid value", ScenarioStep{Scene: "pile", Overrides: map[string]float64{"sub_steps": 0}}, config.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := StepConfig(tt.step); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRunScenario(t *testing.T) {
	store := storage.New(t.TempDir())
	sc := &Scenario{
		Name: "smoke",
		Steps: []ScenarioStep{
			{Scene: "chain", Duration: 0.1},
			{Scene: "pile", Preset: "sparse", Duration: 0.1, Overrides: map[string]float64{"count": 20}, SaveAs: "small-pile"},
		},
	}

	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), store)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RunID != "" {
		t.Error("expected unsaved step to have no run id")
	}
	if results[0].Result.StepsTaken != 6 {
		t.Errorf("expected 6 frames, got %d", results[0].Result.StepsTaken)
	}

	meta, err := store.Load(results[1].RunID)
	if err != nil {
		t.Fatalf("load saved run: %v", err)
	}
	if meta.Preset != "small-pile" || meta.Scene != "pile" || meta.Particles != 20 {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestRunScenarioStopsOnFailure(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{
		{Scene: "chain", Duration: 0.05},
		{Scene: "vortex", Duration: 0.05},
		{Scene: "chain", Duration: 0.05},
	}}
	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), nil)
	if !errors.Is(err, experiment.ErrUnknownScene) {
		t.Errorf("expected ErrUnknownScene, got %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected the first result to survive, got %d", len(results))
	}
}

func TestSweepValues(t *testing.T) {
	s := &ParameterSweep{Min: 1, Max: 2, Steps: 5}
	want := []float64{1, 1.25, 1.5, 1.75, 2}
	got := s.Values()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
	if v := (&ParameterSweep{Min: 3, Steps: 1}).Values(); len(v) != 1 || v[0] != 3 {
		t.Errorf("expected single value, got %v", v)
	}
}

func TestRunSweep(t *testing.T) {
	reg := experiment.NewRegistry()
	sweep := &ParameterSweep{Scene: "chain", Param: "sub_steps", Min: 1, Max: 4, Steps: 4, Duration: 0.1, Workers: 2}

	results, err := RunSweep(context.Background(), sweep, reg)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Value != float64(i+1) {
			t.Errorf("result %d: expected value %d, got %g", i, i+1, r.Value)
		}
		if r.StepsTaken != 6 || r.Particles != config.DefaultConfig().Scene.Chain.Length {
			t.Errorf("result %d: unexpected run %+v", i, r)
		}
		if _, ok := r.Metrics["link_strain"]; !ok {
			t.Errorf("result %d: expected link strain metric", i)
		}
	}

	rates, err := RunSweep(context.Background(), &ParameterSweep{Scene: "chain", Param: "frame_rate", Min: 30, Max: 60, Steps: 2, Duration: 0.2}, reg)
	if err != nil {
		t.Fatalf("frame rate sweep: %v", err)
	}
	if rates[0].StepsTaken != 6 || rates[1].StepsTaken != 12 {
		t.Errorf("expected frame counts to follow the rate, got %d and %d", rates[0].StepsTaken, rates[1].StepsTaken)
	}

	if _, err := RunSweep(context.Background(), &ParameterSweep{Scene: "chain", Param: "mass", Steps: 2}, reg); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter, got %v", err)
	}
}

func TestSweepReportsAppliedValues(t *testing.T) {
	sweep := &ParameterSweep{Scene: "chain", Param: "sub_steps", Min: 1, Max: 8, Steps: 4, Duration: 0.05, Workers: 2}

	results, err := RunSweep(context.Background(), sweep, experiment.NewRegistry())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	want := []float64{1, 3, 6, 8}
	for i, r := range results {
		if r.Value != want[i] {
			t.Errorf("result %d: expected value %g, got %g", i, want[i], r.Value)
		}
	}

	cfg := config.DefaultConfig()
	if err := ApplyOverride(cfg, "sub_steps", 5.667); err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.SubSteps != 6 {
		t.Errorf("expected 6 substeps, got %d", cfg.Engine.SubSteps)
	}
	if err := ApplyOverride(cfg, "count", 2.5); err != nil {
		t.Fatal(err)
	}
	if cfg.Scene.Count != 3 {
		t.Errorf("expected count 3, got %d", cfg.Scene.Count)
	}
	if got := AppliedValue("rigidness", 0.25); got != 0.25 {
		t.Errorf("expected rigidness to pass through, got %g", got)
	}
}

func TestRunMonteCarlo(t *testing.T) {
	mc := &MonteCarloConfig{Scene: "pile", NumTrials: 3, Seed: 7, Duration: 0.1, Workers: 3}
	results, err := RunMonteCarlo(context.Background(), mc, experiment.NewRegistry())
	if err != nil {
		t.Fatalf("monte carlo: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 trials, got %d", len(results))
	}
	for i, r := range results {
		if r.TrialID != i || r.Seed != 7+int64(i) {
			t.Errorf("unexpected trial %+v", r)
		}
		if r.Containment < 0 || r.Containment > 1 {
			t.Errorf("containment %g out of range", r.Containment)
		}
	}
	stable, unstable := MonteCarloStats(results)
	if stable+unstable != 3 {
		t.Errorf("expected 3 counted trials, got %d", stable+unstable)
	}

	if _, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{Scene: "pile"}, experiment.NewRegistry()); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestParameters(t *testing.T) {
	names := Parameters()
	for _, want := range []string{"cell_size", "rigidness", "stiffness", "sub_steps"} {
		found := false
		for _, n := range names {
			found = found || n == want
		}
		if !found {
			t.Errorf("expected %s in %v", want, names)
		}
	}
}
