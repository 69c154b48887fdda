package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/verletsim/internal/config"
	"github.com/san-kum/verletsim/internal/sim"
)

type Experiment struct {
	cfg       *config.Config
	setup     *Setup
	simulator *sim.Simulator
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup builds the configured scene and wires metrics into a simulator.
func (e *Experiment) Setup(reg *Registry, metrics []sim.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	setup, err := reg.Build(e.cfg)
	if err != nil {
		return err
	}
	e.setup = setup
	e.simulator = sim.New(setup.Engine, setup.Drivers...)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.SimConfig())
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Frames:        e.cfg.Frames(),
		RecordEvery:   e.cfg.Run.RecordEvery,
		ValidateState: true,
	}
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) GetSetup() *Setup { return e.setup }

func (e *Experiment) Config() *config.Config { return e.cfg }
