package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/verletsim/internal/physics"
)

// SeriesTime is the Result.Series key holding the snapshot times.
const SeriesTime = "time"

type Simulator struct {
	engine    *physics.Engine
	drivers   []Driver
	metrics   []Metric
	observers []Observer

	frame int
	time  float64
}

func New(engine *physics.Engine, drivers ...Driver) *Simulator {
	return &Simulator{
		engine:    engine,
		drivers:   drivers,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddDriver(d Driver)     { s.drivers = append(s.drivers, d) }
func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// SetPhaseTimer forwards t to the engine.
func (s *Simulator) SetPhaseTimer(t physics.PhaseTimer) { s.engine.SetPhaseTimer(t) }

func (s *Simulator) Engine() *physics.Engine { return s.engine }
func (s *Simulator) Frame() int              { return s.frame }
func (s *Simulator) Time() float64           { return s.time }

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	records := cfg.Frames/cfg.RecordEvery + 1
	result := &Result{
		Frames:  make([]Frame, 0, records),
		Series:  make(map[string][]float64),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	s.record(result)

	for i := 0; i < cfg.Frames; i++ {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err())
		default:
		}

		if err := s.advance(cfg.ValidateState); err != nil {
			result.Errors = append(result.Errors, err)
			break
		}
		result.StepsTaken++

		if (i+1)%cfg.RecordEvery == 0 {
			s.record(result)
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// Advance runs one frame: drivers, engine update, observers and metrics.
// Interactive front ends call it from their own frame loop.
func (s *Simulator) Advance(validate bool) error {
	return s.advance(validate)
}

func (s *Simulator) advance(validate bool) error {
	for _, d := range s.drivers {
		d.BeforeFrame(s.engine, s.frame, s.time)
	}

	s.engine.Update()
	s.frame++
	s.time += s.engine.FrameTimestep()

	if validate {
		if idx := FirstInvalid(s.engine); idx >= 0 {
			return &SimulationError{Frame: s.frame, Time: s.time, Particle: idx, Wrapped: ErrInvalidState}
		}
	}

	for _, obs := range s.observers {
		obs.OnFrame(s.engine, s.frame, s.time)
	}
	for _, m := range s.metrics {
		m.Observe(s.engine, s.time)
	}
	return nil
}

func (s *Simulator) record(result *Result) {
	result.Frames = append(result.Frames, Snapshot(s.engine, s.frame, s.time))
	result.Series[SeriesTime] = append(result.Series[SeriesTime], s.time)
	for _, m := range s.metrics {
		if sm, ok := m.(Sampler); ok {
			result.Series[m.Name()] = append(result.Series[m.Name()], sm.Sample(s.engine))
		}
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Frames <= 0 {
		return fmt.Errorf("%w: frames must be positive, got %d", ErrInvalidConfig, cfg.Frames)
	}
	if cfg.RecordEvery < 1 {
		return fmt.Errorf("%w: record interval must be at least 1, got %d", ErrInvalidConfig, cfg.RecordEvery)
	}
	return nil
}

// RunWithCallback advances until callback returns false or cfg.Frames
// frames have run. Frames of zero runs until the callback stops it.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(frame int, t float64) bool) error {
	if cfg.Frames < 0 {
		return fmt.Errorf("%w: frames must not be negative, got %d", ErrInvalidConfig, cfg.Frames)
	}

	for i := 0; cfg.Frames == 0 || i < cfg.Frames; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err())
		default:
		}

		if err := s.advance(cfg.ValidateState); err != nil {
			return err
		}
		if !callback(s.frame, s.time) {
			return nil
		}
	}

	return nil
}
