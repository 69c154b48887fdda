package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/verletsim/internal/config"
	"github.com/san-kum/verletsim/internal/metrics"
	"github.com/san-kum/verletsim/internal/physics"
	"github.com/san-kum/verletsim/internal/scene"
	"github.com/san-kum/verletsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

var ErrUnknownScene = errors.New("experiment: unknown scene")

// Setup is a populated engine plus the drivers that keep mutating it.
type Setup struct {
	Engine  *physics.Engine
	Drivers []sim.Driver
	// Spawner is set for scenes that emit particles over time.
	Spawner *scene.Spawner
}

type Builder func(cfg *config.Config) (*Setup, error)

type Registry struct {
	scenes map[string]Builder
}

func NewRegistry() *Registry {
	r := &Registry{scenes: make(map[string]Builder)}

	r.scenes["free"] = func(cfg *config.Config) (*Setup, error) {
		e, err := newEngine(cfg)
		if err != nil {
			return nil, err
		}
		return &Setup{Engine: e}, nil
	}
	r.scenes["collision"] = buildCollision
	r.scenes["cloth"] = buildCloth
	r.scenes["chain"] = buildChain
	r.scenes["pile"] = buildPile

	return r
}

func (r *Registry) Register(name string, b Builder) { r.scenes[name] = b }

// Build constructs the scene named by cfg.Scene.Name.
func (r *Registry) Build(cfg *config.Config) (*Setup, error) {
	fn, ok := r.scenes[cfg.Scene.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScene, cfg.Scene.Name)
	}
	return fn(cfg)
}

func (r *Registry) ListScenes() []string {
	names := make([]string, 0, len(r.scenes))
	for name := range r.scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(sceneName string) []sim.Metric {
	ms := []sim.Metric{
		metrics.NewKineticEnergy(),
		metrics.NewMaxOverlap(),
		metrics.NewContainment(1e-6),
	}
	switch sceneName {
	case "cloth", "chain", "free":
		ms = append(ms, metrics.NewLinkStrain())
	}
	return ms
}

func newEngine(cfg *config.Config) (*physics.Engine, error) {
	ec, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	return physics.New(ec)
}

func linkStyle(cfg *config.Config) scene.LinkStyle {
	return scene.LinkStyle{Spring: cfg.Link.Spring, Stiffness: cfg.Link.Stiffness}
}

func buildCollision(cfg *config.Config) (*Setup, error) {
	e, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	sc := cfg.Scene.Spawner
	sp := &scene.Spawner{
		Max:       sc.Max,
		Delay:     sc.Delay,
		Speed:     sc.Speed,
		Angle:     sc.Angle,
		Origin:    r2.Vec{X: sc.X, Y: sc.Y},
		Radius:    cfg.Particle.Radius,
		Rigidness: cfg.Particle.Rigidness,
	}
	return &Setup{Engine: e, Drivers: []sim.Driver{sp}, Spawner: sp}, nil
}

func buildCloth(cfg *config.Config) (*Setup, error) {
	e, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	cc := cfg.Scene.Cloth
	cloth := scene.Cloth{
		Columns:   cc.Columns,
		Rows:      cc.Rows,
		Spacing:   cc.Spacing,
		PinEvery:  cc.PinEvery,
		Origin:    r2.Vec{X: cc.X, Y: cc.Y},
		Radius:    cfg.Particle.Radius,
		Rigidness: cfg.Particle.Rigidness,
		Links:     linkStyle(cfg),
	}
	if _, err := cloth.Build(e); err != nil {
		return nil, err
	}
	return &Setup{Engine: e}, nil
}

func buildChain(cfg *config.Config) (*Setup, error) {
	e, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	cc := cfg.Scene.Chain
	chain := scene.Chain{
		Length:    cc.Length,
		Spacing:   cc.Spacing,
		Origin:    r2.Vec{X: cc.X, Y: cc.Y},
		Radius:    cfg.Particle.Radius,
		Rigidness: cfg.Particle.Rigidness,
		Links:     linkStyle(cfg),
	}
	if _, err := chain.Build(e); err != nil {
		return nil, err
	}
	return &Setup{Engine: e}, nil
}

func buildPile(cfg *config.Config) (*Setup, error) {
	e, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	pile := scene.Pile{
		Count:     cfg.Scene.Count,
		Seed:      cfg.Scene.Seed,
		Region:    physics.NewBounds(0, 0, cfg.World.Width, cfg.World.Height/2),
		MinRadius: 0.6 * cfg.Particle.Radius,
		MaxRadius: cfg.Particle.Radius,
		Rigidness: cfg.Particle.Rigidness,
	}
	if _, err := pile.Build(e); err != nil {
		return nil, err
	}
	return &Setup{Engine: e}, nil
}
