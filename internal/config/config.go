package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/san-kum/verletsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWidth       = 1050.0
	DefaultHeight      = 1000.0
	DefaultFrameRate   = 60.0
	DefaultSubSteps    = 4
	DefaultRadius      = 5.0
	DefaultRigidness   = 1.0
	DefaultStiffness   = 1.0
	DefaultGravityY    = 980.0
	DefaultDuration    = 10.0
	DefaultSeed        = 42
	DefaultPileCount   = 300
	DefaultSpawnMax    = 10
	DefaultSpawnDelay  = 0.05
	DefaultSpawnSpeed  = 1000.0
	DefaultSpawnAngle  = -math.Pi / 6
	DefaultSpawnOrigin = 100.0
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	World    WorldConfig    `yaml:"world"`
	Engine   EngineParams   `yaml:"engine"`
	Particle ParticleConfig `yaml:"particle"`
	Link     LinkConfig     `yaml:"link"`
	Scene    SceneConfig    `yaml:"scene"`
	Run      RunConfig      `yaml:"run"`
}

type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type EngineParams struct {
	FrameRate float64 `yaml:"frame_rate"`
	SubSteps  int     `yaml:"sub_steps"`
	// CellSize of zero means twice the particle radius. An explicit size
	// must cover a particle diameter.
	CellSize float64 `yaml:"cell_size"`
	GravityX float64 `yaml:"gravity_x"`
	GravityY float64 `yaml:"gravity_y"`
	Boundary string  `yaml:"boundary"`
}

type ParticleConfig struct {
	Radius    float64 `yaml:"radius"`
	Rigidness float64 `yaml:"rigidness"`
}

type LinkConfig struct {
	Stiffness float64 `yaml:"stiffness"`
	Spring    bool    `yaml:"spring"`
}

type SceneConfig struct {
	Name    string        `yaml:"name"`
	Seed    int64         `yaml:"seed"`
	Count   int           `yaml:"count"`
	Spawner SpawnerConfig `yaml:"spawner"`
	Cloth   ClothConfig   `yaml:"cloth"`
	Chain   ChainConfig   `yaml:"chain"`
}

type SpawnerConfig struct {
	Max   int     `yaml:"max"`
	Delay float64 `yaml:"delay"`
	Speed float64 `yaml:"speed"`
	Angle float64 `yaml:"angle"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
}

type ClothConfig struct {
	Columns  int     `yaml:"columns"`
	Rows     int     `yaml:"rows"`
	Spacing  float64 `yaml:"spacing"`
	PinEvery int     `yaml:"pin_every"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
}

type ChainConfig struct {
	Length  int     `yaml:"length"`
	Spacing float64 `yaml:"spacing"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
}

type RunConfig struct {
	Duration    float64 `yaml:"duration"`
	RecordEvery int     `yaml:"record_every"`
}

func DefaultConfig() *Config {
	return &Config{
		World: WorldConfig{Width: DefaultWidth, Height: DefaultHeight},
		Engine: EngineParams{
			FrameRate: DefaultFrameRate,
			SubSteps:  DefaultSubSteps,
			GravityY:  DefaultGravityY,
			Boundary:  physics.BoundaryReflect.String(),
		},
		Particle: ParticleConfig{Radius: DefaultRadius, Rigidness: DefaultRigidness},
		Link:     LinkConfig{Stiffness: DefaultStiffness},
		Scene: SceneConfig{
			Name:  "collision",
			Seed:  DefaultSeed,
			Count: DefaultPileCount,
			Spawner: SpawnerConfig{
				Max:   DefaultSpawnMax,
				Delay: DefaultSpawnDelay,
				Speed: DefaultSpawnSpeed,
				Angle: DefaultSpawnAngle,
				X:     DefaultSpawnOrigin,
				Y:     DefaultSpawnOrigin,
			},
			Cloth: ClothConfig{Columns: 30, Rows: 20, Spacing: 15, PinEvery: 5, X: 300, Y: 100},
			Chain: ChainConfig{Length: 20, Spacing: 12, X: 525, Y: 100},
		},
		Run: RunConfig{Duration: DefaultDuration, RecordEvery: 1},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy; Config holds no reference types.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) Validate() error {
	switch {
	case c.World.Width <= 0 || c.World.Height <= 0:
		return fmt.Errorf("%w: world size %gx%g", ErrInvalidConfig, c.World.Width, c.World.Height)
	case c.Engine.FrameRate <= 0:
		return fmt.Errorf("%w: frame_rate %g", ErrInvalidConfig, c.Engine.FrameRate)
	case c.Engine.SubSteps < 1:
		return fmt.Errorf("%w: sub_steps %d", ErrInvalidConfig, c.Engine.SubSteps)
	case c.Engine.CellSize < 0:
		return fmt.Errorf("%w: cell_size %g", ErrInvalidConfig, c.Engine.CellSize)
	case c.Particle.Radius <= 0:
		return fmt.Errorf("%w: radius %g", ErrInvalidConfig, c.Particle.Radius)
	case c.Engine.CellSize > 0 && c.Engine.CellSize < 2*c.Particle.Radius:
		return fmt.Errorf("%w: cell_size %g is smaller than the particle diameter %g", ErrInvalidConfig, c.Engine.CellSize, 2*c.Particle.Radius)
	case c.Particle.Rigidness < 0 || c.Particle.Rigidness > 1:
		return fmt.Errorf("%w: rigidness %g not in [0, 1]", ErrInvalidConfig, c.Particle.Rigidness)
	case c.Link.Stiffness <= 0 || c.Link.Stiffness > 1:
		return fmt.Errorf("%w: stiffness %g not in (0, 1]", ErrInvalidConfig, c.Link.Stiffness)
	case c.Scene.Name == "":
		return fmt.Errorf("%w: scene name is empty", ErrInvalidConfig)
	case c.Run.Duration <= 0:
		return fmt.Errorf("%w: duration %g", ErrInvalidConfig, c.Run.Duration)
	case c.Run.RecordEvery < 1:
		return fmt.Errorf("%w: record_every %d", ErrInvalidConfig, c.Run.RecordEvery)
	}
	if _, err := physics.ParseBoundary(c.Engine.Boundary); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// CellSize resolves the configured broad-phase cell size.
func (c *Config) CellSize() float64 {
	if c.Engine.CellSize > 0 {
		return c.Engine.CellSize
	}
	return 2 * c.Particle.Radius
}

func (c *Config) Bounds() r2.Box {
	return physics.NewBounds(0, 0, c.World.Width, c.World.Height)
}

// EngineConfig converts the file representation into engine parameters.
func (c *Config) EngineConfig() (physics.Config, error) {
	boundary, err := physics.ParseBoundary(c.Engine.Boundary)
	if err != nil {
		return physics.Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Engine.FrameRate <= 0 {
		return physics.Config{}, fmt.Errorf("%w: frame_rate %g", ErrInvalidConfig, c.Engine.FrameRate)
	}
	return physics.Config{
		Gravity:       r2.Vec{X: c.Engine.GravityX, Y: c.Engine.GravityY},
		Bounds:        c.Bounds(),
		FrameTimestep: 1 / c.Engine.FrameRate,
		SubSteps:      c.Engine.SubSteps,
		CellSize:      c.CellSize(),
		Boundary:      boundary,
	}, nil
}

// Frames is the number of frames covering the run duration.
func (c *Config) Frames() int {
	return int(math.Round(c.Run.Duration * c.Engine.FrameRate))
}

func (c *Config) NewParticle(pos r2.Vec) physics.Particle {
	p := physics.NewParticle(pos, c.Particle.Radius)
	p.Rigidness = c.Particle.Rigidness
	return p
}
