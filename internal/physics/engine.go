package physics

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Phase names reported to a PhaseTimer.
const (
	PhaseGravity        = "gravity"
	PhaseCollisions     = "collisions"
	PhaseLinkCollisions = "link_collisions"
	PhaseLinks          = "links"
	PhaseBounds         = "bounds"
	PhaseIntegrate      = "integrate"
)

// PhaseTimer receives timing marks from Update. One tick spans a frame;
// phases repeat once per substep.
type PhaseTimer interface {
	StartTick()
	StartPhase(name string)
	EndTick()
}

// Config holds the engine parameters fixed at construction.
type Config struct {
	Gravity       r2.Vec
	Bounds        r2.Box
	FrameTimestep float64
	SubSteps      int
	CellSize      float64
	Boundary      BoundaryPolicy
}

// DefaultConfig returns 60 fps, 4 substeps, downward gravity of 980 units/s²
// and 10-unit cells over bounds.
func DefaultConfig(bounds r2.Box) Config {
	return Config{
		Gravity:       r2.Vec{X: 0, Y: 980},
		Bounds:        bounds,
		FrameTimestep: 1.0 / 60.0,
		SubSteps:      4,
		CellSize:      10,
		Boundary:      BoundaryReflect,
	}
}

// Validate checks the config for values the engine cannot run with.
func (c Config) Validate() error {
	if c.FrameTimestep <= 0 {
		return fmt.Errorf("%w: frame timestep must be positive, got %g", ErrParameterBounds, c.FrameTimestep)
	}
	if c.SubSteps < 1 {
		return fmt.Errorf("%w: substeps must be at least 1, got %d", ErrParameterBounds, c.SubSteps)
	}
	if c.CellSize <= 0 {
		return fmt.Errorf("%w: cell size must be positive, got %g", ErrParameterBounds, c.CellSize)
	}
	if c.Bounds.Max.X <= c.Bounds.Min.X || c.Bounds.Max.Y <= c.Bounds.Min.Y {
		return fmt.Errorf("%w: empty bounds %v", ErrParameterBounds, c.Bounds)
	}
	if c.Boundary > BoundaryPushBack {
		return fmt.Errorf("%w: unknown boundary policy %d", ErrParameterBounds, c.Boundary)
	}
	return nil
}

// Engine owns the particle and link stores and runs the solve pipeline.
type Engine struct {
	particles []Particle
	links     []Link
	grid      *Grid

	gravity  r2.Vec
	bounds   r2.Box
	frameDt  float64
	subSteps int
	boundary BoundaryPolicy

	timer PhaseTimer
}

// New validates cfg and builds an empty engine with a grid covering the bounds.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		particles: make([]Particle, 0, 256),
		links:     make([]Link, 0, 256),
		grid:      NewGrid(cfg.Bounds, cfg.CellSize),
		gravity:   cfg.Gravity,
		bounds:    cfg.Bounds,
		frameDt:   cfg.FrameTimestep,
		subSteps:  cfg.SubSteps,
		boundary:  cfg.Boundary,
	}, nil
}

// Update advances the simulation by one frame of SubSteps iterations.
func (e *Engine) Update() {
	dt := e.SubstepTimestep()
	e.startTick()
	for i := 0; i < e.subSteps; i++ {
		e.startPhase(PhaseGravity)
		e.applyGravity()
		e.startPhase(PhaseCollisions)
		e.solveCollisions()
		e.startPhase(PhaseLinkCollisions)
		e.solveObjectLinkCollisions()
		e.startPhase(PhaseLinks)
		e.solveLinkConstraints()
		e.startPhase(PhaseBounds)
		e.solveBoundaryConstraints()
		e.startPhase(PhaseIntegrate)
		e.updatePositions(dt)
	}
	e.endTick()
}

// AddParticle appends p and returns its permanent index.
func (e *Engine) AddParticle(p Particle) int {
	e.particles = append(e.particles, p)
	return len(e.particles) - 1
}

// AddLink validates l against the current store and appends it.
func (e *Engine) AddLink(l Link) error {
	if err := l.Validate(len(e.particles)); err != nil {
		return err
	}
	e.links = append(e.links, l)
	return nil
}

// Particles exposes the particle store. Elements may be modified in place
// between updates; the slice must not be reordered or shortened.
func (e *Engine) Particles() []Particle { return e.particles }

// Particle returns a pointer to particle i, valid until the next append.
func (e *Engine) Particle(i int) *Particle { return &e.particles[i] }

// Links exposes the link store.
func (e *Engine) Links() []Link { return e.links }

func (e *Engine) NumParticles() int { return len(e.particles) }
func (e *Engine) NumLinks() int     { return len(e.links) }

// SetVelocity gives particle i the implied velocity v at the current substep dt.
func (e *Engine) SetVelocity(i int, v r2.Vec) {
	e.particles[i].SetVelocity(v, e.SubstepTimestep())
}

// Grid returns the broad-phase grid. Treat it as read-only; its contents
// are only meaningful right after Update.
func (e *Engine) Grid() *Grid { return e.grid }

func (e *Engine) FrameTimestep() float64   { return e.frameDt }
func (e *Engine) SubstepTimestep() float64 { return e.frameDt / float64(e.subSteps) }
func (e *Engine) SubSteps() int            { return e.subSteps }
func (e *Engine) Gravity() r2.Vec          { return e.gravity }
func (e *Engine) SetGravity(g r2.Vec)      { e.gravity = g }
func (e *Engine) Bounds() r2.Box           { return e.bounds }
func (e *Engine) Boundary() BoundaryPolicy { return e.boundary }

// SetSubSteps changes the substep count. Implied velocities are position
// deltas per substep, so changing it mid-run rescales every velocity.
func (e *Engine) SetSubSteps(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: substeps must be at least 1, got %d", ErrParameterBounds, n)
	}
	e.subSteps = n
	return nil
}

// SetPhaseTimer installs t; nil disables timing.
func (e *Engine) SetPhaseTimer(t PhaseTimer) { e.timer = t }

func (e *Engine) startTick() {
	if e.timer != nil {
		e.timer.StartTick()
	}
}

func (e *Engine) startPhase(name string) {
	if e.timer != nil {
		e.timer.StartPhase(name)
	}
}

func (e *Engine) endTick() {
	if e.timer != nil {
		e.timer.EndTick()
	}
}
