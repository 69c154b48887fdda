package scene

import (
	"github.com/san-kum/verletsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
)

// Pick returns the particle nearest pos within half a grid cell, or -1.
func Pick(e *physics.Engine, pos r2.Vec) int {
	radius := e.Grid().CellSize / 2
	minDistSqr := radius * radius
	selected := -1
	for i, p := range e.Particles() {
		if d := r2.Norm2(r2.Sub(p.Position, pos)); d < minDistSqr {
			minDistSqr = d
			selected = i
		}
	}
	return selected
}

// Connect links a and b at their current distance. stiffness only applies
// to springs.
func Connect(e *physics.Engine, a, b int, stiffness float64, spring bool) error {
	if err := physics.NewLink(a, b, 0).Validate(e.NumParticles()); err != nil {
		return err
	}
	rest := r2.Norm(r2.Sub(e.Particle(b).Position, e.Particle(a).Position))
	if spring {
		return e.AddLink(physics.NewSpring(a, b, rest, stiffness))
	}
	return e.AddLink(physics.NewLink(a, b, rest))
}
