package metrics

import (
	"math"

	"github.com/san-kum/verletsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
)

// MaxOverlap records the deepest pair penetration seen in any observed
// frame. It keeps its own grid so the engine's broad phase is untouched.
type MaxOverlap struct {
	name string
	grid *physics.Grid
	max  float64
}

func NewMaxOverlap() *MaxOverlap {
	return &MaxOverlap{name: "max_overlap"}
}

func (m *MaxOverlap) Name() string { return m.name }

func (m *MaxOverlap) Observe(e *physics.Engine, t float64) {
	m.max = math.Max(m.max, m.Sample(e))
}

// Sample returns the current deepest penetration between two particles.
// The metric grid is at least one particle diameter wide, so an undersized
// engine grid does not hide overlaps.
func (m *MaxOverlap) Sample(e *physics.Engine) float64 {
	ps := e.Particles()
	cell := e.Grid().CellSize
	for i := range ps {
		cell = math.Max(cell, 2*ps[i].Radius)
	}
	if m.grid == nil || m.grid.CellSize != cell {
		m.grid = physics.NewGrid(e.Bounds(), cell)
	}
	m.grid.Populate(ps)

	deepest := 0.0
	visit := func(a, b int) {
		pen := ps[a].Radius + ps[b].Radius - r2.Norm(r2.Sub(ps[a].Position, ps[b].Position))
		deepest = math.Max(deepest, pen)
	}
	if m.grid.Dropped() > 0 {
		// Crowded cells lost particles; check every pair instead.
		for a := range ps {
			for b := a + 1; b < len(ps); b++ {
				visit(a, b)
			}
		}
		return deepest
	}
	m.grid.ForEachCandidate(func(a, b int) {
		if a > b {
			return
		}
		visit(a, b)
	})
	return deepest
}

func (m *MaxOverlap) Value() float64 { return m.max }

func (m *MaxOverlap) Reset() { m.max = 0 }
