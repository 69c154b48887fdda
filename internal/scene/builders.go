package scene

import (
	"fmt"
	"math/rand"

	"github.com/san-kum/verletsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
)

// LinkStyle selects rigid links or springs for a builder.
type LinkStyle struct {
	Spring    bool
	Stiffness float64
}

func (s LinkStyle) link(a, b int, rest float64) physics.Link {
	if s.Spring {
		return physics.NewSpring(a, b, rest, s.Stiffness)
	}
	return physics.NewLink(a, b, rest)
}

// Cloth is a rectangular mesh linked along rows and columns. The top row
// is pinned every PinEvery columns and at its last column.
type Cloth struct {
	Columns   int
	Rows      int
	Spacing   float64
	PinEvery  int
	Origin    r2.Vec
	Radius    float64
	Rigidness float64
	Links     LinkStyle
}

// Build adds the cloth to e and returns its particle indices in row-major order.
func (c Cloth) Build(e *physics.Engine) ([]int, error) {
	if c.Columns < 1 || c.Rows < 1 || c.Spacing <= 0 {
		return nil, fmt.Errorf("%w: cloth %dx%d spacing %g", physics.ErrParameterBounds, c.Columns, c.Rows, c.Spacing)
	}
	pin := c.PinEvery
	if pin < 1 {
		pin = 1
	}

	idx := make([]int, 0, c.Columns*c.Rows)
	for row := 0; row < c.Rows; row++ {
		for col := 0; col < c.Columns; col++ {
			pos := r2.Add(c.Origin, r2.Vec{X: float64(col) * c.Spacing, Y: float64(row) * c.Spacing})
			p := physics.NewParticle(pos, c.Radius)
			p.Rigidness = c.Rigidness
			p.Fixed = row == 0 && (col%pin == 0 || col == c.Columns-1)
			p.Color = Gradient(float64(row) / float64(max(c.Rows-1, 1)))
			idx = append(idx, e.AddParticle(p))
		}
	}

	at := func(row, col int) int { return idx[col+row*c.Columns] }
	for row := 0; row < c.Rows; row++ {
		for col := 0; col < c.Columns; col++ {
			if col+1 < c.Columns {
				if err := e.AddLink(c.Links.link(at(row, col), at(row, col+1), c.Spacing)); err != nil {
					return nil, err
				}
			}
			if row+1 < c.Rows {
				if err := e.AddLink(c.Links.link(at(row, col), at(row+1, col), c.Spacing)); err != nil {
					return nil, err
				}
			}
		}
	}
	return idx, nil
}

// Chain is a rope laid out horizontally from a fixed anchor at Origin.
type Chain struct {
	Length    int
	Spacing   float64
	Origin    r2.Vec
	Radius    float64
	Rigidness float64
	Links     LinkStyle
}

// Build adds the chain to e; the first returned index is the anchor.
func (c Chain) Build(e *physics.Engine) ([]int, error) {
	if c.Length < 2 || c.Spacing <= 0 {
		return nil, fmt.Errorf("%w: chain length %d spacing %g", physics.ErrParameterBounds, c.Length, c.Spacing)
	}
	idx := make([]int, 0, c.Length)
	for k := 0; k < c.Length; k++ {
		pos := r2.Add(c.Origin, r2.Vec{X: float64(k) * c.Spacing})
		p := physics.NewParticle(pos, c.Radius)
		p.Rigidness = c.Rigidness
		p.Fixed = k == 0
		p.Color = Rainbow(k)
		idx = append(idx, e.AddParticle(p))
		if k > 0 {
			if err := e.AddLink(c.Links.link(idx[k-1], idx[k], c.Spacing)); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}

// Pile scatters Count resting particles over Region with radii drawn
// uniformly from [MinRadius, MaxRadius].
type Pile struct {
	Count     int
	Seed      int64
	Region    r2.Box
	MinRadius float64
	MaxRadius float64
	Rigidness float64
}

func (p Pile) Build(e *physics.Engine) ([]int, error) {
	if p.Count < 0 || p.MinRadius <= 0 || p.MaxRadius < p.MinRadius {
		return nil, fmt.Errorf("%w: pile count %d radii [%g, %g]", physics.ErrParameterBounds, p.Count, p.MinRadius, p.MaxRadius)
	}
	w := p.Region.Max.X - p.Region.Min.X - 2*p.MaxRadius
	h := p.Region.Max.Y - p.Region.Min.Y - 2*p.MaxRadius
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("%w: pile region too small for radius %g", physics.ErrParameterBounds, p.MaxRadius)
	}

	rng := rand.New(rand.NewSource(p.Seed))
	idx := make([]int, 0, p.Count)
	for k := 0; k < p.Count; k++ {
		pos := r2.Vec{
			X: p.Region.Min.X + p.MaxRadius + rng.Float64()*w,
			Y: p.Region.Min.Y + p.MaxRadius + rng.Float64()*h,
		}
		part := physics.NewParticle(pos, p.MinRadius+rng.Float64()*(p.MaxRadius-p.MinRadius))
		part.Rigidness = p.Rigidness
		part.Color = Rainbow(k)
		idx = append(idx, e.AddParticle(part))
	}
	return idx, nil
}
