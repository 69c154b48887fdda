package physics

import (
	"image/color"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultColor is used for particles created without an explicit color.
var DefaultColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Particle is a point mass integrated with Verlet.
// Position - PrevPosition is the displacement over the last substep.
type Particle struct {
	Position     r2.Vec
	PrevPosition r2.Vec
	Acceleration r2.Vec
	Radius       float64
	// Rigidness in [0, 1] scales collision and push-back corrections.
	Rigidness float64
	// Fixed particles are anchors: no gravity, no correction, no integration.
	Fixed bool
	Color color.RGBA
}

// NewParticle returns a resting, fully rigid particle at pos.
func NewParticle(pos r2.Vec, radius float64) Particle {
	return Particle{
		Position:     pos,
		PrevPosition: pos,
		Radius:       radius,
		Rigidness:    1,
		Color:        DefaultColor,
	}
}

// NewFixedParticle returns a pinned anchor at pos.
func NewFixedParticle(pos r2.Vec, radius float64) Particle {
	p := NewParticle(pos, radius)
	p.Fixed = true
	return p
}

// Accelerate accumulates a; it takes effect on the next Integrate.
func (p *Particle) Accelerate(a r2.Vec) {
	p.Acceleration = r2.Add(p.Acceleration, a)
}

// Integrate advances the particle by one substep of length dt.
func (p *Particle) Integrate(dt float64) {
	if p.Fixed {
		p.Acceleration = r2.Vec{}
		return
	}
	displacement := r2.Sub(p.Position, p.PrevPosition)
	p.PrevPosition = p.Position
	p.Position = r2.Add(r2.Add(p.Position, displacement), r2.Scale(dt*dt, p.Acceleration))
	p.Acceleration = r2.Vec{}
}

// SetVelocity injects v by rewriting the position history.
// It only has the intended effect before the particle is next integrated
// with the same dt.
func (p *Particle) SetVelocity(v r2.Vec, dt float64) {
	p.PrevPosition = r2.Sub(p.Position, r2.Scale(dt, v))
}

// Displacement is the movement over the last substep.
func (p *Particle) Displacement() r2.Vec {
	return r2.Sub(p.Position, p.PrevPosition)
}

// Velocity estimates the velocity implied by the position history.
func (p *Particle) Velocity(dt float64) r2.Vec {
	if dt <= 0 {
		return r2.Vec{}
	}
	return r2.Scale(1/dt, p.Displacement())
}

// Clamp keeps the particle inside bounds using the given policy.
func (p *Particle) Clamp(bounds r2.Box, policy BoundaryPolicy) {
	if p.Fixed {
		return
	}
	switch policy {
	case BoundaryPushBack:
		p.pushBack(bounds)
	default:
		p.reflect(bounds)
	}
}

func (p *Particle) reflect(b r2.Box) {
	r := p.Radius
	if p.Position.X-r < b.Min.X {
		p.Position.X = b.Min.X + r
		p.PrevPosition.X = 2*p.Position.X - p.PrevPosition.X
	}
	if p.Position.X+r > b.Max.X {
		p.Position.X = b.Max.X - r
		p.PrevPosition.X = 2*p.Position.X - p.PrevPosition.X
	}
	if p.Position.Y-r < b.Min.Y {
		p.Position.Y = b.Min.Y + r
		p.PrevPosition.Y = 2*p.Position.Y - p.PrevPosition.Y
	}
	if p.Position.Y+r > b.Max.Y {
		p.Position.Y = b.Max.Y - r
		p.PrevPosition.Y = 2*p.Position.Y - p.PrevPosition.Y
	}
}

// pushBack corrects by half the rigidness-scaled wall overlap.
// dist is the signed distance from the wall to the centre, positive inside.
func (p *Particle) pushBack(b r2.Box) {
	r := p.Radius
	k := 0.5 * p.Rigidness
	if dist := p.Position.X - b.Min.X; dist < r {
		p.Position.X += k * (r - dist)
	}
	if dist := b.Max.X - p.Position.X; dist < r {
		p.Position.X -= k * (r - dist)
	}
	if dist := p.Position.Y - b.Min.Y; dist < r {
		p.Position.Y += k * (r - dist)
	}
	if dist := b.Max.Y - p.Position.Y; dist < r {
		p.Position.Y -= k * (r - dist)
	}
}
