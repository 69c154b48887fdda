package metrics

import (
	"github.com/san-kum/verletsim/internal/physics"
)

// Containment is the fraction of observed frames in which every free
// particle lies inside the engine bounds, within tolerance.
type Containment struct {
	name       string
	tolerance  float64
	violations int
	samples    int
}

func NewContainment(tolerance float64) *Containment {
	return &Containment{
		name:      "containment",
		tolerance: tolerance,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(e *physics.Engine, t float64) {
	c.samples++
	if c.Sample(e) < 1 {
		c.violations++
	}
}

// Sample is 1 when every free particle is inside the bounds, otherwise 0.
func (c *Containment) Sample(e *physics.Engine) float64 {
	b := e.Bounds()
	for _, p := range e.Particles() {
		if !p.Fixed && !physics.Inside(b, p.Position, p.Radius, c.tolerance) {
			return 0
		}
	}
	return 1
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
