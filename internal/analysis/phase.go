package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/verletsim/internal/sim"
	"github.com/san-kum/verletsim/internal/viz"
	"gonum.org/v1/gonum/spatial/r2"
)

type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisX {
		return "x"
	}
	return "y"
}

func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// PhasePortrait2D traces one particle along one axis. X holds the
// position and Y the velocity.
type PhasePortrait2D struct {
	Particle int
	Axis     Axis
	Points   []r2.Vec
}

// ParticlePhase differentiates the recorded positions of particle along
// axis. Frames recorded before the particle existed are skipped. It
// returns nil when fewer than two frames contain the particle.
func ParticlePhase(frames []sim.Frame, particle int, axis Axis) *PhasePortrait2D {
	portrait := &PhasePortrait2D{Particle: particle, Axis: axis}

	var prev *sim.Frame
	for i := range frames {
		f := &frames[i]
		if particle >= len(f.Particles) {
			continue
		}
		if prev != nil {
			dt := f.Time - prev.Time
			if dt > 0 {
				x0 := component(prev.Particles[particle], axis)
				x1 := component(f.Particles[particle], axis)
				portrait.Points = append(portrait.Points, r2.Vec{X: x1, Y: (x1 - x0) / dt})
			}
		}
		prev = f
	}

	if len(portrait.Points) == 0 {
		return nil
	}
	return portrait
}

func component(p sim.ParticleState, axis Axis) float64 {
	if axis == AxisX {
		return p.X
	}
	return p.Y
}

// PhasePortraitToASCII plots the portrait on a braille canvas of width by
// height cells, joining consecutive points. The zero velocity line is drawn
// when it falls inside the plot.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 {
		return ""
	}

	lo, hi := portrait.Points[0], portrait.Points[0]
	for _, p := range portrait.Points {
		lo.X, hi.X = math.Min(lo.X, p.X), math.Max(hi.X, p.X)
		lo.Y, hi.Y = math.Min(lo.Y, p.Y), math.Max(hi.Y, p.Y)
	}
	span := r2.Sub(hi, lo)
	if span.X == 0 {
		span.X = 1
	}
	if span.Y == 0 {
		span.Y = 1
	}
	lo = r2.Sub(lo, r2.Scale(0.1, span))
	span = r2.Scale(1.2, span)

	c := viz.NewCanvas(width, height)
	pw, ph := float64(c.PixelWidth()-1), float64(c.PixelHeight()-1)
	at := func(p r2.Vec) (int, int) {
		x := (p.X - lo.X) / span.X * pw
		y := ph - (p.Y-lo.Y)/span.Y*ph
		return int(math.Round(x)), int(math.Round(y))
	}

	if lo.Y <= 0 && lo.Y+span.Y >= 0 {
		_, y := at(r2.Vec{X: lo.X})
		c.DrawLine(0, y, int(pw), y)
	}

	px, py := at(portrait.Points[0])
	c.Set(px, py)
	for _, p := range portrait.Points[1:] {
		x, y := at(p)
		c.DrawLine(px, py, x, y)
		px, py = x, y
	}

	return c.String()
}
