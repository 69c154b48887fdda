package gui

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/verletsim/internal/editor"
	"github.com/san-kum/verletsim/internal/metrics"
	"github.com/san-kum/verletsim/internal/physics"
)

var keMetric = metrics.NewKineticEnergy()

func kineticEnergy(e *physics.Engine) float64 { return keMetric.Sample(e) }

func rlColor(c color.RGBA) rl.Color {
	if c.A == 0 {
		return ColAccent
	}
	return rl.NewColor(c.R, c.G, c.B, c.A)
}

// drawWorld renders bounds, links and particles, then the pending link
// endpoint and a preview of the armed tool under the cursor.
func (a *App) drawWorld() {
	e := a.ed.Simulator().Engine()
	b := e.Bounds()
	lo, hi := a.worldToScreen(b.Min), a.worldToScreen(b.Max)
	rl.DrawRectangleLinesEx(rl.Rectangle{X: lo.X, Y: lo.Y, Width: hi.X - lo.X, Height: hi.Y - lo.Y}, 1, ColBounds)

	ps := e.Particles()
	for _, l := range e.Links() {
		rl.DrawLineV(a.worldToScreen(ps[l.First].Position), a.worldToScreen(ps[l.Second].Position), ColLink)
	}

	for i := range ps {
		p := &ps[i]
		center := a.worldToScreen(p.Position)
		r := float32(p.Radius) * a.scale
		rl.DrawCircleV(center, r, rlColor(p.Color))
		if p.Fixed {
			rl.DrawCircleLines(int32(center.X), int32(center.Y), r+1, ColSelect)
		}
	}

	if i := a.ed.Pending(); i >= 0 && i < len(ps) {
		center := a.worldToScreen(ps[i].Position)
		rl.DrawCircleLines(int32(center.X), int32(center.Y), float32(ps[i].Radius)*a.scale+3, rl.Yellow)
		rl.DrawLineV(center, rl.GetMousePosition(), rl.Yellow)
	}

	mouse := rl.GetMousePosition()
	if a.ed.Tool == editor.ToolObject && mouse.X < float32(a.viewW) {
		r := float32(a.ed.Config().Particle.Radius) * a.scale
		rl.DrawCircleLines(int32(mouse.X), int32(mouse.Y), r, rl.NewColor(255, 255, 255, 100))
	}
}
