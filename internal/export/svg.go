package export

import (
	"fmt"
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/san-kum/verletsim/internal/sim"
	"github.com/san-kum/verletsim/internal/viz"
	"gonum.org/v1/gonum/spatial/r2"
)

const background = "#0a0a0a"

func header(sb *strings.Builder, w, h float64) {
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, w, h, w, h, background))
}

func hex(c color.RGBA) string {
	if c.A == 0 {
		return "#ffffff"
	}
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}

// FrameToSVG draws one recorded frame in world coordinates scaled by
// scale: links as grey lines, particles as filled circles. Fixed particles
// get a white outline.
func FrameToSVG(f sim.Frame, bounds r2.Box, scale float64) string {
	w := (bounds.Max.X - bounds.Min.X) * scale
	h := (bounds.Max.Y - bounds.Min.Y) * scale
	at := func(p r2.Vec) (float64, float64) {
		return (p.X - bounds.Min.X) * scale, (p.Y - bounds.Min.Y) * scale
	}

	var sb strings.Builder
	header(&sb, w, h)

	if len(f.Links) > 0 {
		sb.WriteString(`<g stroke="#888888" stroke-width="1">` + "\n")
		for _, l := range f.Links {
			x1, y1 := at(f.Particles[l[0]].Position())
			x2, y2 := at(f.Particles[l[1]].Position())
			sb.WriteString(fmt.Sprintf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"/>`+"\n", x1, y1, x2, y2))
		}
		sb.WriteString("</g>\n")
	}

	sb.WriteString("<g>\n")
	for _, p := range f.Particles {
		cx, cy := at(p.Position())
		stroke := ""
		if p.Fixed {
			stroke = ` stroke="#ffffff" stroke-width="1"`
		}
		sb.WriteString(fmt.Sprintf(`<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"%s/>`+"\n", cx, cy, p.Radius*scale, hex(p.Color), stroke))
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// CanvasToSVG converts a braille canvas to SVG, one dot per lit sub-pixel.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	var sb strings.Builder
	header(&sb, float64(canvas.PixelWidth())*scale, float64(canvas.PixelHeight())*scale)
	sb.WriteString(`<g fill="#00ff00">` + "\n")

	dotRadius := scale * 0.4
	for y := 0; y < canvas.PixelHeight(); y++ {
		for x := 0; x < canvas.PixelWidth(); x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n", cx, cy, dotRadius))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Trail collects the positions of particle i across frames, skipping
// frames recorded before it existed.
func Trail(frames []sim.Frame, i int) []r2.Vec {
	points := make([]r2.Vec, 0, len(frames))
	for _, f := range frames {
		if i < len(f.Particles) {
			points = append(points, f.Particles[i].Position())
		}
	}
	return points
}

// TrailToSVG draws a polyline through points inside bounds.
func TrailToSVG(points []r2.Vec, bounds r2.Box, scale float64, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	var sb strings.Builder
	header(&sb, (bounds.Max.X-bounds.Min.X)*scale, (bounds.Max.Y-bounds.Min.Y)*scale)
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))

	for i, p := range points {
		x := (p.X - bounds.Min.X) * scale
		y := (p.Y - bounds.Min.Y) * scale
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
