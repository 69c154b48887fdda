package scene

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Rainbow returns a saturated color whose hue cycles with i.
func Rainbow(i int) color.RGBA {
	// golden-angle steps keep neighbors distinguishable
	hue := math.Mod(float64(i)*137.508, 360)
	r, g, b := colorful.Hsv(hue, 0.8, 1).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Gradient maps t in [0, 1] from blue to red through the hue wheel.
func Gradient(t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	r, g, b := colorful.Hsv(240*(1-t), 0.85, 1).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
