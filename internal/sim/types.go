package sim

import (
	"image/color"
	"math"

	"github.com/san-kum/verletsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
)

// Driver mutates the engine between frames, before Update runs.
type Driver interface {
	BeforeFrame(e *physics.Engine, frame int, t float64)
}

type Metric interface {
	Name() string
	Observe(e *physics.Engine, t float64)
	Value() float64
	Reset()
}

// Sampler is implemented by metrics that also have an instantaneous value,
// recorded into Result.Series alongside every snapshot.
type Sampler interface {
	Sample(e *physics.Engine) float64
}

type Observer interface {
	OnFrame(e *physics.Engine, frame int, t float64)
}

type Config struct {
	Frames        int
	RecordEvery   int
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Frames:        600,
		RecordEvery:   1,
		ValidateState: true,
	}
}

type ParticleState struct {
	X      float64
	Y      float64
	Radius float64
	Fixed  bool
	Color  color.RGBA
}

func (p ParticleState) Position() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Frame is a copy of the engine stores at one instant.
type Frame struct {
	Index     int
	Time      float64
	Particles []ParticleState
	Links     [][2]int
}

// Snapshot copies the current particle and link stores.
func Snapshot(e *physics.Engine, index int, t float64) Frame {
	ps := e.Particles()
	f := Frame{
		Index:     index,
		Time:      t,
		Particles: make([]ParticleState, len(ps)),
		Links:     make([][2]int, e.NumLinks()),
	}
	for i := range ps {
		f.Particles[i] = ParticleState{
			X:      ps[i].Position.X,
			Y:      ps[i].Position.Y,
			Radius: ps[i].Radius,
			Fixed:  ps[i].Fixed,
			Color:  ps[i].Color,
		}
	}
	for i, l := range e.Links() {
		f.Links[i] = [2]int{l.First, l.Second}
	}
	return f
}

type Result struct {
	Frames     []Frame
	Series     map[string][]float64
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

// FirstInvalid returns the index of the first particle with a non-finite
// position, or -1.
func FirstInvalid(e *physics.Engine) int {
	for i, p := range e.Particles() {
		if !finite(p.Position.X) || !finite(p.Position.Y) {
			return i
		}
	}
	return -1
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
