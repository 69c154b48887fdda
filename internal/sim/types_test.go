package sim

import (
	"image/color"
	"math"
	"testing"

	"github.com/san-kum/verletsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestSnapshotCopies(t *testing.T) {
	e := newEngine(t)
	p := physics.NewFixedParticle(r2.Vec{X: 10, Y: 20}, 3)
	p.Color = color.RGBA{R: 1, G: 2, B: 3, A: 255}
	a := e.AddParticle(p)
	b := e.AddParticle(physics.NewParticle(r2.Vec{X: 30, Y: 20}, 3))
	if err := e.AddLink(physics.NewLink(a, b, 20)); err != nil {
		t.Fatal(err)
	}

	f := Snapshot(e, 3, 0.5)
	e.Particle(b).Position = r2.Vec{X: 99, Y: 99}

	if f.Index != 3 || f.Time != 0.5 {
		t.Errorf("unexpected header %d %g", f.Index, f.Time)
	}
	if f.Particles[1].X != 30 {
		t.Error("snapshot aliases the particle store")
	}
	if !f.Particles[0].Fixed || f.Particles[0].Color != p.Color || f.Particles[0].Radius != 3 {
		t.Errorf("unexpected particle state %+v", f.Particles[0])
	}
	if len(f.Links) != 1 || f.Links[0] != [2]int{a, b} {
		t.Errorf("unexpected links %v", f.Links)
	}
}

func TestFirstInvalid(t *testing.T) {
	tests := []struct {
		name string
		pos  r2.Vec
		want int
	}{
		{"finite", r2.Vec{X: 1, Y: 2}, -1},
		{"NaN", r2.Vec{X: math.NaN(), Y: 2}, 1},
		{"+Inf", r2.Vec{X: 1, Y: math.Inf(1)}, 1},
		{"-Inf", r2.Vec{X: math.Inf(-1), Y: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			e.AddParticle(physics.NewParticle(r2.Vec{X: 5, Y: 5}, 1))
			e.AddParticle(physics.NewParticle(tt.pos, 1))
			if got := FirstInvalid(e); got != tt.want {
				t.Errorf("FirstInvalid() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSimulationErrorMessage(t *testing.T) {
	err := &SimulationError{Frame: 4, Time: 0.25, Particle: -1, Wrapped: ErrInvalidState}
	if got := err.Error(); got != "frame 4 (t=0.2500): "+ErrInvalidState.Error() {
		t.Errorf("unexpected message %q", got)
	}
}
