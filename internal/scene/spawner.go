package scene

import (
	"math"

	"github.com/san-kum/verletsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
)

// Spawner emits particles from a fixed origin at a fixed rate of simulated
// time. It implements sim.Driver.
type Spawner struct {
	Max       int
	Delay     float64
	Speed     float64
	Angle     float64
	Origin    r2.Vec
	Radius    float64
	Rigidness float64

	emitted int
	next    float64
}

// Emitted is the number of particles spawned so far.
func (s *Spawner) Emitted() int { return s.emitted }

// Done reports whether the spawner has reached Max.
func (s *Spawner) Done() bool { return s.emitted >= s.Max }

// Reset rewinds the emission count and clock.
func (s *Spawner) Reset() {
	s.emitted = 0
	s.next = 0
}

func (s *Spawner) BeforeFrame(e *physics.Engine, frame int, t float64) {
	if s.Done() || t < s.next {
		return
	}
	s.Emit(e)
	s.next = t + s.Delay
}

// Emit spawns one particle immediately, ignoring the delay and Max.
func (s *Spawner) Emit(e *physics.Engine) int {
	p := physics.NewParticle(s.Origin, s.Radius)
	p.Rigidness = s.Rigidness
	p.Color = Rainbow(s.emitted)
	i := e.AddParticle(p)
	e.SetVelocity(i, r2.Scale(s.Speed, r2.Vec{X: math.Cos(s.Angle), Y: math.Sin(s.Angle)}))
	s.emitted++
	return i
}
