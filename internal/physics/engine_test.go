package physics

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r2"
)

type recordingTimer struct {
	ticks  int
	ends   int
	phases []string
}

func (r *recordingTimer) StartTick()             { r.ticks++ }
func (r *recordingTimer) StartPhase(name string) { r.phases = append(r.phases, name) }
func (r *recordingTimer) EndTick()               { r.ends++ }

func newTestEngine(gravity r2.Vec) *Engine {
	cfg := DefaultConfig(NewBounds(0, 0, 1000, 1000))
	cfg.Gravity = gravity
	e, err := New(cfg)
	Expect(err).NotTo(HaveOccurred())
	return e
}

var _ = Describe("Engine", func() {
	Describe("configuration", func() {
		It("rejects parameters out of range", func() {
			bounds := NewBounds(0, 0, 100, 100)
			for _, mutate := range []func(*Config){
				func(c *Config) { c.FrameTimestep = 0 },
				func(c *Config) { c.SubSteps = 0 },
				func(c *Config) { c.CellSize = -1 },
				func(c *Config) { c.Bounds = NewBounds(0, 0, 0, 10) },
				func(c *Config) { c.Boundary = BoundaryPolicy(7) },
			} {
				cfg := DefaultConfig(bounds)
				mutate(&cfg)
				_, err := New(cfg)
				Expect(err).To(MatchError(ErrParameterBounds))
			}
		})

		It("derives the substep timestep from the frame timestep", func() {
			e := newTestEngine(r2.Vec{})
			Expect(e.SubstepTimestep()).To(BeNumerically("~", 1.0/240.0, 1e-15))
			Expect(e.SetSubSteps(8)).To(Succeed())
			Expect(e.SubstepTimestep()).To(BeNumerically("~", 1.0/480.0, 1e-15))
			Expect(e.SetSubSteps(0)).To(MatchError(ErrParameterBounds))
			Expect(e.SubSteps()).To(Equal(8))
		})

		It("validates links on insertion", func() {
			e := newTestEngine(r2.Vec{})
			a := e.AddParticle(NewParticle(r2.Vec{X: 10, Y: 10}, 5))
			b := e.AddParticle(NewParticle(r2.Vec{X: 30, Y: 10}, 5))

			Expect(e.AddLink(NewLink(a, 5, 10))).To(MatchError(ErrInvalidLink))
			Expect(e.AddLink(NewLink(a, a, 10))).To(MatchError(ErrInvalidLink))
			Expect(e.AddLink(NewLink(a, b, -1))).To(MatchError(ErrParameterBounds))
			Expect(e.AddLink(NewSpring(a, b, 10, 1.5))).To(MatchError(ErrParameterBounds))
			Expect(e.AddLink(NewSpring(a, b, 10, 0.5))).To(Succeed())
			Expect(e.NumLinks()).To(Equal(1))
		})
	})

	Describe("integration", func() {
		It("accumulates gravity over substeps", func() {
			e := newTestEngine(r2.Vec{Y: 980})
			i := e.AddParticle(NewParticle(r2.Vec{X: 500, Y: 100}, 5))
			e.Update()

			dt := e.SubstepTimestep()
			// displacement after k substeps from rest is g*dt²*k(k+1)/2
			want := 100 + 10*980*dt*dt
			Expect(e.Particle(i).Position.Y).To(BeNumerically("~", want, 1e-9))
			Expect(e.Particle(i).Position.X).To(Equal(500.0))
		})

		It("carries an injected velocity across the frame", func() {
			e := newTestEngine(r2.Vec{})
			i := e.AddParticle(NewParticle(r2.Vec{X: 500, Y: 500}, 5))
			e.SetVelocity(i, r2.Vec{X: 120, Y: -60})
			e.Update()

			p := e.Particle(i)
			Expect(p.Position.X).To(BeNumerically("~", 502, 1e-9))
			Expect(p.Position.Y).To(BeNumerically("~", 499, 1e-9))
			v := p.Velocity(e.SubstepTimestep())
			Expect(v.X).To(BeNumerically("~", 120, 1e-6))
			Expect(v.Y).To(BeNumerically("~", -60, 1e-6))
		})

		It("never moves fixed particles", func() {
			e := newTestEngine(r2.Vec{Y: 980})
			anchor := e.AddParticle(NewFixedParticle(r2.Vec{X: 500, Y: 500}, 5))
			other := e.AddParticle(NewParticle(r2.Vec{X: 504, Y: 500}, 5))
			Expect(e.AddLink(NewLink(anchor, other, 30))).To(Succeed())

			for frame := 0; frame < 30; frame++ {
				e.Update()
			}
			Expect(e.Particle(anchor).Position).To(Equal(r2.Vec{X: 500, Y: 500}))
			Expect(e.Particle(anchor).PrevPosition).To(Equal(r2.Vec{X: 500, Y: 500}))
		})

		It("reports every phase in pipeline order", func() {
			e := newTestEngine(r2.Vec{})
			Expect(e.SetSubSteps(2)).To(Succeed())
			timer := &recordingTimer{}
			e.SetPhaseTimer(timer)
			e.Update()

			order := []string{PhaseGravity, PhaseCollisions, PhaseLinkCollisions, PhaseLinks, PhaseBounds, PhaseIntegrate}
			Expect(timer.ticks).To(Equal(1))
			Expect(timer.ends).To(Equal(1))
			Expect(timer.phases).To(Equal(append(append([]string{}, order...), order...)))
		})
	})

	Describe("collisions", func() {
		It("separates overlapping particles and preserves their midpoint", func() {
			e := newTestEngine(r2.Vec{})
			a := e.AddParticle(NewParticle(r2.Vec{X: 500, Y: 500}, 5))
			b := e.AddParticle(NewParticle(r2.Vec{X: 506, Y: 503}, 5))
			mid := r2.Scale(0.5, r2.Add(e.Particle(a).Position, e.Particle(b).Position))

			for pass := 0; pass < 20; pass++ {
				e.solveCollisions()
			}

			pa, pb := e.Particle(a).Position, e.Particle(b).Position
			Expect(r2.Norm(r2.Sub(pa, pb))).To(BeNumerically(">=", 10-1e-6))
			got := r2.Scale(0.5, r2.Add(pa, pb))
			Expect(got.X).To(BeNumerically("~", mid.X, 1e-9))
			Expect(got.Y).To(BeNumerically("~", mid.Y, 1e-9))
		})

		It("weights corrections by radius", func() {
			small := NewParticle(r2.Vec{X: 0, Y: 0}, 2)
			large := NewParticle(r2.Vec{X: 8, Y: 0}, 8)
			da, db, ok := pairCorrection(&small, &large)
			Expect(ok).To(BeTrue())

			// the radius-weighted centre stays put
			Expect(2*da.X + 8*db.X).To(BeNumerically("~", 0, 1e-12))
			Expect(math.Abs(da.X)).To(BeNumerically(">", math.Abs(db.X)))
			// rigidness 1 closes half the overlap per application
			Expect(db.X - da.X).To(BeNumerically("~", 1, 1e-12))
		})

		It("moves only the free particle against a fixed one", func() {
			fixed := NewFixedParticle(r2.Vec{X: 0, Y: 0}, 5)
			free := NewParticle(r2.Vec{X: 6, Y: 0}, 5)
			da, db, ok := pairCorrection(&fixed, &free)
			Expect(ok).To(BeTrue())
			Expect(da).To(Equal(r2.Vec{}))
			Expect(db.X).To(BeNumerically("~", 2, 1e-12))
			Expect(db.Y).To(BeNumerically("~", 0, 1e-12))

			da, db, ok = pairCorrection(&free, &fixed)
			Expect(ok).To(BeTrue())
			Expect(db).To(Equal(r2.Vec{}))
			Expect(da.X).To(BeNumerically("~", 2, 1e-12))
		})

		It("scales the response by mean rigidness", func() {
			a := NewParticle(r2.Vec{X: 0, Y: 0}, 5)
			b := NewParticle(r2.Vec{X: 6, Y: 0}, 5)
			a.Rigidness, b.Rigidness = 0.2, 0.6
			da, db, ok := pairCorrection(&a, &b)
			Expect(ok).To(BeTrue())
			Expect(db.X - da.X).To(BeNumerically("~", 0.5*0.4*4, 1e-12))
		})

		It("skips coincident, separated and doubly fixed pairs", func() {
			a := NewParticle(r2.Vec{X: 1, Y: 1}, 5)
			b := NewParticle(r2.Vec{X: 1, Y: 1}, 5)
			_, _, ok := pairCorrection(&a, &b)
			Expect(ok).To(BeFalse())

			b.Position = r2.Vec{X: 11, Y: 1}
			_, _, ok = pairCorrection(&a, &b)
			Expect(ok).To(BeFalse())

			a.Fixed, b.Fixed = true, true
			b.Position = r2.Vec{X: 4, Y: 1}
			_, _, ok = pairCorrection(&a, &b)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("links", func() {
		It("holds a rigid link at its rest length", func() {
			e := newTestEngine(r2.Vec{})
			a := e.AddParticle(NewParticle(r2.Vec{X: 400, Y: 500}, 5))
			b := e.AddParticle(NewParticle(r2.Vec{X: 430, Y: 500}, 5))
			Expect(e.AddLink(NewLink(a, b, 20))).To(Succeed())

			e.Update()
			dist := r2.Norm(r2.Sub(e.Particle(b).Position, e.Particle(a).Position))
			Expect(dist).To(BeNumerically("~", 20, 1e-9))
		})

		It("closes the stiffness fraction of a spring's stretch per pass", func() {
			e := newTestEngine(r2.Vec{})
			a := e.AddParticle(NewParticle(r2.Vec{X: 400, Y: 500}, 5))
			b := e.AddParticle(NewParticle(r2.Vec{X: 430, Y: 500}, 5))
			Expect(e.AddLink(NewSpring(a, b, 20, 0.25))).To(Succeed())

			e.solveLinkConstraints()
			dist := r2.Norm(r2.Sub(e.Particle(b).Position, e.Particle(a).Position))
			Expect(dist).To(BeNumerically("~", 30-0.25*10, 1e-9))
		})

		It("closes more of the same stretch with a stiffer spring", func() {
			stretchAfterSubstep := func(stiffness float64) float64 {
				cfg := DefaultConfig(NewBounds(0, 0, 1000, 1000))
				cfg.Gravity = r2.Vec{}
				cfg.SubSteps = 1
				e, err := New(cfg)
				Expect(err).NotTo(HaveOccurred())
				a := e.AddParticle(NewParticle(r2.Vec{X: 400, Y: 500}, 5))
				b := e.AddParticle(NewParticle(r2.Vec{X: 430, Y: 500}, 5))
				Expect(e.AddLink(NewSpring(a, b, 20, stiffness))).To(Succeed())

				e.Update()
				return r2.Norm(r2.Sub(e.Particle(b).Position, e.Particle(a).Position)) - 20
			}

			soft := stretchAfterSubstep(0.1)
			stiff := stretchAfterSubstep(0.9)
			Expect(soft).To(BeNumerically("<", 10))
			Expect(stiff).To(BeNumerically("<", soft))
		})

		It("does not redistribute the share of a fixed endpoint", func() {
			e := newTestEngine(r2.Vec{})
			a := e.AddParticle(NewFixedParticle(r2.Vec{X: 400, Y: 500}, 5))
			b := e.AddParticle(NewParticle(r2.Vec{X: 430, Y: 500}, 5))
			Expect(e.AddLink(NewLink(a, b, 20))).To(Succeed())

			e.solveLinkConstraints()
			Expect(e.Particle(a).Position).To(Equal(r2.Vec{X: 400, Y: 500}))
			Expect(e.Particle(b).Position.X).To(BeNumerically("~", 425, 1e-9))
		})

		It("skips links with coincident endpoints", func() {
			e := newTestEngine(r2.Vec{})
			a := e.AddParticle(NewParticle(r2.Vec{X: 400, Y: 500}, 5))
			b := e.AddParticle(NewParticle(r2.Vec{X: 400, Y: 500}, 5))
			Expect(e.AddLink(NewLink(a, b, 0))).To(Succeed())

			e.solveLinkConstraints()
			e.solveObjectLinkCollisions()
			Expect(math.IsNaN(e.Particle(a).Position.X)).To(BeFalse())
			Expect(e.Particle(b).Position).To(Equal(r2.Vec{X: 400, Y: 500}))
		})

		It("pushes particles out of link segments", func() {
			e := newTestEngine(r2.Vec{})
			a := e.AddParticle(NewParticle(r2.Vec{X: 100, Y: 100}, 2))
			b := e.AddParticle(NewParticle(r2.Vec{X: 120, Y: 100}, 2))
			Expect(e.AddLink(NewLink(a, b, 20))).To(Succeed())
			p := e.AddParticle(NewParticle(r2.Vec{X: 110, Y: 102}, 5))

			e.solveObjectLinkCollisions()
			Expect(e.Particle(p).Position.X).To(BeNumerically("~", 110, 1e-9))
			Expect(e.Particle(p).Position.Y).To(BeNumerically("~", 105, 1e-9))
			Expect(e.Particle(a).Position.Y).To(BeNumerically("~", 98.5, 1e-9))
			Expect(e.Particle(b).Position.Y).To(BeNumerically("~", 98.5, 1e-9))
		})
	})

	Describe("boundaries", func() {
		It("keeps particles inside with the reflect policy", func() {
			bounds := NewBounds(0, 0, 400, 300)
			cfg := DefaultConfig(bounds)
			e, err := New(cfg)
			Expect(err).NotTo(HaveOccurred())

			rng := rand.New(rand.NewSource(7))
			for i := 0; i < 60; i++ {
				pos := r2.Vec{X: rng.Float64()*440 - 20, Y: rng.Float64()*340 - 20}
				idx := e.AddParticle(NewParticle(pos, 2+rng.Float64()*3))
				e.SetVelocity(idx, r2.Vec{X: rng.Float64()*600 - 300, Y: rng.Float64()*600 - 300})
			}

			e.solveBoundaryConstraints()
			for _, p := range e.Particles() {
				Expect(Inside(bounds, p.Position, p.Radius, 1e-9)).To(BeTrue())
			}

			for frame := 0; frame < 120; frame++ {
				e.Update()
				// the clamped position is what integration stores as the previous one
				for _, p := range e.Particles() {
					Expect(Inside(bounds, p.PrevPosition, p.Radius, 1e-9)).To(BeTrue())
				}
			}
		})

		It("mirrors the previous position on a reflected axis", func() {
			p := NewParticle(r2.Vec{X: -3, Y: 50}, 5)
			p.PrevPosition = r2.Vec{X: 1, Y: 50}
			p.Clamp(NewBounds(0, 0, 100, 100), BoundaryReflect)
			Expect(p.Position.X).To(Equal(5.0))
			Expect(p.PrevPosition.X).To(Equal(9.0))
			Expect(p.PrevPosition.Y).To(Equal(50.0))
		})

		It("pushes back by half the rigidness-scaled overlap", func() {
			p := NewParticle(r2.Vec{X: 1, Y: 50}, 5)
			p.Rigidness = 0.5
			prev := p.PrevPosition
			p.Clamp(NewBounds(0, 0, 100, 100), BoundaryPushBack)
			Expect(p.Position.X).To(BeNumerically("~", 2, 1e-12))
			Expect(p.PrevPosition).To(Equal(prev))

			q := NewParticle(r2.Vec{X: 50, Y: 98}, 5)
			q.Clamp(NewBounds(0, 0, 100, 100), BoundaryPushBack)
			Expect(q.Position.Y).To(BeNumerically("~", 96.5, 1e-12))
		})

		It("leaves fixed particles outside the bounds alone", func() {
			p := NewFixedParticle(r2.Vec{X: -10, Y: -10}, 5)
			p.Clamp(NewBounds(0, 0, 100, 100), BoundaryReflect)
			Expect(p.Position).To(Equal(r2.Vec{X: -10, Y: -10}))
		})
	})
})
