package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/verletsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
)

func newEngine(t *testing.T) *physics.Engine {
	t.Helper()
	cfg := physics.DefaultConfig(physics.NewBounds(0, 0, 200, 200))
	cfg.Gravity = r2.Vec{}
	e, err := physics.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestKineticEnergy(t *testing.T) {
	e := newEngine(t)
	i := e.AddParticle(physics.NewParticle(r2.Vec{X: 100, Y: 100}, 5))
	e.SetVelocity(i, r2.Vec{X: 3, Y: 4})
	e.AddParticle(physics.NewFixedParticle(r2.Vec{X: 20, Y: 20}, 5))

	m := NewKineticEnergy()
	if got := m.Sample(e); math.Abs(got-12.5) > 1e-9 {
		t.Errorf("expected energy 12.5, got %f", got)
	}

	m.Observe(e, 0)
	e.SetVelocity(i, r2.Vec{})
	m.Observe(e, 0)
	if math.Abs(m.Value()-6.25) > 1e-9 {
		t.Errorf("expected mean 6.25, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	e := newEngine(t)
	i := e.AddParticle(physics.NewParticle(r2.Vec{X: 100, Y: 100}, 5))
	e.SetVelocity(i, r2.Vec{X: 10})

	m := NewEnergyDrift()
	m.Observe(e, 0)
	e.SetVelocity(i, r2.Vec{X: 20})
	m.Observe(e, 0)
	e.SetVelocity(i, r2.Vec{X: 10})
	m.Observe(e, 0)

	if math.Abs(m.Value()-3) > 1e-9 {
		t.Errorf("expected max drift 3, got %f", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestContainment(t *testing.T) {
	e := newEngine(t)
	i := e.AddParticle(physics.NewParticle(r2.Vec{X: 100, Y: 100}, 5))
	e.AddParticle(physics.NewFixedParticle(r2.Vec{X: -50, Y: -50}, 5))

	m := NewContainment(1e-9)
	if m.Value() != 1 {
		t.Error("expected full containment before observing")
	}
	m.Observe(e, 0)
	e.Particle(i).Position = r2.Vec{X: 198, Y: 100}
	m.Observe(e, 0)

	if m.Value() != 0.5 {
		t.Errorf("expected containment 0.5, got %f", m.Value())
	}
}

func TestMaxOverlap(t *testing.T) {
	e := newEngine(t)
	e.AddParticle(physics.NewParticle(r2.Vec{X: 50, Y: 50}, 5))
	e.AddParticle(physics.NewParticle(r2.Vec{X: 57, Y: 50}, 5))
	e.AddParticle(physics.NewParticle(r2.Vec{X: 150, Y: 150}, 5))

	m := NewMaxOverlap()
	m.Observe(e, 0)
	if math.Abs(m.Value()-3) > 1e-9 {
		t.Errorf("expected overlap 3, got %f", m.Value())
	}

	e.Particle(1).Position = r2.Vec{X: 70, Y: 50}
	if got := m.Sample(e); got != 0 {
		t.Errorf("expected no overlap, got %f", got)
	}
	m.Observe(e, 0)
	if math.Abs(m.Value()-3) > 1e-9 {
		t.Errorf("expected max to persist, got %f", m.Value())
	}
}

func TestMaxOverlapUndersizedEngineGrid(t *testing.T) {
	cfg := physics.DefaultConfig(physics.NewBounds(0, 0, 200, 200))
	cfg.Gravity = r2.Vec{}
	cfg.CellSize = 10
	e, err := physics.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	e.AddParticle(physics.NewParticle(r2.Vec{X: 60, Y: 100}, 20))
	e.AddParticle(physics.NewParticle(r2.Vec{X: 90, Y: 100}, 20))

	if got := NewMaxOverlap().Sample(e); math.Abs(got-10) > 1e-9 {
		t.Errorf("expected overlap 10, got %f", got)
	}
}

func TestMaxOverlapCrowdedCell(t *testing.T) {
	e := newEngine(t)
	for _, x := range []float64{100.5, 103.5, 106.5, 109.5} {
		e.AddParticle(physics.NewParticle(r2.Vec{X: x, Y: 101}, 5))
	}
	// These two overflow the cell and sit 0.2 apart.
	e.AddParticle(physics.NewParticle(r2.Vec{X: 105, Y: 101}, 5))
	e.AddParticle(physics.NewParticle(r2.Vec{X: 105.2, Y: 101}, 5))

	if got := NewMaxOverlap().Sample(e); math.Abs(got-9.8) > 1e-9 {
		t.Errorf("expected overlap 9.8, got %f", got)
	}
}

func TestLinkStrain(t *testing.T) {
	e := newEngine(t)
	a := e.AddParticle(physics.NewParticle(r2.Vec{X: 50, Y: 50}, 2))
	b := e.AddParticle(physics.NewParticle(r2.Vec{X: 62, Y: 50}, 2))
	c := e.AddParticle(physics.NewParticle(r2.Vec{X: 62, Y: 58}, 2))
	if err := e.AddLink(physics.NewLink(a, b, 10)); err != nil {
		t.Fatal(err)
	}
	if err := e.AddLink(physics.NewLink(b, c, 10)); err != nil {
		t.Fatal(err)
	}

	m := NewLinkStrain()
	m.Observe(e, 0)
	// 0.2 stretched and 0.2 compressed
	if math.Abs(m.Value()-0.2) > 1e-9 {
		t.Errorf("expected strain 0.2, got %f", m.Value())
	}

	empty := NewLinkStrain()
	empty.Observe(newEngine(t), 0)
	if empty.Value() != 0 {
		t.Error("expected zero strain without links")
	}
}
