package metrics

import (
	"math"

	"github.com/san-kum/verletsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

// KineticEnergy averages the total kinetic energy of free particles over
// observed frames. Every particle has unit mass.
type KineticEnergy struct {
	name    string
	samples []float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(e *physics.Engine, t float64) {
	k.samples = append(k.samples, k.Sample(e))
}

// Sample is the kinetic energy implied by the last substep displacement.
func (k *KineticEnergy) Sample(e *physics.Engine) float64 {
	dt := e.SubstepTimestep()
	total := 0.0
	for i := range e.Particles() {
		p := e.Particle(i)
		if p.Fixed {
			continue
		}
		total += 0.5 * r2.Norm2(p.Velocity(dt))
	}
	return total
}

func (k *KineticEnergy) Value() float64 {
	if len(k.samples) == 0 {
		return 0
	}
	return stat.Mean(k.samples, nil)
}

func (k *KineticEnergy) Reset() {
	k.samples = k.samples[:0]
}

// EnergyDrift tracks the largest relative change of kinetic energy from
// the first observed frame.
type EnergyDrift struct {
	name     string
	ke       KineticEnergy
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (d *EnergyDrift) Name() string { return d.name }

func (d *EnergyDrift) Observe(e *physics.Engine, t float64) {
	energy := d.ke.Sample(e)
	if d.samples == 0 {
		d.initial = energy
	}
	d.samples++
	if d.initial != 0 {
		drift := math.Abs(energy-d.initial) / math.Abs(d.initial)
		d.maxDrift = math.Max(d.maxDrift, drift)
	}
}

func (d *EnergyDrift) Value() float64 { return d.maxDrift }

func (d *EnergyDrift) Reset() {
	d.initial = 0
	d.maxDrift = 0
	d.samples = 0
}
