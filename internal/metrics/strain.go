package metrics

import (
	"math"

	"github.com/san-kum/verletsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

// LinkStrain averages |length - rest| / rest over links with a positive
// rest length, then over observed frames.
type LinkStrain struct {
	name    string
	samples []float64
	scratch []float64
}

func NewLinkStrain() *LinkStrain {
	return &LinkStrain{name: "link_strain"}
}

func (l *LinkStrain) Name() string { return l.name }

func (l *LinkStrain) Observe(e *physics.Engine, t float64) {
	if e.NumLinks() == 0 {
		return
	}
	l.samples = append(l.samples, l.Sample(e))
}

func (l *LinkStrain) Sample(e *physics.Engine) float64 {
	l.scratch = l.scratch[:0]
	for _, link := range e.Links() {
		if link.RestLength <= 0 {
			continue
		}
		d := r2.Norm(r2.Sub(e.Particle(link.Second).Position, e.Particle(link.First).Position))
		l.scratch = append(l.scratch, math.Abs(d-link.RestLength)/link.RestLength)
	}
	if len(l.scratch) == 0 {
		return 0
	}
	return stat.Mean(l.scratch, nil)
}

func (l *LinkStrain) Value() float64 {
	if len(l.samples) == 0 {
		return 0
	}
	return stat.Mean(l.samples, nil)
}

func (l *LinkStrain) Reset() {
	l.samples = l.samples[:0]
}
