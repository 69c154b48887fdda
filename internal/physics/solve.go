package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon is the squared distance below which two points are treated as
// coincident and no direction can be derived.
const Epsilon = 1e-8

func (e *Engine) applyGravity() {
	for i := range e.particles {
		if !e.particles[i].Fixed {
			e.particles[i].Accelerate(e.gravity)
		}
	}
}

func (e *Engine) populateGrid() {
	e.grid.Populate(e.particles)
}

func (e *Engine) solveCollisions() {
	e.populateGrid()
	e.grid.ForEachCandidate(e.solveCollisionPair)
}

func (e *Engine) solveCollisionPair(a, b int) {
	pa, pb := &e.particles[a], &e.particles[b]
	da, db, ok := pairCorrection(pa, pb)
	if !ok {
		return
	}
	pa.Position = r2.Add(pa.Position, da)
	pb.Position = r2.Add(pb.Position, db)
}

// pairCorrection returns the position changes resolving the overlap of a and b.
// ok is false when they do not overlap, coincide, or are both fixed.
func pairCorrection(a, b *Particle) (da, db r2.Vec, ok bool) {
	if a.Fixed && b.Fixed {
		return da, db, false
	}
	distVec := r2.Sub(a.Position, b.Position)
	distSqr := r2.Norm2(distVec)
	minDist := a.Radius + b.Radius
	if distSqr >= minDist*minDist || distSqr < Epsilon {
		return da, db, false
	}

	dist := math.Sqrt(distSqr)
	dir := r2.Scale(1/dist, distVec)
	responseCoef := 0.5 * (a.Rigidness + b.Rigidness)
	delta := 0.5 * responseCoef * (dist - minDist)

	switch {
	case a.Fixed:
		db = r2.Scale(delta, dir)
	case b.Fixed:
		da = r2.Scale(-delta, dir)
	default:
		massRatioA := a.Radius / minDist
		massRatioB := b.Radius / minDist
		da = r2.Scale(-massRatioB*delta, dir)
		db = r2.Scale(massRatioA*delta, dir)
	}
	return da, db, true
}

// solveObjectLinkCollisions treats every link as a segment and pushes
// non-endpoint particles out of it. The segment endpoints split the
// reaction evenly regardless of radius.
func (e *Engine) solveObjectLinkCollisions() {
	for li := range e.links {
		l := &e.links[li]
		p1, p2 := &e.particles[l.First], &e.particles[l.Second]
		for i := range e.particles {
			if l.Has(i) {
				continue
			}
			p := &e.particles[i]

			seg := r2.Sub(p2.Position, p1.Position)
			segLenSqr := r2.Norm2(seg)
			if segLenSqr < Epsilon {
				break
			}
			t := r2.Dot(r2.Sub(p.Position, p1.Position), seg) / segLenSqr
			t = math.Max(0, math.Min(1, t))
			closest := r2.Add(p1.Position, r2.Scale(t, seg))

			sep := r2.Sub(p.Position, closest)
			distSqr := r2.Norm2(sep)
			if distSqr >= p.Radius*p.Radius || distSqr < Epsilon {
				continue
			}
			dist := math.Sqrt(distSqr)
			normal := r2.Scale(1/dist, sep)
			overlap := p.Radius - dist

			if !p.Fixed {
				p.Position = r2.Add(p.Position, r2.Scale(overlap, normal))
			}
			half := r2.Scale(0.5*overlap, normal)
			if !p1.Fixed {
				p1.Position = r2.Sub(p1.Position, half)
			}
			if !p2.Fixed {
				p2.Position = r2.Sub(p2.Position, half)
			}
		}
	}
}

// solveLinkConstraints runs a single relaxation pass in store order.
// Residual stretch between competing links is expected and shrinks over
// later substeps.
func (e *Engine) solveLinkConstraints() {
	for i := range e.links {
		l := &e.links[i]
		p1, p2 := &e.particles[l.First], &e.particles[l.Second]

		axis := r2.Sub(p2.Position, p1.Position)
		distSqr := r2.Norm2(axis)
		if distSqr < Epsilon {
			continue
		}
		dist := math.Sqrt(distSqr)
		delta := 0.5 * (dist - l.RestLength)
		if l.Spring {
			delta *= l.Stiffness
		}
		correction := r2.Scale(delta/dist, axis)

		// a fixed endpoint absorbs nothing and its share is not redistributed
		if !p1.Fixed {
			p1.Position = r2.Add(p1.Position, correction)
		}
		if !p2.Fixed {
			p2.Position = r2.Sub(p2.Position, correction)
		}
	}
}

func (e *Engine) solveBoundaryConstraints() {
	for i := range e.particles {
		e.particles[i].Clamp(e.bounds, e.boundary)
	}
}

func (e *Engine) updatePositions(dt float64) {
	for i := range e.particles {
		e.particles[i].Integrate(dt)
	}
}
