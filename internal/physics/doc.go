// Package physics implements a position-based particle engine.
//
// Particles are point masses integrated with Verlet: velocity is never
// stored, it is implied by the difference between the current and the
// previous position. Overlaps and constraint violations are resolved by
// moving positions directly.
//
//   - [Particle]: point mass with position history
//   - [Link]: rigid or spring distance constraint between two particle indices
//   - [Grid]: uniform spatial hash used for broad-phase neighbor queries
//   - [Engine]: owns the stores and runs the fixed-substep solve pipeline
//
// # Example
//
//	e, _ := physics.New(physics.DefaultConfig(physics.NewBounds(0, 0, 800, 600)))
//	i := e.AddParticle(physics.NewParticle(r2.Vec{X: 100, Y: 100}, 5))
//	e.SetVelocity(i, r2.Vec{X: 250, Y: -100})
//	for frame := 0; frame < 60; frame++ {
//	    e.Update()
//	}
//
// # Solve Pipeline
//
// Each call to [Engine.Update] runs SubSteps iterations of: gravity,
// particle-particle collisions (grid broad phase), particle-vs-link
// collisions, one link relaxation pass, boundary clamp, integration.
// The order matters: integration runs last so every correction of the
// substep is folded into the position history.
//
// # Thread Safety
//
// Engine instances are NOT thread-safe. Particles and links may only be
// appended between Update calls, never concurrently with one.
package physics
