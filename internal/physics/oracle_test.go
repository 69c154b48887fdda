package physics

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r2"
)

type pairKey struct{ a, b int }

type pairDelta struct{ da, db r2.Vec }

// naiveOverlaps checks every unordered pair.
func naiveOverlaps(particles []Particle) map[pairKey]pairDelta {
	out := make(map[pairKey]pairDelta)
	for i := range particles {
		for j := i + 1; j < len(particles); j++ {
			if da, db, ok := pairCorrection(&particles[i], &particles[j]); ok {
				out[pairKey{i, j}] = pairDelta{da, db}
			}
		}
	}
	return out
}

func gridOverlaps(g *Grid, particles []Particle) map[pairKey]pairDelta {
	out := make(map[pairKey]pairDelta)
	g.Populate(particles)
	g.ForEachCandidate(func(a, b int) {
		if a > b {
			return
		}
		if da, db, ok := pairCorrection(&particles[a], &particles[b]); ok {
			out[pairKey{a, b}] = pairDelta{da, db}
		}
	})
	return out
}

// scatter places particles at random, skipping any that would overflow a cell.
func scatter(seed int64, bounds r2.Box, cellSize, maxRadius float64, n int) []Particle {
	rng := rand.New(rand.NewSource(seed))
	probe := NewGrid(bounds, cellSize)
	w := bounds.Max.X - bounds.Min.X
	h := bounds.Max.Y - bounds.Min.Y
	var out []Particle
	for i := 0; i < n; i++ {
		pos := r2.Vec{X: bounds.Min.X + rng.Float64()*w, Y: bounds.Min.Y + rng.Float64()*h}
		if !probe.Insert(len(out), pos) {
			continue
		}
		p := NewParticle(pos, 1+rng.Float64()*(maxRadius-1))
		p.Rigidness = 0.5 + rng.Float64()*0.5
		p.Fixed = rng.Intn(10) == 0
		out = append(out, p)
	}
	return out
}

var _ = Describe("Grid broad phase", func() {
	DescribeTable("finds exactly the overlaps of an all-pairs scan",
		func(seed int64, n int) {
			bounds := NewBounds(0, 0, 300, 200)
			const maxRadius = 5.0
			particles := scatter(seed, bounds, 2*maxRadius, maxRadius, n)
			Expect(len(particles)).To(BeNumerically(">", n/2))

			g := NewGrid(bounds, 2*maxRadius)
			want := naiveOverlaps(particles)
			got := gridOverlaps(g, particles)

			Expect(g.Dropped()).To(Equal(0))
			Expect(want).NotTo(BeEmpty())
			Expect(got).To(HaveLen(len(want)))
			for k, d := range want {
				Expect(got).To(HaveKeyWithValue(k, d))
			}
		},
		Entry("sparse", int64(1), 200),
		Entry("moderate", int64(2), 800),
		Entry("dense", int64(3), 2000),
	)
})
