package physics

import "fmt"

// Link is a distance constraint between two particles of the same engine.
// Indices stay valid because the particle store is append-only.
type Link struct {
	First      int
	Second     int
	RestLength float64
	// Stiffness in (0, 1] scales the correction of spring links.
	Stiffness float64
	Spring    bool
}

// NewLink returns a rigid link.
func NewLink(first, second int, restLength float64) Link {
	return Link{First: first, Second: second, RestLength: restLength, Stiffness: 1}
}

// NewSpring returns an elastic link.
func NewSpring(first, second int, restLength, stiffness float64) Link {
	return Link{First: first, Second: second, RestLength: restLength, Stiffness: stiffness, Spring: true}
}

// Has reports whether particle i is an endpoint of l.
func (l Link) Has(i int) bool {
	return l.First == i || l.Second == i
}

// Validate checks l against a store of n particles.
func (l Link) Validate(n int) error {
	if l.First < 0 || l.First >= n || l.Second < 0 || l.Second >= n {
		return fmt.Errorf("%w: endpoints (%d, %d) with %d particles", ErrInvalidLink, l.First, l.Second, n)
	}
	if l.First == l.Second {
		return fmt.Errorf("%w: endpoints are both %d", ErrInvalidLink, l.First)
	}
	if l.RestLength < 0 {
		return fmt.Errorf("%w: rest length %g", ErrParameterBounds, l.RestLength)
	}
	if l.Spring && (l.Stiffness <= 0 || l.Stiffness > 1) {
		return fmt.Errorf("%w: stiffness %g not in (0, 1]", ErrParameterBounds, l.Stiffness)
	}
	return nil
}
