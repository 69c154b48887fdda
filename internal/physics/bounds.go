package physics

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// NewBounds returns the box with top-left corner (x, y) and the given size.
// Screen convention: y grows downward, so gravity is usually +Y.
func NewBounds(x, y, width, height float64) r2.Box {
	return r2.Box{
		Min: r2.Vec{X: x, Y: y},
		Max: r2.Vec{X: x + width, Y: y + height},
	}
}

// BoundaryPolicy selects how particles are kept inside the simulation bounds.
type BoundaryPolicy uint8

const (
	// BoundaryReflect clamps the position to the wall and mirrors the
	// previous position about it on the clamped axis.
	BoundaryReflect BoundaryPolicy = iota
	// BoundaryPushBack applies a rigidness-scaled positional correction
	// and leaves the previous position alone, so contacts settle softly.
	BoundaryPushBack
)

func (p BoundaryPolicy) String() string {
	switch p {
	case BoundaryReflect:
		return "reflect"
	case BoundaryPushBack:
		return "pushback"
	default:
		return fmt.Sprintf("BoundaryPolicy(%d)", uint8(p))
	}
}

// ParseBoundary maps a config name to a policy. Empty selects reflect.
func ParseBoundary(name string) (BoundaryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "reflect":
		return BoundaryReflect, nil
	case "pushback", "push-back", "push_back":
		return BoundaryPushBack, nil
	default:
		return BoundaryReflect, fmt.Errorf("%w: unknown boundary policy %q", ErrParameterBounds, name)
	}
}

// Inside reports whether a circle of radius r at pos lies within b shrunk by r.
// tol absorbs floating point noise.
func Inside(b r2.Box, pos r2.Vec, r, tol float64) bool {
	return pos.X-r >= b.Min.X-tol && pos.X+r <= b.Max.X+tol &&
		pos.Y-r >= b.Min.Y-tol && pos.Y+r <= b.Max.Y+tol
}
