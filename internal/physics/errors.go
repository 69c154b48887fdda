package physics

import "errors"

// Construction errors. The solve path itself never fails; degenerate
// geometry is skipped silently.
var (
	// ErrParameterBounds indicates an engine parameter outside its valid range.
	ErrParameterBounds = errors.New("physics: parameter out of valid bounds")

	// ErrInvalidLink indicates a link whose endpoints are out of range or equal.
	ErrInvalidLink = errors.New("physics: link references invalid particles")
)
