package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// CellCapacity is the number of particle indices a grid cell can hold.
// Insertions past it are dropped for the current substep, so dense
// clusters lose some broad-phase pairs. Raise it together with CellSize
// when particles pack tighter than one per cell.
const CellCapacity = 4

// Cell is a fixed-capacity bucket of particle indices.
type Cell struct {
	Count   int
	Indices [CellCapacity]int
}

func (c *Cell) add(i int) bool {
	if c.Count >= CellCapacity {
		return false
	}
	c.Indices[c.Count] = i
	c.Count++
	return true
}

// Objects returns the indices stored in the cell.
func (c *Cell) Objects() []int {
	return c.Indices[:c.Count]
}

// Grid is a uniform spatial hash over a rectangular region.
// The engine clears and refills it every substep; its contents describe
// the positions at the start of the last collision phase.
type Grid struct {
	Width    int
	Height   int
	CellSize float64
	Origin   r2.Vec

	cells   []Cell
	dropped int
}

// NewGrid returns a grid covering bounds with square cells of cellSize.
func NewGrid(bounds r2.Box, cellSize float64) *Grid {
	w := int(math.Ceil((bounds.Max.X - bounds.Min.X) / cellSize))
	h := int(math.Ceil((bounds.Max.Y - bounds.Min.Y) / cellSize))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &Grid{
		Width:    w,
		Height:   h,
		CellSize: cellSize,
		Origin:   bounds.Min,
		cells:    make([]Cell, w*h),
	}
}

// Clear empties every cell without releasing memory.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i].Count = 0
	}
	g.dropped = 0
}

// Coords returns the cell column and row containing pos.
// Positions outside the grid map to the nearest border cell.
func (g *Grid) Coords(pos r2.Vec) (col, row int) {
	col = int(math.Floor((pos.X - g.Origin.X) / g.CellSize))
	row = int(math.Floor((pos.Y - g.Origin.Y) / g.CellSize))
	if col < 0 {
		col = 0
	} else if col >= g.Width {
		col = g.Width - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.Height {
		row = g.Height - 1
	}
	return col, row
}

// CellIndex returns the flat index col + row*Width of the cell containing pos.
func (g *Grid) CellIndex(pos r2.Vec) int {
	col, row := g.Coords(pos)
	return col + row*g.Width
}

// Cell returns the cell at (col, row), or nil when out of range.
func (g *Grid) Cell(col, row int) *Cell {
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return nil
	}
	return &g.cells[col+row*g.Width]
}

// Insert adds particle index i at pos. It reports false when the cell is full.
func (g *Grid) Insert(i int, pos r2.Vec) bool {
	if g.cells[g.CellIndex(pos)].add(i) {
		return true
	}
	g.dropped++
	return false
}

// Populate clears the grid and inserts every particle in store order.
func (g *Grid) Populate(particles []Particle) {
	g.Clear()
	for i := range particles {
		g.Insert(i, particles[i].Position)
	}
}

// Dropped is the number of insertions rejected since the last Clear.
func (g *Grid) Dropped() int { return g.dropped }

// ForEachCandidate calls fn for every ordered candidate pair: each particle
// of a non-empty cell against each particle of the cells in its 3x3
// neighborhood, skipping self pairs. Pairs are visited more than once.
// Order is row-major over cells, then row-major over neighbors.
func (g *Grid) ForEachCandidate(fn func(a, b int)) {
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			cell := &g.cells[col+row*g.Width]
			if cell.Count == 0 {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					other := g.Cell(col+dx, row+dy)
					if other == nil || other.Count == 0 {
						continue
					}
					for _, a := range cell.Objects() {
						for _, b := range other.Objects() {
							if a != b {
								fn(a, b)
							}
						}
					}
				}
			}
		}
	}
}

// Neighbors appends to dst the indices stored in the 3x3 block of cells
// around pos and returns the extended slice.
func (g *Grid) Neighbors(dst []int, pos r2.Vec) []int {
	col, row := g.Coords(pos)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if c := g.Cell(col+dx, row+dy); c != nil {
				dst = append(dst, c.Objects()...)
			}
		}
	}
	return dst
}
