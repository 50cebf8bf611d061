package grid

import (
	"fmt"
	"math/rand"
)

// DefaultDensity is the alive probability used when randomizing a grid
// without an explicit density.
const DefaultDensity = 0.3

// Grid is a square matrix of cell states indexed [row][col]. Cells outside
// the grid are dead; there is no wraparound, so boundary cells have fewer
// effective neighbors.
type Grid [][]bool

// NewEmpty returns an n-by-n grid with every cell dead.
func NewEmpty(n int) (Grid, error) {
	if n <= 0 {
		return nil, fmt.Errorf("grid dimension must be > 0, got %d", n)
	}
	g := make(Grid, n)
	for row := range g {
		g[row] = make([]bool, n)
	}
	return g, nil
}

// NewRandom returns an n-by-n grid where each cell is alive independently
// with probability density. A density outside (0, 1] falls back to
// DefaultDensity.
func NewRandom(n int, density float64, rng *rand.Rand) (Grid, error) {
	g, err := NewEmpty(n)
	if err != nil {
		return nil, err
	}
	if density <= 0 || density > 1 {
		density = DefaultDensity
	}
	for row := range g {
		for col := range g[row] {
			g[row][col] = rng.Float64() < density
		}
	}
	return g, nil
}

// Dim returns the grid dimension.
func (g Grid) Dim() int { return len(g) }

// Alive reports whether the cell at (row, col) is alive. Out-of-bounds
// coordinates read as dead.
func (g Grid) Alive(row, col int) bool {
	n := len(g)
	if row < 0 || row >= n || col < 0 || col >= n {
		return false
	}
	return g[row][col]
}

// Set writes the cell at (row, col). Out-of-bounds coordinates are dropped.
func (g Grid) Set(row, col int, alive bool) {
	n := len(g)
	if row < 0 || row >= n || col < 0 || col >= n {
		return
	}
	g[row][col] = alive
}

// Population returns the number of alive cells.
func (g Grid) Population() int {
	count := 0
	for _, row := range g {
		for _, alive := range row {
			if alive {
				count++
			}
		}
	}
	return count
}

// Clone returns a deep copy that shares no storage with g.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for row := range g {
		out[row] = append([]bool(nil), g[row]...)
	}
	return out
}

// Equal reports whether two grids have identical dimensions and cell states.
func (g Grid) Equal(other Grid) bool {
	if len(g) != len(other) {
		return false
	}
	for row := range g {
		if len(g[row]) != len(other[row]) {
			return false
		}
		for col := range g[row] {
			if g[row][col] != other[row][col] {
				return false
			}
		}
	}
	return true
}

// CountNeighbors sums the alive cells in the Moore neighborhood of
// (row, col). Neighbors outside the grid are skipped, not wrapped.
func CountNeighbors(g Grid, row, col int) int {
	count := 0
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if g.Alive(row+dr, col+dc) {
				count++
			}
		}
	}
	return count
}
