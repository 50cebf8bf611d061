// Package engine applies a rule set to a grid to produce the next
// generation. Stepping is pure: the input grid is never mutated and the
// output is freshly allocated, so generation N+1 is always derived from
// generation N's complete state.
package engine

import (
	"cellarium/internal/grid"
	"cellarium/internal/rules"
)

// Step computes one generation. An alive cell survives when its neighbor
// count falls inside the survival range; a dead cell is born when the count
// equals the birth threshold.
func Step(g grid.Grid, r rules.RuleSet) grid.Grid {
	n := g.Dim()
	next := make(grid.Grid, n)
	for row := 0; row < n; row++ {
		next[row] = make([]bool, n)
		for col := 0; col < n; col++ {
			k := grid.CountNeighbors(g, row, col)
			if g[row][col] {
				next[row][col] = k >= r.SurvivalMin && k <= r.SurvivalMax
			} else {
				next[row][col] = k == r.Birth
			}
		}
	}
	return next
}
