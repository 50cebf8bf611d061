// Package analysis derives statistical and structural metrics from an
// evolving grid plus its rolling history. All metrics are recomputed from
// scratch each tick; nothing here mutates the grid it is handed.
package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"cellarium/internal/grid"
)

const (
	stabilityWindow = 10
	growthWindow    = 5

	// stabilityDivisor and growthDivisor are empirical normalization
	// constants calibrated against grid sizes in the 15-50 range. Downstream
	// description text is tuned to these exact values.
	stabilityDivisor = 100.0
	growthDivisor    = 10.0

	diversityScale  = 10.0
	influenceRadius = 2
	influenceDecay  = 3.0
)

// Metrics is the per-tick analyzer snapshot. Entropy, Diversity and
// Stability are in [0, 1]; Growth is in [-1, 1]; Influence is an N-by-N
// heat field consumed only by visualization.
type Metrics struct {
	Entropy   float64     `json:"entropy"`
	Diversity float64     `json:"diversity"`
	Stability float64     `json:"stability"`
	Growth    float64     `json:"growth"`
	Influence [][]float64 `json:"-"`
}

// Analyze computes the full metrics snapshot for the current grid and
// history.
func Analyze(g grid.Grid, h *History) Metrics {
	return Metrics{
		Entropy:   Entropy(g),
		Diversity: Diversity(g),
		Stability: Stability(h),
		Growth:    Growth(h),
		Influence: InfluenceField(g),
	}
}

// Entropy returns the binary Shannon entropy of the alive-cell proportion.
// All-dead and all-alive grids have entropy 0.
func Entropy(g grid.Grid) float64 {
	n := g.Dim()
	total := n * n
	if total == 0 {
		return 0
	}
	p := float64(g.Population()) / float64(total)
	if p == 0 || p == 1 {
		return 0
	}
	return -(p*math.Log2(p) + (1-p)*math.Log2(1-p))
}

// Diversity counts connected components of alive cells using 4-directional
// adjacency and normalizes by diversityScale. The flood fill is deliberately
// 4-directional even though the evolution rule uses the Moore neighborhood:
// diversity counts visually separate blobs.
func Diversity(g grid.Grid) float64 {
	n := g.Dim()
	visited := make([][]bool, n)
	for row := range visited {
		visited[row] = make([]bool, n)
	}

	components := 0
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if !g[row][col] || visited[row][col] {
				continue
			}
			components++
			floodFill(g, visited, row, col)
		}
	}
	return math.Min(float64(components)/diversityScale, 1)
}

func floodFill(g grid.Grid, visited [][]bool, row, col int) {
	n := g.Dim()
	stack := [][2]int{{row, col}}
	for len(stack) > 0 {
		cell := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r, c := cell[0], cell[1]
		if r < 0 || r >= n || c < 0 || c >= n || visited[r][c] || !g[r][c] {
			continue
		}
		visited[r][c] = true
		stack = append(stack,
			[2]int{r - 1, c},
			[2]int{r + 1, c},
			[2]int{r, c - 1},
			[2]int{r, c + 1},
		)
	}
}

// Stability maps population variance over the last stabilityWindow samples
// to [0, 1]; higher variance means lower stability. Returns 0 until enough
// samples exist.
func Stability(h *History) float64 {
	samples := h.RecentPopulations(stabilityWindow)
	if len(samples) < stabilityWindow {
		return 0
	}
	values := make([]float64, len(samples))
	for i, pop := range samples {
		values[i] = float64(pop)
	}
	variance := stat.PopVariance(values, nil)
	return math.Max(0, 1-variance/stabilityDivisor)
}

// Growth is the linear population trend over the last growthWindow samples,
// normalized to [-1, 1]. Returns 0 until enough samples exist.
func Growth(h *History) float64 {
	samples := h.RecentPopulations(growthWindow)
	if len(samples) < growthWindow {
		return 0
	}
	trend := float64(samples[len(samples)-1]-samples[0]) / float64(len(samples))
	normalized := trend / growthDivisor
	if normalized > 1 {
		return 1
	}
	if normalized < -1 {
		return -1
	}
	return normalized
}

// InfluenceField spreads a decaying contribution from every alive cell to
// the cells within the influence radius, accumulating additively. The
// result is a smoothed density map used purely for heat-map rendering.
func InfluenceField(g grid.Grid) [][]float64 {
	n := g.Dim()
	field := make([][]float64, n)
	for row := range field {
		field[row] = make([]float64, n)
	}
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if !g[row][col] {
				continue
			}
			for dr := -influenceRadius; dr <= influenceRadius; dr++ {
				for dc := -influenceRadius; dc <= influenceRadius; dc++ {
					r, c := row+dr, col+dc
					if r < 0 || r >= n || c < 0 || c >= n {
						continue
					}
					weight := 1 - math.Hypot(float64(dr), float64(dc))/influenceDecay
					if weight > 0 {
						field[r][c] += weight
					}
				}
			}
		}
	}
	return field
}
