package analysis

import "cellarium/internal/grid"

const (
	populationCap = 20
	gridCap       = 6
)

// History is the rolling record an analyzer keeps between ticks: the most
// recent population counts and grid snapshots, oldest evicted on overflow.
// A history belongs to a single simulation session and is rebuilt fresh when
// a new session starts.
type History struct {
	populations []int
	grids       []grid.Grid
}

func NewHistory() *History {
	return &History{
		populations: make([]int, 0, populationCap),
		grids:       make([]grid.Grid, 0, gridCap),
	}
}

// Record appends the grid's population and a snapshot copy of the grid.
func (h *History) Record(g grid.Grid) {
	h.populations = append(h.populations, g.Population())
	if len(h.populations) > populationCap {
		h.populations = h.populations[1:]
	}
	h.grids = append(h.grids, g.Clone())
	if len(h.grids) > gridCap {
		h.grids = h.grids[1:]
	}
}

// Populations returns the recorded population counts, oldest first.
func (h *History) Populations() []int {
	return append([]int(nil), h.populations...)
}

// RecentPopulations returns up to the latest n population counts, oldest
// first.
func (h *History) RecentPopulations(n int) []int {
	if len(h.populations) <= n {
		return append([]int(nil), h.populations...)
	}
	return append([]int(nil), h.populations[len(h.populations)-n:]...)
}

// GridCount returns the number of recorded grid snapshots.
func (h *History) GridCount() int { return len(h.grids) }

// Reset discards all recorded samples.
func (h *History) Reset() {
	h.populations = h.populations[:0]
	h.grids = h.grids[:0]
}
