package grid

import (
	"fmt"
	"sort"
)

// Cell is a (row, col) coordinate used by preset patterns.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Pattern is a named set of cells stamped onto a grid before a run starts.
type Pattern struct {
	Name  string
	Cells []Cell
}

var presets = map[string]Pattern{
	"block": {
		Name:  "block",
		Cells: []Cell{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
	},
	"blinker": {
		Name:  "blinker",
		Cells: []Cell{{0, 0}, {0, 1}, {0, 2}},
	},
	"glider": {
		Name:  "glider",
		Cells: []Cell{{0, 1}, {1, 2}, {2, 0}, {2, 1}, {2, 2}},
	},
	"toad": {
		Name:  "toad",
		Cells: []Cell{{0, 1}, {0, 2}, {0, 3}, {1, 0}, {1, 1}, {1, 2}},
	},
	"beacon": {
		Name:  "beacon",
		Cells: []Cell{{0, 0}, {0, 1}, {1, 0}, {2, 3}, {3, 2}, {3, 3}},
	},
	"r-pentomino": {
		Name:  "r-pentomino",
		Cells: []Cell{{0, 1}, {0, 2}, {1, 0}, {1, 1}, {2, 1}},
	},
}

// Preset returns the named pattern.
func Preset(name string) (Pattern, error) {
	p, ok := presets[name]
	if !ok {
		return Pattern{}, fmt.Errorf("unknown pattern: %s", name)
	}
	return p, nil
}

// PresetNames lists the available pattern names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stamp writes the pattern onto g at the given offset. Cells that land
// outside the grid are dropped rather than aborting the placement.
func (g Grid) Stamp(p Pattern, rowOffset, colOffset int) {
	for _, c := range p.Cells {
		g.Set(c.Row+rowOffset, c.Col+colOffset, true)
	}
}
