package rules

import (
	"fmt"
	"sort"
)

// RuleSet holds the survival range and birth threshold that define a
// life-like transition function. Conway's classic rules are {2, 3, 3}.
type RuleSet struct {
	SurvivalMin int `json:"survival_min"`
	SurvivalMax int `json:"survival_max"`
	Birth       int `json:"birth"`
}

// Validate rejects thresholds outside [0, 8] and inverted survival ranges.
// Stepping and analysis code assumes rule sets have been validated at this
// boundary.
func (r RuleSet) Validate() error {
	for _, v := range []struct {
		name  string
		value int
	}{
		{"survival min", r.SurvivalMin},
		{"survival max", r.SurvivalMax},
		{"birth count", r.Birth},
	} {
		if v.value < 0 || v.value > 8 {
			return fmt.Errorf("%s must be in [0, 8], got %d", v.name, v.value)
		}
	}
	if r.SurvivalMin > r.SurvivalMax {
		return fmt.Errorf("survival min %d exceeds survival max %d", r.SurvivalMin, r.SurvivalMax)
	}
	return nil
}

// Named is a catalog entry pairing a RuleSet with its display identity.
type Named struct {
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Rules RuleSet `json:"rules"`
}

var catalog = map[string]Named{
	"conway": {
		Name:  "Conway's Classic",
		Color: "#4ade80",
		Rules: RuleSet{SurvivalMin: 2, SurvivalMax: 3, Birth: 3},
	},
	"replicator": {
		Name:  "Replicator",
		Color: "#f87171",
		Rules: RuleSet{SurvivalMin: 1, SurvivalMax: 1, Birth: 1},
	},
	"seeds": {
		Name:  "Seeds",
		Color: "#fbbf24",
		Rules: RuleSet{SurvivalMin: 2, SurvivalMax: 2, Birth: 3},
	},
	"flock": {
		Name:  "Flock",
		Color: "#60a5fa",
		Rules: RuleSet{SurvivalMin: 1, SurvivalMax: 2, Birth: 3},
	},
	"maze": {
		Name:  "Maze",
		Color: "#c084fc",
		Rules: RuleSet{SurvivalMin: 3, SurvivalMax: 4, Birth: 3},
	},
	"highlife": {
		Name:  "HighLife",
		Color: "#2dd4bf",
		Rules: RuleSet{SurvivalMin: 2, SurvivalMax: 3, Birth: 6},
	},
}

// FromName returns the cataloged rule set for a key such as "conway".
func FromName(key string) (Named, error) {
	entry, ok := catalog[key]
	if !ok {
		return Named{}, fmt.Errorf("unknown rule set: %s", key)
	}
	return entry, nil
}

// CatalogKeys lists the catalog lookup keys in sorted order.
func CatalogKeys() []string {
	keys := make([]string, 0, len(catalog))
	for key := range catalog {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Catalog returns every named rule set, ordered by lookup key.
func Catalog() []Named {
	out := make([]Named, 0, len(catalog))
	for _, key := range CatalogKeys() {
		out = append(out, catalog[key])
	}
	return out
}
