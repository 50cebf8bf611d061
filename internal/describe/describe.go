// Package describe maps analyzer metrics to a behavior category and a
// templated natural-language summary. Category selection is fully
// deterministic given the metrics; only phrase assembly draws on the
// injected random source, so tests can pin a seed and assert exact output.
package describe

import (
	"fmt"
	"math/rand"

	"cellarium/internal/analysis"
)

// MinGeneration is the number of generations a simulation must run before a
// description is produced.
const MinGeneration = 5

type Category string

const (
	CategoryStable       Category = "stable"
	CategoryGrowing      Category = "growing"
	CategoryDeclining    Category = "declining"
	CategoryComplex      Category = "complex"
	CategoryChaotic      Category = "chaotic"
	CategoryTransitional Category = "transitional"
)

// Description is the generated display output for one metrics snapshot.
type Description struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Summary  string   `json:"summary"`
}

// Categorize picks the behavior category for a metrics snapshot. Thresholds
// are checked in priority order; the first match wins.
func Categorize(m analysis.Metrics) Category {
	switch {
	case m.Stability > 0.8:
		return CategoryStable
	case m.Growth > 0.3:
		return CategoryGrowing
	case m.Growth < -0.3:
		return CategoryDeclining
	case m.Diversity > 0.6:
		return CategoryComplex
	case m.Entropy > 0.7:
		return CategoryChaotic
	default:
		return CategoryTransitional
	}
}

type phrasePool struct {
	adjectives []string
	nouns      []string
	summary    string
}

var pools = map[Category]phrasePool{
	CategoryStable: {
		adjectives: []string{"Serene", "Crystalline", "Enduring", "Tranquil"},
		nouns:      []string{"Colony", "Lattice", "Sanctuary", "Monolith"},
		summary:    "A settled ecosystem holding its shape with %.0f%% stability; its population barely wavers between generations.",
	},
	CategoryGrowing: {
		adjectives: []string{"Blooming", "Rampant", "Fertile", "Surging"},
		nouns:      []string{"Bloom", "Expanse", "Swarm", "Tide"},
		summary:    "An expanding ecosystem with a growth trend of %+.2f; new cells are being born faster than old ones die.",
	},
	CategoryDeclining: {
		adjectives: []string{"Fading", "Waning", "Dwindling", "Ebbing"},
		nouns:      []string{"Remnant", "Ruin", "Ember", "Twilight"},
		summary:    "A shrinking ecosystem with a growth trend of %+.2f; the population is collapsing toward extinction.",
	},
	CategoryComplex: {
		adjectives: []string{"Intricate", "Fractured", "Teeming", "Labyrinthine"},
		nouns:      []string{"Archipelago", "Mosaic", "Constellation", "Menagerie"},
		summary:    "A fragmented ecosystem of many independent regions, scoring %.0f%% on structural diversity.",
	},
	CategoryChaotic: {
		adjectives: []string{"Turbulent", "Seething", "Feverish", "Stormy"},
		nouns:      []string{"Maelstrom", "Tempest", "Cauldron", "Flux"},
		summary:    "A disordered ecosystem near maximum entropy (%.2f); no stable structure has emerged yet.",
	},
	CategoryTransitional: {
		adjectives: []string{"Restless", "Shifting", "Nascent", "Uncertain"},
		nouns:      []string{"Frontier", "Crossroads", "Drift", "Threshold"},
		summary:    "An ecosystem in transition at entropy %.2f; it has neither settled down nor tipped into chaos.",
	},
}

// Generator assembles names and summaries from per-category phrase pools.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator backed by the given random source.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Describe produces a category, generated name, and one-paragraph summary
// for a metrics snapshot. It reports false while the simulation is younger
// than MinGeneration.
func (g *Generator) Describe(m analysis.Metrics, generation int) (Description, bool) {
	if generation < MinGeneration {
		return Description{}, false
	}

	category := Categorize(m)
	pool := pools[category]
	adjective := pool.adjectives[g.rng.Intn(len(pool.adjectives))]
	noun := pool.nouns[g.rng.Intn(len(pool.nouns))]

	var summary string
	switch category {
	case CategoryStable:
		summary = fmt.Sprintf(pool.summary, m.Stability*100)
	case CategoryGrowing, CategoryDeclining:
		summary = fmt.Sprintf(pool.summary, m.Growth)
	case CategoryComplex:
		summary = fmt.Sprintf(pool.summary, m.Diversity*100)
	default:
		summary = fmt.Sprintf(pool.summary, m.Entropy)
	}

	return Description{
		Category: category,
		Name:     fmt.Sprintf("%s %s", adjective, noun),
		Summary:  fmt.Sprintf("Generation %d: %s", generation, summary),
	}, true
}
