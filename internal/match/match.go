// Package match compares a short population signature of the running
// simulation against a catalog of historically documented patterns. The
// comparison is a coarse nearest-neighbor match on three consecutive
// population counts, not a structural shape comparison.
package match

import (
	"math"
	"sort"

	"cellarium/internal/analysis"
)

const (
	signatureLength = 3
	matchThreshold  = 0.7
	maxMatches      = 3
)

// Pattern is a read-only catalog entry. Signature holds the pattern's
// population at three consecutive generations.
type Pattern struct {
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Signature    [signatureLength]int `json:"signature"`
	DiscoveredBy string               `json:"discovered_by,omitempty"`
	Year         int                  `json:"year,omitempty"`
}

// Match pairs a catalog pattern with its similarity to the observed
// signature.
type Match struct {
	Pattern    Pattern `json:"pattern"`
	Similarity float64 `json:"similarity"`
}

var catalog = []Pattern{
	{
		Name:         "Block",
		Description:  "The smallest still life, a two by two square that never changes.",
		Signature:    [3]int{4, 4, 4},
		DiscoveredBy: "John Conway",
		Year:         1970,
	},
	{
		Name:         "Blinker",
		Description:  "Three cells in a row flipping between horizontal and vertical.",
		Signature:    [3]int{3, 3, 3},
		DiscoveredBy: "John Conway",
		Year:         1970,
	},
	{
		Name:         "Glider",
		Description:  "Five cells that crawl diagonally across the grid forever.",
		Signature:    [3]int{5, 5, 5},
		DiscoveredBy: "Richard K. Guy",
		Year:         1970,
	},
	{
		Name:         "Toad",
		Description:  "A period-two oscillator of six cells that appears to hop in place.",
		Signature:    [3]int{6, 6, 6},
		DiscoveredBy: "Simon Norton",
		Year:         1970,
	},
	{
		Name:         "Beacon",
		Description:  "Two diagonal blocks whose shared corners blink on and off.",
		Signature:    [3]int{8, 6, 8},
		DiscoveredBy: "John Conway",
		Year:         1970,
	},
	{
		Name:         "R-pentomino",
		Description:  "A five-cell seed that erupts into chaos for over a thousand generations.",
		Signature:    [3]int{5, 7, 9},
		DiscoveredBy: "John Conway",
		Year:         1969,
	},
	{
		Name:         "Lightweight spaceship",
		Description:  "A nine-cell ship that sails horizontally, cycling through four phases.",
		Signature:    [3]int{9, 12, 9},
		DiscoveredBy: "John Conway",
		Year:         1970,
	},
	{
		Name:         "Pulsar",
		Description:  "A large period-three oscillator with fourfold symmetry.",
		Signature:    [3]int{48, 56, 72},
		DiscoveredBy: "John Conway",
		Year:         1970,
	},
}

// Catalog returns a copy of the historical pattern catalog.
func Catalog() []Pattern {
	return append([]Pattern(nil), catalog...)
}

// Signature extracts the population counts of the last three recorded grids,
// chronological order. ok is false until the history holds three grids.
func Signature(h *analysis.History) (sig [signatureLength]int, ok bool) {
	if h.GridCount() < signatureLength {
		return sig, false
	}
	recent := h.RecentPopulations(signatureLength)
	copy(sig[:], recent)
	return sig, true
}

// Similarity scores two signatures in [0, 1] using the maximum elementwise
// difference relative to the combined average. When both signatures average
// to zero only an exact match scores 1.
func Similarity(a, b [signatureLength]int) float64 {
	maxDiff := 0.0
	sum := 0.0
	for i := 0; i < signatureLength; i++ {
		diff := math.Abs(float64(a[i] - b[i]))
		if diff > maxDiff {
			maxDiff = diff
		}
		sum += float64(a[i]) + float64(b[i])
	}
	avg := sum / float64(2*signatureLength)
	if avg == 0 {
		if maxDiff == 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-maxDiff/avg)
}

// Rank scores the observed signature against every catalog entry, keeps
// entries above the similarity threshold, and returns at most maxMatches
// sorted by descending similarity.
func Rank(sig [signatureLength]int) []Match {
	matches := make([]Match, 0, len(catalog))
	for _, entry := range catalog {
		similarity := Similarity(sig, entry.Signature)
		if similarity > matchThreshold {
			matches = append(matches, Match{Pattern: entry, Similarity: similarity})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return matches
}
