// Package session owns one running simulation: the grid, its rule set, the
// rolling analyzer history, and the per-tick metric snapshot. Metrics and
// historical matches are computed once per tick and cached, never re-derived
// on access. A session is not safe for concurrent writers; Snapshot copies
// are safe to hand to background readers.
package session

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"cellarium/internal/analysis"
	"cellarium/internal/describe"
	"cellarium/internal/engine"
	"cellarium/internal/grid"
	"cellarium/internal/match"
	"cellarium/internal/model"
	"cellarium/internal/rules"
	"cellarium/internal/storage"
)

// Config selects the starting state for a session. Either RuleKey (catalog
// lookup) or Rules (explicit thresholds) must be set; Pattern optionally
// stamps a preset onto an empty grid instead of randomizing.
type Config struct {
	GridSize   int
	RuleKey    string
	Rules      *rules.RuleSet
	RuleName   string
	Seed       int64
	Density    float64
	Pattern    string
	PatternRow int
	PatternCol int
}

// Session is a single simulation run driven by an external tick source.
type Session struct {
	id         string
	grid       grid.Grid
	rules      rules.Named
	generation int
	paused     bool

	history   *analysis.History
	describer *describe.Generator

	metrics     analysis.Metrics
	matches     []match.Match
	description describe.Description
	described   bool
}

// New builds a session from the config, records the initial grid into the
// history, and computes the first metrics snapshot.
func New(cfg Config) (*Session, error) {
	if cfg.GridSize <= 0 {
		return nil, fmt.Errorf("grid size must be > 0, got %d", cfg.GridSize)
	}

	var named rules.Named
	switch {
	case cfg.RuleKey != "":
		entry, err := rules.FromName(cfg.RuleKey)
		if err != nil {
			return nil, err
		}
		named = entry
	case cfg.Rules != nil:
		if err := cfg.Rules.Validate(); err != nil {
			return nil, err
		}
		name := cfg.RuleName
		if name == "" {
			name = "Custom"
		}
		named = rules.Named{Name: name, Rules: *cfg.Rules}
	default:
		return nil, errors.New("a rule key or explicit rule set is required")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	var g grid.Grid
	var err error
	if cfg.Pattern != "" {
		g, err = grid.NewEmpty(cfg.GridSize)
		if err != nil {
			return nil, err
		}
		pattern, perr := grid.Preset(cfg.Pattern)
		if perr != nil {
			return nil, perr
		}
		g.Stamp(pattern, cfg.PatternRow, cfg.PatternCol)
	} else {
		g, err = grid.NewRandom(cfg.GridSize, cfg.Density, rng)
		if err != nil {
			return nil, err
		}
	}

	s := &Session{
		id:        uuid.NewString(),
		grid:      g,
		rules:     named,
		history:   analysis.NewHistory(),
		describer: describe.NewGenerator(rng),
	}
	s.history.Record(s.grid)
	s.refresh()
	return s, nil
}

// Tick advances the simulation one generation and refreshes the cached
// metrics, matches, and description. Ticks on a paused session are no-ops.
func (s *Session) Tick() {
	if s.paused {
		return
	}
	s.grid = engine.Step(s.grid, s.rules.Rules)
	s.generation++
	s.history.Record(s.grid)
	s.refresh()
}

func (s *Session) refresh() {
	s.metrics = analysis.Analyze(s.grid, s.history)
	if sig, ok := match.Signature(s.history); ok {
		s.matches = match.Rank(sig)
	} else {
		s.matches = nil
	}
	s.description, s.described = s.describer.Describe(s.metrics, s.generation)
}

// Pause stops Tick from advancing until Resume.
func (s *Session) Pause() { s.paused = true }

// Resume re-enables Tick.
func (s *Session) Resume() { s.paused = false }

// Paused reports whether the session is paused.
func (s *Session) Paused() bool { return s.paused }

// SetRules replaces the rule set. Rules may only change while the session
// is paused.
func (s *Session) SetRules(r rules.RuleSet) error {
	if !s.paused {
		return errors.New("rules can only be edited while the session is paused")
	}
	if err := r.Validate(); err != nil {
		return err
	}
	s.rules = rules.Named{Name: "Custom", Rules: r}
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Generation returns the current generation counter.
func (s *Session) Generation() int { return s.generation }

// Population returns the current alive-cell count.
func (s *Session) Population() int { return s.grid.Population() }

// Grid returns a snapshot copy of the current grid.
func (s *Session) Grid() grid.Grid { return s.grid.Clone() }

// Metrics returns the snapshot computed on the last tick.
func (s *Session) Metrics() analysis.Metrics { return s.metrics }

// Matches returns the historical pattern matches from the last tick.
func (s *Session) Matches() []match.Match {
	return append([]match.Match(nil), s.matches...)
}

// Description returns the generated description, if the session has run
// long enough to have one.
func (s *Session) Description() (describe.Description, bool) {
	return s.description, s.described
}

// Snapshot builds the read-only export record for sharing consumers.
func (s *Session) Snapshot() model.SessionSnapshot {
	name, summary, category := "", "", ""
	if s.described {
		name = s.description.Name
		summary = s.description.Summary
		category = string(s.description.Category)
	}
	return model.SessionSnapshot{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:          s.id,
		Name:        name,
		Description: summary,
		Category:    category,
		Grid:        s.grid.Clone(),
		GridSize:    s.grid.Dim(),
		Generation:  s.generation,
		Population:  s.grid.Population(),
		Rules: model.RuleThresholds{
			SurvivalMin: s.rules.Rules.SurvivalMin,
			SurvivalMax: s.rules.Rules.SurvivalMax,
			Birth:       s.rules.Rules.Birth,
		},
		RuleName:  s.rules.Name,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// MetricsPoint captures the current tick as a persistable history point.
func (s *Session) MetricsPoint() model.MetricsPoint {
	return model.MetricsPoint{
		Generation: s.generation,
		Population: s.grid.Population(),
		Entropy:    s.metrics.Entropy,
		Diversity:  s.metrics.Diversity,
		Stability:  s.metrics.Stability,
		Growth:     s.metrics.Growth,
	}
}
