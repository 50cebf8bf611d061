// Package race advances several independent rule-set competitors in
// lockstep over a fixed generation budget and scores them when every
// competitor has finished.
package race

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"cellarium/internal/engine"
	"cellarium/internal/grid"
	"cellarium/internal/rules"
)

const (
	// DefaultGenerations is the shared termination clock for a race.
	DefaultGenerations = 100

	// Population swings below this delta count toward the stability
	// accumulator; larger swings are penalized twice as hard.
	stabilityDelta   = 5
	stabilityReward  = 1
	stabilityPenalty = 2

	survivalBonus = 50
)

// Competitor is the running state of one rule set in a race. Once Finished,
// its grid and population freeze and further ticks are no-ops.
type Competitor struct {
	Rules         rules.Named
	Grid          grid.Grid
	Generation    int
	Population    int
	MaxPopulation int
	Stability     int
	Finished      bool
}

// Standing is the scored outcome for one competitor after a race completes.
type Standing struct {
	Name            string `json:"name"`
	Color           string `json:"color"`
	Score           int    `json:"score"`
	MaxPopulation   int    `json:"max_population"`
	Stability       int    `json:"stability"`
	FinalPopulation int    `json:"final_population"`
	Generations     int    `json:"generations"`
	Winner          bool   `json:"winner"`
}

// Config selects the competitors and shared parameters for one race. All
// competitors share the grid dimension and generation cap; each receives an
// independently randomized starting grid. Competitors, when set, takes
// precedence over RuleKeys catalog lookup.
type Config struct {
	RuleKeys    []string
	Competitors []rules.Named
	GridSize    int
	Generations int
	Density     float64
	Seed        int64
	Workers     int
}

// Scheduler holds competitor state and advances all active competitors
// exactly one generation per tick, preserving lockstep comparability of
// generation counters.
type Scheduler struct {
	competitors []*Competitor
	generations int
	workers     int
	complete    bool
	winner      int
}

// NewScheduler validates the configuration and seeds one randomized grid
// per competitor.
func NewScheduler(cfg Config) (*Scheduler, error) {
	entrants := cfg.Competitors
	if len(entrants) == 0 {
		entrants = make([]rules.Named, 0, len(cfg.RuleKeys))
		for _, key := range cfg.RuleKeys {
			named, err := rules.FromName(key)
			if err != nil {
				return nil, err
			}
			entrants = append(entrants, named)
		}
	}
	if len(entrants) == 0 {
		return nil, fmt.Errorf("at least one competitor rule set is required")
	}
	if cfg.GridSize <= 0 {
		return nil, fmt.Errorf("grid size must be > 0, got %d", cfg.GridSize)
	}
	if cfg.Generations <= 0 {
		cfg.Generations = DefaultGenerations
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	competitors := make([]*Competitor, 0, len(entrants))
	for i, named := range entrants {
		if err := named.Rules.Validate(); err != nil {
			return nil, fmt.Errorf("competitor %s: %w", named.Name, err)
		}
		rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
		g, err := grid.NewRandom(cfg.GridSize, cfg.Density, rng)
		if err != nil {
			return nil, err
		}
		competitors = append(competitors, &Competitor{
			Rules:      named,
			Grid:       g,
			Population: g.Population(),
		})
	}
	for _, c := range competitors {
		c.MaxPopulation = c.Population
	}

	return &Scheduler{
		competitors: competitors,
		generations: cfg.Generations,
		workers:     cfg.Workers,
		winner:      -1,
	}, nil
}

// Tick advances every active competitor one generation. Once all
// competitors finish, the final standings are scored and the scheduler
// becomes terminal; further ticks are no-ops.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.complete {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	for _, c := range s.competitors {
		if c.Finished {
			continue
		}
		c := c
		eg.Go(func() error {
			next := engine.Step(c.Grid, c.Rules.Rules)
			population := next.Population()
			delta := population - c.Population
			if delta < 0 {
				delta = -delta
			}
			if delta < stabilityDelta {
				c.Stability += stabilityReward
			} else {
				c.Stability -= stabilityPenalty
				if c.Stability < 0 {
					c.Stability = 0
				}
			}

			c.Grid = next
			c.Population = population
			if population > c.MaxPopulation {
				c.MaxPopulation = population
			}
			c.Generation++
			if c.Generation >= s.generations {
				c.Finished = true
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for _, c := range s.competitors {
		if !c.Finished {
			return nil
		}
	}
	s.finalize()
	return nil
}

// Run ticks until the race completes or the context is canceled.
func (s *Scheduler) Run(ctx context.Context) ([]Standing, error) {
	for !s.complete {
		if err := s.Tick(ctx); err != nil {
			return nil, err
		}
	}
	return s.Standings(), nil
}

func (s *Scheduler) finalize() {
	best, bestScore := -1, 0
	for i, c := range s.competitors {
		score := s.scoreOf(c)
		if best == -1 || score > bestScore {
			best, bestScore = i, score
		}
	}
	s.winner = best
	s.complete = true
}

func (s *Scheduler) scoreOf(c *Competitor) int {
	score := c.MaxPopulation + c.Stability*2
	if c.Population > 0 {
		score += survivalBonus
	}
	return score
}

// Complete reports whether the race has reached its terminal state.
func (s *Scheduler) Complete() bool { return s.complete }

// Standings returns per-competitor results in encounter order. Scores are
// only meaningful once the race is complete; the winner flag marks the
// first competitor with the maximum score.
func (s *Scheduler) Standings() []Standing {
	out := make([]Standing, 0, len(s.competitors))
	for i, c := range s.competitors {
		out = append(out, Standing{
			Name:            c.Rules.Name,
			Color:           c.Rules.Color,
			Score:           s.scoreOf(c),
			MaxPopulation:   c.MaxPopulation,
			Stability:       c.Stability,
			FinalPopulation: c.Population,
			Generations:     c.Generation,
			Winner:          s.complete && i == s.winner,
		})
	}
	return out
}

// Winner returns the winning standing once the race is complete.
func (s *Scheduler) Winner() (Standing, bool) {
	if !s.complete || s.winner < 0 {
		return Standing{}, false
	}
	return s.Standings()[s.winner], true
}
