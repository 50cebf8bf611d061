// Package platform hosts the lab: the long-lived orchestrator that owns the
// rule-set registry, run-control channels, and the persistence of simulation
// and race outcomes.
package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cellarium/internal/analysis"
	"cellarium/internal/describe"
	"cellarium/internal/match"
	"cellarium/internal/model"
	"cellarium/internal/race"
	"cellarium/internal/rules"
	"cellarium/internal/session"
	"cellarium/internal/storage"
)

// RunCommand is consumed by a running simulation or race between ticks.
type RunCommand int

const (
	CommandPause RunCommand = iota
	CommandContinue
	CommandStop
)

type StopReason string

const (
	StopReasonNormal   StopReason = "normal"
	StopReasonShutdown StopReason = "shutdown"
)

type Config struct {
	Store storage.Store
}

// SimulationConfig drives one session run. Either RuleKey (registry lookup)
// or Rules must be set.
type SimulationConfig struct {
	RunID       string
	GridSize    int
	RuleKey     string
	Rules       *rules.RuleSet
	Generations int
	Seed        int64
	Density     float64
	Pattern     string
	PatternRow  int
	PatternCol  int
	Control     chan RunCommand
}

type SimulationResult struct {
	RunID          string
	SessionID      string
	Generations    int
	Snapshot       model.SessionSnapshot
	MetricsHistory []model.MetricsPoint
	Metrics        analysis.Metrics
	Matches        []match.Match
	Description    describe.Description
	Described      bool
}

// RaceConfig drives one multi-competitor race. Keys resolve through the
// lab's rule-set registry.
type RaceConfig struct {
	RunID       string
	RuleKeys    []string
	GridSize    int
	Generations int
	Density     float64
	Seed        int64
	Workers     int
	Control     chan RunCommand
}

// Lab coordinates runs against a shared store. Rule sets registered on the
// lab are visible to both simulations and races.
type Lab struct {
	store storage.Store

	mu sync.RWMutex

	ruleSets       map[string]rules.Named
	started        bool
	lastStopReason StopReason
	runs           map[string]chan RunCommand

	config Config
}

var (
	defaultLabMu sync.Mutex
	defaultLab   *Lab
)

func NewLab(cfg Config) *Lab {
	return &Lab{
		store:          cfg.Store,
		ruleSets:       make(map[string]rules.Named),
		runs:           make(map[string]chan RunCommand),
		config:         cfg,
		lastStopReason: StopReasonNormal,
	}
}

func StartDefault(ctx context.Context, cfg Config) (*Lab, error) {
	defaultLabMu.Lock()
	defer defaultLabMu.Unlock()

	if defaultLab != nil && defaultLab.Started() {
		return defaultLab, nil
	}

	l := NewLab(cfg)
	if err := l.Init(ctx); err != nil {
		return nil, err
	}
	defaultLab = l
	return defaultLab, nil
}

func Default() (*Lab, bool) {
	defaultLabMu.Lock()
	l := defaultLab
	defaultLabMu.Unlock()

	if l == nil || !l.Started() {
		return nil, false
	}
	return l, true
}

func StopDefault(reason StopReason) error {
	defaultLabMu.Lock()
	l := defaultLab
	defaultLabMu.Unlock()
	if l == nil {
		return nil
	}
	if err := l.StopWithReason(reason); err != nil {
		return err
	}
	defaultLabMu.Lock()
	if defaultLab == l {
		defaultLab = nil
	}
	defaultLabMu.Unlock()
	return nil
}

// Init opens the store and seeds the registry from the rule catalog.
func (l *Lab) Init(ctx context.Context) error {
	if l.store == nil {
		return fmt.Errorf("store is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	if err := l.store.Init(ctx); err != nil {
		return err
	}

	for _, key := range rules.CatalogKeys() {
		named, err := rules.FromName(key)
		if err != nil {
			return err
		}
		l.ruleSets[key] = named
	}

	l.started = true
	return nil
}

func (l *Lab) Create(ctx context.Context) error {
	return l.Init(ctx)
}

// Reset stops active runs, discards persisted state when the store supports
// it, and re-initializes.
func (l *Lab) Reset(ctx context.Context) error {
	_ = l.StopWithReason(StopReasonShutdown)
	if resetter, ok := l.store.(storage.Resetter); ok {
		if err := resetter.Reset(ctx); err != nil {
			return err
		}
	}
	return l.Init(ctx)
}

// RegisterRuleSet adds a named rule set to the registry, replacing any
// catalog entry of the same name.
func (l *Lab) RegisterRuleSet(named rules.Named) error {
	if named.Name == "" {
		return fmt.Errorf("rule set name is required")
	}
	if err := named.Rules.Validate(); err != nil {
		return fmt.Errorf("rule set %s: %w", named.Name, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return fmt.Errorf("lab is not initialized")
	}
	l.ruleSets[named.Name] = named
	return nil
}

func (l *Lab) RuleSet(name string) (rules.Named, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	named, ok := l.ruleSets[name]
	return named, ok
}

func (l *Lab) RegisteredRuleSets() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.ruleSets))
	for name := range l.ruleSets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Lab) Stop() {
	_ = l.StopWithReason(StopReasonNormal)
}

func (l *Lab) Shutdown() {
	_ = l.StopWithReason(StopReasonShutdown)
}

func (l *Lab) StopWithReason(reason StopReason) error {
	if reason == "" {
		reason = StopReasonNormal
	}
	if !isValidStopReason(reason) {
		return fmt.Errorf("unsupported stop reason: %s", reason)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, control := range l.runs {
		select {
		case control <- CommandStop:
		default:
		}
	}

	l.started = false
	l.lastStopReason = reason
	l.ruleSets = make(map[string]rules.Named)
	l.runs = make(map[string]chan RunCommand)
	return nil
}

// RunSimulation ticks a session for the configured generation budget,
// persists the final snapshot and metrics history, and returns the cached
// analyzer output of the last tick. A stop command ends the run early but
// still persists what was observed.
func (l *Lab) RunSimulation(ctx context.Context, cfg SimulationConfig) (SimulationResult, error) {
	if cfg.Generations <= 0 {
		cfg.Generations = race.DefaultGenerations
	}

	l.mu.RLock()
	started := l.started
	l.mu.RUnlock()
	if !started {
		return SimulationResult{}, fmt.Errorf("lab is not initialized")
	}

	sessionCfg := session.Config{
		GridSize:   cfg.GridSize,
		Seed:       cfg.Seed,
		Density:    cfg.Density,
		Pattern:    cfg.Pattern,
		PatternRow: cfg.PatternRow,
		PatternCol: cfg.PatternCol,
	}
	switch {
	case cfg.RuleKey != "":
		named, ok := l.RuleSet(cfg.RuleKey)
		if !ok {
			return SimulationResult{}, fmt.Errorf("rule set not registered: %s", cfg.RuleKey)
		}
		sessionCfg.Rules = &named.Rules
		sessionCfg.RuleName = named.Name
	case cfg.Rules != nil:
		sessionCfg.Rules = cfg.Rules
	default:
		return SimulationResult{}, fmt.Errorf("a rule key or explicit rule set is required")
	}

	sess, err := session.New(sessionCfg)
	if err != nil {
		return SimulationResult{}, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = fmt.Sprintf("sim:%s:%d", sess.ID(), cfg.Seed)
	}
	control := cfg.Control
	if control == nil {
		control = make(chan RunCommand, 16)
	}
	if err := l.registerRunControl(runID, control); err != nil {
		return SimulationResult{}, err
	}
	defer l.unregisterRunControl(runID)

	history := make([]model.MetricsPoint, 0, cfg.Generations+1)
	history = append(history, sess.MetricsPoint())

	for i := 0; i < cfg.Generations; i++ {
		stopped, err := awaitRunCommand(ctx, control)
		if err != nil {
			return SimulationResult{}, err
		}
		if stopped {
			break
		}
		sess.Tick()
		history = append(history, sess.MetricsPoint())
	}

	snapshot := sess.Snapshot()
	if err := l.store.SaveSnapshot(ctx, snapshot); err != nil {
		return SimulationResult{}, err
	}
	if err := l.store.SaveMetricsHistory(ctx, runID, history); err != nil {
		return SimulationResult{}, err
	}

	description, described := sess.Description()
	return SimulationResult{
		RunID:          runID,
		SessionID:      sess.ID(),
		Generations:    sess.Generation(),
		Snapshot:       snapshot,
		MetricsHistory: history,
		Metrics:        sess.Metrics(),
		Matches:        sess.Matches(),
		Description:    description,
		Described:      described,
	}, nil
}

// RunRace runs a race to completion, persists the result, and folds each
// standing into the per-rule best-score summaries. A stop command aborts
// the race with an error since partial standings carry no scores.
func (l *Lab) RunRace(ctx context.Context, cfg RaceConfig) (model.RaceResult, error) {
	l.mu.RLock()
	started := l.started
	l.mu.RUnlock()
	if !started {
		return model.RaceResult{}, fmt.Errorf("lab is not initialized")
	}

	competitors := make([]rules.Named, 0, len(cfg.RuleKeys))
	for _, key := range cfg.RuleKeys {
		named, ok := l.RuleSet(key)
		if !ok {
			return model.RaceResult{}, fmt.Errorf("rule set not registered: %s", key)
		}
		competitors = append(competitors, named)
	}

	scheduler, err := race.NewScheduler(race.Config{
		Competitors: competitors,
		GridSize:    cfg.GridSize,
		Generations: cfg.Generations,
		Density:     cfg.Density,
		Seed:        cfg.Seed,
		Workers:     cfg.Workers,
	})
	if err != nil {
		return model.RaceResult{}, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = fmt.Sprintf("race:%d", cfg.Seed)
	}
	control := cfg.Control
	if control == nil {
		control = make(chan RunCommand, 16)
	}
	if err := l.registerRunControl(runID, control); err != nil {
		return model.RaceResult{}, err
	}
	defer l.unregisterRunControl(runID)

	for !scheduler.Complete() {
		stopped, err := awaitRunCommand(ctx, control)
		if err != nil {
			return model.RaceResult{}, err
		}
		if stopped {
			return model.RaceResult{}, fmt.Errorf("race stopped before completion: %s", runID)
		}
		if err := scheduler.Tick(ctx); err != nil {
			return model.RaceResult{}, err
		}
	}

	result := buildRaceResult(runID, cfg, scheduler)
	if err := l.store.SaveRaceResult(ctx, result); err != nil {
		return model.RaceResult{}, err
	}
	for _, standing := range result.Standings {
		if err := l.updateRuleSummary(ctx, standing.Name, standing.Score); err != nil {
			return model.RaceResult{}, err
		}
	}
	return result, nil
}

func buildRaceResult(runID string, cfg RaceConfig, scheduler *race.Scheduler) model.RaceResult {
	standings := scheduler.Standings()
	out := make([]model.Standing, 0, len(standings))
	winner := ""
	generations := cfg.Generations
	for _, s := range standings {
		if s.Winner {
			winner = s.Name
		}
		if s.Generations > generations {
			generations = s.Generations
		}
		out = append(out, model.Standing{
			Name:            s.Name,
			Color:           s.Color,
			Score:           s.Score,
			MaxPopulation:   s.MaxPopulation,
			Stability:       s.Stability,
			FinalPopulation: s.FinalPopulation,
			Generations:     s.Generations,
			Winner:          s.Winner,
		})
	}
	return model.RaceResult{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		RunID:       runID,
		GridSize:    cfg.GridSize,
		Generations: generations,
		Seed:        cfg.Seed,
		Standings:   out,
		Winner:      winner,
		CreatedAt:   nowUTC(),
	}
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (l *Lab) updateRuleSummary(ctx context.Context, name string, score int) error {
	summary, ok, err := l.store.GetRuleSummary(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		summary = model.RuleSummary{
			VersionedRecord: model.VersionedRecord{
				SchemaVersion: storage.CurrentSchemaVersion,
				CodecVersion:  storage.CurrentCodecVersion,
			},
			Name: name,
		}
	}
	if score > summary.BestScore {
		summary.BestScore = score
	}
	summary.Races++
	return l.store.SaveRuleSummary(ctx, summary)
}

func (l *Lab) PauseRun(runID string) error {
	return l.sendRunCommand(runID, CommandPause)
}

func (l *Lab) ContinueRun(runID string) error {
	return l.sendRunCommand(runID, CommandContinue)
}

func (l *Lab) StopRun(runID string) error {
	return l.sendRunCommand(runID, CommandStop)
}

func (l *Lab) registerRunControl(runID string, control chan RunCommand) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return fmt.Errorf("lab is not initialized")
	}
	if _, exists := l.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	l.runs[runID] = control
	return nil
}

func (l *Lab) unregisterRunControl(runID string) {
	if runID == "" {
		return
	}
	l.mu.Lock()
	delete(l.runs, runID)
	l.mu.Unlock()
}

func (l *Lab) sendRunCommand(runID string, cmd RunCommand) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	l.mu.RLock()
	control, ok := l.runs[runID]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run not active: %s", runID)
	}
	select {
	case control <- cmd:
		return nil
	default:
		return fmt.Errorf("run control channel is full: %s", runID)
	}
}

// awaitRunCommand drains pending commands before a tick. A pause blocks
// until a continue, stop, or context cancellation arrives.
func awaitRunCommand(ctx context.Context, control chan RunCommand) (stopped bool, err error) {
	paused := false
	for {
		if paused {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case cmd := <-control:
				switch cmd {
				case CommandStop:
					return true, nil
				case CommandContinue:
					paused = false
				}
			}
			continue
		}
		select {
		case cmd := <-control:
			switch cmd {
			case CommandStop:
				return true, nil
			case CommandPause:
				paused = true
			}
		default:
			if err := ctx.Err(); err != nil {
				return false, err
			}
			return false, nil
		}
	}
}

func (l *Lab) Started() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started
}

func (l *Lab) LastStopReason() StopReason {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastStopReason
}

func isValidStopReason(reason StopReason) bool {
	switch reason {
	case StopReasonNormal, StopReasonShutdown:
		return true
	default:
		return false
	}
}
