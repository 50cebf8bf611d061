// Package cellarium is the public client facade over the simulation lab,
// the store, and the run artifact directories.
package cellarium

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"cellarium/internal/match"
	"cellarium/internal/model"
	"cellarium/internal/platform"
	"cellarium/internal/rules"
	"cellarium/internal/stats"
	"cellarium/internal/storage"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultExportsDir    = "exports"
	defaultDBPath        = "cellarium.db"

	defaultGridSize    = 25
	defaultGenerations = 100
	defaultRule        = "conway"
	defaultWorkers     = 4
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
}

type Client struct {
	store storage.Store
	lab   *platform.Lab

	benchmarksDir string
	exportsDir    string
}

type SimulateRequest struct {
	GridSize    int
	Rule        string
	SurvivalMin int
	SurvivalMax int
	Birth       int
	Custom      bool
	Generations int
	Seed        int64
	Density     float64
	Pattern     string
	PatternRow  int
	PatternCol  int
}

type MatchItem struct {
	Name         string
	Description  string
	Similarity   float64
	DiscoveredBy string
	Year         int
}

type SimulateSummary struct {
	RunID           string
	SessionID       string
	ArtifactsDir    string
	RuleName        string
	Generations     int
	FinalPopulation int
	Entropy         float64
	Diversity       float64
	Stability       float64
	Growth          float64
	Name            string
	Description     string
	Category        string
	Matches         []MatchItem
}

type RaceRequest struct {
	Rules       []string
	GridSize    int
	Generations int
	Seed        int64
	Density     float64
	Workers     int
}

type StandingItem struct {
	Name            string
	Color           string
	Score           int
	MaxPopulation   int
	Stability       int
	FinalPopulation int
	Winner          bool
}

type RaceSummary struct {
	RunID        string
	ArtifactsDir string
	Winner       string
	Standings    []StandingItem
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID           string
	CreatedAtUTC    string
	Kind            string
	RuleName        string
	GridSize        int
	Generations     int
	Seed            int64
	FinalPopulation int
	Winner          string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type HistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type MatchesRequest struct {
	RunID  string
	Latest bool
}

type DescribeRequest struct {
	RunID  string
	Latest bool
}

type DescribeSummary struct {
	RunID       string
	Name        string
	Description string
	Category    string
	Generation  int
	Population  int
}

type RuleSetItem struct {
	Key         string
	Name        string
	Color       string
	SurvivalMin int
	SurvivalMax int
	Birth       int
}

type RuleSummaryItem struct {
	Name      string
	BestScore int
	Races     int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureLab(ctx)
	return err
}

func (c *Client) Reset(ctx context.Context) error {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return err
	}
	return lab.Reset(ctx)
}

func (c *Client) Simulate(ctx context.Context, req SimulateRequest) (SimulateSummary, error) {
	if req.GridSize <= 0 {
		req.GridSize = defaultGridSize
	}
	if req.Generations <= 0 {
		req.Generations = defaultGenerations
	}
	if req.Rule == "" && !req.Custom {
		req.Rule = defaultRule
	}
	if req.Custom && req.Rule != "" {
		return SimulateSummary{}, errors.New("use either a named rule or custom thresholds")
	}

	lab, err := c.ensureLab(ctx)
	if err != nil {
		return SimulateSummary{}, err
	}

	now := time.Now().UTC()
	ruleLabel := req.Rule
	simCfg := platform.SimulationConfig{
		GridSize:    req.GridSize,
		RuleKey:     req.Rule,
		Generations: req.Generations,
		Seed:        req.Seed,
		Density:     req.Density,
		Pattern:     req.Pattern,
		PatternRow:  req.PatternRow,
		PatternCol:  req.PatternCol,
	}
	if req.Custom {
		custom := rules.RuleSet{
			SurvivalMin: req.SurvivalMin,
			SurvivalMax: req.SurvivalMax,
			Birth:       req.Birth,
		}
		if err := custom.Validate(); err != nil {
			return SimulateSummary{}, err
		}
		simCfg.Rules = &custom
		ruleLabel = "custom"
	}
	simCfg.RunID = fmt.Sprintf("%s-%d-%d", ruleLabel, req.Seed, now.Unix())

	result, err := lab.RunSimulation(ctx, simCfg)
	if err != nil {
		return SimulateSummary{}, err
	}

	snapshot := result.Snapshot
	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:       result.RunID,
			Kind:        "simulate",
			RuleName:    snapshot.RuleName,
			GridSize:    req.GridSize,
			Generations: req.Generations,
			Seed:        req.Seed,
			Density:     req.Density,
			Pattern:     req.Pattern,
		},
		MetricsHistory: result.MetricsHistory,
		Snapshot:       &snapshot,
	})
	if err != nil {
		return SimulateSummary{}, err
	}
	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:           result.RunID,
		Kind:            "simulate",
		RuleName:        snapshot.RuleName,
		GridSize:        req.GridSize,
		Generations:     result.Generations,
		Seed:            req.Seed,
		FinalPopulation: snapshot.Population,
		CreatedAtUTC:    now.Format(time.RFC3339Nano),
	}); err != nil {
		return SimulateSummary{}, err
	}

	summary := SimulateSummary{
		RunID:           result.RunID,
		SessionID:       result.SessionID,
		ArtifactsDir:    filepath.Clean(runDir),
		RuleName:        snapshot.RuleName,
		Generations:     result.Generations,
		FinalPopulation: snapshot.Population,
		Entropy:         result.Metrics.Entropy,
		Diversity:       result.Metrics.Diversity,
		Stability:       result.Metrics.Stability,
		Growth:          result.Metrics.Growth,
		Matches:         toMatchItems(result.Matches),
	}
	if result.Described {
		summary.Name = result.Description.Name
		summary.Description = result.Description.Summary
		summary.Category = string(result.Description.Category)
	}
	return summary, nil
}

func (c *Client) Race(ctx context.Context, req RaceRequest) (RaceSummary, error) {
	if len(req.Rules) == 0 {
		req.Rules = rules.CatalogKeys()
	}
	if req.GridSize <= 0 {
		req.GridSize = defaultGridSize
	}
	if req.Generations <= 0 {
		req.Generations = defaultGenerations
	}
	if req.Workers <= 0 {
		req.Workers = defaultWorkers
	}

	lab, err := c.ensureLab(ctx)
	if err != nil {
		return RaceSummary{}, err
	}

	now := time.Now().UTC()
	runID := fmt.Sprintf("race-%d-%d", req.Seed, now.Unix())
	result, err := lab.RunRace(ctx, platform.RaceConfig{
		RunID:       runID,
		RuleKeys:    req.Rules,
		GridSize:    req.GridSize,
		Generations: req.Generations,
		Density:     req.Density,
		Seed:        req.Seed,
		Workers:     req.Workers,
	})
	if err != nil {
		return RaceSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:       runID,
			Kind:        "race",
			RuleKeys:    req.Rules,
			GridSize:    req.GridSize,
			Generations: result.Generations,
			Seed:        req.Seed,
			Density:     req.Density,
			Workers:     req.Workers,
		},
		Standings: result.Standings,
		Winner:    result.Winner,
	})
	if err != nil {
		return RaceSummary{}, err
	}
	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:        runID,
		Kind:         "race",
		GridSize:     req.GridSize,
		Generations:  result.Generations,
		Seed:         req.Seed,
		Winner:       result.Winner,
		CreatedAtUTC: now.Format(time.RFC3339Nano),
	}); err != nil {
		return RaceSummary{}, err
	}

	standings := make([]StandingItem, 0, len(result.Standings))
	for _, s := range result.Standings {
		standings = append(standings, StandingItem{
			Name:            s.Name,
			Color:           s.Color,
			Score:           s.Score,
			MaxPopulation:   s.MaxPopulation,
			Stability:       s.Stability,
			FinalPopulation: s.FinalPopulation,
			Winner:          s.Winner,
		})
	}
	return RaceSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		Winner:       result.Winner,
		Standings:    standings,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:           e.RunID,
			CreatedAtUTC:    e.CreatedAtUTC,
			Kind:            e.Kind,
			RuleName:        e.RuleName,
			GridSize:        e.GridSize,
			Generations:     e.Generations,
			Seed:            e.Seed,
			FinalPopulation: e.FinalPopulation,
			Winner:          e.Winner,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		latest, err := c.latestRunID()
		if err != nil {
			return ExportSummary{}, err
		}
		runID = latest
	}

	exportedDir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) History(ctx context.Context, req HistoryRequest) ([]model.MetricsPoint, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	if _, err := c.ensureLab(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetMetricsHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("metrics history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[len(history)-req.Limit:]
	}
	return append([]model.MetricsPoint(nil), history...), nil
}

// Matches re-ranks the historical catalog against the population signature
// of a persisted run's final generations.
func (c *Client) Matches(ctx context.Context, req MatchesRequest) ([]MatchItem, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	if _, err := c.ensureLab(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetMetricsHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("metrics history not found for run id: %s", runID)
	}
	if len(history) < 3 {
		return nil, fmt.Errorf("run %s is too short for signature matching", runID)
	}

	var sig [3]int
	tail := history[len(history)-3:]
	for i, point := range tail {
		sig[i] = point.Population
	}
	return toMatchItems(match.Rank(sig)), nil
}

func (c *Client) Describe(_ context.Context, req DescribeRequest) (DescribeSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return DescribeSummary{}, err
	}

	snapshot, ok, err := stats.ReadRunSnapshot(c.benchmarksDir, runID)
	if err != nil {
		return DescribeSummary{}, err
	}
	if !ok {
		return DescribeSummary{}, fmt.Errorf("no snapshot recorded for run id: %s", runID)
	}
	if snapshot.Name == "" {
		return DescribeSummary{}, fmt.Errorf("run %s ended before a description was generated", runID)
	}
	return DescribeSummary{
		RunID:       runID,
		Name:        snapshot.Name,
		Description: snapshot.Description,
		Category:    snapshot.Category,
		Generation:  snapshot.Generation,
		Population:  snapshot.Population,
	}, nil
}

// RuleSets lists the named catalog in key order.
func (c *Client) RuleSets(_ context.Context) ([]RuleSetItem, error) {
	keys := rules.CatalogKeys()
	out := make([]RuleSetItem, 0, len(keys))
	for _, key := range keys {
		named, err := rules.FromName(key)
		if err != nil {
			return nil, err
		}
		out = append(out, RuleSetItem{
			Key:         key,
			Name:        named.Name,
			Color:       named.Color,
			SurvivalMin: named.Rules.SurvivalMin,
			SurvivalMax: named.Rules.SurvivalMax,
			Birth:       named.Rules.Birth,
		})
	}
	return out, nil
}

func (c *Client) RuleSummary(ctx context.Context, name string) (RuleSummaryItem, error) {
	if name == "" {
		return RuleSummaryItem{}, errors.New("rule set name is required")
	}
	if _, err := c.ensureLab(ctx); err != nil {
		return RuleSummaryItem{}, err
	}
	summary, ok, err := c.store.GetRuleSummary(ctx, name)
	if err != nil {
		return RuleSummaryItem{}, err
	}
	if !ok {
		return RuleSummaryItem{}, fmt.Errorf("rule summary not found: %s", name)
	}
	return RuleSummaryItem{
		Name:      summary.Name,
		BestScore: summary.BestScore,
		Races:     summary.Races,
	}, nil
}

// Patterns lists the historical catalog used by the matcher.
func (c *Client) Patterns(_ context.Context) []match.Pattern {
	return match.Catalog()
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if latest {
		return c.latestRunID()
	}
	if runID == "" {
		return "", errors.New("a run id or latest is required")
	}
	return runID, nil
}

func (c *Client) latestRunID() (string, error) {
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) ensureLab(ctx context.Context) (*platform.Lab, error) {
	if c.lab != nil {
		return c.lab, nil
	}
	l := platform.NewLab(platform.Config{Store: c.store})
	if err := l.Init(ctx); err != nil {
		return nil, err
	}
	c.lab = l
	return c.lab, nil
}

func toMatchItems(matches []match.Match) []MatchItem {
	out := make([]MatchItem, 0, len(matches))
	for _, m := range matches {
		out = append(out, MatchItem{
			Name:         m.Pattern.Name,
			Description:  m.Pattern.Description,
			Similarity:   m.Similarity,
			DiscoveredBy: m.Pattern.DiscoveredBy,
			Year:         m.Pattern.Year,
		})
	}
	return out
}
