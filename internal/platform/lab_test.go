package platform

import (
	"context"
	"strings"
	"testing"

	"cellarium/internal/rules"
	"cellarium/internal/storage"
)

func newTestLab(t *testing.T) *Lab {
	t.Helper()
	l := NewLab(Config{Store: storage.NewMemoryStore()})
	if err := l.Init(context.Background()); err != nil {
		t.Fatalf("init lab: %v", err)
	}
	return l
}

func TestLabInitRequiresStore(t *testing.T) {
	l := NewLab(Config{})
	if err := l.Init(context.Background()); err == nil {
		t.Fatal("expected error for missing store")
	}
}

func TestLabInitSeedsRuleRegistry(t *testing.T) {
	l := newTestLab(t)

	registered := l.RegisteredRuleSets()
	if len(registered) != len(rules.CatalogKeys()) {
		t.Fatalf("registered %d rule sets, want %d", len(registered), len(rules.CatalogKeys()))
	}
	named, ok := l.RuleSet("conway")
	if !ok {
		t.Fatal("conway not registered")
	}
	if named.Name != "Conway's Classic" {
		t.Fatalf("unexpected name: %s", named.Name)
	}
}

func TestLabRegisterRuleSet(t *testing.T) {
	l := newTestLab(t)

	custom := rules.Named{
		Name:  "Diamonds",
		Rules: rules.RuleSet{SurvivalMin: 1, SurvivalMax: 5, Birth: 2},
	}
	if err := l.RegisterRuleSet(custom); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := l.RuleSet("Diamonds"); !ok {
		t.Fatal("custom rule set not found after registration")
	}

	if err := l.RegisterRuleSet(rules.Named{Rules: custom.Rules}); err == nil {
		t.Fatal("expected error for unnamed rule set")
	}
	bad := rules.Named{Name: "Bad", Rules: rules.RuleSet{SurvivalMin: 4, SurvivalMax: 2, Birth: 3}}
	if err := l.RegisterRuleSet(bad); err == nil {
		t.Fatal("expected error for invalid thresholds")
	}
}

func TestRunSimulationPersistsSnapshotAndHistory(t *testing.T) {
	store := storage.NewMemoryStore()
	l := NewLab(Config{Store: store})
	ctx := context.Background()
	if err := l.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	result, err := l.RunSimulation(ctx, SimulationConfig{
		RunID:       "sim-test",
		GridSize:    12,
		RuleKey:     "conway",
		Generations: 10,
		Seed:        7,
	})
	if err != nil {
		t.Fatalf("run simulation: %v", err)
	}
	if result.Generations != 10 {
		t.Fatalf("generations = %d, want 10", result.Generations)
	}
	if len(result.MetricsHistory) != 11 {
		t.Fatalf("history length = %d, want 11", len(result.MetricsHistory))
	}
	if result.Snapshot.RuleName != "Conway's Classic" {
		t.Fatalf("snapshot rule name = %q", result.Snapshot.RuleName)
	}
	if !result.Described {
		t.Fatal("expected a description after 10 generations")
	}

	snapshot, ok, err := store.GetSnapshot(ctx, result.SessionID)
	if err != nil || !ok {
		t.Fatalf("snapshot not persisted: ok=%v err=%v", ok, err)
	}
	if snapshot.Generation != 10 {
		t.Fatalf("persisted generation = %d, want 10", snapshot.Generation)
	}
	history, ok, err := store.GetMetricsHistory(ctx, "sim-test")
	if err != nil || !ok {
		t.Fatalf("metrics history not persisted: ok=%v err=%v", ok, err)
	}
	if len(history) != 11 {
		t.Fatalf("persisted history length = %d, want 11", len(history))
	}
}

func TestRunSimulationUnknownRuleKey(t *testing.T) {
	l := newTestLab(t)

	_, err := l.RunSimulation(context.Background(), SimulationConfig{
		GridSize: 10,
		RuleKey:  "no-such-rule",
	})
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunSimulationStopCommand(t *testing.T) {
	l := newTestLab(t)

	control := make(chan RunCommand, 4)
	control <- CommandStop
	result, err := l.RunSimulation(context.Background(), SimulationConfig{
		RunID:       "sim-stopped",
		GridSize:    10,
		RuleKey:     "conway",
		Generations: 50,
		Control:     control,
	})
	if err != nil {
		t.Fatalf("run simulation: %v", err)
	}
	if result.Generations != 0 {
		t.Fatalf("generations = %d, want 0 after immediate stop", result.Generations)
	}
	if len(result.MetricsHistory) != 1 {
		t.Fatalf("history length = %d, want initial point only", len(result.MetricsHistory))
	}
}

func TestRunSimulationPauseThenContinue(t *testing.T) {
	l := newTestLab(t)

	control := make(chan RunCommand, 4)
	control <- CommandPause
	control <- CommandContinue
	result, err := l.RunSimulation(context.Background(), SimulationConfig{
		RunID:       "sim-paused",
		GridSize:    10,
		RuleKey:     "seeds",
		Generations: 5,
		Control:     control,
	})
	if err != nil {
		t.Fatalf("run simulation: %v", err)
	}
	if result.Generations != 5 {
		t.Fatalf("generations = %d, want full budget after resume", result.Generations)
	}
}

func TestRunRacePersistsResultAndSummaries(t *testing.T) {
	store := storage.NewMemoryStore()
	l := NewLab(Config{Store: store})
	ctx := context.Background()
	if err := l.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	result, err := l.RunRace(ctx, RaceConfig{
		RunID:       "race-test",
		RuleKeys:    []string{"conway", "maze"},
		GridSize:    10,
		Generations: 20,
		Seed:        3,
	})
	if err != nil {
		t.Fatalf("run race: %v", err)
	}
	if len(result.Standings) != 2 {
		t.Fatalf("standings = %d, want 2", len(result.Standings))
	}
	if result.Winner == "" {
		t.Fatal("expected a winner")
	}

	persisted, ok, err := store.GetRaceResult(ctx, "race-test")
	if err != nil || !ok {
		t.Fatalf("race result not persisted: ok=%v err=%v", ok, err)
	}
	if persisted.Winner != result.Winner {
		t.Fatalf("persisted winner = %q, want %q", persisted.Winner, result.Winner)
	}

	for _, standing := range result.Standings {
		summary, ok, err := store.GetRuleSummary(ctx, standing.Name)
		if err != nil || !ok {
			t.Fatalf("rule summary missing for %s: ok=%v err=%v", standing.Name, ok, err)
		}
		if summary.Races != 1 {
			t.Fatalf("races = %d for %s, want 1", summary.Races, standing.Name)
		}
		if summary.BestScore < standing.Score {
			t.Fatalf("best score %d below standing score %d", summary.BestScore, standing.Score)
		}
	}

	if _, err := l.RunRace(ctx, RaceConfig{
		RunID:       "race-test-2",
		RuleKeys:    []string{"conway", "maze"},
		GridSize:    10,
		Generations: 20,
		Seed:        4,
	}); err != nil {
		t.Fatalf("second race: %v", err)
	}
	summary, ok, err := store.GetRuleSummary(ctx, "Conway's Classic")
	if err != nil || !ok {
		t.Fatalf("summary lookup: ok=%v err=%v", ok, err)
	}
	if summary.Races != 2 {
		t.Fatalf("races = %d after two races, want 2", summary.Races)
	}
}

func TestRunRaceStopCommand(t *testing.T) {
	l := newTestLab(t)

	control := make(chan RunCommand, 4)
	control <- CommandStop
	_, err := l.RunRace(context.Background(), RaceConfig{
		RunID:       "race-stopped",
		RuleKeys:    []string{"conway"},
		GridSize:    10,
		Generations: 50,
		Control:     control,
	})
	if err == nil || !strings.Contains(err.Error(), "stopped before completion") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSendRunCommandToInactiveRun(t *testing.T) {
	l := newTestLab(t)

	if err := l.PauseRun("nope"); err == nil {
		t.Fatal("expected error for inactive run")
	}
	if err := l.StopRun(""); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestLabStopClearsState(t *testing.T) {
	l := newTestLab(t)

	l.Shutdown()
	if l.Started() {
		t.Fatal("lab still started after shutdown")
	}
	if l.LastStopReason() != StopReasonShutdown {
		t.Fatalf("stop reason = %s", l.LastStopReason())
	}
	if _, err := l.RunSimulation(context.Background(), SimulationConfig{
		GridSize: 10,
		RuleKey:  "conway",
	}); err == nil {
		t.Fatal("expected error running on a stopped lab")
	}

	if err := l.Init(context.Background()); err != nil {
		t.Fatalf("re-init: %v", err)
	}
	if !l.Started() {
		t.Fatal("lab not started after re-init")
	}
}

func TestLabReset(t *testing.T) {
	store := storage.NewMemoryStore()
	l := NewLab(Config{Store: store})
	ctx := context.Background()
	if err := l.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := l.RunSimulation(ctx, SimulationConfig{
		RunID:       "sim-reset",
		GridSize:    10,
		RuleKey:     "conway",
		Generations: 3,
	}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if err := l.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok, err := store.GetMetricsHistory(ctx, "sim-reset"); err != nil || ok {
		t.Fatalf("history survived reset: ok=%v err=%v", ok, err)
	}
	if !l.Started() {
		t.Fatal("lab not started after reset")
	}
}
