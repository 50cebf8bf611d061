package cellarium

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cellarium/internal/rules"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:     "memory",
		BenchmarksDir: filepath.Join(base, "benchmarks"),
		ExportsDir:    filepath.Join(base, "exports"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientSimulateRunsAndExport(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	summary, err := client.Simulate(ctx, SimulateRequest{
		GridSize:    15,
		Rule:        "conway",
		Generations: 12,
		Seed:        42,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if summary.RunID == "" || summary.SessionID == "" {
		t.Fatal("expected run and session ids")
	}
	if summary.Generations != 12 {
		t.Fatalf("generations = %d, want 12", summary.Generations)
	}
	if summary.RuleName != "Conway's Classic" {
		t.Fatalf("rule name = %q", summary.RuleName)
	}
	if summary.Name == "" || summary.Description == "" {
		t.Fatal("expected a generated name and description")
	}
	if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, "metrics.csv")); err != nil {
		t.Fatalf("metrics csv missing: %v", err)
	}

	runs, err := client.Runs(ctx, RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID {
		t.Fatalf("expected run %s in runs list: %+v", summary.RunID, runs)
	}
	if runs[0].Kind != "simulate" {
		t.Fatalf("run kind = %q", runs[0].Kind)
	}

	history, err := client.History(ctx, HistoryRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 13 {
		t.Fatalf("history length = %d, want 13", len(history))
	}
	limited, err := client.History(ctx, HistoryRequest{Latest: true, Limit: 4})
	if err != nil {
		t.Fatalf("history latest: %v", err)
	}
	if len(limited) != 4 {
		t.Fatalf("limited history length = %d, want 4", len(limited))
	}

	described, err := client.Describe(ctx, DescribeRequest{Latest: true})
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if described.Name != summary.Name || described.Category != summary.Category {
		t.Fatalf("describe mismatch: %+v vs summary %+v", described, summary)
	}

	export, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if export.RunID != summary.RunID {
		t.Fatalf("export run id = %s, want %s", export.RunID, summary.RunID)
	}
	if _, err := os.Stat(filepath.Join(export.Directory, "snapshot.json")); err != nil {
		t.Fatalf("exported snapshot missing: %v", err)
	}
}

func TestClientSimulateDefaults(t *testing.T) {
	client := newTestClient(t)

	summary, err := client.Simulate(context.Background(), SimulateRequest{Seed: 1})
	if err != nil {
		t.Fatalf("simulate with defaults: %v", err)
	}
	if summary.Generations != defaultGenerations {
		t.Fatalf("generations = %d, want %d", summary.Generations, defaultGenerations)
	}
	if summary.RuleName != "Conway's Classic" {
		t.Fatalf("default rule name = %q", summary.RuleName)
	}
}

func TestClientSimulateCustomThresholds(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	summary, err := client.Simulate(ctx, SimulateRequest{
		GridSize:    10,
		Custom:      true,
		SurvivalMin: 2,
		SurvivalMax: 3,
		Birth:       3,
		Generations: 6,
		Seed:        9,
	})
	if err != nil {
		t.Fatalf("simulate custom: %v", err)
	}
	if summary.RuleName != "Custom" {
		t.Fatalf("rule name = %q, want Custom", summary.RuleName)
	}

	if _, err := client.Simulate(ctx, SimulateRequest{
		Custom:      true,
		Rule:        "conway",
		SurvivalMin: 2,
		SurvivalMax: 3,
		Birth:       3,
	}); err == nil {
		t.Fatal("expected error mixing named rule with custom thresholds")
	}
	if _, err := client.Simulate(ctx, SimulateRequest{
		Custom:      true,
		SurvivalMin: 5,
		SurvivalMax: 2,
		Birth:       3,
	}); err == nil {
		t.Fatal("expected error for invalid custom thresholds")
	}
}

func TestClientSimulateGliderMatches(t *testing.T) {
	client := newTestClient(t)

	summary, err := client.Simulate(context.Background(), SimulateRequest{
		GridSize:    25,
		Rule:        "conway",
		Generations: 8,
		Pattern:     "glider",
		PatternRow:  5,
		PatternCol:  5,
	})
	if err != nil {
		t.Fatalf("simulate glider: %v", err)
	}
	if len(summary.Matches) == 0 {
		t.Fatal("expected historical matches for a glider")
	}
	if summary.Matches[0].Name != "Glider" {
		t.Fatalf("top match = %q, want Glider", summary.Matches[0].Name)
	}

	matches, err := client.Matches(context.Background(), MatchesRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("matches query: %v", err)
	}
	if len(matches) == 0 || matches[0].Name != "Glider" {
		t.Fatalf("persisted matches query: %+v", matches)
	}
}

func TestClientRaceAndRuleSummary(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	summary, err := client.Race(ctx, RaceRequest{
		Rules:       []string{"conway", "seeds", "maze"},
		GridSize:    10,
		Generations: 25,
		Seed:        3,
		Workers:     2,
	})
	if err != nil {
		t.Fatalf("race: %v", err)
	}
	if len(summary.Standings) != 3 {
		t.Fatalf("standings = %d, want 3", len(summary.Standings))
	}
	if summary.Winner == "" {
		t.Fatal("expected a winner")
	}
	winners := 0
	for _, standing := range summary.Standings {
		if standing.Winner {
			winners++
			if standing.Name != summary.Winner {
				t.Fatalf("winner flag on %q, summary says %q", standing.Name, summary.Winner)
			}
		}
	}
	if winners != 1 {
		t.Fatalf("winner flags = %d, want 1", winners)
	}
	if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, "standings.json")); err != nil {
		t.Fatalf("standings artifact missing: %v", err)
	}

	ruleSummary, err := client.RuleSummary(ctx, summary.Winner)
	if err != nil {
		t.Fatalf("rule summary: %v", err)
	}
	if ruleSummary.Races != 1 || ruleSummary.BestScore <= 0 {
		t.Fatalf("unexpected rule summary: %+v", ruleSummary)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Kind != "race" || runs[0].Winner != summary.Winner {
		t.Fatalf("unexpected runs listing: %+v", runs)
	}
}

func TestClientRaceDefaultsToFullCatalog(t *testing.T) {
	client := newTestClient(t)

	summary, err := client.Race(context.Background(), RaceRequest{
		GridSize:    8,
		Generations: 10,
		Seed:        11,
	})
	if err != nil {
		t.Fatalf("race: %v", err)
	}
	if len(summary.Standings) != len(rules.CatalogKeys()) {
		t.Fatalf("standings = %d, want full catalog %d", len(summary.Standings), len(rules.CatalogKeys()))
	}
}

func TestClientRequestValidation(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected error for export without run id or latest")
	}
	if _, err := client.Export(ctx, ExportRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected error for export with both run id and latest")
	}
	if _, err := client.History(ctx, HistoryRequest{Latest: true}); err == nil {
		t.Fatal("expected error with no runs recorded")
	}
	if _, err := client.History(ctx, HistoryRequest{RunID: "missing"}); err == nil ||
		!strings.Contains(err.Error(), "not found") {
		t.Fatal("expected not found error for unknown run id")
	}
	if _, err := client.RuleSummary(ctx, ""); err == nil {
		t.Fatal("expected error for empty rule name")
	}
}

func TestClientRuleSetsAndPatterns(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	sets, err := client.RuleSets(ctx)
	if err != nil {
		t.Fatalf("rule sets: %v", err)
	}
	if len(sets) != len(rules.CatalogKeys()) {
		t.Fatalf("rule sets = %d, want %d", len(sets), len(rules.CatalogKeys()))
	}
	found := false
	for _, item := range sets {
		if item.Key == "highlife" {
			found = true
			if item.Birth != 6 {
				t.Fatalf("highlife birth = %d, want 6", item.Birth)
			}
		}
	}
	if !found {
		t.Fatal("highlife missing from rule sets")
	}

	patterns := client.Patterns(ctx)
	if len(patterns) == 0 {
		t.Fatal("expected a non-empty pattern catalog")
	}
}

func TestClientUnknownStoreKind(t *testing.T) {
	if _, err := New(Options{StoreKind: "bogus"}); err == nil {
		t.Fatal("expected error for unknown store kind")
	}
}
