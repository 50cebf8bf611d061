package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cellarium/internal/stats"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	return workdir
}

func TestSimulateCommandCreatesArtifacts(t *testing.T) {
	chdirTemp(t)

	args := []string{
		"simulate",
		"--grid", "15",
		"--rule", "conway",
		"--gens", "10",
		"--seed", "11",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("simulate command: %v", err)
	}

	entries, err := stats.ListRunIndex(benchmarksDir)
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d", len(entries))
	}
	if entries[0].Kind != "simulate" {
		t.Fatalf("run kind = %q", entries[0].Kind)
	}

	runID := entries[0].RunID
	for _, file := range []string{"config.json", "metrics_history.json", "population_summary.json", "metrics.csv", "snapshot.json"} {
		path := filepath.Join(benchmarksDir, runID, file)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected artifact %s: %v", path, err)
		}
	}

	if err := run(context.Background(), []string{"describe", "--latest"}); err != nil {
		t.Fatalf("describe command: %v", err)
	}
	if err := run(context.Background(), []string{"runs", "--limit", "5"}); err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if err := run(context.Background(), []string{"export", "--latest"}); err != nil {
		t.Fatalf("export command: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exportsDir, runID, "config.json")); err != nil {
		t.Fatalf("exported config missing: %v", err)
	}
}

func TestSimulateCommandWithConfigFile(t *testing.T) {
	workdir := chdirTemp(t)

	configPath := filepath.Join(workdir, "simulate.yaml")
	contents := "grid_size: 12\nrule: seeds\ngenerations: 8\nseed: 3\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	args := []string{
		"simulate",
		"--config", configPath,
		"--gens", "4",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("simulate command: %v", err)
	}

	entries, err := stats.ListRunIndex(benchmarksDir)
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d", len(entries))
	}
	cfg, ok, err := stats.ReadRunConfig(benchmarksDir, entries[0].RunID)
	if err != nil || !ok {
		t.Fatalf("read run config: ok=%v err=%v", ok, err)
	}
	if cfg.GridSize != 12 {
		t.Fatalf("grid size = %d, want 12 from config file", cfg.GridSize)
	}
	if cfg.Generations != 4 {
		t.Fatalf("generations = %d, want flag override 4", cfg.Generations)
	}
}

func TestRaceCommandCreatesStandings(t *testing.T) {
	chdirTemp(t)

	args := []string{
		"race",
		"--rules", "conway,maze",
		"--grid", "10",
		"--gens", "15",
		"--seed", "2",
		"--workers", "2",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("race command: %v", err)
	}

	entries, err := stats.ListRunIndex(benchmarksDir)
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != "race" {
		t.Fatalf("unexpected index entries: %+v", entries)
	}
	if entries[0].Winner == "" {
		t.Fatal("expected a winner in the run index")
	}
	if _, err := os.Stat(filepath.Join(benchmarksDir, entries[0].RunID, "standings.json")); err != nil {
		t.Fatalf("standings artifact missing: %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if err := run(context.Background(), nil); err == nil {
		t.Fatal("expected error for missing command")
	}
}
