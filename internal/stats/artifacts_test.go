package stats

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"cellarium/internal/model"
)

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestWriteAndReadRunArtifacts(t *testing.T) {
	dir := t.TempDir()
	history := []model.MetricsPoint{
		{Generation: 1, Population: 40, Entropy: 0.5},
		{Generation: 2, Population: 36, Entropy: 0.48},
		{Generation: 3, Population: 44, Entropy: 0.52},
	}
	runDir, err := WriteRunArtifacts(dir, RunArtifacts{
		Config: RunConfig{
			RunID:       "sim-1",
			Kind:        "simulate",
			RuleName:    "Conway's Classic",
			GridSize:    25,
			Generations: 3,
		},
		MetricsHistory: history,
	})
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	cfg, ok, err := ReadRunConfig(dir, "sim-1")
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !ok || cfg.GridSize != 25 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	f, err := os.Open(filepath.Join(runDir, "metrics.csv"))
	if err != nil {
		t.Fatalf("open metrics csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read metrics csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("csv rows = %d, want header plus 3", len(records))
	}
	if records[0][2] != "entropy" || records[2][1] != "36" {
		t.Fatalf("unexpected csv contents: %v", records[:2])
	}
}

func TestRunIndexNewestFirstAndUpsert(t *testing.T) {
	dir := t.TempDir()
	entries := []RunIndexEntry{
		{RunID: "a", Kind: "simulate", CreatedAtUTC: "2026-08-01T00:00:00Z"},
		{RunID: "b", Kind: "race", CreatedAtUTC: "2026-08-02T00:00:00Z"},
		{RunID: "c", Kind: "simulate", CreatedAtUTC: "2026-07-30T00:00:00Z"},
	}
	for _, entry := range entries {
		if err := AppendRunIndex(dir, entry); err != nil {
			t.Fatalf("append %s: %v", entry.RunID, err)
		}
	}

	index, err := ListRunIndex(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(index) != 3 || index[0].RunID != "b" || index[2].RunID != "c" {
		t.Fatalf("unexpected order: %+v", index)
	}

	updated := entries[0]
	updated.Winner = "HighLife"
	if err := AppendRunIndex(dir, updated); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	index, err = ListRunIndex(dir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(index) != 3 {
		t.Fatalf("upsert duplicated entry: %d entries", len(index))
	}
}

func TestExportRunArtifacts(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	if _, err := WriteRunArtifacts(base, RunArtifacts{
		Config:    RunConfig{RunID: "race-1", Kind: "race"},
		Standings: []model.Standing{{Name: "Seeds", Score: 61}},
		Winner:    "Seeds",
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	dst, err := ExportRunArtifacts(base, "race-1", out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "config.json")); err != nil {
		t.Fatalf("exported config missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "standings.json")); err != nil {
		t.Fatalf("exported standings missing: %v", err)
	}

	if _, err := ExportRunArtifacts(base, "no-such-run", out); err == nil {
		t.Fatal("expected error exporting unknown run")
	}
}
