// Package stats writes per-run artifact directories for simulations and
// races and maintains an append-only run index.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"cellarium/internal/model"
)

const runIndexFile = "run_index.json"

// RunConfig records the parameters a simulation or race was started with.
type RunConfig struct {
	RunID       string   `json:"run_id"`
	Kind        string   `json:"kind"`
	RuleName    string   `json:"rule_name,omitempty"`
	RuleKeys    []string `json:"rule_keys,omitempty"`
	GridSize    int      `json:"grid_size"`
	Generations int      `json:"generations"`
	Seed        int64    `json:"seed"`
	Density     float64  `json:"density,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Workers     int      `json:"workers,omitempty"`
}

// PopulationSummary aggregates the population series of a completed run.
type PopulationSummary struct {
	Final int     `json:"final"`
	Max   int     `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
}

// RunArtifacts is everything written into one run directory.
type RunArtifacts struct {
	Config         RunConfig              `json:"config"`
	MetricsHistory []model.MetricsPoint   `json:"metrics_history,omitempty"`
	Snapshot       *model.SessionSnapshot `json:"snapshot,omitempty"`
	Standings      []model.Standing       `json:"standings,omitempty"`
	Winner         string                 `json:"winner,omitempty"`
}

// RunIndexEntry is one line of the newest-first run listing.
type RunIndexEntry struct {
	RunID           string `json:"run_id"`
	Kind            string `json:"kind"`
	RuleName        string `json:"rule_name,omitempty"`
	GridSize        int    `json:"grid_size"`
	Generations     int    `json:"generations"`
	Seed            int64  `json:"seed"`
	FinalPopulation int    `json:"final_population"`
	Winner          string `json:"winner,omitempty"`
	CreatedAtUTC    string `json:"created_at_utc"`
}

// WriteRunArtifacts writes the run directory under baseDir and returns its
// path.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if artifacts.MetricsHistory != nil {
		if err := writeJSON(filepath.Join(runDir, "metrics_history.json"), artifacts.MetricsHistory); err != nil {
			return "", err
		}
		if err := writePopulationSummary(filepath.Join(runDir, "population_summary.json"), artifacts.MetricsHistory); err != nil {
			return "", err
		}
		if err := writeMetricsCSV(filepath.Join(runDir, "metrics.csv"), artifacts.MetricsHistory); err != nil {
			return "", err
		}
	}
	if artifacts.Snapshot != nil {
		if err := writeJSON(filepath.Join(runDir, "snapshot.json"), artifacts.Snapshot); err != nil {
			return "", err
		}
	}
	if artifacts.Standings != nil {
		if err := writeJSON(filepath.Join(runDir, "standings.json"), map[string]any{
			"standings": artifacts.Standings,
			"winner":    artifacts.Winner,
		}); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

func writePopulationSummary(path string, history []model.MetricsPoint) error {
	summary := PopulationSummary{}
	if len(history) > 0 {
		values := make([]float64, len(history))
		for i, point := range history {
			values[i] = float64(point.Population)
			if point.Population > summary.Max {
				summary.Max = point.Population
			}
		}
		summary.Final = history[len(history)-1].Population
		summary.Mean = stat.Mean(values, nil)
		summary.Std = stat.PopStdDev(values, nil)
	}
	return writeJSON(path, summary)
}

func writeMetricsCSV(path string, history []model.MetricsPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"generation", "population", "entropy", "diversity", "stability", "growth"}); err != nil {
		return err
	}
	for _, point := range history {
		record := []string{
			strconv.Itoa(point.Generation),
			strconv.Itoa(point.Population),
			strconv.FormatFloat(point.Entropy, 'f', 6, 64),
			strconv.FormatFloat(point.Diversity, 'f', 6, 64),
			strconv.FormatFloat(point.Stability, 'f', 6, 64),
			strconv.FormatFloat(point.Growth, 'f', 6, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// AppendRunIndex inserts or replaces the entry for its run id.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the run index sorted newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run directory under outDir and returns the
// destination path.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	if err := copyFile(filepath.Join(src, "config.json"), filepath.Join(dst, "config.json")); err != nil {
		return "", err
	}
	optional := []string{"metrics_history.json", "population_summary.json", "metrics.csv", "snapshot.json", "standings.json"}
	for _, file := range optional {
		srcPath := filepath.Join(src, file)
		if _, err := os.Stat(srcPath); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		if err := copyFile(srcPath, filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}

	return dst, nil
}

// ReadRunConfig loads a run's config.json, reporting false when missing.
func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

// ReadRunSnapshot loads a run's snapshot.json, reporting false when the run
// produced no snapshot.
func ReadRunSnapshot(baseDir, runID string) (model.SessionSnapshot, bool, error) {
	path := filepath.Join(baseDir, runID, "snapshot.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.SessionSnapshot{}, false, nil
		}
		return model.SessionSnapshot{}, false, err
	}

	var snapshot model.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.SessionSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
