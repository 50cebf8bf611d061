package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"cellarium/internal/platform"
	"cellarium/internal/storage"
	"cellarium/pkg/cellarium"
)

const (
	benchmarksDir = "benchmarks"
	exportsDir    = "exports"
	defaultDBPath = "cellarium.db"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "simulate":
		return runSimulate(ctx, args[1:])
	case "race":
		return runRace(ctx, args[1:])
	case "describe":
		return runDescribe(ctx, args[1:])
	case "rules":
		return runRules(ctx, args[1:])
	case "patterns":
		return runPatterns(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "matches":
		return runMatches(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	lab := platform.NewLab(platform.Config{Store: store})
	if err := lab.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s rule_sets=%v\n", *storeKind, lab.RegisteredRuleSets())
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	lab := platform.NewLab(platform.Config{Store: store})
	if err := lab.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runSimulate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional YAML run config path")
	gridSize := fs.Int("grid", 25, "grid dimension")
	ruleName := fs.String("rule", "conway", "named rule set key")
	custom := fs.Bool("custom", false, "use explicit thresholds instead of a named rule")
	survivalMin := fs.Int("survival-min", 2, "custom survival minimum")
	survivalMax := fs.Int("survival-max", 3, "custom survival maximum")
	birth := fs.Int("birth", 3, "custom birth count")
	generations := fs.Int("gens", 100, "generation count")
	seed := fs.Int64("seed", 1, "rng seed")
	density := fs.Float64("density", 0.3, "random fill density")
	pattern := fs.String("pattern", "", "preset pattern to stamp instead of random fill")
	patternRow := fs.Int("pattern-row", 0, "preset row offset")
	patternCol := fs.Int("pattern-col", 0, "preset column offset")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	var req cellarium.SimulateRequest
	if *configPath != "" {
		loaded, err := loadSimulateRequest(*configPath)
		if err != nil {
			return err
		}
		req = loaded
		if setFlags["grid"] {
			req.GridSize = *gridSize
		}
		if setFlags["rule"] {
			req.Rule = *ruleName
		}
		if setFlags["custom"] {
			req.Custom = *custom
		}
		if setFlags["survival-min"] {
			req.SurvivalMin = *survivalMin
		}
		if setFlags["survival-max"] {
			req.SurvivalMax = *survivalMax
		}
		if setFlags["birth"] {
			req.Birth = *birth
		}
		if setFlags["gens"] {
			req.Generations = *generations
		}
		if setFlags["seed"] {
			req.Seed = *seed
		}
		if setFlags["density"] {
			req.Density = *density
		}
		if setFlags["pattern"] {
			req.Pattern = *pattern
		}
		if setFlags["pattern-row"] {
			req.PatternRow = *patternRow
		}
		if setFlags["pattern-col"] {
			req.PatternCol = *patternCol
		}
	} else {
		req = cellarium.SimulateRequest{
			GridSize:    *gridSize,
			Generations: *generations,
			Seed:        *seed,
			Density:     *density,
			Pattern:     *pattern,
			PatternRow:  *patternRow,
			PatternCol:  *patternCol,
		}
		if *custom {
			req.Custom = true
			req.SurvivalMin = *survivalMin
			req.SurvivalMax = *survivalMax
			req.Birth = *birth
		} else {
			req.Rule = *ruleName
		}
	}

	client, err := cellarium.New(cellarium.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Simulate(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("simulation completed run_id=%s rule=%s gens=%d final_population=%s\n",
		summary.RunID,
		summary.RuleName,
		summary.Generations,
		humanize.Comma(int64(summary.FinalPopulation)),
	)
	fmt.Printf("entropy=%.4f diversity=%.4f stability=%.4f growth=%+.4f\n",
		summary.Entropy, summary.Diversity, summary.Stability, summary.Growth)
	if summary.Name != "" {
		fmt.Printf("named %q (%s): %s\n", summary.Name, summary.Category, summary.Description)
	}
	for _, m := range summary.Matches {
		fmt.Printf("match pattern=%s similarity=%.3f discovered_by=%s year=%d\n",
			m.Name, m.Similarity, m.DiscoveredBy, m.Year)
	}
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runRace(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("race", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional YAML race config path")
	ruleList := fs.String("rules", "", "comma-separated rule keys (empty for the full catalog)")
	gridSize := fs.Int("grid", 25, "grid dimension")
	generations := fs.Int("gens", 100, "generation count")
	seed := fs.Int64("seed", 1, "rng seed")
	density := fs.Float64("density", 0.3, "random fill density")
	workers := fs.Int("workers", 4, "worker count")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit race summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	var req cellarium.RaceRequest
	if *configPath != "" {
		loaded, err := loadRaceRequest(*configPath)
		if err != nil {
			return err
		}
		req = loaded
		if setFlags["rules"] {
			req.Rules = splitRuleList(*ruleList)
		}
		if setFlags["grid"] {
			req.GridSize = *gridSize
		}
		if setFlags["gens"] {
			req.Generations = *generations
		}
		if setFlags["seed"] {
			req.Seed = *seed
		}
		if setFlags["density"] {
			req.Density = *density
		}
		if setFlags["workers"] {
			req.Workers = *workers
		}
	} else {
		req = cellarium.RaceRequest{
			Rules:       splitRuleList(*ruleList),
			GridSize:    *gridSize,
			Generations: *generations,
			Seed:        *seed,
			Density:     *density,
			Workers:     *workers,
		}
	}

	client, err := cellarium.New(cellarium.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Race(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("race completed run_id=%s winner=%s\n", summary.RunID, summary.Winner)
	for _, s := range summary.Standings {
		marker := " "
		if s.Winner {
			marker = "*"
		}
		fmt.Printf("%s %-20s score=%-6d max_population=%-6s stability=%-4d final_population=%s\n",
			marker,
			s.Name,
			s.Score,
			humanize.Comma(int64(s.MaxPopulation)),
			s.Stability,
			humanize.Comma(int64(s.FinalPopulation)),
		)
	}
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runDescribe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "describe the most recent run from run index")
	jsonOut := fs.Bool("json", false, "emit description as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(storage.DefaultStoreKind(), defaultDBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	described, err := client.Describe(ctx, cellarium.DescribeRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(described)
	}

	fmt.Printf("run_id=%s name=%q category=%s generation=%d population=%s\n",
		described.RunID,
		described.Name,
		described.Category,
		described.Generation,
		humanize.Comma(int64(described.Population)),
	)
	fmt.Println(described.Description)
	return nil
}

func runRules(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	showScores := fs.Bool("show-scores", false, "include best race scores when available")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit rule catalog as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	sets, err := client.RuleSets(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sets)
	}

	for _, item := range sets {
		line := fmt.Sprintf("key=%-10s name=%-18q color=%-7s survival=[%d,%d] birth=%d",
			item.Key, item.Name, item.Color, item.SurvivalMin, item.SurvivalMax, item.Birth)
		if *showScores {
			scoreDisplay := "n/a"
			if summary, err := client.RuleSummary(ctx, item.Name); err == nil {
				scoreDisplay = fmt.Sprintf("%d (races=%d)", summary.BestScore, summary.Races)
			}
			line += " best_score=" + scoreDisplay
		}
		fmt.Println(line)
	}
	return nil
}

func runPatterns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("patterns", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit pattern catalog as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(storage.DefaultStoreKind(), defaultDBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	patterns := client.Patterns(ctx)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(patterns)
	}

	for _, p := range patterns {
		fmt.Printf("pattern=%-22s signature=%v discovered_by=%s year=%d\n",
			p.Name, p.Signature, p.DiscoveredBy, p.Year)
		fmt.Printf("  %s\n", p.Description)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(storage.DefaultStoreKind(), defaultDBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, cellarium.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, r := range runs {
		created := r.CreatedAtUTC
		if t, err := time.Parse(time.RFC3339Nano, r.CreatedAtUTC); err == nil {
			created = humanize.Time(t)
		}
		extra := fmt.Sprintf("final_population=%s", humanize.Comma(int64(r.FinalPopulation)))
		if r.Kind == "race" {
			extra = fmt.Sprintf("winner=%s", r.Winner)
		}
		fmt.Printf("run_id=%s created=%s kind=%s rule=%s grid=%d gens=%d seed=%d %s\n",
			r.RunID, created, r.Kind, r.RuleName, r.GridSize, r.Generations, r.Seed, extra)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show history for the most recent run from run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit metrics history as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.History(ctx, cellarium.HistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for _, point := range history {
		fmt.Printf("generation=%d population=%s entropy=%.4f diversity=%.4f stability=%.4f growth=%+.4f\n",
			point.Generation,
			humanize.Comma(int64(point.Population)),
			point.Entropy,
			point.Diversity,
			point.Stability,
			point.Growth,
		)
	}
	return nil
}

func runMatches(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("matches", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "match against the most recent run from run index")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit matches as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	matches, err := client.Matches(ctx, cellarium.MatchesRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("no historical matches")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}

	for _, m := range matches {
		fmt.Printf("pattern=%-22s similarity=%.3f discovered_by=%s year=%d\n",
			m.Name, m.Similarity, m.DiscoveredBy, m.Year)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "destination directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(storage.DefaultStoreKind(), defaultDBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, cellarium.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func newClient(storeKind, dbPath string) (*cellarium.Client, error) {
	return cellarium.New(cellarium.Options{
		StoreKind:     storeKind,
		DBPath:        dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
	})
}

func splitRuleList(list string) []string {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: cellariumctl <init|reset|simulate|race|describe|rules|patterns|runs|history|matches|export> [flags]", msg)
}
