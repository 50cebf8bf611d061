package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RuleThresholds mirrors a rule set for persistence.
type RuleThresholds struct {
	SurvivalMin int `json:"survival_min"`
	SurvivalMax int `json:"survival_max"`
	Birth       int `json:"birth"`
}

// SessionSnapshot is the read-only export record of a simulation session,
// the shape handed to sharing/export consumers.
type SessionSnapshot struct {
	VersionedRecord
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category,omitempty"`
	Grid        [][]bool       `json:"grid"`
	GridSize    int            `json:"grid_size"`
	Generation  int            `json:"generation"`
	Population  int            `json:"population"`
	Rules       RuleThresholds `json:"rules"`
	RuleName    string         `json:"rule_name,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

// MetricsPoint is one generation's analyzer output in a run's history.
type MetricsPoint struct {
	Generation int     `json:"generation"`
	Population int     `json:"population"`
	Entropy    float64 `json:"entropy"`
	Diversity  float64 `json:"diversity"`
	Stability  float64 `json:"stability"`
	Growth     float64 `json:"growth"`
}

// Standing is the persisted outcome for one race competitor.
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

// RaceResult is the persisted outcome of a completed race.
type RaceResult struct {
	VersionedRecord
	RunID       string     `json:"run_id"`
	GridSize    int        `json:"grid_size"`
	Generations int        `json:"generations"`
	Seed        int64      `json:"seed"`
	Standings   []Standing `json:"standings"`
	Winner      string     `json:"winner"`
	CreatedAt   string     `json:"created_at"`
}

// RuleSummary tracks the best observed race score per cataloged rule set.
type RuleSummary struct {
	VersionedRecord
	Name      string `json:"name"`
	BestScore int    `json:"best_score"`
	Races     int    `json:"races"`
}
