package storage

import (
	"context"

	"cellarium/internal/model"
)

// Store defines persistence operations for simulation and race artifacts.
type Store interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snapshot model.SessionSnapshot) error
	GetSnapshot(ctx context.Context, id string) (model.SessionSnapshot, bool, error)
	SaveMetricsHistory(ctx context.Context, runID string, history []model.MetricsPoint) error
	GetMetricsHistory(ctx context.Context, runID string) ([]model.MetricsPoint, bool, error)
	SaveRaceResult(ctx context.Context, result model.RaceResult) error
	GetRaceResult(ctx context.Context, runID string) (model.RaceResult, bool, error)
	SaveRuleSummary(ctx context.Context, summary model.RuleSummary) error
	GetRuleSummary(ctx context.Context, name string) (model.RuleSummary, bool, error)
}

// Resetter is implemented by stores that can discard all persisted state.
type Resetter interface {
	Reset(ctx context.Context) error
}
