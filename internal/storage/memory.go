package storage

import (
	"context"
	"sync"

	"cellarium/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	snapshots   map[string]model.SessionSnapshot
	metrics     map[string][]model.MetricsPoint
	races       map[string]model.RaceResult
	summaries   map[string]model.RuleSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.snapshots = make(map[string]model.SessionSnapshot)
	s.metrics = make(map[string][]model.MetricsPoint)
	s.races = make(map[string]model.RaceResult)
	s.summaries = make(map[string]model.RuleSummary)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snapshot model.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshot.ID] = snapshot
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, id string) (model.SessionSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[id]
	return snapshot, ok, nil
}

func (s *MemoryStore) SaveMetricsHistory(_ context.Context, runID string, history []model.MetricsPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics[runID] = append([]model.MetricsPoint(nil), history...)
	return nil
}

func (s *MemoryStore) GetMetricsHistory(_ context.Context, runID string) ([]model.MetricsPoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.metrics[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.MetricsPoint(nil), history...), true, nil
}

func (s *MemoryStore) SaveRaceResult(_ context.Context, result model.RaceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.races[result.RunID] = result
	return nil
}

func (s *MemoryStore) GetRaceResult(_ context.Context, runID string) (model.RaceResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.races[runID]
	return result, ok, nil
}

func (s *MemoryStore) SaveRuleSummary(_ context.Context, summary model.RuleSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries[summary.Name] = summary
	return nil
}

func (s *MemoryStore) GetRuleSummary(_ context.Context, name string) (model.RuleSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.summaries[name]
	return summary, ok, nil
}
