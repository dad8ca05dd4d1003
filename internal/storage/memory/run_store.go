package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
)

// SimulationRunStore is an in-memory implementation of storage.SimulationRunStore.
type SimulationRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunRecord // keyed by run_id
}

// NewSimulationRunStore creates a new in-memory run store.
func NewSimulationRunStore() *SimulationRunStore {
	return &SimulationRunStore{
		data: make(map[string]*domain.RunRecord),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationRunStore) Insert(_ context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	s.data[r.RunID] = &cp
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) GetByID(_ context.Context, runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *r
	return &cp, nil
}

// GetByProfile retrieves all runs of a profile, ordered by created_at ASC.
func (s *SimulationRunStore) GetByProfile(_ context.Context, profileName string) ([]*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunRecord
	for _, r := range s.data {
		if r.ProfileName == profileName {
			cp := *r
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// GetAll retrieves every stored run, ordered by (profile_name, strategy_kind).
func (s *SimulationRunStore) GetAll(_ context.Context) ([]*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RunRecord, 0, len(s.data))
	for _, r := range s.data {
		cp := *r
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ProfileName != result[j].ProfileName {
			return result[i].ProfileName < result[j].ProfileName
		}
		return result[i].StrategyKind < result[j].StrategyKind
	})

	return result, nil
}

var _ storage.SimulationRunStore = (*SimulationRunStore)(nil)
