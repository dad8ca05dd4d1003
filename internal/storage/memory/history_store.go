package memory

import (
	"context"
	"sync"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
)

// PortfolioHistoryStore is an in-memory implementation of
// storage.PortfolioHistoryStore.
type PortfolioHistoryStore struct {
	mu   sync.RWMutex
	data map[string][]domain.PortfolioState // keyed by run_id, ordered by month index
}

// NewPortfolioHistoryStore creates a new in-memory history store.
func NewPortfolioHistoryStore() *PortfolioHistoryStore {
	return &PortfolioHistoryStore{
		data: make(map[string][]domain.PortfolioState),
	}
}

// InsertBulk stores a run's full history. Returns ErrDuplicateKey if the run
// already has a history.
func (s *PortfolioHistoryStore) InsertBulk(_ context.Context, runID string, history []domain.PortfolioState) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(history) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := make([]domain.PortfolioState, len(history))
	for i := range history {
		cp[i] = history[i].Clone()
	}
	s.data[runID] = cp

	return nil
}

// GetByRunID retrieves a run's history ordered by month index ASC.
func (s *PortfolioHistoryStore) GetByRunID(_ context.Context, runID string) ([]domain.PortfolioState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := make([]domain.PortfolioState, len(history))
	for i := range history {
		cp[i] = history[i].Clone()
	}
	return cp, nil
}

var _ storage.PortfolioHistoryStore = (*PortfolioHistoryStore)(nil)
