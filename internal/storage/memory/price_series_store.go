// Package memory provides in-memory store implementations, used by tests and
// by the CLI when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
)

// PriceSeriesStore is an in-memory implementation of storage.PriceSeriesStore.
type PriceSeriesStore struct {
	mu   sync.RWMutex
	data map[string]map[time.Time]domain.PriceRow // series_id -> month -> row
}

// NewPriceSeriesStore creates a new in-memory price series store.
func NewPriceSeriesStore() *PriceSeriesStore {
	return &PriceSeriesStore{
		data: make(map[string]map[time.Time]domain.PriceRow),
	}
}

// InsertBulk adds multiple rows atomically. Fails the entire batch on a
// duplicate (series_id, month).
func (s *PriceSeriesStore) InsertBulk(_ context.Context, rows []*domain.PriceRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		seriesID string
		month    time.Time
	}
	batchKeys := make(map[key]struct{}, len(rows))

	// First pass: validate and check duplicates (existing + intra-batch).
	for _, r := range rows {
		if r == nil || r.SeriesID == "" || r.Month.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{r.SeriesID, domain.MonthKey(r.Month)}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		if months, ok := s.data[r.SeriesID]; ok {
			if _, exists := months[k.month]; exists {
				return storage.ErrDuplicateKey
			}
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all.
	for _, r := range rows {
		cp := *r
		cp.Month = domain.MonthKey(r.Month)
		if s.data[cp.SeriesID] == nil {
			s.data[cp.SeriesID] = make(map[time.Time]domain.PriceRow)
		}
		s.data[cp.SeriesID][cp.Month] = cp
	}

	return nil
}

// GetBySeriesID retrieves all rows of a series, ordered by month ASC.
func (s *PriceSeriesStore) GetBySeriesID(_ context.Context, seriesID string) ([]domain.PriceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	months, ok := s.data[seriesID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	result := make([]domain.PriceRow, 0, len(months))
	for _, row := range months {
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Month.Before(result[j].Month)
	})

	return result, nil
}

// ListSeriesIDs returns the distinct series identifiers, sorted.
func (s *PriceSeriesStore) ListSeriesIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids, nil
}

var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)
