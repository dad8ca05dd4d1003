package postgres

import (
	"context"
	"fmt"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
)

// PriceSeriesStore implements storage.PriceSeriesStore using PostgreSQL.
type PriceSeriesStore struct {
	pool *Pool
}

// NewPriceSeriesStore creates a new PriceSeriesStore.
func NewPriceSeriesStore(pool *Pool) *PriceSeriesStore {
	return &PriceSeriesStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// InsertBulk adds multiple rows atomically. Fails the entire batch on a
// duplicate (series_id, month).
func (s *PriceSeriesStore) InsertBulk(ctx context.Context, rows []*domain.PriceRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_series (
			series_id, month, base_price, leveraged_price
		) VALUES ($1, $2, $3, $4)
	`

	for _, r := range rows {
		if r == nil || r.SeriesID == "" || r.Month.IsZero() {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			r.SeriesID, domain.MonthKey(r.Month), r.BasePrice, r.LeveragedPrice,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert price row in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetBySeriesID retrieves all rows of a series, ordered by month ASC.
func (s *PriceSeriesStore) GetBySeriesID(ctx context.Context, seriesID string) ([]domain.PriceRow, error) {
	query := `
		SELECT series_id, month, base_price, leveraged_price
		FROM price_series
		WHERE series_id = $1
		ORDER BY month ASC
	`

	rows, err := s.pool.Query(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("query price series: %w", err)
	}
	defer rows.Close()

	var result []domain.PriceRow
	for rows.Next() {
		var r domain.PriceRow
		if err := rows.Scan(&r.SeriesID, &r.Month, &r.BasePrice, &r.LeveragedPrice); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		r.Month = domain.MonthKey(r.Month)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}

	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}

	return result, nil
}

// ListSeriesIDs returns the distinct series identifiers, sorted.
func (s *PriceSeriesStore) ListSeriesIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT series_id FROM price_series ORDER BY series_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query series ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan series id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series ids: %w", err)
	}

	return ids, nil
}
