// Package storage defines the persistence contracts of the backtest lab and
// their shared error values. Stores are append-only: a rerun with identical
// inputs hashes to the same run_id and surfaces as a duplicate instead of an
// update.
package storage

import (
	"context"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

// PriceSeriesStore provides access to monthly price series storage.
type PriceSeriesStore interface {
	// InsertBulk adds multiple rows atomically. Fails the entire batch on a
	// duplicate (series_id, month).
	InsertBulk(ctx context.Context, rows []*domain.PriceRow) error

	// GetBySeriesID retrieves all rows of a series, ordered by month ASC.
	// Returns ErrNotFound for an unknown series.
	GetBySeriesID(ctx context.Context, seriesID string) ([]domain.PriceRow, error)

	// ListSeriesIDs returns the distinct series identifiers, sorted.
	ListSeriesIDs(ctx context.Context) ([]string, error)
}

// SimulationRunStore provides access to simulation run summaries.
type SimulationRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetByProfile retrieves all runs of a profile, ordered by created_at ASC.
	GetByProfile(ctx context.Context, profileName string) ([]*domain.RunRecord, error)

	// GetAll retrieves every stored run, ordered by (profile_name, strategy_kind).
	GetAll(ctx context.Context) ([]*domain.RunRecord, error)
}

// PortfolioHistoryStore provides access to the month-by-month ledger of a run.
type PortfolioHistoryStore interface {
	// InsertBulk stores a run's full history. Fails the entire batch on a
	// duplicate (run_id, month_index).
	InsertBulk(ctx context.Context, runID string, history []domain.PortfolioState) error

	// GetByRunID retrieves a run's history ordered by month index ASC.
	// Strategy memory is not persisted beyond its last-action label.
	GetByRunID(ctx context.Context, runID string) ([]domain.PortfolioState, error)
}
