package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
)

// SimulationRunStore implements storage.SimulationRunStore using PostgreSQL.
type SimulationRunStore struct {
	pool *Pool
}

// NewSimulationRunStore creates a new SimulationRunStore.
func NewSimulationRunStore(pool *Pool) *SimulationRunStore {
	return &SimulationRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SimulationRunStore = (*SimulationRunStore)(nil)

const runColumns = `
	run_id, profile_name, series_id, strategy_kind, strategy_name, color,
	leverage_enabled, months, bankrupt, bankruptcy_date,
	final_equity, real_final_equity, cagr_pct, max_drawdown_pct, sharpe_ratio,
	irr_pct, worst_year_pct, max_recovery_months, calmar_ratio, ulcer_index,
	inflation_rate, created_at
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationRunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO simulation_runs (` + runColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.ProfileName, r.SeriesID, string(r.StrategyKind), r.StrategyName, r.Color,
		r.LeverageEnabled, r.Months, r.Bankrupt, r.BankruptcyDate,
		r.Metrics.FinalEquity, r.Metrics.RealFinalEquity, r.Metrics.CAGRPct,
		r.Metrics.MaxDrawdownPct, r.Metrics.SharpeRatio,
		r.Metrics.IRRPct, r.Metrics.WorstYearPct, r.Metrics.MaxRecoveryMo,
		r.Metrics.CalmarRatio, r.Metrics.UlcerIndex,
		r.Metrics.InflationRate, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert simulation run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM simulation_runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get simulation run: %w", err)
	}
	return r, nil
}

// GetByProfile retrieves all runs of a profile, ordered by created_at ASC.
func (s *SimulationRunStore) GetByProfile(ctx context.Context, profileName string) ([]*domain.RunRecord, error) {
	query := `
		SELECT ` + runColumns + `
		FROM simulation_runs
		WHERE profile_name = $1
		ORDER BY created_at ASC
	`
	return s.queryRuns(ctx, query, profileName)
}

// GetAll retrieves every stored run, ordered by (profile_name, strategy_kind).
func (s *SimulationRunStore) GetAll(ctx context.Context) ([]*domain.RunRecord, error) {
	query := `
		SELECT ` + runColumns + `
		FROM simulation_runs
		ORDER BY profile_name ASC, strategy_kind ASC
	`
	return s.queryRuns(ctx, query)
}

func (s *SimulationRunStore) queryRuns(ctx context.Context, query string, args ...any) ([]*domain.RunRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query simulation runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulation run: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation runs: %w", err)
	}

	return result, nil
}

// scanRun reads one run row from either a pgx.Row or pgx.Rows.
func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord
	var kind string
	err := row.Scan(
		&r.RunID, &r.ProfileName, &r.SeriesID, &kind, &r.StrategyName, &r.Color,
		&r.LeverageEnabled, &r.Months, &r.Bankrupt, &r.BankruptcyDate,
		&r.Metrics.FinalEquity, &r.Metrics.RealFinalEquity, &r.Metrics.CAGRPct,
		&r.Metrics.MaxDrawdownPct, &r.Metrics.SharpeRatio,
		&r.Metrics.IRRPct, &r.Metrics.WorstYearPct, &r.Metrics.MaxRecoveryMo,
		&r.Metrics.CalmarRatio, &r.Metrics.UlcerIndex,
		&r.Metrics.InflationRate, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.StrategyKind = domain.StrategyKind(kind)
	return &r, nil
}
