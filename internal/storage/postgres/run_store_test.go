package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage/postgres"
)

func testRun(runID, profileName string, kind domain.StrategyKind, createdAt time.Time) *domain.RunRecord {
	return &domain.RunRecord{
		RunID:           runID,
		ProfileName:     profileName,
		SeriesID:        "sp500",
		StrategyKind:    kind,
		StrategyName:    "Test Strategy",
		Color:           "#112233",
		LeverageEnabled: true,
		Months:          120,
		Metrics: domain.SummaryMetrics{
			FinalEquity:     254321.55,
			RealFinalEquity: 201456.12,
			CAGRPct:         9.84,
			IRRPct:          8.12,
			MaxDrawdownPct:  33.2,
			SharpeRatio:     0.61,
			CalmarRatio:     0.30,
			UlcerIndex:      12.5,
			WorstYearPct:    -28.4,
			MaxRecoveryMo:   27,
			InflationRate:   0.02,
		},
		CreatedAt: createdAt,
	}
}

func TestSimulationRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSimulationRunStore(pool)

	rec := testRun("run-1", "aggressive", domain.StrategySmart, time.Now().UTC())
	rec.Bankrupt = true
	rec.BankruptcyDate = ptr(month(2021, time.June))

	err := store.Insert(ctx, rec)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, rec.RunID, got.RunID)
	assert.Equal(t, rec.ProfileName, got.ProfileName)
	assert.Equal(t, rec.SeriesID, got.SeriesID)
	assert.Equal(t, rec.StrategyKind, got.StrategyKind)
	assert.Equal(t, rec.StrategyName, got.StrategyName)
	assert.Equal(t, rec.Color, got.Color)
	assert.True(t, got.LeverageEnabled)
	assert.Equal(t, rec.Months, got.Months)
	assert.True(t, got.Bankrupt)
	require.NotNil(t, got.BankruptcyDate)
	assert.Equal(t, month(2021, time.June), got.BankruptcyDate.UTC())
	assert.InDelta(t, rec.Metrics.FinalEquity, got.Metrics.FinalEquity, 0.0001)
	assert.InDelta(t, rec.Metrics.RealFinalEquity, got.Metrics.RealFinalEquity, 0.0001)
	assert.InDelta(t, rec.Metrics.CAGRPct, got.Metrics.CAGRPct, 0.0001)
	assert.InDelta(t, rec.Metrics.IRRPct, got.Metrics.IRRPct, 0.0001)
	assert.InDelta(t, rec.Metrics.MaxDrawdownPct, got.Metrics.MaxDrawdownPct, 0.0001)
	assert.InDelta(t, rec.Metrics.SharpeRatio, got.Metrics.SharpeRatio, 0.0001)
	assert.InDelta(t, rec.Metrics.CalmarRatio, got.Metrics.CalmarRatio, 0.0001)
	assert.InDelta(t, rec.Metrics.UlcerIndex, got.Metrics.UlcerIndex, 0.0001)
	assert.InDelta(t, rec.Metrics.WorstYearPct, got.Metrics.WorstYearPct, 0.0001)
	assert.Equal(t, rec.Metrics.MaxRecoveryMo, got.Metrics.MaxRecoveryMo)
	assert.InDelta(t, rec.Metrics.InflationRate, got.Metrics.InflationRate, 0.0001)
}

func TestSimulationRunStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSimulationRunStore(pool)

	rec := testRun("run-dup", "a", domain.StrategySmart, time.Now().UTC())

	require.NoError(t, store.Insert(ctx, rec))
	assert.ErrorIs(t, store.Insert(ctx, rec), storage.ErrDuplicateKey)
}

func TestSimulationRunStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSimulationRunStore(pool)

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.RunRecord{}), storage.ErrInvalidInput)
}

func TestSimulationRunStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := postgres.NewSimulationRunStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSimulationRunStore_GetByProfileOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSimulationRunStore(pool)
	base := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, store.Insert(ctx, testRun("r1", "a", domain.StrategySmart, base.Add(time.Hour))))
	require.NoError(t, store.Insert(ctx, testRun("r2", "a", domain.StrategyNoRebalance, base)))
	require.NoError(t, store.Insert(ctx, testRun("r3", "b", domain.StrategyNoRebalance, base)))

	runs, err := store.GetByProfile(ctx, "a")
	require.NoError(t, err)

	require.Len(t, runs, 2)
	// Ordered by created_at ASC.
	assert.Equal(t, "r2", runs[0].RunID)
	assert.Equal(t, "r1", runs[1].RunID)
}

func TestSimulationRunStore_GetAllOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewSimulationRunStore(pool)
	now := time.Now().UTC()

	require.NoError(t, store.Insert(ctx, testRun("r1", "b", domain.StrategyNoRebalance, now)))
	require.NoError(t, store.Insert(ctx, testRun("r2", "a", domain.StrategySmart, now)))
	require.NoError(t, store.Insert(ctx, testRun("r3", "a", domain.StrategyNoRebalance, now)))

	runs, err := store.GetAll(ctx)
	require.NoError(t, err)

	require.Len(t, runs, 3)
	// Ordered by (profile_name, strategy_kind).
	assert.Equal(t, "r3", runs[0].RunID)
	assert.Equal(t, "r2", runs[1].RunID)
	assert.Equal(t, "r1", runs[2].RunID)
}
