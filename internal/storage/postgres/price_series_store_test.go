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

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestPriceSeriesStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewPriceSeriesStore(pool)

	rows := []*domain.PriceRow{
		{SeriesID: "sp500", Month: month(2020, time.February), BasePrice: 101.5, LeveragedPrice: 103.1},
		{SeriesID: "sp500", Month: month(2020, time.January), BasePrice: 100.0, LeveragedPrice: 100.0},
	}

	err := store.InsertBulk(ctx, rows)
	require.NoError(t, err)

	got, err := store.GetBySeriesID(ctx, "sp500")
	require.NoError(t, err)

	require.Len(t, got, 2)
	// Ordered by month ASC regardless of insert order.
	assert.Equal(t, month(2020, time.January), got[0].Month)
	assert.Equal(t, month(2020, time.February), got[1].Month)
	assert.InDelta(t, 100.0, got[0].BasePrice, 0.0001)
	assert.InDelta(t, 103.1, got[1].LeveragedPrice, 0.0001)
	assert.Equal(t, "sp500", got[0].SeriesID)
}

func TestPriceSeriesStore_DuplicateRollsBackBatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewPriceSeriesStore(pool)

	err := store.InsertBulk(ctx, []*domain.PriceRow{
		{SeriesID: "s1", Month: month(2020, time.January), BasePrice: 100, LeveragedPrice: 100},
	})
	require.NoError(t, err)

	// A batch with one duplicate month must fail atomically.
	err = store.InsertBulk(ctx, []*domain.PriceRow{
		{SeriesID: "s1", Month: month(2020, time.February), BasePrice: 101, LeveragedPrice: 102},
		{SeriesID: "s1", Month: month(2020, time.January), BasePrice: 100, LeveragedPrice: 100},
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetBySeriesID(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 1, "failed batch must not be partially applied")
}

func TestPriceSeriesStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewPriceSeriesStore(pool)

	err := store.InsertBulk(ctx, []*domain.PriceRow{nil})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.InsertBulk(ctx, []*domain.PriceRow{
		{SeriesID: "", Month: month(2020, time.January), BasePrice: 100, LeveragedPrice: 100},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestPriceSeriesStore_GetUnknownSeries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := postgres.NewPriceSeriesStore(pool).GetBySeriesID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPriceSeriesStore_ListSeriesIDs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewPriceSeriesStore(pool)

	err := store.InsertBulk(ctx, []*domain.PriceRow{
		{SeriesID: "zeta", Month: month(2020, time.January), BasePrice: 1, LeveragedPrice: 1},
		{SeriesID: "alpha", Month: month(2020, time.January), BasePrice: 1, LeveragedPrice: 1},
		{SeriesID: "alpha", Month: month(2020, time.February), BasePrice: 1, LeveragedPrice: 1},
	})
	require.NoError(t, err)

	ids, err := store.ListSeriesIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids)
}
