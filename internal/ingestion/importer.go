// Package ingestion loads monthly price series into storage from CSV files.
package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
)

// ErrEmptyFile is returned when a CSV contains no data rows.
var ErrEmptyFile = errors.New("ingestion: no data rows in file")

// Importer parses monthly price CSVs and writes them into a price series store.
//
// Expected format, one row per month in ascending order:
//
//	date,base_price,leveraged_price
//	2010-01,100.0,100.0
//	2010-02,101.5,103.1
//
// The header row is optional. Dates accept 2006-01 and 2006-01-02 layouts;
// day-of-month is discarded.
type Importer struct {
	store  storage.PriceSeriesStore
	logger zerolog.Logger
}

// ImporterOptions contains configuration for creating an Importer.
type ImporterOptions struct {
	Store  storage.PriceSeriesStore
	Logger zerolog.Logger
}

// NewImporter creates a CSV price importer.
func NewImporter(opts ImporterOptions) *Importer {
	return &Importer{
		store:  opts.Store,
		logger: opts.Logger,
	}
}

// ImportCSV reads a price CSV and bulk-inserts it under the given series ID.
// Rows must form one strictly consecutive monthly sequence. Returns the number
// of rows stored.
func (im *Importer) ImportCSV(ctx context.Context, seriesID string, r io.Reader) (int, error) {
	if seriesID == "" {
		return 0, fmt.Errorf("%w: empty series ID", storage.ErrInvalidInput)
	}

	rows, err := ParseCSV(seriesID, r)
	if err != nil {
		return 0, err
	}

	if err := im.store.InsertBulk(ctx, rows); err != nil {
		return 0, fmt.Errorf("store series %s: %w", seriesID, err)
	}

	im.logger.Info().
		Str("series_id", seriesID).
		Int("rows", len(rows)).
		Time("first_month", rows[0].Month).
		Time("last_month", rows[len(rows)-1].Month).
		Msg("price series imported")

	return len(rows), nil
}

// ParseCSV parses price rows without storing them.
func ParseCSV(seriesID string, r io.Reader) ([]*domain.PriceRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var rows []*domain.PriceRow
	line := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++

		// Skip a header row, if present.
		if line == 1 {
			if _, err := parseMonth(record[0]); err != nil {
				continue
			}
		}

		row, err := parseRow(seriesID, record)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	if err := validateCadence(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseRow(seriesID string, record []string) (*domain.PriceRow, error) {
	month, err := parseMonth(record[0])
	if err != nil {
		return nil, err
	}
	base, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return nil, fmt.Errorf("parse base price %q: %w", record[1], err)
	}
	lev, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return nil, fmt.Errorf("parse leveraged price %q: %w", record[2], err)
	}
	if base <= 0 || lev <= 0 {
		return nil, fmt.Errorf("%w: prices must be positive", storage.ErrInvalidInput)
	}

	return &domain.PriceRow{
		SeriesID:       seriesID,
		Month:          month,
		BasePrice:      base,
		LeveragedPrice: lev,
	}, nil
}

func parseMonth(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.MonthKey(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse month %q", s)
}

func validateCadence(rows []*domain.PriceRow) error {
	for i := 1; i < len(rows); i++ {
		want := rows[i-1].Month.AddDate(0, 1, 0)
		if !rows[i].Month.Equal(want) {
			return fmt.Errorf("%w: row %d is %s, want %s (series must be consecutive months)",
				storage.ErrInvalidInput, i+1,
				rows[i].Month.Format("2006-01"), want.Format("2006-01"))
		}
	}
	return nil
}
