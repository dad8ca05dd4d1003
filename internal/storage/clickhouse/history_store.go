package clickhouse

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
)

// PortfolioHistoryStore implements storage.PortfolioHistoryStore using
// ClickHouse.
type PortfolioHistoryStore struct {
	conn *Conn
}

// NewPortfolioHistoryStore creates a new PortfolioHistoryStore.
func NewPortfolioHistoryStore(conn *Conn) *PortfolioHistoryStore {
	return &PortfolioHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PortfolioHistoryStore = (*PortfolioHistoryStore)(nil)

// InsertBulk stores a run's full history. Fails the entire batch if the run
// already has rows.
func (s *PortfolioHistoryStore) InsertBulk(ctx context.Context, runID string, history []domain.PortfolioState) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(history) == 0 {
		return nil
	}

	exists, err := s.exists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO portfolio_history (
			run_id, month_index, month,
			base_shares, leveraged_shares, cash,
			debt, accrued_interest, equity, ltv_pct, beta,
			last_action, events
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, st := range history {
		lastAction := ""
		if st.Memory != nil {
			lastAction = st.Memory.LastAction
		}
		err = batch.Append(
			runID, uint32(i), st.Month,
			st.BaseShares, st.LeveragedShares, st.Cash,
			st.Debt, st.AccruedInterest, st.Equity, st.LTVPct, st.Beta,
			lastAction, encodeEvents(st.Events),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves a run's history ordered by month index ASC.
func (s *PortfolioHistoryStore) GetByRunID(ctx context.Context, runID string) ([]domain.PortfolioState, error) {
	query := `
		SELECT month, base_shares, leveraged_shares, cash,
		       debt, accrued_interest, equity, ltv_pct, beta,
		       last_action, events
		FROM portfolio_history
		WHERE run_id = ?
		ORDER BY month_index ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query portfolio history: %w", err)
	}
	defer rows.Close()

	var result []domain.PortfolioState
	for rows.Next() {
		var st domain.PortfolioState
		var month time.Time
		var lastAction string
		var events []string
		err := rows.Scan(
			&month, &st.BaseShares, &st.LeveragedShares, &st.Cash,
			&st.Debt, &st.AccruedInterest, &st.Equity, &st.LTVPct, &st.Beta,
			&lastAction, &events,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		st.Month = domain.MonthKey(month)
		if lastAction != "" {
			st.Memory = &domain.SmartMemory{LastAction: lastAction}
		}
		st.Events = decodeEvents(events)
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}

	return result, nil
}

// exists checks whether any history rows are stored for a run.
func (s *PortfolioHistoryStore) exists(ctx context.Context, runID string) (bool, error) {
	query := `SELECT count() FROM portfolio_history WHERE run_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Events are packed into Array(String) as "TYPE|amount|description".
// Descriptions may contain the separator; only the first two fields split.
func encodeEvents(events []domain.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = fmt.Sprintf("%s|%s|%s",
			string(e.Type),
			strconv.FormatFloat(e.Amount, 'g', -1, 64),
			e.Description,
		)
	}
	return out
}

func decodeEvents(encoded []string) []domain.Event {
	if len(encoded) == 0 {
		return nil
	}
	out := make([]domain.Event, 0, len(encoded))
	for _, s := range encoded {
		parts := strings.SplitN(s, "|", 3)
		if len(parts) != 3 {
			continue
		}
		amount, _ := strconv.ParseFloat(parts[1], 64)
		out = append(out, domain.Event{
			Type:        domain.EventType(parts[0]),
			Amount:      amount,
			Description: parts[2],
		})
	}
	return out
}
