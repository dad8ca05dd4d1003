// Package verification checks that stored simulation runs are reproducible.
// It re-executes a run from its price series and profile configuration and
// compares the recomputed ledger and summary against what storage holds.
package verification

import (
	"context"
	"math"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons. Recomputation on
// the same inputs is bit-identical; the tolerance only absorbs storage
// round-trips.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and recomputed values.
type FieldDivergence struct {
	MonthIndex int         // -1 for summary-level fields
	Field      string      // field name
	Expected   interface{} // stored value
	Actual     interface{} // recomputed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID       string            // verified run ID
	Match       bool              // true if all fields match
	Divergences []FieldDivergence // list of divergent fields
	Months      int               // ledger rows compared
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int                  // total runs verified
	MatchedRuns   int                  // runs that matched exactly
	DivergentRuns int                  // runs with divergences
	Results       []VerificationResult // individual results
}

// Verifier re-executes stored runs and compares the results.
type Verifier interface {
	// VerifyRun verifies a single run by ID. It loads the stored summary and
	// ledger, re-runs the simulation with the same profile, and compares.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifyAll verifies every stored run.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareSummaries compares a stored run summary against a recomputed result.
func CompareSummaries(stored *domain.RunRecord, recomputed *domain.SimulationResult) []FieldDivergence {
	var divergences []FieldDivergence

	diverge := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{
			MonthIndex: -1,
			Field:      field,
			Expected:   expected,
			Actual:     actual,
		})
	}

	if stored.RunID != recomputed.RunID {
		diverge("RunID", stored.RunID, recomputed.RunID)
	}
	if stored.StrategyKind != recomputed.StrategyKind {
		diverge("StrategyKind", stored.StrategyKind, recomputed.StrategyKind)
	}
	if stored.Months != len(recomputed.History) {
		diverge("Months", stored.Months, len(recomputed.History))
	}
	if stored.Bankrupt != recomputed.Bankrupt {
		diverge("Bankrupt", stored.Bankrupt, recomputed.Bankrupt)
	}

	floatFields := []struct {
		name             string
		stored, computed float64
	}{
		{"FinalEquity", stored.Metrics.FinalEquity, recomputed.Metrics.FinalEquity},
		{"RealFinalEquity", stored.Metrics.RealFinalEquity, recomputed.Metrics.RealFinalEquity},
		{"CAGRPct", stored.Metrics.CAGRPct, recomputed.Metrics.CAGRPct},
		{"IRRPct", stored.Metrics.IRRPct, recomputed.Metrics.IRRPct},
		{"MaxDrawdownPct", stored.Metrics.MaxDrawdownPct, recomputed.Metrics.MaxDrawdownPct},
		{"SharpeRatio", stored.Metrics.SharpeRatio, recomputed.Metrics.SharpeRatio},
		{"CalmarRatio", stored.Metrics.CalmarRatio, recomputed.Metrics.CalmarRatio},
		{"UlcerIndex", stored.Metrics.UlcerIndex, recomputed.Metrics.UlcerIndex},
		{"WorstYearPct", stored.Metrics.WorstYearPct, recomputed.Metrics.WorstYearPct},
	}
	for _, f := range floatFields {
		if !floatEquals(f.stored, f.computed) {
			diverge(f.name, f.stored, f.computed)
		}
	}

	return divergences
}

// CompareLedgers compares a stored monthly ledger against a recomputed one,
// row by row. Strategy memory is excluded; storage only keeps its last-action
// label.
func CompareLedgers(stored, recomputed []domain.PortfolioState) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored) != len(recomputed) {
		return []FieldDivergence{{
			MonthIndex: -1,
			Field:      "LedgerLength",
			Expected:   len(stored),
			Actual:     len(recomputed),
		}}
	}

	for i := range stored {
		s, r := &stored[i], &recomputed[i]

		if !s.Month.Equal(r.Month) {
			divergences = append(divergences, FieldDivergence{
				MonthIndex: i, Field: "Month", Expected: s.Month, Actual: r.Month,
			})
		}

		floatFields := []struct {
			name             string
			stored, computed float64
		}{
			{"BaseShares", s.BaseShares, r.BaseShares},
			{"LeveragedShares", s.LeveragedShares, r.LeveragedShares},
			{"Cash", s.Cash, r.Cash},
			{"Debt", s.Debt, r.Debt},
			{"AccruedInterest", s.AccruedInterest, r.AccruedInterest},
			{"Equity", s.Equity, r.Equity},
			{"LTVPct", s.LTVPct, r.LTVPct},
			{"Beta", s.Beta, r.Beta},
		}
		for _, f := range floatFields {
			if !floatEquals(f.stored, f.computed) {
				divergences = append(divergences, FieldDivergence{
					MonthIndex: i, Field: f.name, Expected: f.stored, Actual: f.computed,
				})
			}
		}

		if len(s.Events) != len(r.Events) {
			divergences = append(divergences, FieldDivergence{
				MonthIndex: i, Field: "EventCount", Expected: len(s.Events), Actual: len(r.Events),
			})
		}
	}

	return divergences
}

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
