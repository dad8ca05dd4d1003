// Package metrics turns a completed simulation history into the final
// performance and risk summary. It is a pure post-loop pass over the ledger;
// all numeric work lives in finmath.
package metrics

import (
	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/finmath"
)

// Forced value for CAGR, IRR and Calmar on bankrupt runs: total capital loss.
const bankruptReturnPct = -100

// Summarize computes the metrics bundle for a completed history.
// The history must hold one state per simulated month, in order.
func Summarize(history []domain.PortfolioState, cfg *domain.AssetConfig, bankrupt bool) domain.SummaryMetrics {
	if len(history) == 0 {
		return domain.SummaryMetrics{InflationRate: cfg.Leverage.AnnualInflation}
	}

	years := float64(len(history)) / 12
	final := history[len(history)-1].Equity

	values := make([]float64, len(history))
	points := make([]finmath.ValuePoint, len(history))
	for i, s := range history {
		values[i] = s.Equity
		points[i] = finmath.ValuePoint{Month: s.Month, Value: s.Equity}
	}

	inflation := cfg.Leverage.AnnualInflation

	m := domain.SummaryMetrics{
		FinalEquity:     final,
		RealFinalEquity: finmath.RealValue(final, inflation, years),
		CAGRPct:         finmath.CAGR(cfg.InitialCapital, final, years),
		MaxDrawdownPct:  finmath.MaxDrawdown(values),
		SharpeRatio:     finmath.SharpeRatio(values, cfg.AnnualCashYield),
		IRRPct:          finmath.IRR(cashFlowSchedule(history, cfg, final)) * 100,
		WorstYearPct:    finmath.WorstYearReturn(points),
		MaxRecoveryMo:   finmath.MaxRecoveryMonths(values),
		UlcerIndex:      finmath.UlcerIndex(values),
		InflationRate:   inflation,
	}
	m.CalmarRatio = finmath.CalmarRatio(m.IRRPct, m.MaxDrawdownPct)

	if bankrupt {
		m.CAGRPct = bankruptReturnPct
		m.IRRPct = bankruptReturnPct
		m.CalmarRatio = bankruptReturnPct
	}

	return m
}

// cashFlowSchedule builds the dated flows the IRR is solved against:
// the initial capital out at month 0, each periodic contribution out at its
// scheduled month, and the final equity back at the end of the run.
func cashFlowSchedule(history []domain.PortfolioState, cfg *domain.AssetConfig, finalValue float64) []finmath.CashFlow {
	flows := make([]finmath.CashFlow, 0, len(history)+2)
	flows = append(flows, finmath.CashFlow{Month: 0, Amount: -cfg.InitialCapital})

	for i := 1; i < len(history); i++ {
		if cfg.IsContributionMonth(history[i].Month, i) && cfg.Contribution != 0 {
			flows = append(flows, finmath.CashFlow{Month: i, Amount: -cfg.Contribution})
		}
	}

	flows = append(flows, finmath.CashFlow{Month: len(history), Amount: finalValue})
	return flows
}
