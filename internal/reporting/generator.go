// Package reporting produces comparison reports from stored simulation runs.
package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	runStore storage.SimulationRunStore
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.SimulationRunStore) *Generator {
	return &Generator{
		runStore: runStore,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a comparison report over every stored run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	records, err := g.runStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	profileSet := make(map[string]struct{})
	rows := make([]RunRow, 0, len(records))
	var bankruptcies []BankruptcyRow

	for _, r := range records {
		profileSet[r.ProfileName] = struct{}{}
		rows = append(rows, runRow(r))

		if r.Bankrupt && r.BankruptcyDate != nil {
			bankruptcies = append(bankruptcies, BankruptcyRow{
				ProfileName:  r.ProfileName,
				StrategyKind: string(r.StrategyKind),
				Date:         *r.BankruptcyDate,
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProfileName != rows[j].ProfileName {
			return rows[i].ProfileName < rows[j].ProfileName
		}
		return rows[i].StrategyKind < rows[j].StrategyKind
	})
	sort.Slice(bankruptcies, func(i, j int) bool {
		if bankruptcies[i].ProfileName != bankruptcies[j].ProfileName {
			return bankruptcies[i].ProfileName < bankruptcies[j].ProfileName
		}
		return bankruptcies[i].StrategyKind < bankruptcies[j].StrategyKind
	})

	return &Report{
		GeneratedAt:  g.now(),
		ProfileCount: len(profileSet),
		RunCount:     len(rows),
		Runs:         rows,
		Bankruptcies: bankruptcies,
		Highlights:   highlights(rows),
	}, nil
}

func runRow(r *domain.RunRecord) RunRow {
	return RunRow{
		ProfileName:     r.ProfileName,
		StrategyKind:    string(r.StrategyKind),
		SeriesID:        r.SeriesID,
		LeverageEnabled: r.LeverageEnabled,
		Months:          r.Months,
		Bankrupt:        r.Bankrupt,
		FinalEquity:     r.Metrics.FinalEquity,
		RealFinalEquity: r.Metrics.RealFinalEquity,
		CAGRPct:         r.Metrics.CAGRPct,
		IRRPct:          r.Metrics.IRRPct,
		MaxDrawdownPct:  r.Metrics.MaxDrawdownPct,
		SharpeRatio:     r.Metrics.SharpeRatio,
		CalmarRatio:     r.Metrics.CalmarRatio,
		UlcerIndex:      r.Metrics.UlcerIndex,
		WorstYearPct:    r.Metrics.WorstYearPct,
		MaxRecoveryMo:   r.Metrics.MaxRecoveryMo,
	}
}

// highlights picks the best run for a few headline metrics. Bankrupt runs are
// excluded; their sentinel metrics would dominate the worst-case rows.
func highlights(rows []RunRow) []HighlightRow {
	solvent := make([]RunRow, 0, len(rows))
	for _, r := range rows {
		if !r.Bankrupt {
			solvent = append(solvent, r)
		}
	}
	if len(solvent) == 0 {
		return nil
	}

	best := func(metric string, value func(RunRow) float64, higher bool) HighlightRow {
		b := solvent[0]
		for _, r := range solvent[1:] {
			if higher == (value(r) > value(b)) && value(r) != value(b) {
				b = r
			}
		}
		return HighlightRow{Metric: metric, ProfileName: b.ProfileName, Strategy: b.StrategyKind, Value: value(b)}
	}

	return []HighlightRow{
		best("final_equity", func(r RunRow) float64 { return r.FinalEquity }, true),
		best("irr_pct", func(r RunRow) float64 { return r.IRRPct }, true),
		best("sharpe_ratio", func(r RunRow) float64 { return r.SharpeRatio }, true),
		best("max_drawdown_pct", func(r RunRow) float64 { return r.MaxDrawdownPct }, false),
	}
}
