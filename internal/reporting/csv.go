package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders run comparison rows as a CSV string.
func RenderCSV(rows []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("profile_name,strategy_kind,series_id,leverage_enabled,months,bankrupt,")
	sb.WriteString("final_equity,real_final_equity,cagr_pct,irr_pct,")
	sb.WriteString("max_drawdown_pct,sharpe_ratio,calmar_ratio,ulcer_index,worst_year_pct,max_recovery_mo\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%t,%d,%t,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d\n",
			r.ProfileName,
			r.StrategyKind,
			r.SeriesID,
			r.LeverageEnabled,
			r.Months,
			r.Bankrupt,
			r.FinalEquity,
			r.RealFinalEquity,
			r.CAGRPct,
			r.IRRPct,
			r.MaxDrawdownPct,
			r.SharpeRatio,
			r.CalmarRatio,
			r.UlcerIndex,
			r.WorstYearPct,
			r.MaxRecoveryMo,
		))
	}

	return sb.String()
}
