package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Profiles: %d | Runs: %d\n\n", r.ProfileCount, r.RunCount))

	// Run comparison
	sb.WriteString("## Run Comparison\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Profile | Strategy | Series | Lev | Months | FinalEquity | RealEquity | CAGR% | IRR% | MaxDD% | Sharpe | Calmar | Ulcer | WorstYr% | RecoveryMo |\n")
		sb.WriteString("|---------|----------|--------|-----|--------|-------------|------------|-------|------|--------|--------|--------|-------|----------|------------|\n")
		for _, row := range r.Runs {
			lev := "no"
			if row.LeverageEnabled {
				lev = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %d |\n",
				row.ProfileName, row.StrategyKind, row.SeriesID, lev, row.Months,
				row.FinalEquity, row.RealFinalEquity, row.CAGRPct, row.IRRPct,
				row.MaxDrawdownPct, row.SharpeRatio, row.CalmarRatio, row.UlcerIndex,
				row.WorstYearPct, row.MaxRecoveryMo))
		}
	} else {
		sb.WriteString("No runs stored.\n")
	}
	sb.WriteString("\n")

	// Bankruptcies
	sb.WriteString("## Forced Liquidations\n\n")
	if len(r.Bankruptcies) > 0 {
		sb.WriteString("| Profile | Strategy | Date |\n")
		sb.WriteString("|---------|----------|------|\n")
		for _, b := range r.Bankruptcies {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
				b.ProfileName, b.StrategyKind, b.Date.Format("2006-01")))
		}
	} else {
		sb.WriteString("None.\n")
	}
	sb.WriteString("\n")

	// Highlights
	sb.WriteString("## Highlights\n\n")
	if len(r.Highlights) > 0 {
		sb.WriteString("| Metric | Profile | Strategy | Value |\n")
		sb.WriteString("|--------|---------|----------|-------|\n")
		for _, h := range r.Highlights {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f |\n",
				h.Metric, h.ProfileName, h.Strategy, h.Value))
		}
	} else {
		sb.WriteString("No solvent runs to highlight.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
