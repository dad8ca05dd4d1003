package domain

import "time"

// SummaryMetrics is the performance and risk summary of a completed run.
// Percentages are 0-100 scaled; ratios are unitless.
type SummaryMetrics struct {
	FinalEquity     float64
	RealFinalEquity float64 // inflation-adjusted
	CAGRPct         float64
	MaxDrawdownPct  float64
	SharpeRatio     float64
	IRRPct          float64
	WorstYearPct    float64 // worst single calendar-year return
	MaxRecoveryMo   int     // longest drawdown recovery, months
	CalmarRatio     float64
	UlcerIndex      float64
	InflationRate   float64 // annual rate the real value was computed with
}

// SimulationResult is the complete output record of one simulation run.
// History holds exactly one state per input price row.
type SimulationResult struct {
	RunID       string
	ProfileName string
	SeriesID    string

	StrategyKind    StrategyKind
	StrategyName    string
	Color           string // display color for external charting
	LeverageEnabled bool

	History []PortfolioState

	Bankrupt       bool
	BankruptcyDate *time.Time // nil if solvent throughout

	Metrics SummaryMetrics
}

// FinalState returns the last history entry, or nil for an empty history.
func (r *SimulationResult) FinalState() *PortfolioState {
	if len(r.History) == 0 {
		return nil
	}
	return &r.History[len(r.History)-1]
}
