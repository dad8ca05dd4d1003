package reporting

import "time"

// Report is the comparison report over all stored runs.
type Report struct {
	// Metadata
	GeneratedAt  time.Time
	ProfileCount int
	RunCount     int

	// Run rows (sorted by profile_name, strategy_kind)
	Runs []RunRow

	// Bankruptcies, if any (sorted by profile_name, strategy_kind)
	Bankruptcies []BankruptcyRow

	// Best run per metric
	Highlights []HighlightRow
}

// RunRow is one row in the run comparison table.
type RunRow struct {
	ProfileName     string
	StrategyKind    string
	SeriesID        string
	LeverageEnabled bool
	Months          int
	Bankrupt        bool

	FinalEquity     float64
	RealFinalEquity float64
	CAGRPct         float64
	IRRPct          float64
	MaxDrawdownPct  float64
	SharpeRatio     float64
	CalmarRatio     float64
	UlcerIndex      float64
	WorstYearPct    float64
	MaxRecoveryMo   int
}

// BankruptcyRow describes one run that ended in forced liquidation.
type BankruptcyRow struct {
	ProfileName  string
	StrategyKind string
	Date         time.Time
}

// HighlightRow names the best run for one metric.
type HighlightRow struct {
	Metric      string
	ProfileName string
	Strategy    string
	Value       float64
}
