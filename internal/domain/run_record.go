package domain

import "time"

// RunRecord is the persisted summary of a simulation run: everything in
// SimulationResult except the month-by-month history, which is stored
// separately as time series.
type RunRecord struct {
	RunID       string
	ProfileName string
	SeriesID    string

	StrategyKind    StrategyKind
	StrategyName    string
	Color           string
	LeverageEnabled bool

	Months         int
	Bankrupt       bool
	BankruptcyDate *time.Time

	Metrics SummaryMetrics

	CreatedAt time.Time
}

// NewRunRecord flattens a simulation result for persistence.
func NewRunRecord(r *SimulationResult, createdAt time.Time) *RunRecord {
	return &RunRecord{
		RunID:           r.RunID,
		ProfileName:     r.ProfileName,
		SeriesID:        r.SeriesID,
		StrategyKind:    r.StrategyKind,
		StrategyName:    r.StrategyName,
		Color:           r.Color,
		LeverageEnabled: r.LeverageEnabled,
		Months:          len(r.History),
		Bankrupt:        r.Bankrupt,
		BankruptcyDate:  r.BankruptcyDate,
		Metrics:         r.Metrics,
		CreatedAt:       createdAt,
	}
}
