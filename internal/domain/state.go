package domain

import "time"

// SmartMemory is the per-strategy memory carried by the smart-adjust strategy.
// It remembers where the leveraged position stood at the start of the calendar
// year, how much flowed into it during the year, and the last action taken.
// Other strategies carry no memory (nil).
type SmartMemory struct {
	TrackedYear    int
	YearStartValue float64 // leveraged position value at year start
	YearInflow     float64 // cumulative leveraged contributions this year
	LastAction     string  // human-readable description of the last December action
}

// Clone returns an independent copy of the memory.
func (m *SmartMemory) Clone() *SmartMemory {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}

// PortfolioState is one month's snapshot of the simulated account.
// The simulation loop threads a single working state through the run;
// every entry appended to history is an independent copy and is never
// mutated afterwards.
type PortfolioState struct {
	Month time.Time

	BaseShares      float64
	LeveragedShares float64
	Cash            float64

	Debt            float64 // outstanding loan principal
	AccruedInterest float64 // unpaid simple interest (MATURITY mode only)

	Equity float64 // assets - debt - accrued interest, floored at 0
	LTVPct float64
	Beta   float64 // weighted exposure multiple relative to equity

	Memory *SmartMemory
	Events []Event
}

// BaseValue returns the market value of the base position at the row's price.
func (s *PortfolioState) BaseValue(row PriceRow) float64 {
	return s.BaseShares * row.BasePrice
}

// LeveragedValue returns the market value of the leveraged position at the
// row's price.
func (s *PortfolioState) LeveragedValue(row PriceRow) float64 {
	return s.LeveragedShares * row.LeveragedPrice
}

// TotalAssets returns positions plus cash at the row's prices. Debt is not
// subtracted.
func (s *PortfolioState) TotalAssets(row PriceRow) float64 {
	return s.BaseValue(row) + s.LeveragedValue(row) + s.Cash
}

// Clone returns a deep copy of the state: the event list and strategy memory
// are copied, never aliased.
func (s *PortfolioState) Clone() PortfolioState {
	cp := *s
	cp.Memory = s.Memory.Clone()
	if s.Events != nil {
		cp.Events = make([]Event, len(s.Events))
		copy(cp.Events, s.Events)
	}
	return cp
}
