package strategy

import (
	"fmt"
	"time"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

// Fraction of the yearly profit sold back to cash, and the share of total
// portfolio value spent buying the dip in a losing year.
const (
	profitSellFraction = 1.0 / 3
	dipBuyFraction     = 0.02
)

// Smart runs the buy-and-hold contribution schedule and once per year, in
// December, either harvests a third of the leveraged position's yearly profit
// into cash or, in a losing year, buys leveraged shares with 2% of the total
// portfolio value (capped by available cash). Year-over-year context lives in
// the state's SmartMemory.
type Smart struct {
	base *NoRebalance
}

// NewSmart creates the adaptive harvest/dip-buy strategy.
func NewSmart() *Smart {
	return &Smart{base: NewNoRebalance()}
}

// Kind returns the canonical strategy kind.
func (s *Smart) Kind() domain.StrategyKind {
	return domain.StrategySmart
}

// Name returns a human-readable strategy name.
func (s *Smart) Name() string {
	return "Smart Adjust"
}

// Apply invests the regular contribution, maintains the year trackers and
// performs the December profit sale or dip purchase.
func (s *Smart) Apply(state domain.PortfolioState, row domain.PriceRow, cfg *domain.AssetConfig, monthIndex int) domain.PortfolioState {
	contributed := cfg.IsContributionMonth(row.Month, monthIndex) && cfg.Contribution != 0

	state = s.base.Apply(state, row, cfg, monthIndex)

	year := row.Month.Year()
	mem := state.Memory
	if mem == nil || monthIndex == 0 || mem.TrackedYear != year {
		// Year rollover: re-anchor on the post-contribution leveraged value
		// so a January inflow is not counted twice.
		last := ""
		if mem != nil {
			last = mem.LastAction
		}
		mem = &domain.SmartMemory{
			TrackedYear:    year,
			YearStartValue: state.LeveragedValue(row),
			LastAction:     last,
		}
	} else if contributed {
		mem.YearInflow += cfg.Contribution * cfg.ContribWeightLeveraged / 100
	}

	if row.Month.Month() == time.December {
		state, mem = s.decemberAdjust(state, row, mem)
	}

	state.Memory = mem
	return state
}

// decemberAdjust performs the once-per-year swap between the leveraged
// position and cash.
func (s *Smart) decemberAdjust(state domain.PortfolioState, row domain.PriceRow, mem *domain.SmartMemory) (domain.PortfolioState, *domain.SmartMemory) {
	profit := state.LeveragedValue(row) - (mem.YearStartValue + mem.YearInflow)

	if profit > 0 {
		sell := profit * profitSellFraction
		state.LeveragedShares -= sharesFor(sell, row.LeveragedPrice)
		state.Cash += sell
		mem.LastAction = fmt.Sprintf("Sold Profit %.2f in %d-12", sell, row.Month.Year())
		return state, mem
	}

	budget := state.TotalAssets(row) * dipBuyFraction
	if budget > state.Cash {
		budget = state.Cash
	}
	if budget > 0 {
		state.LeveragedShares += sharesFor(budget, row.LeveragedPrice)
		state.Cash -= budget
		mem.LastAction = fmt.Sprintf("Bought Dip %.2f in %d-12", budget, row.Month.Year())
	}
	return state, mem
}

var _ Strategy = (*Smart)(nil)
