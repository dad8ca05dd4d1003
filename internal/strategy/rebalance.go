package strategy

import (
	"time"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

// Rebalance runs the buy-and-hold contribution schedule and additionally
// resets the allocation to the target weights every January (except the very
// first simulated month).
type Rebalance struct {
	base *NoRebalance
}

// NewRebalance creates the yearly-rebalancing strategy.
func NewRebalance() *Rebalance {
	return &Rebalance{base: NewNoRebalance()}
}

// Kind returns the canonical strategy kind.
func (s *Rebalance) Kind() domain.StrategyKind {
	return domain.StrategyRebalance
}

// Name returns a human-readable strategy name.
func (s *Rebalance) Name() string {
	return "Yearly Rebalance"
}

// Apply handles the contribution inflow first, then redistributes the
// post-contribution total value across target weights exactly.
func (s *Rebalance) Apply(state domain.PortfolioState, row domain.PriceRow, cfg *domain.AssetConfig, monthIndex int) domain.PortfolioState {
	state = s.base.Apply(state, row, cfg, monthIndex)

	if monthIndex == 0 || row.Month.Month() != time.January {
		return state
	}

	total := state.TotalAssets(row)
	state.BaseShares = sharesFor(total*cfg.TargetWeightBase/100, row.BasePrice)
	state.LeveragedShares = sharesFor(total*cfg.TargetWeightLeveraged/100, row.LeveragedPrice)
	state.Cash = total * cfg.TargetWeightCash() / 100

	return state
}

var _ Strategy = (*Rebalance)(nil)
