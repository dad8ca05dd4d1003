package strategy

import (
	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

// NoRebalance buys and holds: the initial capital is allocated across
// base/leveraged/cash by target weights at month 0, and periodic
// contributions are invested using the contribution weights (which may
// differ from the targets). Positions are never rebalanced.
type NoRebalance struct{}

// NewNoRebalance creates the buy-and-hold strategy.
func NewNoRebalance() *NoRebalance {
	return &NoRebalance{}
}

// Kind returns the canonical strategy kind.
func (s *NoRebalance) Kind() domain.StrategyKind {
	return domain.StrategyNoRebalance
}

// Name returns a human-readable strategy name.
func (s *NoRebalance) Name() string {
	return "Buy & Hold"
}

// Apply allocates initial capital at month 0 and invests contributions on
// contribution months.
func (s *NoRebalance) Apply(state domain.PortfolioState, row domain.PriceRow, cfg *domain.AssetConfig, monthIndex int) domain.PortfolioState {
	if monthIndex == 0 {
		state.BaseShares = sharesFor(cfg.InitialCapital*cfg.TargetWeightBase/100, row.BasePrice)
		state.LeveragedShares = sharesFor(cfg.InitialCapital*cfg.TargetWeightLeveraged/100, row.LeveragedPrice)
		state.Cash = cfg.InitialCapital * cfg.TargetWeightCash() / 100
		return state
	}

	if cfg.IsContributionMonth(row.Month, monthIndex) && cfg.Contribution != 0 {
		state.BaseShares += sharesFor(cfg.Contribution*cfg.ContribWeightBase/100, row.BasePrice)
		state.LeveragedShares += sharesFor(cfg.Contribution*cfg.ContribWeightLeveraged/100, row.LeveragedPrice)
		state.Cash += cfg.Contribution * cfg.ContribWeightCash() / 100
	}

	return state
}

var _ Strategy = (*NoRebalance)(nil)
