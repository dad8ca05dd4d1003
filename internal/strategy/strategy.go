// Package strategy implements the contribution/rebalancing strategies the
// simulation loop drives. Strategies are pure: they derive a new monthly
// state from the previous one and touch no shared mutable state outside the
// returned snapshot and its private memory.
package strategy

import (
	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

// Strategy maps the previous monthly state and the current price row to a
// new monthly state, deciding trades and contributions.
type Strategy interface {
	// Apply produces the state after this month's contribution/trade
	// decisions. The caller passes an independent copy; Apply may mutate
	// and return it.
	Apply(prev domain.PortfolioState, row domain.PriceRow, cfg *domain.AssetConfig, monthIndex int) domain.PortfolioState

	// Kind returns the canonical strategy kind.
	Kind() domain.StrategyKind

	// Name returns a human-readable strategy name.
	Name() string
}

// sharesFor converts a cash amount to a share count at the given price.
// Returns 0 for non-positive prices.
func sharesFor(amount, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return amount / price
}
