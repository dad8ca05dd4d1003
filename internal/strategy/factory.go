package strategy

import (
	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

// FromKind maps a strategy kind to its implementation.
// Unknown kinds fall back to buy-and-hold.
func FromKind(kind domain.StrategyKind) Strategy {
	switch kind {
	case domain.StrategyRebalance:
		return NewRebalance()
	case domain.StrategySmart:
		return NewSmart()
	default:
		return NewNoRebalance()
	}
}
