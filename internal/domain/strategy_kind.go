package domain

// StrategyKind is the closed enumeration of contribution/rebalancing
// strategies the engine supports.
type StrategyKind string

// Strategy kind constants.
const (
	// StrategyNoRebalance buys and holds, adding periodic contributions.
	StrategyNoRebalance StrategyKind = "NO_REBALANCE"

	// StrategyRebalance adds yearly rebalancing to target weights on top of
	// the contribution schedule.
	StrategyRebalance StrategyKind = "REBALANCE"

	// StrategySmart harvests gains / buys dips once per year using
	// per-strategy memory.
	StrategySmart StrategyKind = "SMART"
)

// ParseStrategyKind maps a string to a StrategyKind.
// Unknown values default to NO_REBALANCE.
func ParseStrategyKind(s string) StrategyKind {
	switch StrategyKind(s) {
	case StrategyRebalance:
		return StrategyRebalance
	case StrategySmart:
		return StrategySmart
	default:
		return StrategyNoRebalance
	}
}
