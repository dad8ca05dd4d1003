package idhash

import (
	"testing"
	"time"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

func TestComputeRunID_Deterministic(t *testing.T) {
	first := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)

	a := ComputeRunID("profile-a", domain.StrategySmart, "series-1", first, last, "digest")
	b := ComputeRunID("profile-a", domain.StrategySmart, "series-1", first, last, "digest")

	if a != b {
		t.Errorf("identical inputs produced different IDs: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("ID length = %d, want 64 hex chars", len(a))
	}
}

func TestComputeRunID_SensitiveToEachComponent(t *testing.T) {
	first := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	base := ComputeRunID("p", domain.StrategyRebalance, "s", first, last, "d")

	variants := []string{
		ComputeRunID("p2", domain.StrategyRebalance, "s", first, last, "d"),
		ComputeRunID("p", domain.StrategySmart, "s", first, last, "d"),
		ComputeRunID("p", domain.StrategyRebalance, "s2", first, last, "d"),
		ComputeRunID("p", domain.StrategyRebalance, "s", first.AddDate(0, 1, 0), last, "d"),
		ComputeRunID("p", domain.StrategyRebalance, "s", first, last.AddDate(0, 1, 0), "d"),
		ComputeRunID("p", domain.StrategyRebalance, "s", first, last, "d2"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d did not change the ID", i)
		}
	}
}

func TestComputeConfigDigest_SensitiveToConfig(t *testing.T) {
	cfg := &domain.AssetConfig{
		InitialCapital:        10000,
		TargetWeightBase:      40,
		TargetWeightLeveraged: 40,
	}
	base := ComputeConfigDigest(cfg)

	changed := *cfg
	changed.Contribution = 500
	if ComputeConfigDigest(&changed) == base {
		t.Error("contribution change did not change the digest")
	}

	changed = *cfg
	changed.Leverage.Enabled = true
	if ComputeConfigDigest(&changed) == base {
		t.Error("leverage change did not change the digest")
	}
}

func TestComputeConfigDigest_DefaultsResolved(t *testing.T) {
	// Explicitly setting a pledge ratio to its default must not change the
	// digest: defaults are resolved before hashing.
	ratio := domain.DefaultPledgeRatioBase
	implicit := &domain.AssetConfig{InitialCapital: 1000}
	explicit := &domain.AssetConfig{InitialCapital: 1000}
	explicit.Leverage.PledgeRatioBase = &ratio

	if ComputeConfigDigest(implicit) != ComputeConfigDigest(explicit) {
		t.Error("resolved defaults should hash identically")
	}
}
