// Package idhash derives deterministic identifiers for simulation runs.
// Identical inputs always hash to the same run ID, which keeps stored runs
// append-only and makes reruns detectable as duplicates.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(profile|strategy|series|first_month|last_month|config_digest)
// Returns a hex-encoded hash (64 characters).
func ComputeRunID(profileName string, kind domain.StrategyKind, seriesID string, firstMonth, lastMonth time.Time, configDigest string) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		profileName,
		string(kind),
		seriesID,
		firstMonth.UTC().Format("2006-01"),
		lastMonth.UTC().Format("2006-01"),
		configDigest,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeConfigDigest hashes the fields of a profile configuration that
// affect simulation output. Two profiles with the same digest produce the
// same ledger on the same series.
func ComputeConfigDigest(cfg *domain.AssetConfig) string {
	lev := cfg.Leverage.Resolve()
	data := fmt.Sprintf("%.6f|%.6f|%d|%d|%.4f|%.4f|%.4f|%.4f|%.6f|%t|%.6f|%.4f|%.4f|%.4f|%.4f|%s|%.4f|%.4f|%.6f|%s|%s",
		cfg.InitialCapital,
		cfg.Contribution,
		cfg.ContributionInterval,
		int(cfg.ContributionMonth),
		cfg.TargetWeightBase,
		cfg.TargetWeightLeveraged,
		cfg.ContribWeightBase,
		cfg.ContribWeightLeveraged,
		cfg.AnnualCashYield,
		lev.Enabled,
		lev.AnnualLoanRate,
		lev.PledgeRatioBase,
		lev.PledgeRatioLeveraged,
		lev.PledgeRatioCash,
		lev.MaxLTVPct,
		string(lev.WithdrawalMode),
		lev.WithdrawalPct,
		lev.WithdrawalAmount,
		lev.AnnualInflation,
		string(lev.InterestMode),
		string(lev.Basis),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
