// Package profile loads named backtest profiles from YAML files.
//
// A profile bundles a display name, a chart color, a strategy kind and a
// full asset configuration. One file holds a set of profiles so a single
// orchestrator run can compare several configurations side by side.
package profile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

// Profile is one named, ready-to-run backtest configuration.
type Profile struct {
	Name     string
	Color    string
	Strategy domain.StrategyKind
	Config   domain.AssetConfig
}

type fileDoc struct {
	Profiles []profileDoc `yaml:"profiles"`
}

type profileDoc struct {
	Name                 string      `yaml:"name"`
	Color                string      `yaml:"color"`
	Strategy             string      `yaml:"strategy"`
	InitialCapital       float64     `yaml:"initial_capital"`
	Contribution         float64     `yaml:"contribution"`
	ContributionInterval int         `yaml:"contribution_interval"`
	ContributionMonth    int         `yaml:"contribution_month"`
	TargetWeights        weightsDoc  `yaml:"target_weights"`
	ContributionWeights  weightsDoc  `yaml:"contribution_weights"`
	AnnualCashYield      float64     `yaml:"annual_cash_yield"`
	Leverage             leverageDoc `yaml:"leverage"`
}

type weightsDoc struct {
	Base      float64 `yaml:"base"`
	Leveraged float64 `yaml:"leveraged"`
}

type leverageDoc struct {
	Enabled         bool           `yaml:"enabled"`
	AnnualLoanRate  float64        `yaml:"annual_loan_rate"`
	PledgeRatios    *pledgeDoc     `yaml:"pledge_ratios"`
	MaxLTVPct       *float64       `yaml:"max_ltv_pct"`
	Withdrawal      *withdrawalDoc `yaml:"withdrawal"`
	AnnualInflation float64        `yaml:"annual_inflation"`
	InterestMode    string         `yaml:"interest_mode"`
	LTVBasis        string         `yaml:"ltv_basis"`
}

type pledgeDoc struct {
	Base      *float64 `yaml:"base"`
	Leveraged *float64 `yaml:"leveraged"`
	Cash      *float64 `yaml:"cash"`
}

type withdrawalDoc struct {
	Mode   string  `yaml:"mode"`
	Amount float64 `yaml:"amount"`
	Pct    float64 `yaml:"pct"`
}

// LoadFile reads a profile set from a YAML file on disk.
func LoadFile(path string) ([]Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a profile set from raw YAML.
func Parse(raw []byte) ([]Profile, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse profile yaml: %w", err)
	}
	if len(doc.Profiles) == 0 {
		return nil, fmt.Errorf("profile file defines no profiles")
	}

	seen := make(map[string]struct{}, len(doc.Profiles))
	profiles := make([]Profile, 0, len(doc.Profiles))
	for i, pd := range doc.Profiles {
		if pd.Name == "" {
			return nil, fmt.Errorf("profile %d: name is required", i)
		}
		if _, dup := seen[pd.Name]; dup {
			return nil, fmt.Errorf("profile %q: duplicate name", pd.Name)
		}
		seen[pd.Name] = struct{}{}

		p, err := pd.toProfile()
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", pd.Name, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (pd profileDoc) toProfile() (Profile, error) {
	if pd.InitialCapital < 0 {
		return Profile{}, fmt.Errorf("initial_capital must not be negative")
	}
	if pd.ContributionInterval < 0 {
		return Profile{}, fmt.Errorf("contribution_interval must not be negative")
	}
	if pd.ContributionMonth < 0 || pd.ContributionMonth > 12 {
		return Profile{}, fmt.Errorf("contribution_month must be 0..12")
	}

	cfg := domain.AssetConfig{
		InitialCapital:         pd.InitialCapital,
		Contribution:           pd.Contribution,
		ContributionInterval:   pd.ContributionInterval,
		ContributionMonth:      pd.contributionMonth(),
		TargetWeightBase:       pd.TargetWeights.Base,
		TargetWeightLeveraged:  pd.TargetWeights.Leveraged,
		ContribWeightBase:      pd.ContributionWeights.Base,
		ContribWeightLeveraged: pd.ContributionWeights.Leveraged,
		AnnualCashYield:        pd.AnnualCashYield,
		Leverage:               pd.Leverage.toDomain(),
	}
	if cfg.TargetWeightBase+cfg.TargetWeightLeveraged > 100 {
		return Profile{}, fmt.Errorf("target weights exceed 100%%")
	}
	if cfg.ContribWeightBase+cfg.ContribWeightLeveraged > 100 {
		return Profile{}, fmt.Errorf("contribution weights exceed 100%%")
	}
	if err := validateLeverage(cfg.Leverage); err != nil {
		return Profile{}, err
	}

	return Profile{
		Name:     pd.Name,
		Color:    pd.Color,
		Strategy: domain.ParseStrategyKind(pd.Strategy),
		Config:   cfg,
	}, nil
}

func (pd profileDoc) contributionMonth() time.Month {
	if pd.ContributionMonth == 0 {
		return time.January
	}
	return time.Month(pd.ContributionMonth)
}

func (ld leverageDoc) toDomain() domain.LeverageConfig {
	lc := domain.LeverageConfig{
		Enabled:         ld.Enabled,
		AnnualLoanRate:  ld.AnnualLoanRate,
		MaxLTVPct:       ld.MaxLTVPct,
		AnnualInflation: ld.AnnualInflation,
		InterestMode:    domain.InterestMode(ld.InterestMode),
		Basis:           domain.LTVBasis(ld.LTVBasis),
	}
	if ld.PledgeRatios != nil {
		lc.PledgeRatioBase = ld.PledgeRatios.Base
		lc.PledgeRatioLeveraged = ld.PledgeRatios.Leveraged
		lc.PledgeRatioCash = ld.PledgeRatios.Cash
	}
	if ld.Withdrawal != nil {
		lc.WithdrawalMode = domain.WithdrawalMode(ld.Withdrawal.Mode)
		lc.WithdrawalAmount = ld.Withdrawal.Amount
		lc.WithdrawalPct = ld.Withdrawal.Pct
	}
	return lc
}

func validateLeverage(lc domain.LeverageConfig) error {
	switch lc.InterestMode {
	case "", domain.InterestModeMonthly, domain.InterestModeMaturity, domain.InterestModeCapitalized:
	default:
		return fmt.Errorf("unknown interest_mode %q", lc.InterestMode)
	}
	switch lc.Basis {
	case "", domain.LTVBasisTotalAssets, domain.LTVBasisPledgedCollateral:
	default:
		return fmt.Errorf("unknown ltv_basis %q", lc.Basis)
	}
	switch lc.WithdrawalMode {
	case "", domain.WithdrawalModeFixed, domain.WithdrawalModePercent:
	default:
		return fmt.Errorf("unknown withdrawal mode %q", lc.WithdrawalMode)
	}
	if lc.AnnualLoanRate < 0 {
		return fmt.Errorf("annual_loan_rate must not be negative")
	}
	return nil
}
