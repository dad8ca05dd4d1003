package domain

import "time"

// InterestMode selects how monthly loan interest is settled.
type InterestMode string

// Interest mode constants.
const (
	// InterestModeMonthly pays interest from cash each month; any shortfall
	// is capitalized into debt. Cash never goes negative.
	InterestModeMonthly InterestMode = "MONTHLY"

	// InterestModeMaturity accrues simple interest in a separate accumulator,
	// assumed due at a future settlement. Principal and cash are untouched.
	InterestModeMaturity InterestMode = "MATURITY"

	// InterestModeCapitalized adds interest to principal every month,
	// compounding future interest.
	InterestModeCapitalized InterestMode = "CAPITALIZED"
)

// WithdrawalMode selects how the yearly margin withdrawal is sized.
type WithdrawalMode string

// Withdrawal mode constants.
const (
	// WithdrawalModePercent withdraws a percentage of total asset value.
	WithdrawalModePercent WithdrawalMode = "PERCENT"

	// WithdrawalModeFixed withdraws a fixed nominal amount, inflated by the
	// configured annual inflation rate over elapsed years.
	WithdrawalModeFixed WithdrawalMode = "FIXED"
)

// LTVBasis selects the denominator of the loan-to-value ratio.
type LTVBasis string

// LTV basis constants.
const (
	LTVBasisTotalAssets       LTVBasis = "TOTAL_ASSETS"
	LTVBasisPledgedCollateral LTVBasis = "PLEDGED_COLLATERAL"
)

// Default values applied by LeverageConfig.Resolve for unset optional fields.
const (
	DefaultPledgeRatioBase      = 0.7
	DefaultPledgeRatioLeveraged = 0.6
	DefaultPledgeRatioCash      = 1.0
	DefaultMaxLTVPct            = 60.0
)

// DefaultLTVBasis is used when no basis is configured.
const DefaultLTVBasis = LTVBasisPledgedCollateral

// LeverageConfig describes margin borrowing against pledged collateral.
// Optional fields are pointers; Resolve fills defaults once per run.
// Rates (loan, inflation) are fractions (0.03 = 3%/yr); percentage fields
// (max LTV, withdrawal percent) are 0-100.
type LeverageConfig struct {
	Enabled        bool
	AnnualLoanRate float64

	// Pledge ratios (0.0-1.0) express how much of each asset class counts
	// as loan collateral. Nil means "use default".
	PledgeRatioBase      *float64
	PledgeRatioLeveraged *float64
	PledgeRatioCash      *float64

	// MaxLTVPct is the liquidation threshold. Nil means "use default".
	MaxLTVPct *float64

	WithdrawalMode   WithdrawalMode
	WithdrawalPct    float64 // percent of total assets, PERCENT mode
	WithdrawalAmount float64 // nominal amount, FIXED mode
	AnnualInflation  float64 // fraction, applied to FIXED withdrawals

	InterestMode InterestMode
	Basis        LTVBasis
}

// ResolvedLeverageConfig is a LeverageConfig with every optional field filled.
// It is built once at the start of a simulation and never mutated afterwards.
type ResolvedLeverageConfig struct {
	Enabled              bool
	AnnualLoanRate       float64
	PledgeRatioBase      float64
	PledgeRatioLeveraged float64
	PledgeRatioCash      float64
	MaxLTVPct            float64
	WithdrawalMode       WithdrawalMode
	WithdrawalPct        float64
	WithdrawalAmount     float64
	AnnualInflation      float64
	InterestMode         InterestMode
	Basis                LTVBasis
}

// Resolve fills unset optional fields with package defaults and returns an
// immutable, fully-specified configuration.
func (c LeverageConfig) Resolve() ResolvedLeverageConfig {
	r := ResolvedLeverageConfig{
		Enabled:              c.Enabled,
		AnnualLoanRate:       c.AnnualLoanRate,
		PledgeRatioBase:      DefaultPledgeRatioBase,
		PledgeRatioLeveraged: DefaultPledgeRatioLeveraged,
		PledgeRatioCash:      DefaultPledgeRatioCash,
		MaxLTVPct:            DefaultMaxLTVPct,
		WithdrawalMode:       c.WithdrawalMode,
		WithdrawalPct:        c.WithdrawalPct,
		WithdrawalAmount:     c.WithdrawalAmount,
		AnnualInflation:      c.AnnualInflation,
		InterestMode:         c.InterestMode,
		Basis:                c.Basis,
	}

	if c.PledgeRatioBase != nil {
		r.PledgeRatioBase = *c.PledgeRatioBase
	}
	if c.PledgeRatioLeveraged != nil {
		r.PledgeRatioLeveraged = *c.PledgeRatioLeveraged
	}
	if c.PledgeRatioCash != nil {
		r.PledgeRatioCash = *c.PledgeRatioCash
	}
	if c.MaxLTVPct != nil {
		r.MaxLTVPct = *c.MaxLTVPct
	}
	if r.WithdrawalMode == "" {
		r.WithdrawalMode = WithdrawalModePercent
	}
	if r.InterestMode == "" {
		r.InterestMode = InterestModeMonthly
	}
	if r.Basis == "" {
		r.Basis = DefaultLTVBasis
	}

	return r
}

// AssetConfig is the full configuration of one simulated profile.
// Weights are percentages in [0,100]; the cash weight is always the
// non-negative remainder.
type AssetConfig struct {
	InitialCapital float64

	// Recurring contribution. Interval is in months: 1, 3 or 12.
	// For yearly contributions, ContributionMonth picks the calendar month.
	Contribution         float64
	ContributionInterval int
	ContributionMonth    time.Month

	// Target allocation at simulation start and at rebalancing.
	TargetWeightBase      float64
	TargetWeightLeveraged float64

	// Allocation applied to periodic contributions. May differ from targets.
	ContribWeightBase      float64
	ContribWeightLeveraged float64

	AnnualCashYield float64 // fraction, e.g. 0.015

	Leverage LeverageConfig
}

// TargetWeightCash returns the cash remainder of the target allocation,
// floored at zero.
func (c *AssetConfig) TargetWeightCash() float64 {
	w := 100 - c.TargetWeightBase - c.TargetWeightLeveraged
	if w < 0 {
		return 0
	}
	return w
}

// ContribWeightCash returns the cash remainder of the contribution allocation,
// floored at zero.
func (c *AssetConfig) ContribWeightCash() float64 {
	w := 100 - c.ContribWeightBase - c.ContribWeightLeveraged
	if w < 0 {
		return 0
	}
	return w
}

// IsContributionMonth reports whether the periodic contribution lands on the
// given row. Yearly contributions match the configured calendar month;
// shorter intervals fire every N months. Month 0 never contributes (the
// initial allocation covers it).
func (c *AssetConfig) IsContributionMonth(month time.Time, monthIndex int) bool {
	if monthIndex == 0 || c.ContributionInterval <= 0 {
		return false
	}
	if c.ContributionInterval == 12 {
		return month.Month() == c.ContributionMonth
	}
	return monthIndex%c.ContributionInterval == 0
}
