// Package simulation contains the monthly state-transition loop: banking,
// strategy execution, leverage and margin accounting, and bankruptcy
// detection. A run is a deterministic fold over the price series; the engine
// performs no I/O and keeps no state between runs.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/finmath"
	"github.com/yutaofr/clec-strategy-backtest/internal/idhash"
	"github.com/yutaofr/clec-strategy-backtest/internal/metrics"
	"github.com/yutaofr/clec-strategy-backtest/internal/strategy"
)

// Input validation errors, surfaced before any simulation work begins.
var (
	ErrEmptySeries      = errors.New("price series is empty")
	ErrNonMonthlySeries = errors.New("price series must be strictly increasing with monthly spacing")
)

const (
	// tradeEpsilon is the share-count change below which a diff is treated
	// as numeric noise rather than a trade.
	tradeEpsilon = 1e-9

	// depositEpsilon is the implied cash inflow below which no deposit
	// event is recorded.
	depositEpsilon = 1e-6

	// ltvInfinity is the LTV sentinel when debt exists against zero
	// collateral.
	ltvInfinity = 1e9
)

// Options carries the run labels that do not affect the simulated numbers.
type Options struct {
	ProfileName string
	Color       string
}

// Run executes one simulation: it folds the strategy over the price series
// month by month and scores the resulting history. The input series must be
// chronologically ordered with monthly spacing; the output history holds
// exactly one snapshot per input row, even after bankruptcy.
//
// The context is only inspected on entry. A run has no suspension points;
// callers wanting cancellation should check between whole runs.
func Run(ctx context.Context, series []domain.PriceRow, kind domain.StrategyKind, cfg *domain.AssetConfig, opts Options) (*domain.SimulationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateSeries(series); err != nil {
		return nil, err
	}

	strat := strategy.FromKind(kind)
	lev := cfg.Leverage.Resolve()

	result := &domain.SimulationResult{
		RunID: idhash.ComputeRunID(
			opts.ProfileName, strat.Kind(), series[0].SeriesID,
			series[0].Month, series[len(series)-1].Month,
			idhash.ComputeConfigDigest(cfg),
		),
		ProfileName:     opts.ProfileName,
		SeriesID:        series[0].SeriesID,
		StrategyKind:    strat.Kind(),
		StrategyName:    strat.Name(),
		Color:           opts.Color,
		LeverageEnabled: lev.Enabled,
		History:         make([]domain.PortfolioState, 0, len(series)),
	}

	var working domain.PortfolioState

	for i, row := range series {
		if result.Bankrupt {
			result.History = append(result.History, bankruptPlaceholder(row.Month))
			continue
		}

		working.Month = row.Month
		working.Events = nil

		// Banking: cash yield and debt service. Month 0 has no elapsed time.
		if i > 0 {
			accrueInterest(&working, cfg, lev)
		}

		// Strategy step, with trade/deposit detection by diffing.
		prevBase := working.BaseShares
		prevLeveraged := working.LeveragedShares
		prevTotal := working.TotalAssets(row)

		working = strat.Apply(working, row, cfg, i)

		recordTrades(&working, row, prevBase, prevLeveraged)
		recordDeposit(&working, row, prevTotal, i)

		// Leverage accounting: withdrawal into debt, LTV, liquidation.
		if lev.Enabled {
			applyLeverage(&working, row, lev, i, result)
		} else {
			working.LTVPct = 0
		}

		if !result.Bankrupt {
			recomputeEquity(&working, row)
		}

		result.History = append(result.History, working.Clone())
	}

	result.Metrics = metrics.Summarize(result.History, cfg, result.Bankrupt)
	return result, nil
}

// validateSeries checks the caller's obligations: non-empty, strictly
// increasing, monthly spaced.
func validateSeries(series []domain.PriceRow) error {
	if len(series) == 0 {
		return ErrEmptySeries
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Month.Equal(series[i-1].Month.AddDate(0, 1, 0)) {
			return fmt.Errorf("%w: row %d (%s) does not follow row %d (%s)",
				ErrNonMonthlySeries, i, series[i].Month.Format("2006-01"), i-1, series[i-1].Month.Format("2006-01"))
		}
	}
	return nil
}

// bankruptPlaceholder is the zeroed snapshot appended for every month after
// liquidation. Bankruptcy is terminal; there is no recovery.
func bankruptPlaceholder(month time.Time) domain.PortfolioState {
	return domain.PortfolioState{
		Month: month,
		Events: []domain.Event{{
			Type:        domain.EventAlert,
			Description: "account liquidated; no position remains",
		}},
	}
}

// accrueInterest grows cash by the monthly yield and services margin debt
// according to the configured interest mode.
func accrueInterest(s *domain.PortfolioState, cfg *domain.AssetConfig, lev domain.ResolvedLeverageConfig) {
	if cfg.AnnualCashYield != 0 && s.Cash > 0 {
		income := s.Cash * finmath.MonthlyRate(cfg.AnnualCashYield)
		s.Cash += income
		s.Events = append(s.Events, domain.Event{
			Type:        domain.EventInterestIncome,
			Description: "cash yield",
			Amount:      income,
		})
	}

	if !lev.Enabled || s.Debt <= 0 {
		return
	}

	interestDue := s.Debt * finmath.MonthlyRate(lev.AnnualLoanRate)
	if interestDue <= 0 {
		return
	}

	switch lev.InterestMode {
	case domain.InterestModeMaturity:
		s.AccruedInterest += interestDue
		s.Events = append(s.Events, domain.Event{
			Type:        domain.EventInterestExpense,
			Description: fmt.Sprintf("interest %.2f accrued until maturity", interestDue),
			Amount:      0,
		})

	case domain.InterestModeCapitalized:
		s.Debt += interestDue
		s.Events = append(s.Events, domain.Event{
			Type:        domain.EventDebtIncrease,
			Description: fmt.Sprintf("interest %.2f capitalized into principal", interestDue),
			Amount:      interestDue,
		})

	default: // MONTHLY: pay from cash first, capitalize any shortfall.
		paid := interestDue
		if paid > s.Cash {
			paid = s.Cash
		}
		s.Cash -= paid
		s.Events = append(s.Events, domain.Event{
			Type:        domain.EventInterestExpense,
			Description: "interest paid from cash",
			Amount:      -paid,
		})
		if shortfall := interestDue - paid; shortfall > 0 {
			s.Debt += shortfall
			s.Events = append(s.Events, domain.Event{
				Type:        domain.EventDebtIncrease,
				Description: fmt.Sprintf("interest shortfall %.2f capitalized", shortfall),
				Amount:      shortfall,
			})
		}
	}
}

// recordTrades emits one trade event per asset whose share count moved more
// than the epsilon during the strategy step.
func recordTrades(s *domain.PortfolioState, row domain.PriceRow, prevBase, prevLeveraged float64) {
	if d := s.BaseShares - prevBase; math.Abs(d) > tradeEpsilon {
		s.Events = append(s.Events, domain.Event{
			Type:        domain.EventTrade,
			Description: fmt.Sprintf("%s %.4f base shares", tradeVerb(d), math.Abs(d)),
			Amount:      -d * row.BasePrice,
		})
	}
	if d := s.LeveragedShares - prevLeveraged; math.Abs(d) > tradeEpsilon {
		s.Events = append(s.Events, domain.Event{
			Type:        domain.EventTrade,
			Description: fmt.Sprintf("%s %.4f leveraged shares", tradeVerb(d), math.Abs(d)),
			Amount:      -d * row.LeveragedPrice,
		})
	}
}

func tradeVerb(sharesDelta float64) string {
	if sharesDelta >= 0 {
		return "bought"
	}
	return "sold"
}

// recordDeposit emits a deposit event when the strategy step implied an
// external cash inflow (total value grew with prices held constant).
func recordDeposit(s *domain.PortfolioState, row domain.PriceRow, prevTotal float64, monthIndex int) {
	inflow := s.TotalAssets(row) - prevTotal
	if inflow <= depositEpsilon {
		return
	}
	desc := "periodic contribution"
	if monthIndex == 0 {
		desc = "initial capital"
	}
	s.Events = append(s.Events, domain.Event{
		Type:        domain.EventDeposit,
		Description: desc,
		Amount:      inflow,
	})
}

// applyLeverage executes the withdrawal schedule, recomputes LTV and checks
// the liquidation threshold. A breach is fatal for the remainder of the run:
// equity is zeroed and no deleveraging is attempted.
func applyLeverage(s *domain.PortfolioState, row domain.PriceRow, lev domain.ResolvedLeverageConfig, monthIndex int, result *domain.SimulationResult) {
	baseValue := s.BaseValue(row)
	leveragedValue := s.LeveragedValue(row)
	totalAssets := baseValue + leveragedValue + s.Cash
	collateral := baseValue*lev.PledgeRatioBase +
		leveragedValue*lev.PledgeRatioLeveraged +
		s.Cash*lev.PledgeRatioCash

	// Withdrawal at the initial month and every January thereafter. The
	// amount increases debt; the money leaves the account, cash is untouched.
	if monthIndex == 0 || row.Month.Month() == time.January {
		if amount := withdrawalAmount(lev, totalAssets, monthIndex); amount > 0 {
			s.Debt += amount
			s.Events = append(s.Events,
				domain.Event{
					Type:        domain.EventWithdrawal,
					Description: "margin withdrawal",
					Amount:      -amount,
				},
				domain.Event{
					Type:        domain.EventDebtIncrease,
					Description: fmt.Sprintf("loan drawn %.2f", amount),
					Amount:      amount,
				},
			)
		}
	}

	denominator := collateral
	if lev.Basis == domain.LTVBasisTotalAssets {
		denominator = totalAssets
	}
	s.LTVPct = computeLTV(s.Debt, s.AccruedInterest, denominator)

	if s.LTVPct > lev.MaxLTVPct {
		result.Bankrupt = true
		date := row.Month
		result.BankruptcyDate = &date
		s.Equity = 0
		s.Beta = 0
		s.Events = append(s.Events, domain.Event{
			Type:        domain.EventAlert,
			Description: fmt.Sprintf("LTV %.1f%% breached maximum %.1f%%: account liquidated", s.LTVPct, lev.MaxLTVPct),
		})
	}
}

// withdrawalAmount sizes the yearly draw: a percentage of total assets, or a
// fixed nominal amount inflated over completed years.
func withdrawalAmount(lev domain.ResolvedLeverageConfig, totalAssets float64, monthIndex int) float64 {
	switch lev.WithdrawalMode {
	case domain.WithdrawalModeFixed:
		yearsElapsed := monthIndex / 12
		return lev.WithdrawalAmount * math.Pow(1+lev.AnnualInflation, float64(yearsElapsed))
	default:
		return totalAssets * lev.WithdrawalPct / 100
	}
}

// computeLTV returns the loan-to-value percentage. With zero denominator the
// ratio is the infinity sentinel whenever any debt exists, else zero.
func computeLTV(debt, accruedInterest, denominator float64) float64 {
	owed := debt + accruedInterest
	if denominator <= 0 {
		if owed > 0 {
			return ltvInfinity
		}
		return 0
	}
	return owed / denominator * 100
}

// recomputeEquity refreshes net equity and the exposure beta after the
// month's accounting. Beta counts base exposure 1x, leveraged 2x, cash 0x,
// relative to net equity; it is clamped to 0 only when equity is exactly 0.
func recomputeEquity(s *domain.PortfolioState, row domain.PriceRow) {
	equity := s.TotalAssets(row) - s.Debt - s.AccruedInterest
	if equity < 0 {
		equity = 0
	}
	s.Equity = equity

	if equity == 0 {
		s.Beta = 0
		return
	}
	s.Beta = (s.BaseValue(row) + s.LeveragedValue(row)*2) / equity
}
