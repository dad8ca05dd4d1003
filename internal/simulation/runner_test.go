package simulation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

// flatSeries builds n consecutive months of constant prices.
func flatSeries(startYear int, startMonth time.Month, n int, base, lev float64) []domain.PriceRow {
	series := make([]domain.PriceRow, n)
	m := time.Date(startYear, startMonth, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		series[i] = domain.PriceRow{
			SeriesID:       "test-series",
			Month:          m,
			BasePrice:      base,
			LeveragedPrice: lev,
		}
		m = m.AddDate(0, 1, 0)
	}
	return series
}

func baseConfig() *domain.AssetConfig {
	return &domain.AssetConfig{
		InitialCapital:         10000,
		TargetWeightBase:       40,
		TargetWeightLeveraged:  40,
		ContribWeightBase:      50,
		ContribWeightLeveraged: 50,
	}
}

func TestRun_EmptySeries(t *testing.T) {
	_, err := Run(context.Background(), nil, domain.StrategyNoRebalance, baseConfig(), Options{})
	if !errors.Is(err, ErrEmptySeries) {
		t.Errorf("expected ErrEmptySeries, got %v", err)
	}
}

func TestRun_NonMonthlySeries(t *testing.T) {
	series := flatSeries(2020, time.January, 3, 100, 50)
	series[2].Month = series[2].Month.AddDate(0, 1, 0) // gap

	_, err := Run(context.Background(), series, domain.StrategyNoRebalance, baseConfig(), Options{})
	if !errors.Is(err, ErrNonMonthlySeries) {
		t.Errorf("expected ErrNonMonthlySeries, got %v", err)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, flatSeries(2020, time.January, 2, 100, 50), domain.StrategyNoRebalance, baseConfig(), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_BuyAndHoldIdentity(t *testing.T) {
	// Flat prices, no contributions, no yield, no leverage: equity must hold
	// the initial capital exactly, every month.
	series := flatSeries(2020, time.March, 24, 100, 50)
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, baseConfig(), Options{ProfileName: "hold"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.History) != len(series) {
		t.Fatalf("history length = %d, want %d", len(res.History), len(series))
	}
	for i, s := range res.History {
		if !almostEqual(s.Equity, 10000) {
			t.Fatalf("month %d equity = %v, want 10000", i, s.Equity)
		}
	}
	if res.Bankrupt {
		t.Error("unleveraged flat run must not go bankrupt")
	}
	if !almostEqual(res.Metrics.FinalEquity, 10000) {
		t.Errorf("FinalEquity = %v, want 10000", res.Metrics.FinalEquity)
	}
	if !almostEqual(res.Metrics.CAGRPct, 0) {
		t.Errorf("CAGRPct = %v, want 0", res.Metrics.CAGRPct)
	}
}

func TestRun_LosingYearIRR(t *testing.T) {
	// Base price halves over one year with everything in the base asset and
	// no other flows. The IRR schedule is -10000 at month 0 and +5000 at
	// month 12, so the rate must land on -50%/yr, not blow up, and Calmar
	// must follow from it.
	series := flatSeries(2020, time.January, 12, 100, 50)
	for i := range series {
		series[i].BasePrice = 100 - 50*float64(i)/11
	}

	cfg := &domain.AssetConfig{
		InitialCapital:   10000,
		TargetWeightBase: 100,
	}
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, cfg, Options{ProfileName: "loser"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Bankrupt {
		t.Fatal("unleveraged losing run must not go bankrupt")
	}
	if !almostEqual(res.Metrics.FinalEquity, 5000) {
		t.Fatalf("FinalEquity = %v, want 5000", res.Metrics.FinalEquity)
	}
	// The root finder converges on the rate to 1e-7, so the percent form
	// carries a little more slack than the exact-arithmetic fields.
	if math.Abs(res.Metrics.IRRPct-(-50)) > 1e-4 {
		t.Errorf("IRRPct = %v, want -50", res.Metrics.IRRPct)
	}
	if !almostEqual(res.Metrics.MaxDrawdownPct, 50) {
		t.Errorf("MaxDrawdownPct = %v, want 50", res.Metrics.MaxDrawdownPct)
	}
	if math.Abs(res.Metrics.CalmarRatio-(-1)) > 1e-5 {
		t.Errorf("CalmarRatio = %v, want -1", res.Metrics.CalmarRatio)
	}
}

func TestRun_SingleMonthSeries(t *testing.T) {
	series := flatSeries(2020, time.July, 1, 100, 50)
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, baseConfig(), Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(res.History))
	}
	if !almostEqual(res.Metrics.FinalEquity, 10000) {
		t.Errorf("FinalEquity = %v, want 10000", res.Metrics.FinalEquity)
	}
}

func TestRun_MonthlyContributionsAccumulate(t *testing.T) {
	cfg := baseConfig()
	cfg.Contribution = 1000
	cfg.ContributionInterval = 1

	series := flatSeries(2020, time.March, 12, 100, 50)
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, cfg, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 11 contribution months (month 0 excluded) at flat prices.
	want := 10000.0 + 11*1000
	if !almostEqual(res.Metrics.FinalEquity, want) {
		t.Errorf("FinalEquity = %v, want %v", res.Metrics.FinalEquity, want)
	}
}

func TestRun_YearlyContributionTiming(t *testing.T) {
	cfg := baseConfig()
	cfg.Contribution = 5000
	cfg.ContributionInterval = 12
	cfg.ContributionMonth = time.June

	series := flatSeries(2020, time.January, 18, 100, 50)
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, cfg, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Only June 2020 and June 2021 receive the contribution.
	if !almostEqual(res.History[4].Equity, 10000) {
		t.Errorf("May 2020 equity = %v, want 10000", res.History[4].Equity)
	}
	if !almostEqual(res.History[5].Equity, 15000) {
		t.Errorf("June 2020 equity = %v, want 15000", res.History[5].Equity)
	}
	if !almostEqual(res.History[17].Equity, 20000) {
		t.Errorf("June 2021 equity = %v, want 20000", res.History[17].Equity)
	}
}

func TestRun_InitialDepositEvent(t *testing.T) {
	series := flatSeries(2020, time.January, 1, 100, 50)
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, baseConfig(), Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var deposit *domain.Event
	trades := 0
	for i, e := range res.History[0].Events {
		switch e.Type {
		case domain.EventDeposit:
			deposit = &res.History[0].Events[i]
		case domain.EventTrade:
			trades++
		}
	}
	if deposit == nil {
		t.Fatal("expected a deposit event at month 0")
	}
	if deposit.Description != "initial capital" {
		t.Errorf("deposit description = %q, want initial capital", deposit.Description)
	}
	if !almostEqual(deposit.Amount, 10000) {
		t.Errorf("deposit amount = %v, want 10000", deposit.Amount)
	}
	if trades != 2 {
		t.Errorf("trade events = %d, want 2 (base and leveraged buys)", trades)
	}
}

func TestRun_CashYieldCompounds(t *testing.T) {
	cfg := baseConfig()
	cfg.TargetWeightBase = 0
	cfg.TargetWeightLeveraged = 0 // all cash
	cfg.AnnualCashYield = 0.12

	series := flatSeries(2020, time.March, 13, 100, 50)
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, cfg, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 12 months of compounding at the monthly-equivalent rate lands exactly
	// on the annual rate.
	want := 10000 * 1.12
	if !almostEqual(res.Metrics.FinalEquity, want) {
		t.Errorf("FinalEquity = %v, want %v", res.Metrics.FinalEquity, want)
	}
}

func TestRun_PercentWithdrawalSchedule(t *testing.T) {
	cfg := baseConfig()
	cfg.Leverage = domain.LeverageConfig{
		Enabled:        true,
		WithdrawalMode: domain.WithdrawalModePercent,
		WithdrawalPct:  1,
	}

	// Jan 2020 .. Feb 2021: draws at month 0 and January 2021.
	series := flatSeries(2020, time.January, 14, 100, 50)
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, cfg, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !almostEqual(res.History[0].Debt, 100) {
		t.Errorf("month 0 debt = %v, want 100", res.History[0].Debt)
	}
	if !almostEqual(res.History[11].Debt, 100) {
		t.Errorf("December debt = %v, want 100 (no mid-year draw)", res.History[11].Debt)
	}
	if !almostEqual(res.History[12].Debt, 200) {
		t.Errorf("January 2021 debt = %v, want 200", res.History[12].Debt)
	}
	if !almostEqual(res.Metrics.FinalEquity, 9800) {
		t.Errorf("FinalEquity = %v, want 9800", res.Metrics.FinalEquity)
	}
}

func TestRun_FixedWithdrawalInflates(t *testing.T) {
	cfg := baseConfig()
	cfg.Leverage = domain.LeverageConfig{
		Enabled:          true,
		WithdrawalMode:   domain.WithdrawalModeFixed,
		WithdrawalAmount: 100,
		AnnualInflation:  0.10,
	}

	series := flatSeries(2020, time.January, 14, 100, 50)
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, cfg, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Month 0: 100. January 2021 (one completed year): 110.
	if !almostEqual(res.History[0].Debt, 100) {
		t.Errorf("month 0 debt = %v, want 100", res.History[0].Debt)
	}
	if !almostEqual(res.History[12].Debt, 210) {
		t.Errorf("January 2021 debt = %v, want 210", res.History[12].Debt)
	}
}

func TestRun_LTVBasisChangesRatio(t *testing.T) {
	run := func(basis domain.LTVBasis) *domain.SimulationResult {
		cfg := baseConfig()
		cfg.Leverage = domain.LeverageConfig{
			Enabled:        true,
			WithdrawalMode: domain.WithdrawalModePercent,
			WithdrawalPct:  10,
			Basis:          basis,
		}
		res, err := Run(context.Background(), flatSeries(2020, time.March, 2, 100, 50), domain.StrategyNoRebalance, cfg, Options{})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return res
	}

	total := run(domain.LTVBasisTotalAssets)
	pledged := run(domain.LTVBasisPledgedCollateral)

	// Debt 1000. Total assets 10000 vs pledged collateral
	// 4000*0.7 + 4000*0.6 + 2000*1.0 = 7200.
	if !almostEqual(total.History[0].LTVPct, 10) {
		t.Errorf("TOTAL_ASSETS LTV = %v, want 10", total.History[0].LTVPct)
	}
	if !almostEqual(pledged.History[0].LTVPct, 1000.0/7200*100) {
		t.Errorf("PLEDGED_COLLATERAL LTV = %v, want %v", pledged.History[0].LTVPct, 1000.0/7200*100)
	}
}

func TestRun_BankruptcyIsSticky(t *testing.T) {
	cfg := baseConfig()
	cfg.Leverage = domain.LeverageConfig{
		Enabled:          true,
		WithdrawalMode:   domain.WithdrawalModeFixed,
		WithdrawalAmount: 8000, // LTV 8000/7200 > 60% immediately
	}

	series := flatSeries(2020, time.March, 6, 100, 50)
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, cfg, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !res.Bankrupt {
		t.Fatal("expected bankruptcy")
	}
	if res.BankruptcyDate == nil || !res.BankruptcyDate.Equal(series[0].Month) {
		t.Errorf("BankruptcyDate = %v, want %v", res.BankruptcyDate, series[0].Month)
	}
	if len(res.History) != len(series) {
		t.Fatalf("history length = %d, want %d (placeholders after liquidation)", len(res.History), len(series))
	}
	for i := 1; i < len(res.History); i++ {
		s := res.History[i]
		if s.Equity != 0 || s.BaseShares != 0 || s.Cash != 0 || s.Debt != 0 {
			t.Errorf("month %d not a zeroed placeholder: %+v", i, s)
		}
	}
	if res.Metrics.CAGRPct != -100 || res.Metrics.IRRPct != -100 || res.Metrics.CalmarRatio != -100 {
		t.Errorf("bankrupt metrics = CAGR %v IRR %v Calmar %v, want -100 each",
			res.Metrics.CAGRPct, res.Metrics.IRRPct, res.Metrics.CalmarRatio)
	}
	if res.Metrics.FinalEquity != 0 {
		t.Errorf("FinalEquity = %v, want 0", res.Metrics.FinalEquity)
	}
}

func TestRun_InterestModesDiverge(t *testing.T) {
	run := func(mode domain.InterestMode) *domain.SimulationResult {
		cfg := baseConfig()
		cfg.Leverage = domain.LeverageConfig{
			Enabled:        true,
			AnnualLoanRate: 0.12,
			WithdrawalMode: domain.WithdrawalModePercent,
			WithdrawalPct:  10,
			InterestMode:   mode,
		}
		res, err := Run(context.Background(), flatSeries(2020, time.March, 4, 100, 50), domain.StrategyNoRebalance, cfg, Options{})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return res
	}

	monthly := run(domain.InterestModeMonthly)
	maturity := run(domain.InterestModeMaturity)
	capitalized := run(domain.InterestModeCapitalized)

	// MONTHLY pays from cash: principal constant, cash shrinks.
	last := monthly.History[len(monthly.History)-1]
	if !almostEqual(last.Debt, 1000) {
		t.Errorf("MONTHLY debt = %v, want 1000", last.Debt)
	}
	if last.Cash >= 2000 {
		t.Errorf("MONTHLY cash = %v, want below 2000", last.Cash)
	}

	// MATURITY parks interest in the accumulator.
	last = maturity.History[len(maturity.History)-1]
	if !almostEqual(last.Debt, 1000) {
		t.Errorf("MATURITY debt = %v, want 1000", last.Debt)
	}
	if last.AccruedInterest <= 0 {
		t.Errorf("MATURITY accrued interest = %v, want positive", last.AccruedInterest)
	}

	// CAPITALIZED compounds into principal.
	last = capitalized.History[len(capitalized.History)-1]
	if last.Debt <= 1000 {
		t.Errorf("CAPITALIZED debt = %v, want above 1000", last.Debt)
	}
	if !almostEqual(last.AccruedInterest, 0) {
		t.Errorf("CAPITALIZED accrued interest = %v, want 0", last.AccruedInterest)
	}

	// All three modes owe the same first month of interest, so equity after
	// month 1 agrees between MATURITY and CAPITALIZED.
	if !almostEqual(maturity.History[1].Equity, capitalized.History[1].Equity) {
		t.Errorf("month 1 equity differs: maturity %v vs capitalized %v",
			maturity.History[1].Equity, capitalized.History[1].Equity)
	}
}

func TestRun_BetaReflectsExposure(t *testing.T) {
	series := flatSeries(2020, time.March, 2, 100, 50)
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, baseConfig(), Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 40% base (1x) + 40% leveraged (2x) over full equity: 0.4 + 0.8.
	if !almostEqual(res.History[0].Beta, 1.2) {
		t.Errorf("Beta = %v, want 1.2", res.History[0].Beta)
	}
}

func TestRun_Deterministic(t *testing.T) {
	cfg := baseConfig()
	cfg.Contribution = 500
	cfg.ContributionInterval = 1
	cfg.Leverage = domain.LeverageConfig{
		Enabled:        true,
		AnnualLoanRate: 0.03,
		WithdrawalMode: domain.WithdrawalModePercent,
		WithdrawalPct:  2,
	}
	series := flatSeries(2019, time.June, 30, 120, 60)

	a, err := Run(context.Background(), series, domain.StrategySmart, cfg, Options{ProfileName: "p"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	b, err := Run(context.Background(), series, domain.StrategySmart, cfg, Options{ProfileName: "p"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if a.RunID != b.RunID {
		t.Errorf("run IDs differ: %s vs %s", a.RunID, b.RunID)
	}
	if len(a.History) != len(b.History) {
		t.Fatalf("history lengths differ")
	}
	for i := range a.History {
		if a.History[i].Equity != b.History[i].Equity {
			t.Fatalf("month %d equity differs: %v vs %v", i, a.History[i].Equity, b.History[i].Equity)
		}
	}
}

func TestRun_SnapshotsIndependent(t *testing.T) {
	series := flatSeries(2020, time.March, 3, 100, 50)
	res, err := Run(context.Background(), series, domain.StrategyNoRebalance, baseConfig(), Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Mutating one snapshot must not leak into its neighbors.
	res.History[1].Cash = -1
	res.History[1].Events = append(res.History[1].Events, domain.Event{Type: domain.EventInfo})
	if res.History[0].Cash == -1 || res.History[2].Cash == -1 {
		t.Error("snapshots share state")
	}
}
