package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage/memory"
)

func storedRun(runID, profile string, kind domain.StrategyKind, finalEquity, irr, sharpe, maxDD float64) *domain.RunRecord {
	return &domain.RunRecord{
		RunID:        runID,
		ProfileName:  profile,
		SeriesID:     "s1",
		StrategyKind: kind,
		StrategyName: string(kind),
		Months:       24,
		Metrics: domain.SummaryMetrics{
			FinalEquity:    finalEquity,
			IRRPct:         irr,
			SharpeRatio:    sharpe,
			MaxDrawdownPct: maxDD,
		},
		CreatedAt: time.Now(),
	}
}

func TestGenerate_SortsAndCounts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSimulationRunStore()
	store.Insert(ctx, storedRun("r1", "beta", domain.StrategySmart, 11000, 5, 0.5, 10))
	store.Insert(ctx, storedRun("r2", "alpha", domain.StrategySmart, 12000, 6, 0.6, 12))
	store.Insert(ctx, storedRun("r3", "alpha", domain.StrategyNoRebalance, 10500, 4, 0.4, 8))

	fixed := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	rep, err := NewGenerator(store).WithClock(func() time.Time { return fixed }).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !rep.GeneratedAt.Equal(fixed) {
		t.Errorf("GeneratedAt = %v, want %v", rep.GeneratedAt, fixed)
	}
	if rep.ProfileCount != 2 || rep.RunCount != 3 {
		t.Errorf("counts = %d profiles, %d runs", rep.ProfileCount, rep.RunCount)
	}
	if rep.Runs[0].ProfileName != "alpha" || rep.Runs[0].StrategyKind != "NO_REBALANCE" {
		t.Errorf("first row = %s/%s", rep.Runs[0].ProfileName, rep.Runs[0].StrategyKind)
	}
	if rep.Runs[2].ProfileName != "beta" {
		t.Errorf("last row = %s", rep.Runs[2].ProfileName)
	}
}

func TestGenerate_Highlights(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSimulationRunStore()
	store.Insert(ctx, storedRun("r1", "steady", domain.StrategyRebalance, 11000, 5, 0.9, 8))
	store.Insert(ctx, storedRun("r2", "growth", domain.StrategySmart, 15000, 9, 0.6, 25))

	rep, err := NewGenerator(store).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	byMetric := make(map[string]HighlightRow)
	for _, h := range rep.Highlights {
		byMetric[h.Metric] = h
	}
	if byMetric["final_equity"].ProfileName != "growth" {
		t.Errorf("final_equity highlight = %+v", byMetric["final_equity"])
	}
	if byMetric["sharpe_ratio"].ProfileName != "steady" {
		t.Errorf("sharpe_ratio highlight = %+v", byMetric["sharpe_ratio"])
	}
	// Drawdown is better when lower.
	if byMetric["max_drawdown_pct"].ProfileName != "steady" {
		t.Errorf("max_drawdown_pct highlight = %+v", byMetric["max_drawdown_pct"])
	}
}

func TestGenerate_BankruptRunsExcludedFromHighlights(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSimulationRunStore()

	broke := storedRun("r1", "wiped", domain.StrategySmart, 0, -100, 0, 100)
	broke.Bankrupt = true
	date := time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC)
	broke.BankruptcyDate = &date
	store.Insert(ctx, broke)
	store.Insert(ctx, storedRun("r2", "alive", domain.StrategySmart, 9000, 2, 0.3, 30))

	rep, err := NewGenerator(store).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(rep.Bankruptcies) != 1 || rep.Bankruptcies[0].ProfileName != "wiped" {
		t.Fatalf("bankruptcies = %+v", rep.Bankruptcies)
	}
	if !rep.Bankruptcies[0].Date.Equal(date) {
		t.Errorf("bankruptcy date = %v", rep.Bankruptcies[0].Date)
	}
	for _, h := range rep.Highlights {
		if h.ProfileName == "wiped" {
			t.Errorf("bankrupt run surfaced in highlights: %+v", h)
		}
	}
}

func TestGenerate_EmptyStore(t *testing.T) {
	rep, err := NewGenerator(memory.NewSimulationRunStore()).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if rep.RunCount != 0 || len(rep.Highlights) != 0 {
		t.Errorf("empty report = %+v", rep)
	}
}

func TestRenderMarkdown(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSimulationRunStore()
	store.Insert(ctx, storedRun("r1", "alpha", domain.StrategySmart, 12345.67, 6.1, 0.55, 14.2))

	rep, err := NewGenerator(store).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	md := RenderMarkdown(rep)

	for _, want := range []string{"# Backtest Report", "alpha", "SMART", "## Highlights", "12345.67"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSimulationRunStore()
	store.Insert(ctx, storedRun("r1", "alpha", domain.StrategySmart, 12345.67, 6.1, 0.55, 14.2))

	rep, err := NewGenerator(store).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	out := RenderCSV(rep.Runs)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "profile_name,strategy_kind") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "alpha") || !strings.Contains(lines[1], "SMART") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}
