package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/yutaofr/clec-strategy-backtest/internal/profile"
	"github.com/yutaofr/clec-strategy-backtest/internal/simulation"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
)

var (
	// ErrRunNotFound is returned when a run ID doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrProfileNotFound is returned when a stored run references a profile
	// that is not in the verifier's profile set.
	ErrProfileNotFound = errors.New("profile not found")
)

// ReplayVerifier implements Verifier.
type ReplayVerifier struct {
	runStore     storage.SimulationRunStore
	historyStore storage.PortfolioHistoryStore
	seriesStore  storage.PriceSeriesStore

	// profiles maps profile name to its configuration. Must be pre-populated
	// with the profile set the stored runs were produced from.
	profiles map[string]profile.Profile
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	RunStore     storage.SimulationRunStore
	HistoryStore storage.PortfolioHistoryStore // optional; ledgers skipped when nil
	SeriesStore  storage.PriceSeriesStore
	Profiles     []profile.Profile
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	profiles := make(map[string]profile.Profile, len(opts.Profiles))
	for _, p := range opts.Profiles {
		profiles[p.Name] = p
	}
	return &ReplayVerifier{
		runStore:     opts.RunStore,
		historyStore: opts.HistoryStore,
		seriesStore:  opts.SeriesStore,
		profiles:     profiles,
	}
}

// VerifyRun verifies a single run by recomputing it.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	// 1. Load stored summary
	stored, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	p, ok := v.profiles[stored.ProfileName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, stored.ProfileName)
	}

	// 2. Recompute with the stored run's own strategy kind; the profile's
	// configured kind may differ when the batch ran all strategies.
	series, err := v.seriesStore.GetBySeriesID(ctx, stored.SeriesID)
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", stored.SeriesID, err)
	}
	recomputed, err := simulation.Run(ctx, series, stored.StrategyKind, &p.Config, simulation.Options{
		ProfileName: stored.ProfileName,
		Color:       stored.Color,
	})
	if err != nil {
		return nil, fmt.Errorf("recompute run %s: %w", runID, err)
	}

	// 3. Compare summary, then ledger when available
	divergences := CompareSummaries(stored, recomputed)
	months := len(recomputed.History)

	if v.historyStore != nil {
		ledger, err := v.historyStore.GetByRunID(ctx, runID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load ledger %s: %w", runID, err)
		}
		if err == nil {
			divergences = append(divergences, CompareLedgers(ledger, recomputed.History)...)
		}
	}

	return &VerificationResult{
		RunID:       runID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
		Months:      months,
	}, nil
}

// VerifyAll verifies all stored runs.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	runs, err := v.runStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		result, err := v.VerifyRun(ctx, run.RunID)
		if err != nil {
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				RunID: run.RunID,
				Match: false,
				Divergences: []FieldDivergence{
					{MonthIndex: -1, Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

var _ Verifier = (*ReplayVerifier)(nil)
