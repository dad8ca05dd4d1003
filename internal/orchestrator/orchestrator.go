// Package orchestrator coordinates batch backtest execution.
// It fans profiles out over a worker pool, runs each simulation and persists
// summaries plus month-by-month ledgers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
	"github.com/yutaofr/clec-strategy-backtest/internal/observability"
	"github.com/yutaofr/clec-strategy-backtest/internal/profile"
	"github.com/yutaofr/clec-strategy-backtest/internal/simulation"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
)

const defaultWorkers = 4

// Orchestrator coordinates the batch execution.
// Flow: load series once, simulate every job, persist results.
type Orchestrator struct {
	seriesStore  storage.PriceSeriesStore
	runStore     storage.SimulationRunStore
	historyStore storage.PortfolioHistoryStore

	profiles      []profile.Profile
	seriesID      string
	allStrategies bool
	workers       int

	logger zerolog.Logger
	now    func() time.Time
}

// Options for creating an Orchestrator.
type Options struct {
	// Required stores.
	SeriesStore storage.PriceSeriesStore
	RunStore    storage.SimulationRunStore

	// Optional: when set, full month-by-month ledgers are persisted too.
	HistoryStore storage.PortfolioHistoryStore

	Profiles []profile.Profile
	SeriesID string

	// AllStrategies runs every strategy kind for every profile instead of
	// only the profile's configured one.
	AllStrategies bool

	Workers int
	Logger  zerolog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		seriesStore:   opts.SeriesStore,
		runStore:      opts.RunStore,
		historyStore:  opts.HistoryStore,
		profiles:      opts.Profiles,
		seriesID:      opts.SeriesID,
		allStrategies: opts.AllStrategies,
		workers:       workers,
		logger:        opts.Logger,
		now:           now,
	}
}

// RunResult contains statistics from a batch execution.
type RunResult struct {
	RunsCompleted     int
	Bankruptcies      int
	DuplicatesSkipped int
	Errors            []string
	Duration          time.Duration
}

type job struct {
	profile  profile.Profile
	strategy domain.StrategyKind
}

// Run executes every (profile, strategy) job against the configured series.
// Jobs are independent; a failed job is recorded and does not stop the batch.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	started := o.now()

	series, err := o.seriesStore.GetBySeriesID(ctx, o.seriesID)
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", o.seriesID, err)
	}
	o.logger.Info().
		Str("series_id", o.seriesID).
		Int("months", len(series)).
		Int("profiles", len(o.profiles)).
		Int("workers", o.workers).
		Msg("starting batch")

	jobs := o.buildJobs()

	var (
		mu     sync.Mutex
		result = &RunResult{}
	)
	jobCh := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				o.runJob(ctx, j, series, &mu, result)
			}
		}()
	}

	for _, j := range jobs {
		select {
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			return result, ctx.Err()
		case jobCh <- j:
		}
	}
	close(jobCh)
	wg.Wait()

	result.Duration = o.now().Sub(started)
	observability.DefaultMetrics.LastSuccessfulRun.Set(float64(o.now().Unix()))
	o.logger.Info().
		Int("runs", result.RunsCompleted).
		Int("bankruptcies", result.Bankruptcies).
		Int("duplicates", result.DuplicatesSkipped).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("batch completed")

	return result, nil
}

func (o *Orchestrator) buildJobs() []job {
	kinds := []domain.StrategyKind{
		domain.StrategyNoRebalance,
		domain.StrategyRebalance,
		domain.StrategySmart,
	}

	var jobs []job
	for _, p := range o.profiles {
		if !o.allStrategies {
			jobs = append(jobs, job{profile: p, strategy: p.Strategy})
			continue
		}
		for _, k := range kinds {
			jobs = append(jobs, job{profile: p, strategy: k})
		}
	}
	return jobs
}

func (o *Orchestrator) runJob(ctx context.Context, j job, series []domain.PriceRow, mu *sync.Mutex, result *RunResult) {
	logger := o.logger.With().
		Str("profile", j.profile.Name).
		Str("strategy", string(j.strategy)).
		Logger()

	simStart := time.Now()
	res, err := simulation.Run(ctx, series, j.strategy, &j.profile.Config, simulation.Options{
		ProfileName: j.profile.Name,
		Color:       j.profile.Color,
	})
	if err != nil {
		observability.RecordSimulationError(string(j.strategy))
		logger.Error().Err(err).Msg("simulation failed")
		mu.Lock()
		result.Errors = append(result.Errors, fmt.Sprintf("simulate %s/%s: %v", j.profile.Name, j.strategy, err))
		mu.Unlock()
		return
	}
	observability.RecordSimulation(string(j.strategy), time.Since(simStart).Seconds(), len(res.History), res.Bankrupt)

	if err := o.persist(ctx, res); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.DefaultMetrics.DuplicateRuns.Inc()
			logger.Debug().Str("run_id", res.RunID).Msg("run already stored")
			mu.Lock()
			result.DuplicatesSkipped++
			mu.Unlock()
			return
		}
		logger.Error().Err(err).Msg("persist failed")
		mu.Lock()
		result.Errors = append(result.Errors, fmt.Sprintf("persist %s/%s: %v", j.profile.Name, j.strategy, err))
		mu.Unlock()
		return
	}
	observability.DefaultMetrics.RunsPersisted.Inc()

	logger.Info().
		Str("run_id", res.RunID).
		Float64("final_equity", res.Metrics.FinalEquity).
		Bool("bankrupt", res.Bankrupt).
		Msg("run stored")

	mu.Lock()
	result.RunsCompleted++
	if res.Bankrupt {
		result.Bankruptcies++
	}
	mu.Unlock()
}

func (o *Orchestrator) persist(ctx context.Context, res *domain.SimulationResult) error {
	record := domain.NewRunRecord(res, o.now())
	if err := o.runStore.Insert(ctx, record); err != nil {
		return err
	}
	if o.historyStore == nil {
		return nil
	}
	if err := o.historyStore.InsertBulk(ctx, res.RunID, res.History); err != nil {
		// The summary row is already in; a duplicate ledger means a previous
		// partial persist and is safe to ignore.
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil
		}
		return err
	}
	return nil
}
