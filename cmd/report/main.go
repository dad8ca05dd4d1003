// Package main generates comparison reports from stored backtest runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/yutaofr/clec-strategy-backtest/internal/observability"
	"github.com/yutaofr/clec-strategy-backtest/internal/profile"
	"github.com/yutaofr/clec-strategy-backtest/internal/reporting"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
	chstore "github.com/yutaofr/clec-strategy-backtest/internal/storage/clickhouse"
	pgstore "github.com/yutaofr/clec-strategy-backtest/internal/storage/postgres"
	"github.com/yutaofr/clec-strategy-backtest/internal/verification"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (needed for charts and ledger verification)")
	outputDir := flag.String("output-dir", "output", "Output directory for report files")
	withChart := flag.Bool("chart", false, "Render the equity curve chart (requires --clickhouse-dsn)")
	verify := flag.Bool("verify", false, "Re-run stored runs and check reproducibility (requires --profiles)")
	profilesPath := flag.String("profiles", "", "Profile YAML file, for --verify")

	flag.Parse()

	// Setup logger
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("component", "report").Logger()

	// Validate required flags
	if *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required")
	}
	if *withChart && *clickhouseDSN == "" {
		logger.Fatal().Msg("--chart requires --clickhouse-dsn")
	}
	if *verify && *profilesPath == "" {
		logger.Fatal().Msg("--verify requires --profiles")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()
	runStore := pgstore.NewSimulationRunStore(pool)

	var historyStore storage.PortfolioHistoryStore
	if *clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to clickhouse")
		}
		defer conn.Close()
		historyStore = chstore.NewPortfolioHistoryStore(conn)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create output dir")
	}

	// Generate the report
	report, err := reporting.NewGenerator(runStore).Generate(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("generate report")
	}
	observability.RecordReportGenerated()

	mdPath := filepath.Join(*outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		logger.Fatal().Err(err).Msg("write markdown report")
	}
	csvPath := filepath.Join(*outputDir, "runs.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Runs)), 0o644); err != nil {
		logger.Fatal().Err(err).Msg("write csv report")
	}
	logger.Info().Int("runs", report.RunCount).Str("dir", *outputDir).Msg("report written")

	if *withChart {
		if err := renderChart(ctx, runStore, historyStore, *outputDir, logger); err != nil {
			logger.Fatal().Err(err).Msg("render chart")
		}
	}

	if *verify {
		seriesStore := pgstore.NewPriceSeriesStore(pool)
		if err := runVerification(ctx, runStore, historyStore, seriesStore, *profilesPath, logger); err != nil {
			logger.Fatal().Err(err).Msg("verification failed")
		}
	}
}

// renderChart draws every stored run's equity curve on one PNG. Runs whose
// length differs from the first one (different series) are skipped.
func renderChart(ctx context.Context, runStore storage.SimulationRunStore, historyStore storage.PortfolioHistoryStore, outputDir string, logger zerolog.Logger) error {
	records, err := runStore.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("no stored runs to chart")
	}

	var (
		xLabels []string
		curves  []reporting.EquityCurve
	)
	for _, r := range records {
		history, err := historyStore.GetByRunID(ctx, r.RunID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				logger.Warn().Str("run_id", r.RunID).Msg("run has no stored ledger, skipping")
				continue
			}
			return err
		}
		if xLabels == nil {
			xLabels = reporting.MonthLabels(history)
		}
		if len(history) != len(xLabels) {
			logger.Warn().Str("run_id", r.RunID).Msg("ledger length mismatch, skipping")
			continue
		}
		label := fmt.Sprintf("%s/%s", r.ProfileName, r.StrategyKind)
		curves = append(curves, reporting.CurveFromHistory(label, history))
	}
	if len(curves) == 0 {
		return errors.New("no ledgers available for charting")
	}

	png, err := reporting.RenderEquityChart("Equity Curves", xLabels, curves)
	if err != nil {
		return err
	}
	observability.DefaultMetrics.ChartsRendered.Inc()

	path := filepath.Join(outputDir, "equity.png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return err
	}
	logger.Info().Int("curves", len(curves)).Str("path", path).Msg("chart written")
	return nil
}

func runVerification(ctx context.Context, runStore storage.SimulationRunStore, historyStore storage.PortfolioHistoryStore, seriesStore storage.PriceSeriesStore, profilesPath string, logger zerolog.Logger) error {
	profiles, err := profile.LoadFile(profilesPath)
	if err != nil {
		return err
	}

	verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		RunStore:     runStore,
		HistoryStore: historyStore,
		SeriesStore:  seriesStore,
		Profiles:     profiles,
	})

	report, err := verifier.VerifyAll(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Verified %d runs: %d matched, %d divergent\n",
		report.TotalRuns, report.MatchedRuns, report.DivergentRuns)
	for _, r := range report.Results {
		if r.Match {
			continue
		}
		for _, d := range r.Divergences {
			logger.Warn().
				Str("run_id", r.RunID).
				Int("month_index", d.MonthIndex).
				Str("field", d.Field).
				Interface("stored", d.Expected).
				Interface("recomputed", d.Actual).
				Msg("divergence")
		}
	}
	if report.DivergentRuns > 0 {
		return fmt.Errorf("%d runs diverged", report.DivergentRuns)
	}
	return nil
}
