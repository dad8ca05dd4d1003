// Package main provides the backtest API server:
// - Triggered batches: POST /api/backtest fans profiles out over the worker pool
// - Query API: stored run summaries, ledgers and the markdown report
// - Push: completed batches are broadcast to WebSocket subscribers
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/yutaofr/clec-strategy-backtest/internal/observability"
	"github.com/yutaofr/clec-strategy-backtest/internal/orchestrator"
	"github.com/yutaofr/clec-strategy-backtest/internal/profile"
	"github.com/yutaofr/clec-strategy-backtest/internal/reporting"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage"
	chstore "github.com/yutaofr/clec-strategy-backtest/internal/storage/clickhouse"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage/memory"
	"github.com/yutaofr/clec-strategy-backtest/internal/storage/migrations"
	pgstore "github.com/yutaofr/clec-strategy-backtest/internal/storage/postgres"
)

// Server holds all components of the API service.
type Server struct {
	seriesStore  storage.PriceSeriesStore
	runStore     storage.SimulationRunStore
	historyStore storage.PortfolioHistoryStore

	profiles []profile.Profile
	seriesID string
	workers  int

	logger   zerolog.Logger
	upgrader websocket.Upgrader

	// State
	mu           sync.Mutex
	started      time.Time
	batchRunning bool
	batchRuns    int
	lastBatch    *orchestrator.RunResult
	wsClients    map[*websocket.Conn]struct{}
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", ":8080", "HTTP listen address")
	profilesPath := flag.String("profiles", "", "Profile YAML file (required)")
	seriesID := flag.String("series-id", "", "Price series to backtest against (required)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	workers := flag.Int("workers", 4, "Concurrent simulation workers")
	migrate := flag.Bool("migrate", false, "Apply schema migrations on startup")

	flag.Parse()

	// Setup logger
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("component", "server").Logger()

	// Validate required flags
	if *profilesPath == "" {
		logger.Fatal().Msg("--profiles is required")
	}
	if *seriesID == "" {
		logger.Fatal().Msg("--series-id is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal().Msg("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	profiles, err := profile.LoadFile(*profilesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load profiles")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	var (
		seriesStore  storage.PriceSeriesStore      = memory.NewPriceSeriesStore()
		runStore     storage.SimulationRunStore    = memory.NewSimulationRunStore()
		historyStore storage.PortfolioHistoryStore = memory.NewPortfolioHistoryStore()
	)
	if !*useMemory {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to postgres")
		}
		defer pool.Close()

		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to clickhouse")
		}
		defer conn.Close()

		if *migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				logger.Fatal().Err(err).Msg("apply postgres migrations")
			}
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				logger.Fatal().Err(err).Msg("apply clickhouse migrations")
			}
		}

		seriesStore = pgstore.NewPriceSeriesStore(pool)
		runStore = pgstore.NewSimulationRunStore(pool)
		historyStore = chstore.NewPortfolioHistoryStore(conn)
	}

	server := &Server{
		seriesStore:  seriesStore,
		runStore:     runStore,
		historyStore: historyStore,
		profiles:     profiles,
		seriesID:     *seriesID,
		workers:      *workers,
		logger:       logger,
		upgrader:     websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		started:      time.Now(),
		wsClients:    make(map[*websocket.Conn]struct{}),
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", *addr).Int("profiles", len(profiles)).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server")
	}
	logger.Info().Msg("shutdown complete")
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/backtest", s.handleBacktest)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRun)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/ws", s.handleWS)

	return mux
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status       string                  `json:"status"`
	Uptime       string                  `json:"uptime"`
	SeriesID     string                  `json:"series_id"`
	Profiles     int                     `json:"profiles"`
	BatchRunning bool                    `json:"batch_running"`
	BatchRuns    int                     `json:"batch_runs"`
	LastBatch    *orchestrator.RunResult `json:"last_batch,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).String(),
		SeriesID:     s.seriesID,
		Profiles:     len(s.profiles),
		BatchRunning: s.batchRunning,
		BatchRuns:    s.batchRuns,
		LastBatch:    s.lastBatch,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleBacktest triggers a batch asynchronously. A second trigger while one
// is running is rejected with 409.
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	if s.batchRunning {
		s.mu.Unlock()
		http.Error(w, "batch already running", http.StatusConflict)
		return
	}
	s.batchRunning = true
	s.mu.Unlock()

	allStrategies := r.URL.Query().Get("all-strategies") == "true"

	go s.runBatch(allStrategies)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) runBatch(allStrategies bool) {
	defer func() {
		s.mu.Lock()
		s.batchRunning = false
		s.mu.Unlock()
	}()

	orch := orchestrator.New(orchestrator.Options{
		SeriesStore:   s.seriesStore,
		RunStore:      s.runStore,
		HistoryStore:  s.historyStore,
		Profiles:      s.profiles,
		SeriesID:      s.seriesID,
		AllStrategies: allStrategies,
		Workers:       s.workers,
		Logger:        s.logger,
	})

	result, err := orch.Run(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("batch failed")
		s.broadcast(map[string]interface{}{"type": "batch_failed", "error": err.Error()})
		return
	}

	s.mu.Lock()
	s.batchRuns++
	s.lastBatch = result
	s.mu.Unlock()

	s.broadcast(map[string]interface{}{"type": "batch_completed", "result": result})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	records, err := s.runStore.GetAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleRun serves /api/runs/{id} and /api/runs/{id}/history.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	runID, sub, _ := strings.Cut(rest, "/")
	if runID == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}

	switch sub {
	case "":
		record, err := s.runStore.GetByID(r.Context(), runID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "run not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, record)
	case "history":
		history, err := s.historyStore.GetByRunID(r.Context(), runID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "run not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, history)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := reporting.NewGenerator(s.runStore).Generate(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	observability.RecordReportGenerated()

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(report)))
}

// handleWS upgrades the connection and registers it for batch notifications.
// The read loop exists only to notice the peer going away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	s.mu.Lock()
	s.wsClients[conn] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("websocket client connected")

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.wsClients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) broadcast(msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.wsClients, conn)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
