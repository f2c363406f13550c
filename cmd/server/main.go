// Package main provides the unified attack-lab server:
// - Pipeline (scheduled): fresh environments → attack runs → persistence
// - Reporting (scheduled): ATTACK_REPORT.md, ATTACK_RESULTS.csv
// - HTTP: health, Prometheus metrics, status, attack API, live WebSocket feed
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/observability"
	"amm-attack-lab/internal/orchestrator"
	"amm-attack-lab/internal/reporting"
	"amm-attack-lab/internal/storage"
	chstore "amm-attack-lab/internal/storage/clickhouse"
	"amm-attack-lab/internal/storage/memory"
	"amm-attack-lab/internal/storage/migrations"
	pgstore "amm-attack-lab/internal/storage/postgres"
	"amm-attack-lab/internal/stream"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	postgresDSN      string
	clickhouseDSN    string
	useMemory        bool
	outputDir        string
	pipelineInterval time.Duration
	reportInterval   time.Duration

	// Stores
	stores *allStores

	// Components
	hub    *stream.Hub
	logger *log.Logger

	// State
	mu              sync.Mutex
	started         time.Time
	lastPipelineRun time.Time
	lastReportRun   time.Time
	pipelineRunning bool
	reportRunning   bool

	// Stats
	pipelineRuns int
	reportRuns   int
}

// allStores holds all storage implementations.
type allStores struct {
	resultStore storage.AttackResultStore
	recordStore storage.ManipulationRecordStore
	impactStore storage.ImpactTimeseriesStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	pipelineInterval := flag.Duration("pipeline-interval", 1*time.Hour, "Attack pipeline run interval")
	reportInterval := flag.Duration("report-interval", 6*time.Hour, "Report generation interval")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for health/metrics/status/websocket")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create server
	server := &Server{
		postgresDSN:      *postgresDSN,
		clickhouseDSN:    *clickhouseDSN,
		useMemory:        *useMemory,
		outputDir:        *outputDir,
		pipelineInterval: *pipelineInterval,
		reportInterval:   *reportInterval,
		stores:           stores,
		hub:              stream.NewHub(nil, logger),
		logger:           logger,
		started:          time.Now(),
	}
	defer server.hub.Close()

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*httpAddr)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			resultStore: memory.NewAttackResultStore(),
			recordStore: memory.NewManipulationRecordStore(),
			impactStore: memory.NewImpactTimeseriesStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL (transactional: results + record logs)
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse (analytics: downsampled impact timeseries)
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		resultStore: pgstore.NewAttackResultStore(pool),
		recordStore: pgstore.NewManipulationRecordStore(pool),
		impactStore: chstore.NewImpactTimeseriesStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the unified server with all components.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	// Create error channel for goroutines
	errCh := make(chan error, 2)

	// Start pipeline scheduler in background
	go func() {
		err := s.runPipelineScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("pipeline scheduler: %w", err)
		}
	}()

	// Start report scheduler in background
	go func() {
		err := s.runReportScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("report scheduler: %w", err)
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runPipelineScheduler runs the attack pipeline on schedule.
func (s *Server) runPipelineScheduler(ctx context.Context) error {
	s.logger.Printf("Starting pipeline scheduler (interval: %v)...", s.pipelineInterval)

	// Run immediately on start
	s.runPipeline(ctx)

	ticker := time.NewTicker(s.pipelineInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPipeline(ctx)
		}
	}
}

// runPipeline executes one full attack pipeline run.
func (s *Server) runPipeline(ctx context.Context) {
	s.mu.Lock()
	if s.pipelineRunning {
		s.mu.Unlock()
		s.logger.Println("Pipeline already running, skipping...")
		return
	}
	s.pipelineRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pipelineRunning = false
		s.lastPipelineRun = time.Now()
		s.pipelineRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Running attack pipeline...")
	start := time.Now()

	orch := orchestrator.New(orchestrator.Options{
		ResultStore: s.stores.resultStore,
		RecordStore: s.stores.recordStore,
		ImpactStore: s.stores.impactStore,
		OnAttack:    s.hub.Publish,
		Verbose:     true,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		s.logger.Printf("Pipeline error: %v", err)
		observability.RecordPipelineRun("error", time.Since(start).Seconds())
		return
	}

	s.logger.Printf("Pipeline completed in %v: %d attacks (%d reverted), %d records, %d liquidations",
		time.Since(start), result.AttacksRun, result.AttacksReverted,
		result.RecordsStored, result.LiquidationsTriggered)
	for _, e := range result.Errors {
		s.logger.Printf("Pipeline scenario error: %s", e)
	}

	if len(result.Errors) == 0 {
		observability.RecordPipelineRun("success", time.Since(start).Seconds())
		observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	} else {
		observability.RecordPipelineRun("partial", time.Since(start).Seconds())
	}
}

// runReportScheduler runs report generation on schedule.
func (s *Server) runReportScheduler(ctx context.Context) error {
	s.logger.Printf("Starting report scheduler (interval: %v)...", s.reportInterval)

	// Wait for first pipeline run before generating reports
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(1 * time.Minute):
	}

	// Run immediately after first pipeline
	s.runReport(ctx)

	ticker := time.NewTicker(s.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runReport(ctx)
		}
	}
}

// runReport generates reports.
func (s *Server) runReport(ctx context.Context) {
	s.mu.Lock()
	if s.reportRunning {
		s.mu.Unlock()
		s.logger.Println("Report generation already running, skipping...")
		return
	}
	s.reportRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reportRunning = false
		s.lastReportRun = time.Now()
		s.reportRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Generating reports...")
	start := time.Now()

	// Ensure output directory exists
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		s.logger.Printf("Failed to create output directory: %v", err)
		return
	}

	gen := reporting.NewGenerator(s.stores.resultStore, s.stores.recordStore)
	report, err := gen.Generate(ctx)
	if err != nil {
		s.logger.Printf("Report generation error: %v", err)
		return
	}

	mdPath := filepath.Join(s.outputDir, "ATTACK_REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		s.logger.Printf("Failed to write %s: %v", mdPath, err)
		return
	}
	csvPath := filepath.Join(s.outputDir, "ATTACK_RESULTS.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Attacks)), 0644); err != nil {
		s.logger.Printf("Failed to write %s: %v", csvPath, err)
		return
	}

	observability.DefaultMetrics.ReportsGenerated.Inc()
	s.logger.Printf("Reports generated in %v to %s/", time.Since(start), s.outputDir)
}

// startHTTPServer starts the HTTP server for health/metrics/status/stream.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Attack results API
	mux.HandleFunc("/api/attacks", s.handleAttacks)

	// Live attack feed
	mux.HandleFunc("/ws/attacks", s.hub.Handler())

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	LastPipelineRun time.Time `json:"last_pipeline_run,omitempty"`
	LastReportRun   time.Time `json:"last_report_run,omitempty"`
	PipelineRuns    int       `json:"pipeline_runs"`
	ReportRuns      int       `json:"report_runs"`
	PipelineRunning bool      `json:"pipeline_running"`
	ReportRunning   bool      `json:"report_running"`
	Subscribers     int       `json:"subscribers"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).String(),
		LastPipelineRun: s.lastPipelineRun,
		LastReportRun:   s.lastReportRun,
		PipelineRuns:    s.pipelineRuns,
		ReportRuns:      s.reportRuns,
		PipelineRunning: s.pipelineRunning,
		ReportRunning:   s.reportRunning,
	}
	s.mu.Unlock()
	resp.Subscribers = s.hub.ClientCount()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// attackResponse is one attack result row in the /api/attacks response.
// Token amounts are decimal strings of wad-scaled integers.
type attackResponse struct {
	AttackID            string `json:"attack_id"`
	ScenarioID          string `json:"scenario_id"`
	Status              string `json:"status"`
	TriggersLiquidation bool   `json:"triggers_liquidation"`
	MaxRepayable        string `json:"max_repayable"`
	SeizeTokens         string `json:"seize_tokens"`
	Profit              string `json:"profit"`
	StartBlock          uint64 `json:"start_block"`
	EndBlock            uint64 `json:"end_block"`
	CreatedAt           int64  `json:"created_at"`
}

// handleAttacks returns stored attack results as JSON, optionally filtered
// by ?scenario= or ?status=.
func (s *Server) handleAttacks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		attacks []*domain.AttackResult
		err     error
	)
	switch {
	case r.URL.Query().Get("scenario") != "":
		attacks, err = s.stores.resultStore.GetByScenario(ctx, r.URL.Query().Get("scenario"))
	case r.URL.Query().Get("status") != "":
		attacks, err = s.stores.resultStore.GetByStatus(ctx, r.URL.Query().Get("status"))
	default:
		attacks, err = s.stores.resultStore.GetAll(ctx)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rows := make([]attackResponse, len(attacks))
	for i, a := range attacks {
		rows[i] = attackResponse{
			AttackID:            a.AttackID,
			ScenarioID:          a.ScenarioID,
			Status:              a.Status,
			TriggersLiquidation: a.TriggersLiquidation,
			MaxRepayable:        a.MaxRepayable.String(),
			SeizeTokens:         a.SeizeTokens.String(),
			Profit:              a.Profit.String(),
			StartBlock:          a.StartBlock,
			EndBlock:            a.EndBlock,
			CreatedAt:           a.CreatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
