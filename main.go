package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/config"
	"github.com/glimpsehq/glimpse-engine/pkg/database"
	"github.com/glimpsehq/glimpse-engine/pkg/handlers"
	"github.com/glimpsehq/glimpse-engine/pkg/llm"
	"github.com/glimpsehq/glimpse-engine/pkg/logging"
	"github.com/glimpsehq/glimpse-engine/pkg/mcp"
	"github.com/glimpsehq/glimpse-engine/pkg/mcp/tools"
	"github.com/glimpsehq/glimpse-engine/pkg/middleware"
	"github.com/glimpsehq/glimpse-engine/pkg/repositories"
	"github.com/glimpsehq/glimpse-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "glimpse-engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(Version)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations run through database/sql; the pool below uses native pgx.
	connStr := cfg.Database.ConnectionString()
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	sqlDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	llmClient, err := llm.NewFromConfig(&cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}

	rdb, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		llmClient = llm.NewCachingClient(llmClient, rdb, cfg.AI.EmbeddingModel, logger)
		logger.Info("embedding cache enabled", zap.String("redis", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)))
	}

	// Repositories
	factRepo := repositories.NewFactRepository(db)
	entityRepo := repositories.NewEntityRepository(db)
	relationRepo := repositories.NewRelationRepository(db)
	runRepo := repositories.NewPipelineRunRepository(db)
	stepRepo := repositories.NewPipelineStepRepository(db)

	// Services
	parser := services.NewExtractionParser(logger)
	quality := services.NewFactQualityFilter(&cfg.Pipeline, logger)
	contextSvc := services.NewResponseContextService(factRepo, llmClient, &cfg.Pipeline, logger)
	recorder := services.NewRunRecorder(runRepo, stepRepo, logger)
	newResolver := func() services.EntityResolutionService {
		return services.NewEntityResolutionService(entityRepo, llmClient, parser, &cfg.Pipeline, logger)
	}
	orchestrator := services.NewPipelineOrchestrator(
		factRepo, relationRepo, llmClient, parser, quality, contextSvc, recorder, newResolver, logger,
	)

	mux := http.NewServeMux()

	// HTTP handlers
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewObservationsHandler(orchestrator, logger).RegisterRoutes(mux)
	handlers.NewRunsHandler(runRepo, stepRepo, logger).RegisterRoutes(mux)
	handlers.NewFactsHandler(factRepo, contextSvc, logger).RegisterRoutes(mux)

	// MCP server over streamable HTTP
	mcpServer := mcp.NewServer(cfg.Version, &tools.MemoryToolDeps{
		Orchestrator:   orchestrator,
		ContextService: contextSvc,
		FactRepo:       factRepo,
		Logger:         logger,
	})
	mux.Handle("/mcp", mcpServer.Handler())

	addr := cfg.BindAddr + ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting glimpse-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}
