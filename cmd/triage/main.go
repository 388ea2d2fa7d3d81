package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liliang-cn/triage/internal/api"
	"github.com/liliang-cn/triage/internal/catalog"
	"github.com/liliang-cn/triage/internal/config"
	"github.com/liliang-cn/triage/internal/llm"
	"github.com/liliang-cn/triage/internal/repository"
	"github.com/liliang-cn/triage/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	devLogging bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "triage",
		Short: "Emergency department intake and triage service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&devLogging, "dev", false, "Human readable development logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the intake API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled reference corpora",
		RunE: func(cmd *cobra.Command, args []string) error {
			reset, _ := cmd.Flags().GetBool("reset")
			return runSeed(cmd.Context(), reset)
		},
	}
	cmd.Flags().Bool("reset", false, "Clear every corpus before seeding")
	return cmd
}

func newLogger() (*zap.Logger, error) {
	if devLogging {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runSeed(ctx context.Context, reset bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	db, err := repository.NewDB(cfg.Corpus.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	corpusService := service.NewCorpusService(
		repository.NewCorpusRepository(db),
		llm.NewOpenAIClient(cfg.LLM),
		cfg.Corpus.UseEmbeddings,
		logger,
	)
	stats, err := corpusService.Seed(ctx, reset)
	if err != nil {
		return err
	}

	for corpus, n := range stats {
		fmt.Printf("%-8s %d entries\n", corpus, n)
	}
	return nil
}

func runServer() error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	// Reference corpora
	db, err := repository.NewDB(cfg.Corpus.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	client := llm.NewOpenAIClient(cfg.LLM)
	corpusService := service.NewCorpusService(
		repository.NewCorpusRepository(db),
		client,
		cfg.Corpus.UseEmbeddings,
		logger,
	)
	if cfg.Corpus.SeedOnStart {
		if _, err := corpusService.Seed(context.Background(), false); err != nil {
			logger.Warn("Failed to seed reference corpora", zap.Error(err))
		}
	}

	cat, err := catalog.Default()
	if err != nil {
		logger.Fatal("Failed to load question catalog", zap.Error(err))
	}

	// In-memory state
	sessions := repository.NewSessionStore()
	defer sessions.Close()
	jobs := repository.NewJobStore()
	defer jobs.Close()

	// Initialize services
	timeout := cfg.Pipeline.CallTimeout
	intakeService := service.NewIntakeService(sessions, cat, logger)
	pipelineService := service.NewPipelineService(
		sessions,
		jobs,
		service.NewExtractor(client, cat, timeout, logger),
		service.NewClassifier(client, corpusService, cfg.Corpus.TopK, timeout, logger),
		service.NewRouter(client, corpusService, cfg.Corpus.TopK, timeout, logger),
		logger,
	)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go intakeService.RunSweeper(sweepCtx, cfg.Session.TTL, cfg.Session.SweepInterval)

	// Setup router
	router := api.SetupRouter(intakeService, pipelineService, corpusService, api.RouterConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		TopK:         cfg.Corpus.TopK,
	}, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting triage server",
			zap.String("address", cfg.Address()),
			zap.String("model", cfg.LLM.Model),
			zap.Int("questions", cat.Total()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Let in-flight pipeline runs finish
	pipelineService.Close()

	logger.Info("Server exited")
	return nil
}
