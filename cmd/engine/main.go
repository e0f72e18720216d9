// Package main provides the entry point for the picks engine.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/race-picks/internal/config"
	"github.com/yourusername/race-picks/internal/database"
	"github.com/yourusername/race-picks/internal/engine"
	"github.com/yourusername/race-picks/internal/exchange"
	"github.com/yourusername/race-picks/internal/health"
	"github.com/yourusername/race-picks/internal/ingest"
	"github.com/yourusername/race-picks/internal/learning"
	"github.com/yourusername/race-picks/internal/logger"
	"github.com/yourusername/race-picks/internal/metrics"
	"github.com/yourusername/race-picks/internal/repository"
	"github.com/yourusername/race-picks/internal/scheduler"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
}

var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Run the race picks engine",
	Long:  `Runs the full picks pipeline on a fixed cadence inside the daily trading window: snapshot, selection, results ingestion and weight learning.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			log.Printf("Error: failed to load configuration: %v", err)
			os.Exit(2)
		}
		if err := setupDependencies(cmd.Context()); err != nil {
			log.Printf("Error: failed to setup dependencies: %v", err)
			os.Exit(1)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		runEngine()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(2)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	appLog = logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("Race picks engine starting")

	var err error
	db, err = database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	return nil
}

func runEngine() {
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		appLog.WithField("signal", sig.String()).Info("Shutdown signal received, stopping at cycle boundary")
		cancel()
	}()

	metrics.InitRegistry()

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        strconv.Itoa(cfg.Engine.HealthPort),
		Logger:      appLog,
		DB:          db,
		Metrics:     metrics.Handler(),
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Error("Failed to start health server")
		os.Exit(1)
	}

	audit := logger.NewAuditLogger(appLog)
	learnLog := logger.NewLearningLogger(appLog)

	httpClient := exchange.NewRateLimitedHTTPClient(exchange.HTTPClientConfigFrom(&cfg.Exchange), appLog)
	snapshotClient := exchange.NewSnapshotClient(&cfg.Exchange, httpClient, appLog)
	resultsClient := exchange.NewResultsClient(&cfg.Exchange, httpClient, appLog)

	ingestor := ingest.NewIngestor(cfg.Results, repos.Picks, resultsClient, audit, appLog)
	learner := learning.NewLearner(cfg.Learning, cfg.Scoring, repos, audit, learnLog, appLog)

	runner := engine.NewCycleRunner(cfg, repos, snapshotClient, ingestor, learner, audit, appLog)
	runner.OnCycle = healthServer.RecordCycle

	rollup := ingest.NewRollup(repos.Picks, appLog)
	sched := scheduler.NewScheduler(appLog)
	// Evening races settle after the trading window closes; the sweep picks
	// them up while the cycle runner sleeps.
	if err := sched.ScheduleResultsSweep(cfg.Results.SettlementDelayMinutes, func(jobCtx context.Context) error {
		_, err := ingestor.Run(jobCtx, time.Now())
		return err
	}); err != nil {
		appLog.WithError(err).Error("Failed to schedule results sweep")
		os.Exit(1)
	}
	if err := sched.ScheduleDailyRollup("5 0 * * *", func(jobCtx context.Context) error {
		_, err := rollup.Run(jobCtx, time.Now().AddDate(0, 0, -1))
		return err
	}); err != nil {
		appLog.WithError(err).Error("Failed to schedule daily rollup")
		os.Exit(1)
	}
	if err := sched.Start(); err != nil {
		appLog.WithError(err).Error("Failed to start scheduler")
		os.Exit(1)
	}
	defer sched.Stop()

	healthServer.SetReady(true)

	if err := runner.Run(ctx); err != nil {
		appLog.WithError(err).Error("Engine stopped with error")
		os.Exit(1)
	}

	appLog.Info("Engine stopped")
}
