// Package main provides a one-shot weight learning run.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/race-picks/internal/config"
	"github.com/yourusername/race-picks/internal/database"
	"github.com/yourusername/race-picks/internal/learning"
	"github.com/yourusername/race-picks/internal/logger"
	"github.com/yourusername/race-picks/internal/repository"
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
	Use:   "learn",
	Short: "Run one weight learning cycle",
	Long:  `Reads recent settled picks, computes pattern statistics and applies bounded weight adjustments when the rules trigger.`,
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
		runLearning()
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
	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	appLog = logger.NewLogger(cfg.App.LogLevel)

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

func runLearning() {
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	audit := logger.NewAuditLogger(appLog)
	learnLog := logger.NewLearningLogger(appLog)
	learner := learning.NewLearner(cfg.Learning, cfg.Scoring, repos, audit, learnLog, appLog)

	result, err := learner.Run(ctx, time.Now())
	if err != nil {
		appLog.WithError(err).Error("Learning run failed")
		os.Exit(1)
	}

	fmt.Println("\n=== Weight Learning ===")
	fmt.Printf("Races analyzed: %d\n", result.RacesAnalyzed)
	fmt.Printf("New outcomes:   %d\n", result.NewOutcomes)
	switch {
	case result.Skipped:
		fmt.Println("Skipped: not enough new outcomes since the last adjustment")
	case result.Adjusted:
		fmt.Println("Weights adjusted:")
		for _, rule := range result.Entry.AdjustmentsApplied {
			fmt.Printf("  - %s\n", rule)
		}
	default:
		fmt.Println("Validated: no adjustment")
	}
}
