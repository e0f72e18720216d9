// Package main provides inspection and maintenance of the scoring weights.
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
	"github.com/yourusername/race-picks/internal/logger"
	"github.com/yourusername/race-picks/internal/models"
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
	rootCmd.AddCommand(showCmd, resetCmd, historyCmd)
}

var rootCmd = &cobra.Command{
	Use:   "weights",
	Short: "Inspect and maintain the scoring weights",
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
		showWeights()
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current weights",
	Run: func(cmd *cobra.Command, args []string) {
		showWeights()
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the weights to the shipped defaults",
	Run: func(cmd *cobra.Command, args []string) {
		resetWeights()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent learning journal entries",
	Run: func(cmd *cobra.Command, args []string) {
		showHistory()
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

func showWeights() {
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	weights, err := repos.Weights.Get(ctx)
	if err != nil {
		appLog.WithError(err).Error("Failed to read weights")
		os.Exit(1)
	}

	bounds := cfg.GetWeightBounds()

	fmt.Printf("\nVersion:      %s\n", weights.Version)
	fmt.Printf("Last updated: %s\n\n", weights.LastUpdated.Format(time.RFC3339))
	for _, key := range models.WeightKeys {
		bound := bounds[key]
		fmt.Printf("  %-20s %6.1f   [%g, %g]\n", key, weights.Get(key), bound.Min, bound.Max)
	}
}

func resetWeights() {
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	current, err := repos.Weights.Get(ctx)
	if err != nil {
		appLog.WithError(err).Error("Failed to read weights")
		os.Exit(1)
	}

	next := models.DefaultWeights().WithVersion(time.Now())
	if err := repos.Weights.CompareAndSwap(ctx, current.Version, next); err != nil {
		appLog.WithError(err).Error("Failed to reset weights")
		os.Exit(1)
	}

	fmt.Printf("Weights reset to defaults, version %s\n", next.Version)
}

func showHistory() {
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := repos.Journal.RecentLearning(ctx, 20)
	if err != nil {
		appLog.WithError(err).Error("Failed to read learning journal")
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No learning journal entries yet")
		return
	}

	for _, entry := range entries {
		fmt.Printf("\n%s  %s  (%d races)\n",
			entry.Timestamp.Format(time.RFC3339), entry.LearningType, entry.RacesAnalyzed)
		for _, rule := range entry.AdjustmentsApplied {
			fmt.Printf("  - %s\n", rule)
		}
		for _, key := range models.WeightKeys {
			oldValue, newValue := entry.OldWeights[key], entry.NewWeights[key]
			if oldValue != newValue {
				fmt.Printf("    %s: %.1f -> %.1f\n", key, oldValue, newValue)
			}
		}
	}
}
