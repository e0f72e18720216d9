// Package main provides a one-shot results ingestion sweep.
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
	"github.com/yourusername/race-picks/internal/exchange"
	"github.com/yourusername/race-picks/internal/ingest"
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
	withRollup bool
	appLog     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().BoolVar(&withRollup, "rollup", false, "Also run yesterday's daily rollup after the sweep")
}

var rootCmd = &cobra.Command{
	Use:   "results",
	Short: "Settle pending picks from market results",
	Long:  `Runs one results ingestion sweep: loads pending picks over the lookback window, fetches settled markets and records outcomes with profit and loss.`,
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
		runSweep()
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

func runSweep() {
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	audit := logger.NewAuditLogger(appLog)
	httpClient := exchange.NewRateLimitedHTTPClient(exchange.HTTPClientConfigFrom(&cfg.Exchange), appLog)
	resultsClient := exchange.NewResultsClient(&cfg.Exchange, httpClient, appLog)

	ingestor := ingest.NewIngestor(cfg.Results, repos.Picks, resultsClient, audit, appLog)

	summary, err := ingestor.Run(ctx, time.Now())
	if err != nil {
		appLog.WithError(err).Error("Results sweep failed")
		os.Exit(1)
	}

	fmt.Println("\n=== Results Sweep ===")
	fmt.Printf("Pending picks:   %d\n", summary.Pending)
	fmt.Printf("Settled:         %d\n", summary.Settled)
	fmt.Printf("Winners:         %d\n", summary.Winners)
	fmt.Printf("Markets skipped: %d\n", summary.MarketsSkipped)
	fmt.Printf("Market errors:   %d\n", summary.MarketErrors)

	if withRollup {
		rollup := ingest.NewRollup(repos.Picks, appLog)
		rollupSummary, err := rollup.Run(ctx, time.Now().AddDate(0, 0, -1))
		if err != nil {
			appLog.WithError(err).Error("Daily rollup failed")
			os.Exit(1)
		}
		fmt.Printf("\nRollup %s: %d picks, P/L %s\n",
			rollupSummary.BetDate, rollupSummary.Picks, rollupSummary.ProfitLoss.String())
	}
}
