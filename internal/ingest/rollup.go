package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-picks/internal/models"
	"github.com/yourusername/race-picks/internal/repository"
)

// RollupSummary aggregates one day's settled picks
type RollupSummary struct {
	BetDate    string
	Picks      int
	UIPicks    int
	Won        int
	Placed     int
	Lost       int
	Void       int
	Unsettled  int
	ProfitLoss decimal.Decimal
}

// Rollup computes end-of-day totals over a single pick partition
type Rollup struct {
	picks repository.PicksRepository
	log   *logrus.Logger
}

// NewRollup creates a daily rollup
func NewRollup(picks repository.PicksRepository, log *logrus.Logger) *Rollup {
	return &Rollup{picks: picks, log: log}
}

// Run aggregates the given date's partition and logs the totals
func (r *Rollup) Run(ctx context.Context, date time.Time) (RollupSummary, error) {
	summary := RollupSummary{BetDate: date.UTC().Format("2006-01-02")}

	records, err := r.picks.Query(ctx, summary.BetDate, nil)
	if err != nil {
		return summary, fmt.Errorf("failed to query picks for rollup: %w", err)
	}

	for _, record := range records {
		summary.Picks++
		if record.ShowInUI {
			summary.UIPicks++
		}
		switch record.GetOutcome() {
		case models.OutcomeWon:
			summary.Won++
		case models.OutcomePlaced:
			summary.Placed++
		case models.OutcomeLost:
			summary.Lost++
		case models.OutcomeVoid:
			summary.Void++
		default:
			summary.Unsettled++
		}
		if record.ProfitLoss != nil {
			summary.ProfitLoss = summary.ProfitLoss.Add(*record.ProfitLoss)
		}
	}

	r.log.WithFields(logrus.Fields{
		"bet_date":    summary.BetDate,
		"picks":       summary.Picks,
		"ui_picks":    summary.UIPicks,
		"won":         summary.Won,
		"placed":      summary.Placed,
		"lost":        summary.Lost,
		"void":        summary.Void,
		"unsettled":   summary.Unsettled,
		"profit_loss": summary.ProfitLoss.String(),
	}).Info("Daily rollup complete")

	return summary, nil
}
