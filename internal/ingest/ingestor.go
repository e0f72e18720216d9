// Package ingest joins pending picks to settled markets and records outcomes.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-picks/internal/config"
	"github.com/yourusername/race-picks/internal/exchange"
	"github.com/yourusername/race-picks/internal/logger"
	"github.com/yourusername/race-picks/internal/metrics"
	"github.com/yourusername/race-picks/internal/models"
	"github.com/yourusername/race-picks/internal/repository"
)

// ResultsFetcher is the external collaborator providing settled runner status
type ResultsFetcher interface {
	FetchMarketResult(ctx context.Context, marketID string) (*exchange.MarketResult, error)
}

// Summary reports what one ingestion run did
type Summary struct {
	Pending        int
	Settled        int
	Winners        int
	MarketsSkipped int
	MarketErrors   int
}

// Ingestor settles pending picks from fetched market results
type Ingestor struct {
	cfg     config.ResultsConfig
	picks   repository.PicksRepository
	fetcher ResultsFetcher
	audit   *logger.AuditLogger
	log     *logrus.Logger
}

// NewIngestor creates a results ingestor
func NewIngestor(
	cfg config.ResultsConfig,
	picks repository.PicksRepository,
	fetcher ResultsFetcher,
	audit *logger.AuditLogger,
	log *logrus.Logger,
) *Ingestor {
	return &Ingestor{cfg: cfg, picks: picks, fetcher: fetcher, audit: audit, log: log}
}

// marketFetch is the result of fetching one market's settled state
type marketFetch struct {
	marketID string
	result   *exchange.MarketResult
	err      error
}

// Run settles every pending pick whose race finished before the settlement
// delay. Markets are fetched in bounded concurrent batches; a failing market
// never blocks the rest.
func (in *Ingestor) Run(ctx context.Context, now time.Time) (Summary, error) {
	summary := Summary{}

	pending, err := in.picks.GetPending(ctx, in.lookbackDates(now), now.Add(-in.settlementDelay()))
	if err != nil {
		return summary, fmt.Errorf("failed to load pending picks: %w", err)
	}
	summary.Pending = len(pending)
	metrics.PendingPicks.Set(float64(len(pending)))
	if len(pending) == 0 {
		return summary, nil
	}

	byMarket := groupByMarket(pending)
	fetches := in.fetchMarkets(ctx, marketIDs(byMarket))

	for _, fetch := range fetches {
		picks := byMarket[fetch.marketID]
		switch {
		case fetch.err != nil && exchange.IsTransient(fetch.err):
			in.log.WithError(fetch.err).WithField("market_id", fetch.marketID).
				Warn("Transient results failure, retrying next cycle")
			summary.MarketsSkipped++
		case fetch.err != nil:
			in.recordMarketError(ctx, picks, fetch.err, now)
			summary.MarketErrors++
		case !fetch.result.IsSettled():
			in.log.WithFields(logrus.Fields{
				"market_id":     fetch.marketID,
				"market_status": fetch.result.MarketStatus,
			}).Debug("Market not closed yet, skipping")
			summary.MarketsSkipped++
		default:
			settled, winners := in.settleMarket(ctx, picks, fetch.result, now)
			summary.Settled += settled
			summary.Winners += winners
		}
	}

	return summary, nil
}

// fetchMarkets retrieves market results with at most cfg.BatchSize in flight
func (in *Ingestor) fetchMarkets(ctx context.Context, ids []string) []marketFetch {
	fetches := make([]marketFetch, len(ids))
	sem := make(chan struct{}, in.cfg.BatchSize)
	var wg sync.WaitGroup

	for i, marketID := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, marketID string) {
			defer wg.Done()
			defer func() { <-sem }()
			result, err := in.fetcher.FetchMarketResult(ctx, marketID)
			fetches[i] = marketFetch{marketID: marketID, result: result, err: err}
		}(i, marketID)
	}
	wg.Wait()

	return fetches
}

// settleMarket maps runner statuses onto outcomes and persists them
func (in *Ingestor) settleMarket(ctx context.Context, picks []*models.PickRecord, result *exchange.MarketResult, now time.Time) (int, int) {
	settled, winners := 0, 0

	for _, pick := range picks {
		status, ok := result.Runners[pick.SelectionID]
		if !ok || status == exchange.RunnerResultActive {
			continue
		}

		update, ok := in.mapOutcome(pick, status, now)
		if !ok {
			continue
		}

		err := in.picks.SetOutcome(ctx, pick.BetDate, pick.BetID, update)
		switch err {
		case nil:
			settled++
			if update.Outcome == models.OutcomeWon {
				winners++
			}
			metrics.RecordOutcome(string(update.Outcome))
			in.audit.LogOutcomeSettled(pick.BetDate, pick.BetID, pick.MarketID,
				string(update.Outcome), positionOrZero(update.ActualPosition), profitLossString(update.ProfitLoss))
		case models.ErrOutcomeAlreadySet:
			// another ingestor got there first
		default:
			in.log.WithError(err).WithFields(logrus.Fields{
				"bet_date": pick.BetDate,
				"bet_id":   pick.BetID,
			}).Error("Failed to persist outcome")
		}
	}

	return settled, winners
}

// mapOutcome converts a settled runner status into the stored outcome fields
func (in *Ingestor) mapOutcome(pick *models.PickRecord, status exchange.RunnerResult, now time.Time) (repository.OutcomeUpdate, bool) {
	stake := decimal.NewFromFloat(in.cfg.Stake)
	oddsMinusOne := pick.Odds.Sub(decimal.NewFromInt(1))

	update := repository.OutcomeUpdate{UpdatedAt: now}
	switch status {
	case exchange.RunnerResultWinner:
		update.Outcome = models.OutcomeWon
		position := 1
		update.ActualPosition = &position
		pl := stake.Mul(oddsMinusOne)
		update.ProfitLoss = &pl
	case exchange.RunnerResultPlaced:
		if pick.BetType == models.BetTypeEachWay {
			update.Outcome = models.OutcomePlaced
			pl := stake.Mul(oddsMinusOne).Mul(decimal.NewFromFloat(in.cfg.EWFraction))
			update.ProfitLoss = &pl
		} else {
			// placings are not wins for win-only bets
			update.Outcome = models.OutcomeLost
			pl := stake.Neg()
			update.ProfitLoss = &pl
		}
	case exchange.RunnerResultLoser:
		update.Outcome = models.OutcomeLost
		pl := stake.Neg()
		update.ProfitLoss = &pl
	case exchange.RunnerResultRemoved:
		update.Outcome = models.OutcomeVoid
		pl := decimal.Zero
		update.ProfitLoss = &pl
	default:
		return repository.OutcomeUpdate{}, false
	}

	return update, true
}

// recordMarketError marks every pick of a failed market with an ERROR outcome
// so later cycles retry it. The cause is stored on the row so broken markets
// can be told apart when triaging.
func (in *Ingestor) recordMarketError(ctx context.Context, picks []*models.PickRecord, cause error, now time.Time) {
	in.log.WithError(cause).WithField("picks", len(picks)).Error("Persistent results failure, recording error outcome")

	note := cause.Error()
	for _, pick := range picks {
		update := repository.OutcomeUpdate{Outcome: models.OutcomeError, Note: &note, UpdatedAt: now}
		if err := in.picks.SetOutcome(ctx, pick.BetDate, pick.BetID, update); err != nil &&
			err != models.ErrOutcomeAlreadySet {
			in.log.WithError(err).WithField("bet_id", pick.BetID).Error("Failed to record error outcome")
		}
	}
}

func (in *Ingestor) settlementDelay() time.Duration {
	return time.Duration(in.cfg.SettlementDelayMinutes) * time.Minute
}

// lookbackDates returns today's and the previous lookback days' partitions
func (in *Ingestor) lookbackDates(now time.Time) []string {
	dates := make([]string, 0, in.cfg.LookbackDays+1)
	for i := 0; i <= in.cfg.LookbackDays; i++ {
		dates = append(dates, now.UTC().AddDate(0, 0, -i).Format("2006-01-02"))
	}
	return dates
}

func groupByMarket(picks []*models.PickRecord) map[string][]*models.PickRecord {
	byMarket := make(map[string][]*models.PickRecord)
	for _, pick := range picks {
		byMarket[pick.MarketID] = append(byMarket[pick.MarketID], pick)
	}
	return byMarket
}

func marketIDs(byMarket map[string][]*models.PickRecord) []string {
	ids := make([]string, 0, len(byMarket))
	for id := range byMarket {
		ids = append(ids, id)
	}
	return ids
}

func positionOrZero(position *int) int {
	if position == nil {
		return 0
	}
	return *position
}

func profitLossString(pl *decimal.Decimal) string {
	if pl == nil {
		return ""
	}
	return pl.String()
}
