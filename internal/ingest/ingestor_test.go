package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/race-picks/internal/config"
	"github.com/yourusername/race-picks/internal/exchange"
	"github.com/yourusername/race-picks/internal/logger"
	"github.com/yourusername/race-picks/internal/models"
	"github.com/yourusername/race-picks/internal/repository"
)

type fakeResultsFetcher struct {
	results map[string]*exchange.MarketResult
	errs    map[string]error
	calls   int
}

func (f *fakeResultsFetcher) FetchMarketResult(_ context.Context, marketID string) (*exchange.MarketResult, error) {
	f.calls++
	if err, ok := f.errs[marketID]; ok {
		return nil, err
	}
	result, ok := f.results[marketID]
	if !ok {
		return nil, exchange.NewPermanentError("unknown market", 404, nil)
	}
	return result, nil
}

func testResultsConfig() config.ResultsConfig {
	return config.ResultsConfig{
		SettlementDelayMinutes: 15,
		LookbackDays:           2,
		BatchSize:              10,
		Stake:                  10.0,
		EWFraction:             0.2,
		PlacesPaid:             3,
	}
}

func newTestIngestor(picks repository.PicksRepository, fetcher ResultsFetcher) *Ingestor {
	log := logger.NewLogger("error")
	return NewIngestor(testResultsConfig(), picks, fetcher, logger.NewAuditLogger(log), log)
}

func pendingPick(betDate, betID, marketID, selectionID string, odds float64, raceTime time.Time) *models.PickRecord {
	return &models.PickRecord{
		BetDate:     betDate,
		BetID:       betID,
		Horse:       betID,
		Course:      "Ascot",
		RaceTime:    raceTime,
		Odds:        decimal.NewFromFloat(odds),
		SelectionID: selectionID,
		MarketID:    marketID,
		Form:        "1-211",
		BetType:     models.BetTypeWin,
		CreatedAt:   raceTime.Add(-time.Hour),
	}
}

func TestRunSettlesClosedMarket(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	now := time.Date(2026, time.June, 10, 16, 0, 0, 0, time.UTC)
	raceTime := now.Add(-time.Hour)
	betDate := "2026-06-10"

	require.NoError(t, picks.Put(context.Background(), pendingPick(betDate, "winner", "1.100", "1001", 4.0, raceTime)))
	require.NoError(t, picks.Put(context.Background(), pendingPick(betDate, "loser", "1.100", "1002", 6.0, raceTime)))
	require.NoError(t, picks.Put(context.Background(), pendingPick(betDate, "removed", "1.100", "1003", 8.0, raceTime)))

	fetcher := &fakeResultsFetcher{results: map[string]*exchange.MarketResult{
		"1.100": {
			MarketID:     "1.100",
			MarketStatus: exchange.MarketStatusClosed,
			Runners: map[string]exchange.RunnerResult{
				"1001": exchange.RunnerResultWinner,
				"1002": exchange.RunnerResultLoser,
				"1003": exchange.RunnerResultRemoved,
			},
		},
	}}

	summary, err := newTestIngestor(picks, fetcher).Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Pending)
	assert.Equal(t, 3, summary.Settled)
	assert.Equal(t, 1, summary.Winners)

	winner, err := picks.GetByKey(context.Background(), betDate, "winner")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWon, winner.GetOutcome())
	require.NotNil(t, winner.ActualPosition)
	assert.Equal(t, 1, *winner.ActualPosition)
	// 10 * (4.0 - 1)
	assert.True(t, winner.ProfitLoss.Equal(decimal.NewFromInt(30)), winner.ProfitLoss.String())

	loser, err := picks.GetByKey(context.Background(), betDate, "loser")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeLost, loser.GetOutcome())
	assert.True(t, loser.ProfitLoss.Equal(decimal.NewFromInt(-10)))

	removed, err := picks.GetByKey(context.Background(), betDate, "removed")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeVoid, removed.GetOutcome())
	assert.True(t, removed.ProfitLoss.IsZero())
}

func TestRunPlacedOutcomeDependsOnBetType(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	now := time.Date(2026, time.June, 10, 16, 0, 0, 0, time.UTC)
	raceTime := now.Add(-time.Hour)
	betDate := "2026-06-10"

	winOnly := pendingPick(betDate, "win-only", "1.200", "1001", 6.0, raceTime)
	eachWay := pendingPick(betDate, "each-way", "1.200", "1002", 6.0, raceTime)
	eachWay.BetType = models.BetTypeEachWay
	require.NoError(t, picks.Put(context.Background(), winOnly))
	require.NoError(t, picks.Put(context.Background(), eachWay))

	fetcher := &fakeResultsFetcher{results: map[string]*exchange.MarketResult{
		"1.200": {
			MarketID:     "1.200",
			MarketStatus: exchange.MarketStatusClosed,
			Runners: map[string]exchange.RunnerResult{
				"1001": exchange.RunnerResultPlaced,
				"1002": exchange.RunnerResultPlaced,
			},
		},
	}}

	_, err := newTestIngestor(picks, fetcher).Run(context.Background(), now)
	require.NoError(t, err)

	got, err := picks.GetByKey(context.Background(), betDate, "win-only")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeLost, got.GetOutcome())
	assert.True(t, got.ProfitLoss.Equal(decimal.NewFromInt(-10)))

	got, err = picks.GetByKey(context.Background(), betDate, "each-way")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePlaced, got.GetOutcome())
	// 10 * (6.0 - 1) * 0.2
	assert.True(t, got.ProfitLoss.Equal(decimal.NewFromInt(10)), got.ProfitLoss.String())
}

func TestRunSkipsOpenMarkets(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	now := time.Date(2026, time.June, 10, 16, 0, 0, 0, time.UTC)
	raceTime := now.Add(-time.Hour)

	require.NoError(t, picks.Put(context.Background(), pendingPick("2026-06-10", "pending", "1.300", "1001", 4.0, raceTime)))

	fetcher := &fakeResultsFetcher{results: map[string]*exchange.MarketResult{
		"1.300": {
			MarketID:     "1.300",
			MarketStatus: exchange.MarketStatusSuspended,
			Runners:      map[string]exchange.RunnerResult{"1001": exchange.RunnerResultWinner},
		},
	}}

	summary, err := newTestIngestor(picks, fetcher).Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MarketsSkipped)
	assert.Equal(t, 0, summary.Settled)

	got, err := picks.GetByKey(context.Background(), "2026-06-10", "pending")
	require.NoError(t, err)
	assert.True(t, got.IsPending())
}

func TestRunHonorsSettlementDelay(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	now := time.Date(2026, time.June, 10, 16, 0, 0, 0, time.UTC)

	// race finished 5 minutes ago, within the 15 minute delay
	require.NoError(t, picks.Put(context.Background(),
		pendingPick("2026-06-10", "too-fresh", "1.400", "1001", 4.0, now.Add(-5*time.Minute))))

	fetcher := &fakeResultsFetcher{}
	summary, err := newTestIngestor(picks, fetcher).Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Pending)
	assert.Equal(t, 0, fetcher.calls)
}

func TestRunTransientErrorLeavesPicksPending(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	now := time.Date(2026, time.June, 10, 16, 0, 0, 0, time.UTC)
	raceTime := now.Add(-time.Hour)

	require.NoError(t, picks.Put(context.Background(), pendingPick("2026-06-10", "retry-me", "1.500", "1001", 4.0, raceTime)))

	fetcher := &fakeResultsFetcher{errs: map[string]error{
		"1.500": exchange.NewTransientError("results fetch", nil),
	}}

	summary, err := newTestIngestor(picks, fetcher).Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MarketsSkipped)
	got, err := picks.GetByKey(context.Background(), "2026-06-10", "retry-me")
	require.NoError(t, err)
	assert.True(t, got.IsPending())
}

func TestRunPermanentErrorRecordsErrorOutcome(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	now := time.Date(2026, time.June, 10, 16, 0, 0, 0, time.UTC)
	raceTime := now.Add(-time.Hour)

	require.NoError(t, picks.Put(context.Background(), pendingPick("2026-06-10", "broken", "1.600", "1001", 4.0, raceTime)))

	fetcher := &fakeResultsFetcher{errs: map[string]error{
		"1.600": exchange.NewPermanentError("market not found", 404, nil),
	}}

	ingestor := newTestIngestor(picks, fetcher)
	summary, err := ingestor.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MarketErrors)
	got, err := picks.GetByKey(context.Background(), "2026-06-10", "broken")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeError, got.GetOutcome())
	require.NotNil(t, got.ResultNote)
	assert.Contains(t, *got.ResultNote, "market not found")
	// ERROR is not final: later sweeps pick the record up again
	assert.True(t, got.IsPending())

	// the market recovers on a later sweep; the note clears with the outcome
	fetcher.errs = nil
	fetcher.results = map[string]*exchange.MarketResult{
		"1.600": {
			MarketID:     "1.600",
			MarketStatus: exchange.MarketStatusClosed,
			Runners:      map[string]exchange.RunnerResult{"1001": exchange.RunnerResultWinner},
		},
	}
	_, err = ingestor.Run(context.Background(), now)
	require.NoError(t, err)

	got, err = picks.GetByKey(context.Background(), "2026-06-10", "broken")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWon, got.GetOutcome())
	assert.Nil(t, got.ResultNote)
}

func TestRunNeverOverwritesSettledOutcome(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	now := time.Date(2026, time.June, 10, 16, 0, 0, 0, time.UTC)
	raceTime := now.Add(-time.Hour)
	betDate := "2026-06-10"

	require.NoError(t, picks.Put(context.Background(), pendingPick(betDate, "settled-once", "1.700", "1001", 4.0, raceTime)))

	fetcher := &fakeResultsFetcher{results: map[string]*exchange.MarketResult{
		"1.700": {
			MarketID:     "1.700",
			MarketStatus: exchange.MarketStatusClosed,
			Runners:      map[string]exchange.RunnerResult{"1001": exchange.RunnerResultWinner},
		},
	}}

	ingestor := newTestIngestor(picks, fetcher)
	_, err := ingestor.Run(context.Background(), now)
	require.NoError(t, err)

	// flip the fake to a contradictory result; the stored outcome must hold
	fetcher.results["1.700"].Runners["1001"] = exchange.RunnerResultLoser
	summary, err := ingestor.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Pending)

	got, err := picks.GetByKey(context.Background(), betDate, "settled-once")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWon, got.GetOutcome())
}
