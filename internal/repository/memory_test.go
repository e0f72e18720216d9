package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/race-picks/internal/models"
)

func testPick(betDate, betID, marketID string, raceTime time.Time) *models.PickRecord {
	return &models.PickRecord{
		BetDate:            betDate,
		BetID:              betID,
		Horse:              "Steady Eddie",
		Course:             "Ascot",
		RaceTime:           raceTime,
		Odds:               decimal.NewFromFloat(4.0),
		SelectionID:        "sel-1",
		MarketID:           marketID,
		Form:               "1-211",
		CombinedConfidence: 80,
		ConfidenceGrade:    models.GradeExcellent,
		BetType:            models.BetTypeWin,
		CreatedAt:          raceTime.Add(-2 * time.Hour),
	}
}

func TestPutPreservesSettlementOnUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPicksRepository()
	raceTime := time.Date(2026, 6, 10, 14, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, testPick("2026-06-10", "1430-ascot-steady-eddie", "1.234", raceTime)))

	pl := decimal.NewFromFloat(30.0)
	pos := 1
	require.NoError(t, repo.SetOutcome(ctx, "2026-06-10", "1430-ascot-steady-eddie", OutcomeUpdate{
		Outcome:        models.OutcomeWon,
		ActualPosition: &pos,
		ProfitLoss:     &pl,
		UpdatedAt:      raceTime.Add(time.Hour),
	}))

	// A later cycle re-stores the same pick with a drifted price. The
	// settlement fields written by the results sweep must survive.
	updated := testPick("2026-06-10", "1430-ascot-steady-eddie", "1.234", raceTime)
	updated.Odds = decimal.NewFromFloat(4.5)
	require.NoError(t, repo.Put(ctx, updated))

	got, err := repo.GetByKey(ctx, "2026-06-10", "1430-ascot-steady-eddie")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWon, got.GetOutcome())
	assert.True(t, got.GetProfitLoss().Equal(pl))
	require.NotNil(t, got.ActualPosition)
	assert.Equal(t, 1, *got.ActualPosition)
	assert.True(t, got.Odds.Equal(decimal.NewFromFloat(4.5)))
}

func TestSetOutcomeErrors(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPicksRepository()
	raceTime := time.Date(2026, 6, 10, 14, 30, 0, 0, time.UTC)

	err := repo.SetOutcome(ctx, "2026-06-10", "missing", OutcomeUpdate{Outcome: models.OutcomeLost, UpdatedAt: raceTime})
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, repo.Put(ctx, testPick("2026-06-10", "1430-ascot-steady-eddie", "1.234", raceTime)))
	require.NoError(t, repo.SetOutcome(ctx, "2026-06-10", "1430-ascot-steady-eddie", OutcomeUpdate{
		Outcome:   models.OutcomeLost,
		UpdatedAt: raceTime.Add(time.Hour),
	}))

	err = repo.SetOutcome(ctx, "2026-06-10", "1430-ascot-steady-eddie", OutcomeUpdate{
		Outcome:   models.OutcomeWon,
		UpdatedAt: raceTime.Add(2 * time.Hour),
	})
	assert.ErrorIs(t, err, models.ErrOutcomeAlreadySet)
}

func TestSetOutcomeOverwritesError(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPicksRepository()
	raceTime := time.Date(2026, 6, 10, 14, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, testPick("2026-06-10", "1430-ascot-steady-eddie", "1.234", raceTime)))
	require.NoError(t, repo.SetOutcome(ctx, "2026-06-10", "1430-ascot-steady-eddie", OutcomeUpdate{
		Outcome:   models.OutcomeError,
		UpdatedAt: raceTime.Add(time.Hour),
	}))

	// ERROR is not final; a later sweep may settle the pick properly.
	pl := decimal.NewFromFloat(-10.0)
	require.NoError(t, repo.SetOutcome(ctx, "2026-06-10", "1430-ascot-steady-eddie", OutcomeUpdate{
		Outcome:    models.OutcomeLost,
		ProfitLoss: &pl,
		UpdatedAt:  raceTime.Add(2 * time.Hour),
	}))

	got, err := repo.GetByKey(ctx, "2026-06-10", "1430-ascot-steady-eddie")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeLost, got.GetOutcome())
	assert.False(t, got.IsPending())
}

func TestGetPendingHonorsCutoffAndSettlement(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPicksRepository()
	now := time.Date(2026, 6, 10, 16, 0, 0, 0, time.UTC)

	early := testPick("2026-06-10", "1330-ascot-a", "1.1", now.Add(-2*time.Hour))
	late := testPick("2026-06-10", "1700-ascot-b", "1.2", now.Add(time.Hour))
	settled := testPick("2026-06-10", "1300-ascot-c", "1.3", now.Add(-3*time.Hour))
	yesterday := testPick("2026-06-09", "1400-york-d", "1.4", now.Add(-26*time.Hour))
	require.NoError(t, repo.PutBatch(ctx, []*models.PickRecord{early, late, settled, yesterday}))
	require.NoError(t, repo.SetOutcome(ctx, "2026-06-10", "1300-ascot-c", OutcomeUpdate{
		Outcome:   models.OutcomeLost,
		UpdatedAt: now,
	}))

	pending, err := repo.GetPending(ctx, []string{"2026-06-09", "2026-06-10"}, now.Add(-10*time.Minute))
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// Oldest race first.
	assert.Equal(t, "1400-york-d", pending[0].BetID)
	assert.Equal(t, "1330-ascot-a", pending[1].BetID)
}

func TestScanExcludesJournalPartition(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPicksRepository()
	raceTime := time.Date(2026, 6, 10, 14, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, testPick("2026-06-10", "1430-ascot-steady-eddie", "1.234", raceTime)))
	journalRow := testPick(models.JournalPartition, "20260610T150000Z-abc", "", raceTime)
	require.NoError(t, repo.Put(ctx, journalRow))

	records, err := repo.Scan(ctx, "2026-01-01", "ZZZZ", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2026-06-10", records[0].BetDate)
}

func TestCountUIPicksScopedToMarket(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPicksRepository()
	raceTime := time.Date(2026, 6, 10, 14, 30, 0, 0, time.UTC)

	uiPick := testPick("2026-06-10", "1430-ascot-a", "1.1", raceTime)
	uiPick.ShowInUI = true
	learning := testPick("2026-06-10", "1430-ascot-b", "1.1", raceTime)
	learning.IsLearningPick = true
	otherMarket := testPick("2026-06-10", "1500-ascot-c", "1.2", raceTime.Add(30*time.Minute))
	otherMarket.ShowInUI = true
	require.NoError(t, repo.PutBatch(ctx, []*models.PickRecord{uiPick, learning, otherMarket}))

	count, err := repo.CountUIPicks(ctx, "2026-06-10", "1.1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClearUIPicksDemotesStaleHolder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPicksRepository()
	raceTime := time.Date(2026, 6, 10, 14, 30, 0, 0, time.UTC)

	stale := testPick("2026-06-10", "1430-ascot-a", "1.1", raceTime)
	stale.ShowInUI = true
	fresh := testPick("2026-06-10", "1430-ascot-b", "1.1", raceTime)
	fresh.ShowInUI = true
	otherMarket := testPick("2026-06-10", "1500-ascot-c", "1.2", raceTime.Add(30*time.Minute))
	otherMarket.ShowInUI = true
	require.NoError(t, repo.PutBatch(ctx, []*models.PickRecord{stale, fresh, otherMarket}))

	require.NoError(t, repo.ClearUIPicks(ctx, "2026-06-10", "1.1", "1430-ascot-b"))

	got, err := repo.GetByKey(ctx, "2026-06-10", "1430-ascot-a")
	require.NoError(t, err)
	assert.False(t, got.ShowInUI)
	assert.True(t, got.IsLearningPick)

	got, err = repo.GetByKey(ctx, "2026-06-10", "1430-ascot-b")
	require.NoError(t, err)
	assert.True(t, got.ShowInUI)

	// other markets are untouched
	got, err = repo.GetByKey(ctx, "2026-06-10", "1500-ascot-c")
	require.NoError(t, err)
	assert.True(t, got.ShowInUI)
}

func TestWeightsSeedAndCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryWeightsRepository()

	current, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultWeights().Version, current.Version)

	next := current.Copy()
	next.Values[models.WeightSweetSpot] = 28
	next = next.WithVersion(time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC))

	require.NoError(t, repo.CompareAndSwap(ctx, current.Version, next))

	err = repo.CompareAndSwap(ctx, current.Version, next)
	assert.ErrorIs(t, err, models.ErrVersionConflict)

	stored, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 28.0, stored.Get(models.WeightSweetSpot))
	assert.Equal(t, next.Version, stored.Version)
}

func TestRecentLearningOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJournalRepository()
	base := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		entry := models.NewLearningJournalEntry(models.LearningTypeValidation, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.AppendLearning(ctx, entry))
	}

	entries, err := repo.RecentLearning(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, base.Add(4*time.Hour), entries[0].Timestamp)
	assert.Equal(t, base.Add(2*time.Hour), entries[2].Timestamp)
}
