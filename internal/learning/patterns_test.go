package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/race-picks/internal/models"
)

func TestComputeStatsBands(t *testing.T) {
	settledAt := time.Date(2026, time.June, 10, 17, 0, 0, 0, time.UTC)

	records := []*models.PickRecord{
		settledPick("2026-06-10", "a", "1.100", "1-211", 3.0, models.OutcomeWon, settledAt),
		settledPick("2026-06-10", "b", "1.200", "0432", 6.0, models.OutcomeLost, settledAt),
		settledPick("2026-06-10", "c", "1.300", "213", 9.0, models.OutcomeLost, settledAt),
		settledPick("2026-06-10", "d", "1.400", "0000", 12.0, models.OutcomeWon, settledAt),
	}

	stats := ComputeStats(records)

	assert.Equal(t, 4, stats.TotalRecords)
	assert.Equal(t, 2, stats.TotalWins)
	// band edges are inclusive
	assert.Equal(t, 3, stats.SweetSpotRuns)
	assert.Equal(t, 1, stats.SweetSpotWins)
	assert.Equal(t, 2, stats.OptimalRuns)
	assert.Equal(t, 1, stats.OptimalWins)
	assert.Equal(t, 1, stats.PoorFormWins)
	assert.InDelta(t, 0.5, stats.PoorFormHitRate(), 1e-9)
}

func TestComputeStatsFavoriteIsLowestOddsInMarket(t *testing.T) {
	settledAt := time.Date(2026, time.June, 10, 17, 0, 0, 0, time.UTC)

	records := []*models.PickRecord{
		settledPick("2026-06-10", "fav", "1.100", "1-211", 2.5, models.OutcomeWon, settledAt),
		settledPick("2026-06-10", "second", "1.100", "0432", 4.0, models.OutcomeLost, settledAt),
		settledPick("2026-06-10", "outsider", "1.100", "213", 9.0, models.OutcomeLost, settledAt),
		settledPick("2026-06-10", "other-fav", "1.200", "312", 3.0, models.OutcomeLost, settledAt),
		settledPick("2026-06-10", "other-long", "1.200", "0009", 8.0, models.OutcomeWon, settledAt),
	}

	stats := ComputeStats(records)

	assert.Equal(t, 2, stats.FavoriteRuns)
	assert.Equal(t, 1, stats.FavoriteWins)
	assert.InDelta(t, 0.5, stats.FavoriteWinRate(), 1e-9)
}

func TestComputeStatsTrainerWindows(t *testing.T) {
	settledAt := time.Date(2026, time.June, 10, 17, 0, 0, 0, time.UTC)

	winner := settledPick("2026-06-10", "a", "1.100", "1-211", 4.0, models.OutcomeWon, settledAt)
	winner.Trainer = "W P Mullins"
	alsoWinner := settledPick("2026-06-10", "b", "1.200", "121", 5.0, models.OutcomeWon, settledAt)
	alsoWinner.Trainer = "W P Mullins"
	loser := settledPick("2026-06-10", "c", "1.300", "0432", 6.0, models.OutcomeLost, settledAt)
	loser.Trainer = "B Ellison"

	stats := ComputeStats([]*models.PickRecord{winner, alsoWinner, loser})

	assert.Equal(t, TrainerWindow{Wins: 2, Losses: 0}, stats.Trainers["W P Mullins"])
	assert.Equal(t, TrainerWindow{Wins: 0, Losses: 1}, stats.Trainers["B Ellison"])

	elite := map[string]bool{"W P Mullins": true}
	// elite rate 1.0 against an overall rate of 2/3
	assert.InDelta(t, 1.0/3.0, stats.EliteTrainerLift(elite), 1e-9)
}

func TestStatsRatesWithEmptyWindow(t *testing.T) {
	stats := ComputeStats(nil)

	assert.Zero(t, stats.SweetSpotHitRate())
	assert.Zero(t, stats.OptimalHitRate())
	assert.Zero(t, stats.PoorFormHitRate())
	assert.Zero(t, stats.FavoriteWinRate())
	assert.Zero(t, stats.EliteTrainerLift(nil))
}
