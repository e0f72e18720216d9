package selector

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/race-picks/internal/config"
	"github.com/yourusername/race-picks/internal/logger"
	"github.com/yourusername/race-picks/internal/models"
	"github.com/yourusername/race-picks/internal/repository"
	"github.com/yourusername/race-picks/internal/scoring"
)

func testConfig() config.SelectorConfig {
	return config.SelectorConfig{
		UIThreshold:        75,
		CoverageRatio:      0.75,
		SmallFieldCoverage: 0.90,
		SmallFieldSize:     5,
	}
}

func newTestSelector(picks repository.PicksRepository) *Selector {
	log := logger.NewLogger("error")
	scorer := scoring.NewScorer(nil, nil)
	return NewSelector(testConfig(), scorer, picks, logger.NewAuditLogger(log), log)
}

func activeRunner(name, selectionID, form string, odds float64) *models.Runner {
	return &models.Runner{
		Name:        name,
		SelectionID: selectionID,
		Odds:        decimal.NewFromFloat(odds),
		Form:        form,
		Status:      models.RunnerStatusActive,
	}
}

func raceAt(marketID, venue string, start time.Time, runners ...*models.Runner) *models.RaceContext {
	return &models.RaceContext{
		MarketID:  marketID,
		Venue:     venue,
		StartTime: start,
		FieldSize: len(runners),
		Runners:   runners,
	}
}

func TestRunWritesOneUIPickPerRace(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	sel := newTestSelector(picks)
	now := time.Date(2026, time.June, 10, 13, 0, 0, 0, time.UTC)
	start := now.Add(90 * time.Minute)

	race := raceAt("1.100", "Ascot", start,
		activeRunner("Front Runner", "1001", "1-211", 3.5),
		activeRunner("Mid Pack", "1002", "0432", 7.0),
		activeRunner("Tailender", "1003", "0009", 21.0),
	)

	summary, err := sel.Run(context.Background(), []*models.RaceContext{race}, models.DefaultWeights(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.RacesProcessed)
	assert.Equal(t, 3, summary.HorsesStored)
	assert.Equal(t, 1, summary.UIPicks)

	stored, err := picks.Query(context.Background(), race.BetDate(), nil)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	uiCount := 0
	for _, record := range stored {
		if record.ShowInUI {
			uiCount++
			assert.Equal(t, "Front Runner", record.Horse)
			assert.False(t, record.IsLearningPick)
			assert.GreaterOrEqual(t, record.CombinedConfidence, 75.0)
		} else {
			assert.True(t, record.IsLearningPick)
		}
	}
	assert.Equal(t, 1, uiCount)
}

func TestRunIsIdempotent(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	sel := newTestSelector(picks)
	now := time.Date(2026, time.June, 10, 13, 0, 0, 0, time.UTC)

	race := raceAt("1.100", "Ascot", now.Add(time.Hour),
		activeRunner("Front Runner", "1001", "1-211", 3.5),
		activeRunner("Mid Pack", "1002", "0432", 7.0),
	)

	for i := 0; i < 3; i++ {
		_, err := sel.Run(context.Background(), []*models.RaceContext{race}, models.DefaultWeights(), now)
		require.NoError(t, err)
	}

	stored, err := picks.Query(context.Background(), race.BetDate(), nil)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	count, err := picks.CountUIPicks(context.Background(), race.BetDate(), race.MarketID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunCoverageFailureWritesOnlyLearningRows(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	sel := newTestSelector(picks)
	now := time.Date(2026, time.June, 10, 13, 0, 0, 0, time.UTC)

	// 5 scoreable of 8 declared is 62.5%, below the 75% gate
	runners := []*models.Runner{
		activeRunner("Alpha", "1001", "1-211", 3.5),
		activeRunner("Bravo", "1002", "0432", 7.0),
		activeRunner("Charlie", "1003", "213", 5.0),
		activeRunner("Delta", "1004", "0009", 15.0),
		activeRunner("Echo", "1005", "321", 4.0),
	}
	race := raceAt("1.200", "Kempton", now.Add(time.Hour), runners...)
	race.FieldSize = 8

	summary, err := sel.Run(context.Background(), []*models.RaceContext{race}, models.DefaultWeights(), now)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.UIPicks)
	assert.Equal(t, 1, summary.CoverageFailures)

	stored, err := picks.Query(context.Background(), race.BetDate(), nil)
	require.NoError(t, err)
	require.Len(t, stored, 5)
	for _, record := range stored {
		assert.False(t, record.ShowInUI)
		assert.True(t, record.IsLearningPick)
	}
}

func TestRunSmallFieldNeedsHigherCoverage(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	sel := newTestSelector(picks)
	now := time.Date(2026, time.June, 10, 13, 0, 0, 0, time.UTC)

	// 4 of 5 runners is 80%: enough for a big field, not for a small one
	race := raceAt("1.300", "Ludlow", now.Add(time.Hour),
		activeRunner("Alpha", "1001", "1-211", 3.5),
		activeRunner("Bravo", "1002", "0432", 7.0),
		activeRunner("Charlie", "1003", "213", 5.0),
		activeRunner("Delta", "1004", "0009", 15.0),
	)
	race.FieldSize = 5

	summary, err := sel.Run(context.Background(), []*models.RaceContext{race}, models.DefaultWeights(), now)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.UIPicks)
	assert.Equal(t, 1, summary.CoverageFailures)
}

func TestRunNoPickBelowThreshold(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	sel := newTestSelector(picks)
	now := time.Date(2026, time.June, 10, 13, 0, 0, 0, time.UTC)

	race := raceAt("1.400", "Bath", now.Add(time.Hour),
		activeRunner("Modest", "1001", "0432", 7.0),
		activeRunner("Humble", "1002", "0876", 8.0),
	)

	summary, err := sel.Run(context.Background(), []*models.RaceContext{race}, models.DefaultWeights(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.RacesProcessed)
	assert.Equal(t, 0, summary.UIPicks)
	assert.Equal(t, 2, summary.HorsesStored)
}

func TestChoosePickTieBreaks(t *testing.T) {
	sel := newTestSelector(repository.NewMemoryPicksRepository())

	// identical form, different odds inside the optimal band
	a := activeRunner("Lower Odds", "1002", "1-211", 3.5)
	b := activeRunner("Higher Odds", "1001", "1-211", 4.5)
	scored := []scoredRunner{
		{runner: b, result: scoring.Result{Score: 92, Grade: models.GradeExcellent}},
		{runner: a, result: scoring.Result{Score: 92, Grade: models.GradeExcellent}},
	}

	pick := sel.choosePick(scored)
	require.NotNil(t, pick)
	assert.Equal(t, "Lower Odds", pick.runner.Name)

	// equal odds fall through to selection_id
	c := activeRunner("Lower ID", "1000", "1-211", 3.5)
	scored = []scoredRunner{
		{runner: a, result: scoring.Result{Score: 92, Grade: models.GradeExcellent}},
		{runner: c, result: scoring.Result{Score: 92, Grade: models.GradeExcellent}},
	}
	pick = sel.choosePick(scored)
	require.NotNil(t, pick)
	assert.Equal(t, "Lower ID", pick.runner.Name)
}

func TestRunWithEachWayWritesEachWayRecords(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	sel := newTestSelector(picks).WithEachWay()
	now := time.Date(2026, time.June, 10, 13, 0, 0, 0, time.UTC)

	race := raceAt("1.100", "Ascot", now.Add(time.Hour),
		activeRunner("Front Runner", "1001", "1-211", 3.5),
		activeRunner("Mid Pack", "1002", "0432", 7.0),
	)

	_, err := sel.Run(context.Background(), []*models.RaceContext{race}, models.DefaultWeights(), now)
	require.NoError(t, err)

	stored, err := picks.Query(context.Background(), race.BetDate(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	for _, record := range stored {
		assert.Equal(t, models.BetTypeEachWay, record.BetType)
	}
}

func TestRunSkipsMalformedRaces(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	sel := newTestSelector(picks)
	now := time.Date(2026, time.June, 10, 13, 0, 0, 0, time.UTC)

	races := []*models.RaceContext{
		nil,
		{MarketID: "1.500", Venue: "", StartTime: now, Runners: []*models.Runner{activeRunner("A", "1", "1", 3.0)}},
		raceAt("1.600", "Ripon", now.Add(time.Hour), activeRunner("Valid", "1001", "1-211", 3.5)),
	}

	summary, err := sel.Run(context.Background(), races, models.DefaultWeights(), now)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.RacesSkipped)
	assert.Equal(t, 1, summary.RacesProcessed)
}

func TestRunReRunMovesUIPick(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	sel := newTestSelector(picks)
	now := time.Date(2026, time.June, 10, 13, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)

	first := raceAt("1.700", "Newbury", start,
		activeRunner("Original Pick", "1001", "1-211", 3.5),
		activeRunner("Challenger", "1002", "0432", 7.0),
	)
	_, err := sel.Run(context.Background(), []*models.RaceContext{first}, models.DefaultWeights(), now)
	require.NoError(t, err)

	// odds drift leaves the original outside the bands; the challenger's
	// form improves in the refreshed snapshot
	second := raceAt("1.700", "Newbury", start,
		activeRunner("Original Pick", "1001", "1-211", 12.0),
		activeRunner("Challenger", "1002", "1-211", 3.5),
	)
	_, err = sel.Run(context.Background(), []*models.RaceContext{second}, models.DefaultWeights(), now)
	require.NoError(t, err)

	count, err := picks.CountUIPicks(context.Background(), first.BetDate(), "1.700")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	record, err := picks.GetByKey(context.Background(), first.BetDate(),
		models.MakeBetID(start, "Newbury", "Challenger"))
	require.NoError(t, err)
	assert.True(t, record.ShowInUI)
}

func TestRunDemotesWithdrawnUIPick(t *testing.T) {
	picks := repository.NewMemoryPicksRepository()
	sel := newTestSelector(picks)
	now := time.Date(2026, time.June, 10, 13, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)

	field := []*models.Runner{
		activeRunner("Leader", "1001", "1-121", 3.5),
		activeRunner("Second String", "1002", "1-211", 4.5),
		activeRunner("Bravo", "1003", "0432", 7.0),
		activeRunner("Charlie", "1004", "213", 6.0),
		activeRunner("Delta", "1005", "0009", 15.0),
		activeRunner("Echo", "1006", "321", 8.0),
		activeRunner("Foxtrot", "1007", "0876", 11.0),
	}
	first := raceAt("1.900", "Haydock", start, field...)
	_, err := sel.Run(context.Background(), []*models.RaceContext{first}, models.DefaultWeights(), now)
	require.NoError(t, err)

	leaderID := models.MakeBetID(start, "Haydock", "Leader")
	record, err := picks.GetByKey(context.Background(), first.BetDate(), leaderID)
	require.NoError(t, err)
	require.True(t, record.ShowInUI)

	// the pick is withdrawn in the refreshed snapshot; it still counts
	// against field size, leaving coverage at 6 of 7
	withdrawn := activeRunner("Leader", "1001", "1-121", 3.5)
	withdrawn.Status = models.RunnerStatusRemoved
	second := raceAt("1.900", "Haydock", start, append([]*models.Runner{withdrawn}, field[1:]...)...)

	summary, err := sel.Run(context.Background(), []*models.RaceContext{second}, models.DefaultWeights(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UIPicks)

	count, err := picks.CountUIPicks(context.Background(), first.BetDate(), "1.900")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	record, err = picks.GetByKey(context.Background(), first.BetDate(), leaderID)
	require.NoError(t, err)
	assert.False(t, record.ShowInUI)
	assert.True(t, record.IsLearningPick)

	record, err = picks.GetByKey(context.Background(), first.BetDate(),
		models.MakeBetID(start, "Haydock", "Second String"))
	require.NoError(t, err)
	assert.True(t, record.ShowInUI)
}
