package scoring

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/race-picks/internal/models"
)

type stubHistory struct {
	venueWins map[string]int
	winners   map[string]bool
}

func (h stubHistory) WinsAtVenue(horse, venue string) int { return h.venueWins[horse+"|"+venue] }
func (h stubHistory) HasRecordedWin(horse string) bool    { return h.winners[horse] }

func testRace(venue string) *models.RaceContext {
	return &models.RaceContext{
		MarketID:  "1.2345",
		Venue:     venue,
		StartTime: time.Date(2026, time.June, 10, 14, 30, 0, 0, time.UTC),
	}
}

func testRunner(name, form string, odds float64) *models.Runner {
	return &models.Runner{
		Name:        name,
		SelectionID: "1001",
		Odds:        decimal.NewFromFloat(odds),
		Form:        form,
		Status:      models.RunnerStatusActive,
	}
}

func goodGoing() GoingAssessment {
	return GoingAssessment{Class: GoingGood, Adjustment: 2}
}

func TestScoreStrongMidPriceWinner(t *testing.T) {
	scorer := NewScorer(nil, nil)
	runner := testRunner("Steady Eddie", "1-211", 3.5)

	result := scorer.Score(runner, testRace("Ascot"), goodGoing(), models.DefaultWeights())

	// 30 sweet spot + 20 optimal + 25 LTO win + 3*5 total wins + 2 place
	assert.Equal(t, 92.0, result.Score)
	assert.Equal(t, models.GradeExcellent, result.Grade)
	require.NotEmpty(t, result.Reasons)
	assert.Equal(t, "Sweet spot odds (3.5)", result.Reasons[0])
}

func TestScorePoorFormFavorite(t *testing.T) {
	scorer := NewScorer(nil, nil)
	runner := testRunner("Hollow Hype", "0876", 1.9)

	result := scorer.Score(runner, testRace("Ascot"), goodGoing(), models.DefaultWeights())

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, models.GradePoor, result.Grade)
}

func TestScoreQualityFavoriteWithEliteTrainer(t *testing.T) {
	scorer := NewScorer([]string{"W P Mullins"}, nil)
	runner := testRunner("Banker Material", "1-121", 2.2)
	runner.Trainer = "W P Mullins"

	result := scorer.Score(runner, testRace("Ascot"), goodGoing(), models.DefaultWeights())

	// 25 LTO win + 3*5 total wins + 2 place + 15 quality favorite + 6 elite trainer
	assert.Equal(t, 63.0, result.Score)
	assert.Equal(t, models.GradeGood, result.Grade)
	assert.Contains(t, result.Reasons, "Quality favorite (2.2)")
	assert.Contains(t, result.Reasons, "Elite trainer (W P Mullins)")
}

func TestScoreInvalidInputs(t *testing.T) {
	scorer := NewScorer(nil, nil)
	weights := models.DefaultWeights()
	race := testRace("Ascot")

	tests := []struct {
		name   string
		runner *models.Runner
	}{
		{"nil runner", nil},
		{"odds of one", testRunner("No Price", "111", 1.0)},
		{"empty form", testRunner("Blank Slate", "", 4.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scorer.Score(tt.runner, race, goodGoing(), weights)
			assert.Equal(t, 0.0, result.Score)
			assert.Equal(t, models.GradePoor, result.Grade)
			assert.Equal(t, []string{"invalid inputs"}, result.Reasons)
		})
	}
}

func TestScoreHistoryBonuses(t *testing.T) {
	history := stubHistory{
		venueWins: map[string]int{"Track Lover|Ascot": 2},
		winners:   map[string]bool{"Track Lover": true},
	}
	scorer := NewScorer(nil, history)
	runner := testRunner("Track Lover", "21", 5.0)

	result := scorer.Score(runner, testRace("Ascot"), goodGoing(), models.DefaultWeights())

	// 30 sweet + 20 optimal + 25 LTO + 1*5 wins + 1*2 place + 8 course + 6 database
	assert.Equal(t, 96.0, result.Score)
	assert.Contains(t, result.Reasons, "Previous win at Ascot")
	assert.Contains(t, result.Reasons, "Recorded win in database")
}

func TestOddsBandsShiftWithGoing(t *testing.T) {
	scorer := NewScorer(nil, nil)
	weights := models.DefaultWeights()
	race := testRace("Haydock")
	runner := testRunner("Mudlark", "0004", 15.0)

	onGood := scorer.Score(runner, race, goodGoing(), weights)
	assert.Equal(t, 0.0, onGood.Score)

	onHeavy := scorer.Score(runner, race, GoingAssessment{Class: GoingHeavy, Adjustment: -5}, weights)
	// 15.0 sits inside the widened heavy sweet spot
	assert.Equal(t, 30.0, onHeavy.Score)

	onSoft := scorer.Score(testRunner("Mudlark", "0004", 11.0), race,
		GoingAssessment{Class: GoingSoft, Adjustment: -3}, weights)
	assert.Equal(t, 30.0, onSoft.Score)
}

func TestScoreDeterministic(t *testing.T) {
	scorer := NewScorer([]string{"A P O'Brien"}, nil)
	runner := testRunner("Clockwork", "312-1", 4.5)
	race := testRace("York")
	weights := models.DefaultWeights()

	first := scorer.Score(runner, race, goodGoing(), weights)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, scorer.Score(runner, race, goodGoing(), weights))
	}
}
