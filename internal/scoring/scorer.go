package scoring

import (
	"fmt"
	"sort"

	"github.com/yourusername/race-picks/internal/models"
)

// HistoryView is a read-only capture of historical pick outcomes taken at
// cycle start. The scorer consumes it for course and database bonuses; it must
// never be a live pointer into the store.
type HistoryView interface {
	// WinsAtVenue returns recorded wins for a horse at a venue
	WinsAtVenue(horse, venue string) int
	// HasRecordedWin reports whether the horse has any recorded win
	HasRecordedWin(horse string) bool
}

// EmptyHistory is a HistoryView with no recorded outcomes
type EmptyHistory struct{}

// WinsAtVenue always returns 0
func (EmptyHistory) WinsAtVenue(string, string) int { return 0 }

// HasRecordedWin always returns false
func (EmptyHistory) HasRecordedWin(string) bool { return false }

// Result is the scorer output for one runner
type Result struct {
	Score   float64
	Grade   models.Grade
	Reasons []string
}

// Default odds bands on firm or good ground
const (
	sweetSpotLow   = 3.0
	sweetSpotHigh  = 9.0
	optimalLow     = 3.0
	optimalHigh    = 6.0
	favoriteLow    = 1.5
	favoriteHigh   = 3.0
	heavySweetHigh = 20.0
	heavyOptLow    = 4.0
	heavyOptHigh   = 8.0
	softSweetHigh  = 12.0
	softOptHigh    = 7.0
)

// Scorer computes a runner's combined confidence score. It is deterministic:
// for fixed (Runner, RaceContext, Weights) the output is stable. The scorer
// reads no clock, randomness or global state.
type Scorer struct {
	eliteTrainers map[string]bool
	history       HistoryView
}

// NewScorer creates a scorer over a configured elite-trainer set and a
// history view captured at cycle start.
func NewScorer(eliteTrainers []string, history HistoryView) *Scorer {
	elite := make(map[string]bool, len(eliteTrainers))
	for _, trainer := range eliteTrainers {
		elite[trainer] = true
	}
	if history == nil {
		history = EmptyHistory{}
	}
	return &Scorer{eliteTrainers: elite, history: history}
}

// contribution pairs a reason string with the points it added
type contribution struct {
	reason string
	points float64
}

// Score evaluates a single runner within its race context under the given
// weights and going assessment.
func (s *Scorer) Score(runner *models.Runner, race *models.RaceContext, going GoingAssessment, weights models.Weights) Result {
	if runner == nil || !runner.HasValidOdds() || runner.Form == "" {
		return Result{Score: 0, Grade: models.GradePoor, Reasons: []string{"invalid inputs"}}
	}

	odds, _ := runner.Odds.Float64()
	form := ParseForm(runner.Form)
	var contributions []contribution
	add := func(reason string, points float64) {
		if points > 0 {
			contributions = append(contributions, contribution{reason: reason, points: points})
		}
	}

	// Odds-band scoring; band edges shift with the going adjustment.
	sweetLo, sweetHi, optLo, optHi := oddsBands(going.Adjustment)
	if odds >= sweetLo && odds <= sweetHi {
		add(fmt.Sprintf("Sweet spot odds (%.3g)", odds), weights.Get(models.WeightSweetSpot))
		if odds >= optLo && odds <= optHi {
			add(fmt.Sprintf("Optimal odds band (%.3g)", odds), weights.Get(models.WeightOptimalOdds))
		}
	}

	// Form decomposition
	switch {
	case form.RecentWin:
		add("Recent win (LTO)", weights.Get(models.WeightRecentWin))
	case form.WinInLastThree:
		add("Win in last 3 runs", weights.Get(models.WeightRecentWin)*0.5)
	}
	if form.TotalWins > 0 {
		add(fmt.Sprintf("%d total wins", form.TotalWins), float64(form.TotalWins)*weights.Get(models.WeightTotalWins))
	}
	if form.Places > 0 {
		add(fmt.Sprintf("%d places", form.Places), float64(form.Places)*weights.Get(models.WeightConsistency))
	}

	// Quality-favorite rule for short-priced runners outside the odds bands
	if odds >= favoriteLow && odds < favoriteHigh {
		if form.RecentWin || (form.TotalWins >= 2 && form.Places >= 3) {
			add(fmt.Sprintf("Quality favorite (%.3g)", odds), weights.Get(models.WeightFavoriteCorrection))
		}
	}

	// Course, trainer and history bonuses
	if race != nil && s.history.WinsAtVenue(runner.Name, race.Venue) > 0 {
		add(fmt.Sprintf("Previous win at %s", race.Venue), weights.Get(models.WeightCourseBonus))
	}
	if s.eliteTrainers[runner.Trainer] {
		add(fmt.Sprintf("Elite trainer (%s)", runner.Trainer), weights.Get(models.WeightTrainerReputation))
	}
	if s.history.HasRecordedWin(runner.Name) {
		add("Recorded win in database", weights.Get(models.WeightDatabaseHistory))
	}

	score := 0.0
	for _, c := range contributions {
		score += c.points
	}

	// Reasons ordered by descending contribution; stable for equal points
	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].points > contributions[j].points
	})
	reasons := make([]string, len(contributions))
	for i, c := range contributions {
		reasons[i] = c.reason
	}

	return Result{Score: score, Grade: models.GradeForScore(score), Reasons: reasons}
}

// oddsBands returns the sweet-spot and optimal band edges after applying the
// going adjustment. Soft ground widens the sweet spot; heavy ground expands
// the upper edge to 20.0 and shifts the optimal sub-band up.
func oddsBands(adjustment int) (sweetLo, sweetHi, optLo, optHi float64) {
	sweetLo, sweetHi = sweetSpotLow, sweetSpotHigh
	optLo, optHi = optimalLow, optimalHigh

	switch {
	case adjustment <= goingAdjustments[GoingHeavy]:
		sweetHi = heavySweetHigh
		optLo, optHi = heavyOptLow, heavyOptHigh
	case adjustment <= goingAdjustments[GoingSoft]:
		sweetHi = softSweetHigh
		optHi = softOptHigh
	}
	return sweetLo, sweetHi, optLo, optHi
}
