// Package learning closes the loop: it measures how recent picks performed
// and proposes bounded adjustments to the scoring weights.
package learning

import (
	"github.com/shopspring/decimal"
	"github.com/yourusername/race-picks/internal/models"
	"github.com/yourusername/race-picks/internal/scoring"
)

// Pattern statistic keys, as recorded in the learning journal
const (
	PatternSweetSpotHitRate = "sweet_spot_hit_rate"
	PatternOptimalHitRate   = "optimal_hit_rate"
	PatternPoorFormHitRate  = "poor_form_hit_rate"
	PatternFavoriteWinRate  = "favorite_win_rate"
	PatternFavoriteSamples  = "favorite_samples"
	PatternEliteTrainerLift = "elite_trainer_lift"
	PatternTotalWins        = "total_wins"
	PatternTotalRecords     = "total_records"
)

var (
	sweetSpotLow  = decimal.NewFromInt(3)
	sweetSpotHigh = decimal.NewFromInt(9)
	optimalLow    = decimal.NewFromInt(3)
	optimalHigh   = decimal.NewFromInt(6)
)

// TrainerWindow holds per-trainer results over the learning window
type TrainerWindow struct {
	Wins   int
	Losses int
}

// WinRate returns wins over total runs for the trainer
func (t TrainerWindow) WinRate() float64 {
	total := t.Wins + t.Losses
	if total == 0 {
		return 0
	}
	return float64(t.Wins) / float64(total)
}

// Stats aggregates outcome patterns over one learning window
type Stats struct {
	TotalRecords int
	TotalWins    int

	SweetSpotRuns int
	SweetSpotWins int
	OptimalRuns   int
	OptimalWins   int

	// PoorFormWins counts winners with no win in their last three runs
	PoorFormWins int

	FavoriteRuns int
	FavoriteWins int

	Trainers map[string]TrainerWindow
}

// SweetSpotHitRate returns wins over runs for odds in the 3 to 9 band
func (s Stats) SweetSpotHitRate() float64 {
	return rate(s.SweetSpotWins, s.SweetSpotRuns)
}

// OptimalHitRate returns wins over runs for odds in the 3 to 6 band
func (s Stats) OptimalHitRate() float64 {
	return rate(s.OptimalWins, s.OptimalRuns)
}

// PoorFormHitRate returns the share of winners that showed no recent form
func (s Stats) PoorFormHitRate() float64 {
	return rate(s.PoorFormWins, s.TotalWins)
}

// FavoriteWinRate returns wins over runs for race favorites
func (s Stats) FavoriteWinRate() float64 {
	return rate(s.FavoriteWins, s.FavoriteRuns)
}

// OverallWinRate returns wins over all settled records
func (s Stats) OverallWinRate() float64 {
	return rate(s.TotalWins, s.TotalRecords)
}

// EliteTrainerLift returns how far the pooled elite-trainer win rate sits
// above the overall win rate.
func (s Stats) EliteTrainerLift(eliteTrainers map[string]bool) float64 {
	wins, runs := 0, 0
	for trainer, window := range s.Trainers {
		if eliteTrainers[trainer] {
			wins += window.Wins
			runs += window.Wins + window.Losses
		}
	}
	if runs == 0 {
		return 0
	}
	return rate(wins, runs) - s.OverallWinRate()
}

// ToPatterns flattens the statistics into the journal map
func (s Stats) ToPatterns(eliteTrainers map[string]bool) map[string]float64 {
	return map[string]float64{
		PatternSweetSpotHitRate: s.SweetSpotHitRate(),
		PatternOptimalHitRate:   s.OptimalHitRate(),
		PatternPoorFormHitRate:  s.PoorFormHitRate(),
		PatternFavoriteWinRate:  s.FavoriteWinRate(),
		PatternFavoriteSamples:  float64(s.FavoriteRuns),
		PatternEliteTrainerLift: s.EliteTrainerLift(eliteTrainers),
		PatternTotalWins:        float64(s.TotalWins),
		PatternTotalRecords:     float64(s.TotalRecords),
	}
}

// ComputeStats aggregates settled records into pattern statistics. The input
// must already be filtered to final non-void outcomes.
func ComputeStats(records []*models.PickRecord) Stats {
	stats := Stats{Trainers: make(map[string]TrainerWindow)}

	favorites := raceFavorites(records)

	for _, record := range records {
		won := record.GetOutcome() == models.OutcomeWon
		stats.TotalRecords++
		if won {
			stats.TotalWins++
		}

		if inBand(record.Odds, sweetSpotLow, sweetSpotHigh) {
			stats.SweetSpotRuns++
			if won {
				stats.SweetSpotWins++
			}
		}
		if inBand(record.Odds, optimalLow, optimalHigh) {
			stats.OptimalRuns++
			if won {
				stats.OptimalWins++
			}
		}

		if won && !scoring.ParseForm(record.Form).WinInLastThree {
			stats.PoorFormWins++
		}

		if favorites[record.MarketID] == record.BetID {
			stats.FavoriteRuns++
			if won {
				stats.FavoriteWins++
			}
		}

		if record.Trainer != "" {
			window := stats.Trainers[record.Trainer]
			if won {
				window.Wins++
			} else {
				window.Losses++
			}
			stats.Trainers[record.Trainer] = window
		}
	}

	return stats
}

// raceFavorites maps each market to the bet_id with the lowest odds in it.
// Ties go to the lexically smaller bet_id so the result is deterministic.
func raceFavorites(records []*models.PickRecord) map[string]string {
	lowest := make(map[string]*models.PickRecord)
	for _, record := range records {
		current, ok := lowest[record.MarketID]
		if !ok ||
			record.Odds.LessThan(current.Odds) ||
			(record.Odds.Equal(current.Odds) && record.BetID < current.BetID) {
			lowest[record.MarketID] = record
		}
	}

	favorites := make(map[string]string, len(lowest))
	for marketID, record := range lowest {
		favorites[marketID] = record.BetID
	}
	return favorites
}

func inBand(odds, low, high decimal.Decimal) bool {
	return odds.GreaterThanOrEqual(low) && odds.LessThanOrEqual(high)
}

func rate(hits, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
