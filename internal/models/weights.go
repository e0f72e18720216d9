package models

import (
	"fmt"
	"time"
)

// Recognized weight factor keys
const (
	WeightSweetSpot          = "sweet_spot"
	WeightOptimalOdds        = "optimal_odds"
	WeightRecentWin          = "recent_win"
	WeightTotalWins          = "total_wins"
	WeightConsistency        = "consistency"
	WeightCourseBonus        = "course_bonus"
	WeightDatabaseHistory    = "database_history"
	WeightTrainerReputation  = "trainer_reputation"
	WeightFavoriteCorrection = "favorite_correction"
)

// WeightKeys lists every recognized factor key in a stable order
var WeightKeys = []string{
	WeightSweetSpot,
	WeightOptimalOdds,
	WeightRecentWin,
	WeightTotalWins,
	WeightConsistency,
	WeightCourseBonus,
	WeightDatabaseHistory,
	WeightTrainerReputation,
	WeightFavoriteCorrection,
}

// WeightBound is the closed interval a single weight must stay within
type WeightBound struct {
	Min float64 `mapstructure:"min" json:"min"`
	Max float64 `mapstructure:"max" json:"max"`
}

// Contains checks whether a value lies inside the bound
func (b WeightBound) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Clamp forces a value into the bound
func (b WeightBound) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// DefaultWeightBounds returns the shipped per-key bounds. The learner must
// never persist a weight outside these intervals.
func DefaultWeightBounds() map[string]WeightBound {
	return map[string]WeightBound{
		WeightSweetSpot:          {Min: 20, Max: 40},
		WeightOptimalOdds:        {Min: 10, Max: 25},
		WeightRecentWin:          {Min: 15, Max: 30},
		WeightTotalWins:          {Min: 2, Max: 10},
		WeightConsistency:        {Min: 1, Max: 5},
		WeightCourseBonus:        {Min: 3, Max: 15},
		WeightDatabaseHistory:    {Min: 3, Max: 15},
		WeightTrainerReputation:  {Min: 3, Max: 12},
		WeightFavoriteCorrection: {Min: 5, Max: 25},
	}
}

// Weights is an immutable snapshot of the scoring weights. It is loaded once
// per cycle and threaded explicitly to the scorer; the learner produces a new
// value rather than mutating in place.
type Weights struct {
	Values      map[string]float64 `json:"values"`
	Version     string             `json:"version"`
	LastUpdated time.Time          `json:"last_updated"`
}

// WeightsVersionFormat is the layout of the monotonic version string
const WeightsVersionFormat = "20060102T150405Z"

// DefaultWeights returns the shipped scoring weights
func DefaultWeights() Weights {
	return Weights{
		Values: map[string]float64{
			WeightSweetSpot:          30,
			WeightOptimalOdds:        20,
			WeightRecentWin:          25,
			WeightTotalWins:          5,
			WeightConsistency:        2,
			WeightCourseBonus:        8,
			WeightDatabaseHistory:    6,
			WeightTrainerReputation:  6,
			WeightFavoriteCorrection: 15,
		},
		Version:     time.Unix(0, 0).UTC().Format(WeightsVersionFormat),
		LastUpdated: time.Unix(0, 0).UTC(),
	}
}

// Get returns the weight for a key or 0 when the key is unknown
func (w Weights) Get(key string) float64 {
	return w.Values[key]
}

// Copy returns a deep copy suitable for independent mutation
func (w Weights) Copy() Weights {
	values := make(map[string]float64, len(w.Values))
	for k, v := range w.Values {
		values[k] = v
	}
	return Weights{Values: values, Version: w.Version, LastUpdated: w.LastUpdated}
}

// WithVersion returns a copy stamped with a new version derived from ts
func (w Weights) WithVersion(ts time.Time) Weights {
	next := w.Copy()
	next.Version = ts.UTC().Format(WeightsVersionFormat)
	next.LastUpdated = ts.UTC()
	return next
}

// Validate checks every value sits inside its configured bound
func (w Weights) Validate(bounds map[string]WeightBound) error {
	for key, value := range w.Values {
		bound, ok := bounds[key]
		if !ok {
			continue
		}
		if !bound.Contains(value) {
			return fmt.Errorf("weight %s=%g outside bounds [%g,%g]: %w",
				key, value, bound.Min, bound.Max, ErrInvariantViolation)
		}
	}
	return nil
}
