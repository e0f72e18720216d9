package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunnerStatus represents a runner's status in the market snapshot
type RunnerStatus string

const (
	RunnerStatusActive  RunnerStatus = "ACTIVE"
	RunnerStatusRemoved RunnerStatus = "REMOVED"
)

// Runner represents a single runner in an upcoming race snapshot
type Runner struct {
	Name             string          `json:"name" validate:"required"`
	SelectionID      string          `json:"selection_id" validate:"required"`
	Odds             decimal.Decimal `json:"odds"`
	Form             string          `json:"form"`
	Trainer          string          `json:"trainer"`
	Jockey           string          `json:"jockey"`
	Age              *int            `json:"age,omitempty"`
	DaysSinceLastRun *int            `json:"days_since_last_run,omitempty"`
	Draw             *int            `json:"draw,omitempty"`
	Status           RunnerStatus    `json:"status,omitempty"`
}

// IsRemoved checks whether the runner was withdrawn before the off
func (r *Runner) IsRemoved() bool {
	return r.Status == RunnerStatusRemoved
}

// HasValidOdds checks the decimal odds are usable for scoring
func (r *Runner) HasValidOdds() bool {
	return r.Odds.GreaterThan(decimal.NewFromInt(1))
}

// GetDaysSinceLastRun returns days since the last run or a high number if unknown
func (r *Runner) GetDaysSinceLastRun() int {
	if r.DaysSinceLastRun == nil {
		return 999
	}
	return *r.DaysSinceLastRun
}

// RaceContext represents one race from the market snapshot together with
// everything the scorer needs to evaluate its runners.
type RaceContext struct {
	MarketID       string    `json:"market_id" validate:"required"`
	Venue          string    `json:"venue" validate:"required"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	MarketName     string    `json:"market_name"`
	RaceClass      string    `json:"race_class,omitempty"`
	GoingPublished string    `json:"going,omitempty"`
	RainfallMM     *float64  `json:"rainfall_mm,omitempty"`
	FieldSize      int       `json:"field_size"`
	Runners        []*Runner `json:"runners"`
}

// DeclaredFieldSize returns the declared field size, falling back to the
// number of runners present in the snapshot when the feed omits it.
func (rc *RaceContext) DeclaredFieldSize() int {
	if rc.FieldSize > 0 {
		return rc.FieldSize
	}
	return len(rc.Runners)
}

// ActiveRunners returns runners that have not been withdrawn
func (rc *RaceContext) ActiveRunners() []*Runner {
	active := make([]*Runner, 0, len(rc.Runners))
	for _, runner := range rc.Runners {
		if !runner.IsRemoved() {
			active = append(active, runner)
		}
	}
	return active
}

// IsUpcoming checks if the race hasn't started yet
func (rc *RaceContext) IsUpcoming(now time.Time) bool {
	return rc.StartTime.After(now)
}

// BetDate returns the partition key for records created from this race
func (rc *RaceContext) BetDate() string {
	return rc.StartTime.UTC().Format("2006-01-02")
}
