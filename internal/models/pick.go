package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Outcome represents the settled result of a pick
type Outcome string

const (
	OutcomeWon    Outcome = "WON"
	OutcomePlaced Outcome = "PLACED"
	OutcomeLost   Outcome = "LOST"
	OutcomeVoid   Outcome = "VOID"
	OutcomeError  Outcome = "ERROR"
)

// IsFinal reports whether the outcome may no longer be rewritten.
// ERROR rows are re-tried on later cycles and may be corrected.
func (o Outcome) IsFinal() bool {
	switch o {
	case OutcomeWon, OutcomePlaced, OutcomeLost, OutcomeVoid:
		return true
	}
	return false
}

// Grade represents the 4-tier confidence grade assigned by the scorer
type Grade string

const (
	GradeExcellent Grade = "EXCELLENT"
	GradeGood      Grade = "GOOD"
	GradeFair      Grade = "FAIR"
	GradePoor      Grade = "POOR"
)

// Grade thresholds for the 4-tier rubric
const (
	GradeExcellentThreshold = 75.0
	GradeGoodThreshold      = 60.0
	GradeFairThreshold      = 45.0
)

// GradeForScore maps a combined confidence score onto the 4-tier rubric
func GradeForScore(score float64) Grade {
	switch {
	case score >= GradeExcellentThreshold:
		return GradeExcellent
	case score >= GradeGoodThreshold:
		return GradeGood
	case score >= GradeFairThreshold:
		return GradeFair
	default:
		return GradePoor
	}
}

// StakeMultiplier returns the policy stake multiplier for the grade
func (g Grade) StakeMultiplier() decimal.Decimal {
	switch g {
	case GradeExcellent:
		return decimal.NewFromFloat(2.0)
	case GradeGood:
		return decimal.NewFromFloat(1.5)
	case GradeFair:
		return decimal.NewFromFloat(1.0)
	default:
		return decimal.NewFromFloat(0.5)
	}
}

// BetType represents how a pick would be backed
type BetType string

const (
	BetTypeWin     BetType = "WIN"
	BetTypeEachWay BetType = "EACH_WAY"
)

// PickRecord is the durable store row for one scored runner, keyed by
// (bet_date, bet_id). UI picks and learning rows share the same shape.
type PickRecord struct {
	BetDate            string           `db:"bet_date" json:"bet_date" validate:"required,datetime=2006-01-02"`
	BetID              string           `db:"bet_id" json:"bet_id" validate:"required"`
	Horse              string           `db:"horse" json:"horse" validate:"required"`
	Course             string           `db:"course" json:"course" validate:"required"`
	RaceTime           time.Time        `db:"race_time" json:"race_time" validate:"required"`
	Odds               decimal.Decimal  `db:"odds" json:"odds"`
	SelectionID        string           `db:"selection_id" json:"selection_id"`
	MarketID           string           `db:"market_id" json:"market_id"`
	Form               string           `db:"form" json:"form"`
	Trainer            string           `db:"trainer" json:"trainer"`
	Jockey             string           `db:"jockey" json:"jockey"`
	CombinedConfidence float64          `db:"combined_confidence" json:"combined_confidence"`
	ConfidenceGrade    Grade            `db:"confidence_grade" json:"confidence_grade"`
	ShowInUI           bool             `db:"show_in_ui" json:"show_in_ui"`
	IsLearningPick     bool             `db:"is_learning_pick" json:"is_learning_pick"`
	Reasons            []string         `db:"reasons" json:"reasons"`
	BetType            BetType          `db:"bet_type" json:"bet_type"`
	Outcome            *Outcome         `db:"outcome" json:"outcome,omitempty"`
	ActualPosition     *int             `db:"actual_position" json:"actual_position,omitempty"`
	ProfitLoss         *decimal.Decimal `db:"profit_loss" json:"profit_loss,omitempty"`
	ResultUpdatedAt    *time.Time       `db:"result_updated_at" json:"result_updated_at,omitempty"`
	ResultNote         *string          `db:"result_note" json:"result_note,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
}

// IsSettled checks whether the pick has a final outcome recorded
func (p *PickRecord) IsSettled() bool {
	return p.Outcome != nil && p.Outcome.IsFinal()
}

// IsPending checks whether the pick still awaits a settled result
func (p *PickRecord) IsPending() bool {
	return p.Outcome == nil || *p.Outcome == OutcomeError
}

// GetOutcome returns the outcome or empty string when unset
func (p *PickRecord) GetOutcome() Outcome {
	if p.Outcome == nil {
		return ""
	}
	return *p.Outcome
}

// GetProfitLoss returns the recorded profit/loss or zero when unsettled
func (p *PickRecord) GetProfitLoss() decimal.Decimal {
	if p.ProfitLoss == nil {
		return decimal.Zero
	}
	return *p.ProfitLoss
}

// MakeBetID derives the deterministic sort key for a pick from the race start
// time, venue and horse name. Re-running the selector over the same snapshot
// always produces the same key.
func MakeBetID(startTime time.Time, venue, horse string) string {
	return startTime.UTC().Format("1504") + "-" + slugify(venue) + "-" + slugify(horse)
}

// slugify lowercases and collapses non-alphanumeric runs to single hyphens
func slugify(s string) string {
	var b strings.Builder
	prevHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
