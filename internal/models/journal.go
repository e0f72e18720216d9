package models

import (
	"time"

	"github.com/google/uuid"
)

// JournalPartition is the bet_date partition used for journal rows so they
// never collide with pick partitions (which are YYYY-MM-DD dates).
const JournalPartition = "LEARNING-JOURNAL"

// LearningType identifies what kind of learning run produced an entry
type LearningType string

const (
	LearningTypeAdjustment LearningType = "weight_adjustment"
	LearningTypeValidation LearningType = "validated_no_adjustment"
)

// LearningJournalEntry records one weight-learning run: the statistics that
// were computed, the rules that fired and the before/after weights.
type LearningJournalEntry struct {
	BetDate            string             `db:"bet_date" json:"bet_date"`
	BetID              string             `db:"bet_id" json:"bet_id"`
	LearningType       LearningType       `db:"learning_type" json:"learning_type"`
	Timestamp          time.Time          `db:"timestamp" json:"timestamp"`
	RacesAnalyzed      int                `db:"races_analyzed" json:"races_analyzed"`
	Patterns           map[string]float64 `db:"patterns" json:"patterns"`
	AdjustmentsApplied []string           `db:"adjustments_applied" json:"adjustments_applied"`
	OldWeights         map[string]float64 `db:"old_weights" json:"old_weights"`
	NewWeights         map[string]float64 `db:"new_weights" json:"new_weights"`
}

// NewLearningJournalEntry creates a journal entry keyed by a fresh UUID in
// the journal partition.
func NewLearningJournalEntry(learningType LearningType, ts time.Time) *LearningJournalEntry {
	return &LearningJournalEntry{
		BetDate:      JournalPartition,
		BetID:        ts.UTC().Format(WeightsVersionFormat) + "-" + uuid.New().String(),
		LearningType: learningType,
		Timestamp:    ts.UTC(),
		Patterns:     make(map[string]float64),
	}
}

// CycleJournalEntry records what one pipeline cycle did
type CycleJournalEntry struct {
	CycleID         uuid.UUID `db:"cycle_id" json:"cycle_id"`
	Timestamp       time.Time `db:"timestamp" json:"timestamp"`
	HorsesStored    int       `db:"horses_stored" json:"horses_stored"`
	UIPicks         int       `db:"ui_picks" json:"ui_picks"`
	WinnersAnalyzed int       `db:"winners_analyzed" json:"winners_analyzed"`
	LogicAdjusted   bool      `db:"logic_adjusted" json:"logic_adjusted"`
	Notes           []string  `db:"notes" json:"notes"`
}
