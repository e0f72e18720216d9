package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/race-picks/internal/models"
)

// PickFilter is an optional predicate applied to query and scan results
type PickFilter func(*models.PickRecord) bool

// OutcomeUpdate carries the settlement fields written by the results ingestor.
// Note holds the failure cause on ERROR outcomes so later sweeps can tell
// broken markets apart.
type OutcomeUpdate struct {
	Outcome        models.Outcome
	ActualPosition *int
	ProfitLoss     *decimal.Decimal
	Note           *string
	UpdatedAt      time.Time
}

// PicksRepository defines the key-value interface over stored picks.
// Records are keyed by (bet_date, bet_id); Put upserts on that key.
type PicksRepository interface {
	Put(ctx context.Context, record *models.PickRecord) error
	PutBatch(ctx context.Context, records []*models.PickRecord) error
	GetByKey(ctx context.Context, betDate, betID string) (*models.PickRecord, error)
	Query(ctx context.Context, betDate string, filter PickFilter) ([]*models.PickRecord, error)
	Scan(ctx context.Context, fromDate, toDate string, filter PickFilter) ([]*models.PickRecord, error)
	// GetPending returns unsettled picks whose race_time is before the cutoff,
	// looking back over the given dates.
	GetPending(ctx context.Context, dates []string, raceTimeBefore time.Time) ([]*models.PickRecord, error)
	// SetOutcome atomically writes the settlement fields. The update only
	// applies when no final outcome is recorded yet; a row that already
	// carries a final outcome returns models.ErrOutcomeAlreadySet.
	SetOutcome(ctx context.Context, betDate, betID string, update OutcomeUpdate) error
	// CountUIPicks returns the number of show_in_ui rows for a market
	CountUIPicks(ctx context.Context, betDate, marketID string) (int, error)
	// ClearUIPicks demotes every show_in_ui row for a market except keepBetID
	// to a learning row. A re-run whose refreshed snapshot dropped the previous
	// pick uses this to move the UI flag without leaving a stale holder.
	ClearUIPicks(ctx context.Context, betDate, marketID, keepBetID string) error
}

// WeightsRepository defines persistence for the single current Weights record
type WeightsRepository interface {
	// Get returns the current weights, initializing with defaults when the
	// record does not exist yet.
	Get(ctx context.Context) (models.Weights, error)
	// CompareAndSwap persists next only if the stored version still equals
	// expectedVersion; returns models.ErrVersionConflict otherwise.
	CompareAndSwap(ctx context.Context, expectedVersion string, next models.Weights) error
}

// JournalRepository defines persistence for learning and cycle journal entries
type JournalRepository interface {
	AppendLearning(ctx context.Context, entry *models.LearningJournalEntry) error
	AppendCycle(ctx context.Context, entry *models.CycleJournalEntry) error
	RecentLearning(ctx context.Context, limit int) ([]*models.LearningJournalEntry, error)
}
