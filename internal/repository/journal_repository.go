package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/race-picks/internal/database"
	"github.com/yourusername/race-picks/internal/models"
)

// PostgresJournalRepository implements JournalRepository for PostgreSQL
type PostgresJournalRepository struct {
	db *database.DB
}

// NewPostgresJournalRepository creates a new journal repository
func NewPostgresJournalRepository(db *database.DB) JournalRepository {
	return &PostgresJournalRepository{db: db}
}

// AppendLearning appends a learning journal entry
func (j *PostgresJournalRepository) AppendLearning(ctx context.Context, entry *models.LearningJournalEntry) error {
	patterns, err := json.Marshal(entry.Patterns)
	if err != nil {
		return fmt.Errorf("failed to marshal patterns: %w", err)
	}
	adjustments, err := json.Marshal(entry.AdjustmentsApplied)
	if err != nil {
		return fmt.Errorf("failed to marshal adjustments: %w", err)
	}
	oldWeights, err := json.Marshal(entry.OldWeights)
	if err != nil {
		return fmt.Errorf("failed to marshal old weights: %w", err)
	}
	newWeights, err := json.Marshal(entry.NewWeights)
	if err != nil {
		return fmt.Errorf("failed to marshal new weights: %w", err)
	}

	query := `
		INSERT INTO learning_journal (bet_date, bet_id, learning_type, timestamp, races_analyzed,
		                              patterns, adjustments_applied, old_weights, new_weights)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = j.db.GetPool().Exec(ctx, query,
		entry.BetDate, entry.BetID, string(entry.LearningType), entry.Timestamp,
		entry.RacesAnalyzed, patterns, adjustments, oldWeights, newWeights,
	)
	if err != nil {
		return fmt.Errorf("failed to append learning journal entry: %w", err)
	}

	return nil
}

// AppendCycle appends a cycle journal entry
func (j *PostgresJournalRepository) AppendCycle(ctx context.Context, entry *models.CycleJournalEntry) error {
	notes, err := json.Marshal(entry.Notes)
	if err != nil {
		return fmt.Errorf("failed to marshal notes: %w", err)
	}

	query := `
		INSERT INTO cycle_journal (cycle_id, timestamp, horses_stored, ui_picks, winners_analyzed,
		                           logic_adjusted, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = j.db.GetPool().Exec(ctx, query,
		entry.CycleID, entry.Timestamp, entry.HorsesStored, entry.UIPicks,
		entry.WinnersAnalyzed, entry.LogicAdjusted, notes,
	)
	if err != nil {
		return fmt.Errorf("failed to append cycle journal entry: %w", err)
	}

	return nil
}

// RecentLearning returns the most recent learning journal entries
func (j *PostgresJournalRepository) RecentLearning(ctx context.Context, limit int) ([]*models.LearningJournalEntry, error) {
	query := `
		SELECT bet_date, bet_id, learning_type, timestamp, races_analyzed,
		       patterns, adjustments_applied, old_weights, new_weights
		FROM learning_journal
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := j.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query learning journal: %w", err)
	}
	defer rows.Close()

	var entries []*models.LearningJournalEntry
	for rows.Next() {
		entry, err := scanLearningEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan learning journal entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanLearningEntry(row pgx.Row) (*models.LearningJournalEntry, error) {
	entry := &models.LearningJournalEntry{}
	var patterns, adjustments, oldWeights, newWeights []byte

	err := row.Scan(
		&entry.BetDate, &entry.BetID, &entry.LearningType, &entry.Timestamp,
		&entry.RacesAnalyzed, &patterns, &adjustments, &oldWeights, &newWeights,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(patterns, &entry.Patterns); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(adjustments, &entry.AdjustmentsApplied); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(oldWeights, &entry.OldWeights); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(newWeights, &entry.NewWeights); err != nil {
		return nil, err
	}

	return entry, nil
}
