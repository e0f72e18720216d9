package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yourusername/race-picks/internal/database"
	"github.com/yourusername/race-picks/internal/models"
)

// execer is satisfied by both *pgxpool.Pool and pgx.Tx
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const pickColumns = `bet_date, bet_id, horse, course, race_time, odds, selection_id, market_id,
	       form, trainer, jockey, combined_confidence, confidence_grade, show_in_ui,
	       is_learning_pick, reasons, bet_type, outcome, actual_position, profit_loss,
	       result_updated_at, result_note, created_at`

// PostgresPicksRepository implements PicksRepository for PostgreSQL
type PostgresPicksRepository struct {
	db *database.DB
}

// NewPostgresPicksRepository creates a new picks repository
func NewPostgresPicksRepository(db *database.DB) PicksRepository {
	return &PostgresPicksRepository{db: db}
}

// Put upserts a pick record on its (bet_date, bet_id) key. Settlement fields
// are never touched by Put so a re-run selector cannot erase an outcome.
func (p *PostgresPicksRepository) Put(ctx context.Context, record *models.PickRecord) error {
	return p.put(ctx, p.db.GetPool(), record)
}

func (p *PostgresPicksRepository) put(ctx context.Context, exec execer, record *models.PickRecord) error {
	reasons, err := json.Marshal(record.Reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}

	query := `
		INSERT INTO picks (bet_date, bet_id, horse, course, race_time, odds, selection_id, market_id,
		                   form, trainer, jockey, combined_confidence, confidence_grade, show_in_ui,
		                   is_learning_pick, reasons, bet_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (bet_date, bet_id) DO UPDATE SET
			horse = EXCLUDED.horse,
			course = EXCLUDED.course,
			race_time = EXCLUDED.race_time,
			odds = EXCLUDED.odds,
			selection_id = EXCLUDED.selection_id,
			market_id = EXCLUDED.market_id,
			form = EXCLUDED.form,
			trainer = EXCLUDED.trainer,
			jockey = EXCLUDED.jockey,
			combined_confidence = EXCLUDED.combined_confidence,
			confidence_grade = EXCLUDED.confidence_grade,
			show_in_ui = EXCLUDED.show_in_ui,
			is_learning_pick = EXCLUDED.is_learning_pick,
			reasons = EXCLUDED.reasons,
			bet_type = EXCLUDED.bet_type
	`

	_, err = exec.Exec(ctx, query,
		record.BetDate, record.BetID, record.Horse, record.Course, record.RaceTime,
		record.Odds, record.SelectionID, record.MarketID, record.Form, record.Trainer,
		record.Jockey, record.CombinedConfidence, record.ConfidenceGrade, record.ShowInUI,
		record.IsLearningPick, reasons, record.BetType, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put pick: %w", err)
	}

	return nil
}

// PutBatch upserts multiple pick records in one transaction
func (p *PostgresPicksRepository) PutBatch(ctx context.Context, records []*models.PickRecord) error {
	if len(records) == 0 {
		return nil
	}
	return p.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, record := range records {
			if err := p.put(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByKey retrieves a pick by its (bet_date, bet_id) key
func (p *PostgresPicksRepository) GetByKey(ctx context.Context, betDate, betID string) (*models.PickRecord, error) {
	query := `SELECT ` + pickColumns + ` FROM picks WHERE bet_date = $1 AND bet_id = $2`

	row := p.db.GetPool().QueryRow(ctx, query, betDate, betID)
	record, err := scanPick(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pick: %w", err)
	}

	return record, nil
}

// Query returns all records for a bet_date, optionally filtered
func (p *PostgresPicksRepository) Query(ctx context.Context, betDate string, filter PickFilter) ([]*models.PickRecord, error) {
	query := `SELECT ` + pickColumns + ` FROM picks WHERE bet_date = $1 ORDER BY bet_id`

	rows, err := p.db.GetPool().Query(ctx, query, betDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query picks: %w", err)
	}
	defer rows.Close()

	return collectPicks(rows, filter)
}

// Scan returns all records across a date range, optionally filtered. This is
// the cross-partition read used by the weight learner once per cycle.
func (p *PostgresPicksRepository) Scan(ctx context.Context, fromDate, toDate string, filter PickFilter) ([]*models.PickRecord, error) {
	query := `SELECT ` + pickColumns + ` FROM picks
		WHERE bet_date >= $1 AND bet_date <= $2 AND bet_date NOT LIKE 'LEARNING-%'
		ORDER BY bet_date, bet_id`

	rows, err := p.db.GetPool().Query(ctx, query, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to scan picks: %w", err)
	}
	defer rows.Close()

	return collectPicks(rows, filter)
}

// GetPending returns unsettled picks whose race has started before the cutoff
func (p *PostgresPicksRepository) GetPending(ctx context.Context, dates []string, raceTimeBefore time.Time) ([]*models.PickRecord, error) {
	query := `SELECT ` + pickColumns + ` FROM picks
		WHERE bet_date = ANY($1) AND (outcome IS NULL OR outcome = $2) AND race_time < $3
		ORDER BY race_time`

	rows, err := p.db.GetPool().Query(ctx, query, dates, string(models.OutcomeError), raceTimeBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending picks: %w", err)
	}
	defer rows.Close()

	return collectPicks(rows, nil)
}

// SetOutcome writes settlement fields only when no final outcome is present
func (p *PostgresPicksRepository) SetOutcome(ctx context.Context, betDate, betID string, update OutcomeUpdate) error {
	query := `
		UPDATE picks
		SET outcome = $3, actual_position = $4, profit_loss = $5, result_updated_at = $6,
		    result_note = $7
		WHERE bet_date = $1 AND bet_id = $2
		  AND (outcome IS NULL OR outcome = $8)
	`

	tag, err := p.db.GetPool().Exec(ctx, query,
		betDate, betID, string(update.Outcome), update.ActualPosition,
		update.ProfitLoss, update.UpdatedAt, update.Note, string(models.OutcomeError),
	)
	if err != nil {
		return fmt.Errorf("failed to set outcome: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := p.GetByKey(ctx, betDate, betID); err != nil {
			return err
		}
		return models.ErrOutcomeAlreadySet
	}

	return nil
}

// ClearUIPicks demotes stale show_in_ui rows for a market to learning rows.
// Running before the batch upsert keeps the partial unique index on
// (bet_date, market_id) satisfied when the UI flag moves between runners.
func (p *PostgresPicksRepository) ClearUIPicks(ctx context.Context, betDate, marketID, keepBetID string) error {
	query := `
		UPDATE picks
		SET show_in_ui = FALSE, is_learning_pick = TRUE
		WHERE bet_date = $1 AND market_id = $2 AND show_in_ui AND bet_id <> $3
	`

	if _, err := p.db.GetPool().Exec(ctx, query, betDate, marketID, keepBetID); err != nil {
		return fmt.Errorf("failed to clear UI picks: %w", err)
	}

	return nil
}

// CountUIPicks returns the number of show_in_ui rows for a market
func (p *PostgresPicksRepository) CountUIPicks(ctx context.Context, betDate, marketID string) (int, error) {
	query := `SELECT COUNT(*) FROM picks WHERE bet_date = $1 AND market_id = $2 AND show_in_ui`

	var count int
	if err := p.db.GetPool().QueryRow(ctx, query, betDate, marketID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count UI picks: %w", err)
	}

	return count, nil
}

// scanPick scans one picks row into a PickRecord
func scanPick(row pgx.Row) (*models.PickRecord, error) {
	record := &models.PickRecord{}
	var (
		reasons []byte
		outcome *string
	)

	err := row.Scan(
		&record.BetDate, &record.BetID, &record.Horse, &record.Course, &record.RaceTime,
		&record.Odds, &record.SelectionID, &record.MarketID, &record.Form, &record.Trainer,
		&record.Jockey, &record.CombinedConfidence, &record.ConfidenceGrade, &record.ShowInUI,
		&record.IsLearningPick, &reasons, &record.BetType, &outcome, &record.ActualPosition,
		&record.ProfitLoss, &record.ResultUpdatedAt, &record.ResultNote, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(reasons, &record.Reasons); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reasons: %w", err)
	}
	if outcome != nil {
		o := models.Outcome(*outcome)
		record.Outcome = &o
	}

	return record, nil
}

func collectPicks(rows pgx.Rows, filter PickFilter) ([]*models.PickRecord, error) {
	var records []*models.PickRecord
	for rows.Next() {
		record, err := scanPick(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		if filter != nil && !filter(record) {
			continue
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
