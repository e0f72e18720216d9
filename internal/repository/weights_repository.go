package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/race-picks/internal/database"
	"github.com/yourusername/race-picks/internal/models"
)

// PostgresWeightsRepository implements WeightsRepository for PostgreSQL.
// A single row (id = 1) holds the current weights; previous versions live in
// the learning journal.
type PostgresWeightsRepository struct {
	db *database.DB
}

// NewPostgresWeightsRepository creates a new weights repository
func NewPostgresWeightsRepository(db *database.DB) WeightsRepository {
	return &PostgresWeightsRepository{db: db}
}

// Get returns the current weights, seeding defaults on first read
func (w *PostgresWeightsRepository) Get(ctx context.Context) (models.Weights, error) {
	query := `SELECT version, last_updated, value_json FROM weights WHERE id = 1`

	weights := models.Weights{}
	var valueJSON []byte
	err := w.db.GetPool().QueryRow(ctx, query).Scan(&weights.Version, &weights.LastUpdated, &valueJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return w.initialize(ctx)
	}
	if err != nil {
		return models.Weights{}, fmt.Errorf("failed to get weights: %w", err)
	}

	if err := json.Unmarshal(valueJSON, &weights.Values); err != nil {
		return models.Weights{}, fmt.Errorf("failed to unmarshal weights: %w", err)
	}

	return weights, nil
}

// CompareAndSwap persists next only when the stored version is unchanged
func (w *PostgresWeightsRepository) CompareAndSwap(ctx context.Context, expectedVersion string, next models.Weights) error {
	valueJSON, err := json.Marshal(next.Values)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	query := `
		UPDATE weights
		SET version = $1, last_updated = $2, value_json = $3
		WHERE id = 1 AND version = $4
	`

	tag, err := w.db.GetPool().Exec(ctx, query, next.Version, next.LastUpdated, valueJSON, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update weights: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrVersionConflict
	}

	return nil
}

// initialize seeds the defaults, tolerating a concurrent seeder
func (w *PostgresWeightsRepository) initialize(ctx context.Context) (models.Weights, error) {
	defaults := models.DefaultWeights()
	valueJSON, err := json.Marshal(defaults.Values)
	if err != nil {
		return models.Weights{}, fmt.Errorf("failed to marshal default weights: %w", err)
	}

	query := `
		INSERT INTO weights (id, version, last_updated, value_json)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := w.db.GetPool().Exec(ctx, query, defaults.Version, defaults.LastUpdated, valueJSON); err != nil {
		return models.Weights{}, fmt.Errorf("failed to initialize weights: %w", err)
	}

	return w.Get(ctx)
}
