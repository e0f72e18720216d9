package database

import (
	"context"
	"fmt"

	"github.com/yourusername/race-picks/internal/config"
)

// schema holds the idempotent DDL for the picks store. The store is a
// key-value layout: picks are partitioned by bet_date and sorted by bet_id.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS picks (
		bet_date            TEXT        NOT NULL,
		bet_id              TEXT        NOT NULL,
		horse               TEXT        NOT NULL,
		course              TEXT        NOT NULL,
		race_time           TIMESTAMPTZ NOT NULL,
		odds                NUMERIC     NOT NULL,
		selection_id        TEXT        NOT NULL,
		market_id           TEXT        NOT NULL,
		form                TEXT        NOT NULL DEFAULT '',
		trainer             TEXT        NOT NULL DEFAULT '',
		jockey              TEXT        NOT NULL DEFAULT '',
		combined_confidence DOUBLE PRECISION NOT NULL,
		confidence_grade    TEXT        NOT NULL,
		show_in_ui          BOOLEAN     NOT NULL DEFAULT FALSE,
		is_learning_pick    BOOLEAN     NOT NULL DEFAULT TRUE,
		reasons             JSONB       NOT NULL DEFAULT '[]',
		bet_type            TEXT        NOT NULL DEFAULT 'WIN',
		outcome             TEXT,
		actual_position     INTEGER,
		profit_loss         NUMERIC,
		result_updated_at   TIMESTAMPTZ,
		result_note         TEXT,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (bet_date, bet_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_picks_market ON picks (bet_date, market_id)`,
	`CREATE INDEX IF NOT EXISTS idx_picks_pending ON picks (race_time) WHERE outcome IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_picks_ui_unique ON picks (bet_date, market_id) WHERE show_in_ui`,
	`CREATE TABLE IF NOT EXISTS weights (
		id           INTEGER     PRIMARY KEY CHECK (id = 1),
		version      TEXT        NOT NULL,
		last_updated TIMESTAMPTZ NOT NULL,
		value_json   JSONB       NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS learning_journal (
		bet_date            TEXT        NOT NULL,
		bet_id              TEXT        NOT NULL,
		learning_type       TEXT        NOT NULL,
		timestamp           TIMESTAMPTZ NOT NULL,
		races_analyzed      INTEGER     NOT NULL,
		patterns            JSONB       NOT NULL DEFAULT '{}',
		adjustments_applied JSONB       NOT NULL DEFAULT '[]',
		old_weights         JSONB       NOT NULL DEFAULT '{}',
		new_weights         JSONB       NOT NULL DEFAULT '{}',
		PRIMARY KEY (bet_date, bet_id)
	)`,
	`CREATE TABLE IF NOT EXISTS cycle_journal (
		cycle_id         UUID        PRIMARY KEY,
		timestamp        TIMESTAMPTZ NOT NULL,
		horses_stored    INTEGER     NOT NULL,
		ui_picks         INTEGER     NOT NULL,
		winners_analyzed INTEGER     NOT NULL,
		logic_adjusted   BOOLEAN     NOT NULL,
		notes            JSONB       NOT NULL DEFAULT '[]'
	)`,
}

// Initialize creates a database connection pool and ensures the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema applies the idempotent store DDL
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
