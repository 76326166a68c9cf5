package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS ingredients (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL DEFAULT '',
					specification TEXT NOT NULL DEFAULT '',
					unit TEXT NOT NULL DEFAULT '',
					purchase_price TEXT NOT NULL DEFAULT '0',
					price_per_unit TEXT,
					price_unit TEXT NOT NULL DEFAULT '',
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_ingredients_unpriced ON ingredients(id) WHERE price_per_unit IS NULL`,

				`CREATE TABLE IF NOT EXISTS learned_patterns (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					spec_template TEXT NOT NULL,
					unit_template TEXT NOT NULL,
					method_id TEXT NOT NULL,
					reference_total TEXT NOT NULL DEFAULT '0',
					success_count INTEGER NOT NULL DEFAULT 0,
					failure_count INTEGER NOT NULL DEFAULT 0,
					last_used DATETIME DEFAULT CURRENT_TIMESTAMP,
					notes TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(spec_template, unit_template, method_id)
				)`,

				`CREATE TABLE IF NOT EXISTS feedback_entries (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					ingredient_id INTEGER NOT NULL,
					specification TEXT NOT NULL DEFAULT '',
					unit TEXT NOT NULL DEFAULT '',
					original_price TEXT NOT NULL DEFAULT '0',
					auto_result TEXT,
					corrected_result TEXT,
					feedback_kind TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_feedback_ingredient ON feedback_entries(ingredient_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Track canonical unit on learned patterns",
		Up: func(tx *sql.Tx) error {
			// Correction-derived patterns replay their stored total, so the
			// unit it was expressed in has to survive the round trip.
			_, err := tx.Exec(`ALTER TABLE learned_patterns ADD COLUMN canonical_unit TEXT NOT NULL DEFAULT 'g'`)
			return err
		},
	},
	{
		Version:     3,
		Description: "Index feedback by kind for the remediation queue",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_feedback_kind ON feedback_entries(feedback_kind)`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
