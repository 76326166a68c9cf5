package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hansang/unitprice/internal/model"
	"github.com/hansang/unitprice/internal/service"
)

// RecordFeedback appends one audit entry. The feedback log is append-only;
// nothing in the engine updates or deletes entries.
func (s *SQLiteStorage) RecordFeedback(ctx context.Context, entry *model.FeedbackEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFeedback(entry); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_entries (
			ingredient_id, specification, unit, original_price,
			auto_result, corrected_result, feedback_kind
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.IngredientID, entry.Specification, entry.Unit,
		decimalColumn(entry.OriginalPrice),
		nullDecimalColumn(entry.AutoResult), nullDecimalColumn(entry.CorrectedResult),
		string(entry.Kind),
	)
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get feedback ID: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = time.Now()
	return nil
}

// GetFeedback retrieves audit entries, newest first. A zero-valued Kind in
// the filter matches every kind.
func (s *SQLiteStorage) GetFeedback(ctx context.Context, filter service.FeedbackFilter) ([]model.FeedbackEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, ingredient_id, specification, unit, original_price,
			auto_result, corrected_result, feedback_kind, created_at
		FROM feedback_entries`
	args := []any{}
	if filter.Kind != "" {
		query += ` WHERE feedback_kind = ?`
		args = append(args, string(filter.Kind))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.FeedbackEntry
	for rows.Next() {
		var e model.FeedbackEntry
		var originalPrice string
		var autoResult, correctedResult sql.NullString
		if err := rows.Scan(
			&e.ID, &e.IngredientID, &e.Specification, &e.Unit, &originalPrice,
			&autoResult, &correctedResult, &e.Kind, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feedback entry: %w", err)
		}
		price, err := scanDecimal(originalPrice, "original_price")
		if err != nil {
			return nil, err
		}
		e.OriginalPrice = price
		if e.AutoResult, err = scanNullDecimal(autoResult, "auto_result"); err != nil {
			return nil, err
		}
		if e.CorrectedResult, err = scanNullDecimal(correctedResult, "corrected_result"); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback entries: %w", err)
	}
	return entries, nil
}
