package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hansang/unitprice/internal/learn"
	"github.com/hansang/unitprice/internal/model"
	"github.com/hansang/unitprice/internal/service"
)

const patternColumns = `id, spec_template, unit_template, method_id, reference_total,
	canonical_unit, success_count, failure_count, last_used, notes, created_at`

// FindCandidatePatterns retrieves learned patterns whose templates are
// compatible with the given row templates. Wildcard unit templates match
// any unit tag; the caller ranks and filters by confidence.
func (s *SQLiteStorage) FindCandidatePatterns(ctx context.Context, specTemplate, unitTemplate string) ([]model.LearnedPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + patternColumns + `
		FROM learned_patterns
		WHERE spec_template = ?
		  AND (unit_template = ? OR unit_template = ? OR ? = ?)
		ORDER BY success_count DESC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query,
		specTemplate, unitTemplate, learn.Wildcard, unitTemplate, learn.Wildcard)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectPatterns(rows)
}

// UpsertPattern creates a pattern or reinforces an existing one. The counter
// increments run inside a single statement, so concurrent batches serialize
// per pattern and the final counts are order-independent.
func (s *SQLiteStorage) UpsertPattern(ctx context.Context, upsert service.PatternUpsert) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUpsert(upsert); err != nil {
		return err
	}

	// A successful upsert carries the freshest known total, so it replaces
	// the stored reference; repeated manual corrections would otherwise
	// replay the first correction forever. Failure ticks leave it alone.
	query := `
		INSERT INTO learned_patterns (
			spec_template, unit_template, method_id, reference_total,
			canonical_unit, success_count, failure_count, last_used, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, ?)
		ON CONFLICT(spec_template, unit_template, method_id) DO UPDATE SET
			success_count = success_count + excluded.success_count,
			failure_count = failure_count + excluded.failure_count,
			reference_total = CASE WHEN excluded.success_count > 0
				THEN excluded.reference_total ELSE reference_total END,
			canonical_unit = CASE WHEN excluded.success_count > 0
				THEN excluded.canonical_unit ELSE canonical_unit END,
			last_used = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query,
		upsert.SpecTemplate, upsert.UnitTemplate, upsert.MethodID,
		decimalColumn(upsert.ReferenceTotal), string(upsert.Unit),
		upsert.SuccessDelta, upsert.FailureDelta, upsert.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pattern: %w", err)
	}
	return nil
}

// GetPatterns retrieves every learned pattern, most exercised first.
func (s *SQLiteStorage) GetPatterns(ctx context.Context) ([]model.LearnedPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+patternColumns+`
		FROM learned_patterns
		ORDER BY success_count + failure_count DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectPatterns(rows)
}

// LastPatternWrite returns the most recent pattern store write, used by
// resumable batch filters. A store with no patterns reports the zero time.
func (s *SQLiteStorage) LastPatternWrite(ctx context.Context) (time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return time.Time{}, err
	}

	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(last_used) FROM learned_patterns`).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("failed to get last pattern write: %w", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}

func collectPatterns(rows *sql.Rows) ([]model.LearnedPattern, error) {
	var patterns []model.LearnedPattern
	for rows.Next() {
		var p model.LearnedPattern
		var referenceTotal string
		var canonicalUnit string
		if err := rows.Scan(
			&p.ID, &p.SpecTemplate, &p.UnitTemplate, &p.MethodID, &referenceTotal,
			&canonicalUnit, &p.SuccessCount, &p.FailureCount, &p.LastUsed, &p.Notes, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		total, err := scanDecimal(referenceTotal, "reference_total")
		if err != nil {
			return nil, err
		}
		p.ReferenceTotal = total
		p.Unit = model.CanonicalUnit(canonicalUnit)
		patterns = append(patterns, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}
	return patterns, nil
}
