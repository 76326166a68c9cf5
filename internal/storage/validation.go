// Package storage provides the data persistence layer for the unitprice
// application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hansang/unitprice/internal/model"
	"github.com/hansang/unitprice/internal/service"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrEmptySlice      = errors.New("slice cannot be empty")
	ErrInvalidUpsert   = errors.New("invalid pattern upsert")
	ErrInvalidFeedback = errors.New("invalid feedback entry")
	ErrInvalidRow      = errors.New("invalid ingredient row")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRows validates a slice of ingredient rows for saving.
func validateRows(rows []model.IngredientRow) error {
	if rows == nil {
		return fmt.Errorf("%w: rows", ErrNilParameter)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: rows", ErrEmptySlice)
	}
	for i, row := range rows {
		if row.PurchasePrice.IsNegative() {
			return fmt.Errorf("%w: negative purchase price at index %d", ErrInvalidRow, i)
		}
	}
	return nil
}

// validateUpsert validates a pattern upsert.
func validateUpsert(u service.PatternUpsert) error {
	if err := validateString(u.SpecTemplate, "spec_template"); err != nil {
		// An empty spec generalizes to an empty template only for
		// fallback methods; those are still legal to learn.
		if u.MethodID != "unit_fallback" && u.MethodID != model.MethodManualCorrection {
			return err
		}
	}
	if err := validateString(u.UnitTemplate, "unit_template"); err != nil {
		return err
	}
	if err := validateString(u.MethodID, "method_id"); err != nil {
		return err
	}
	if u.SuccessDelta < 0 || u.FailureDelta < 0 {
		return fmt.Errorf("%w: counter deltas must be non-negative", ErrInvalidUpsert)
	}
	if u.SuccessDelta == 0 && u.FailureDelta == 0 {
		return fmt.Errorf("%w: at least one counter delta required", ErrInvalidUpsert)
	}
	return nil
}

// validateFeedback validates a feedback entry before append.
func validateFeedback(entry *model.FeedbackEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if entry.IngredientID <= 0 {
		return fmt.Errorf("%w: missing ingredient id", ErrInvalidFeedback)
	}
	switch entry.Kind {
	case model.FeedbackAuto,
		model.FeedbackLearnedPattern,
		model.FeedbackFallbackSuccess,
		model.FeedbackManualCorrection,
		model.FeedbackCalculationFailed:
		// Valid kind
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidFeedback, entry.Kind)
	}
	return nil
}
