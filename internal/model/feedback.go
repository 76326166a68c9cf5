package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeedbackKind classifies a feedback entry.
type FeedbackKind string

// Feedback kind constants.
const (
	FeedbackAuto              FeedbackKind = "auto"
	FeedbackLearnedPattern    FeedbackKind = "learned_pattern"
	FeedbackFallbackSuccess   FeedbackKind = "fallback_success"
	FeedbackManualCorrection  FeedbackKind = "manual_correction"
	FeedbackCalculationFailed FeedbackKind = "calculation_failed"
)

// FeedbackEntry is one append-only audit record of a calculation attempt.
// AutoResult holds the engine's answer, CorrectedResult a human's; either
// may be nil.
type FeedbackEntry struct {
	CreatedAt       time.Time        `json:"created_at"`
	Specification   string           `json:"specification"`
	Unit            string           `json:"unit"`
	Kind            FeedbackKind     `json:"kind"`
	AutoResult      *decimal.Decimal `json:"auto_result,omitempty"`
	CorrectedResult *decimal.Decimal `json:"corrected_result,omitempty"`
	OriginalPrice   decimal.Decimal  `json:"original_price"`
	IngredientID    int64            `json:"ingredient_id"`
	ID              int64            `json:"id"`
}
