package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OutcomeSource records how a row's unit price was produced.
type OutcomeSource string

// Outcome source constants.
const (
	SourceAuto             OutcomeSource = "auto"
	SourceLearnedPattern   OutcomeSource = "learned_pattern"
	SourceManualCorrection OutcomeSource = "manual_correction"
	SourceFallback         OutcomeSource = "fallback"
	SourceFailed           OutcomeSource = "failed"
)

// CalculationOutcome is the per-row result of the pricing pipeline.
// PricePerUnit is nil when the row could not be priced.
type CalculationOutcome struct {
	Timestamp    time.Time        `json:"timestamp"`
	MethodID     string           `json:"method_id,omitempty"`
	Source       OutcomeSource    `json:"source"`
	Unit         CanonicalUnit    `json:"unit,omitempty"`
	Reason       FailureReason    `json:"reason,omitempty"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit,omitempty"`
	IngredientID int64            `json:"ingredient_id"`
}
