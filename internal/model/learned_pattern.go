package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MethodManualCorrection is the method id recorded for patterns derived from
// human-entered unit prices rather than a ruleset extractor.
const MethodManualCorrection = "manual_correction"

// LearnedPattern is a generalized specification shape persisted after a
// successful calculation. (SpecTemplate, UnitTemplate, MethodID) is unique.
// Patterns are reinforced or weakened but never deleted by the engine.
type LearnedPattern struct {
	CreatedAt      time.Time       `json:"created_at"`
	LastUsed       time.Time       `json:"last_used"`
	SpecTemplate   string          `json:"spec_template"`
	UnitTemplate   string          `json:"unit_template"`
	MethodID       string          `json:"method_id"`
	Notes          string          `json:"notes,omitempty"`
	Unit           CanonicalUnit   `json:"unit"`
	ReferenceTotal decimal.Decimal `json:"reference_total"`
	SuccessCount   int             `json:"success_count"`
	FailureCount   int             `json:"failure_count"`
	ID             int64           `json:"id"`
}

// Confidence is the pattern's past success ratio. With no history at all the
// pattern is treated as a coin flip.
func (p *LearnedPattern) Confidence() float64 {
	total := p.SuccessCount + p.FailureCount
	if total == 0 {
		return 0.5
	}
	return float64(p.SuccessCount) / float64(total)
}
