package model

import "github.com/shopspring/decimal"

// FailureReason classifies why a specification could not be parsed.
type FailureReason string

// Failure reason constants.
const (
	ReasonEmptySpec      FailureReason = "empty_spec"
	ReasonNoPatternMatch FailureReason = "no_pattern_match"
	ReasonAmbiguous      FailureReason = "ambiguous"
	ReasonNumericGuard   FailureReason = "numeric_guard"
)

// ParseResult is the outcome of running the ruleset over one normalized
// specification. Exactly one of the success fields or Reason is meaningful.
type ParseResult struct {
	MethodID    string          `json:"method_id,omitempty"`
	Unit        CanonicalUnit   `json:"unit,omitempty"`
	Reason      FailureReason   `json:"reason,omitempty"`
	Trace       []string        `json:"trace,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Confidence  float64         `json:"confidence"`
}

// OK reports whether the parse succeeded. On success TotalAmount is
// strictly positive and Unit is one of the canonical units.
func (r *ParseResult) OK() bool {
	return r.Reason == "" && r.TotalAmount.IsPositive()
}
