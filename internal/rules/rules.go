// Package rules implements the ordered pattern ruleset that turns a
// normalized specification into a total quantity in a canonical unit.
//
// Each rule owns one shape family. Rules are tried in declaration order and
// the first match wins; earlier rules encode more specific shapes that a
// later, more general rule would otherwise subsume. The base order is frozen:
// reordering silently changes results for existing catalog rows.
package rules

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hansang/unitprice/internal/model"
)

// Rule recognizes one family of specification shapes.
//
// Extract returns a ParseResult when the shape matched (a numeric_guard
// failure counts as a match), or nil plus a short decline note for the
// parser trace.
type Rule struct {
	Extract    func(spec string, tag model.UnitTag) *model.ParseResult
	MethodID   string
	Confidence float64
}

// numberPattern matches a decimal literal with optional thousands commas.
const numberPattern = `[0-9]+(?:,[0-9]{3})*(?:\.[0-9]+)?`

// parseNumber converts a matched numeric literal to a decimal, stripping
// grouping commas.
func parseNumber(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

var (
	thousand   = decimal.NewFromInt(1000)
	milligram  = decimal.New(1, -3)
	guardFloor = decimal.New(1, -9)
)

// toGrams coerces a value with a weight suffix (kg, g, mg) to grams.
func toGrams(n decimal.Decimal, suffix string) decimal.Decimal {
	switch strings.ToLower(suffix) {
	case "kg":
		return n.Mul(thousand)
	case "mg":
		return n.Mul(milligram)
	default:
		return n
	}
}

// toMilliliters coerces a value with a volume suffix (l, ml) to milliliters.
func toMilliliters(n decimal.Decimal, suffix string) decimal.Decimal {
	if strings.ToLower(suffix) == "l" {
		return n.Mul(thousand)
	}
	return n
}

// success builds a successful ParseResult, downgrading non-positive totals
// to a numeric_guard failure.
func (r Rule) success(total decimal.Decimal, unit model.CanonicalUnit) *model.ParseResult {
	if !total.IsPositive() {
		return &model.ParseResult{
			MethodID: r.MethodID,
			Reason:   model.ReasonNumericGuard,
			Trace:    []string{fmt.Sprintf("%s: extracted non-positive total %s", r.MethodID, total)},
		}
	}
	return &model.ParseResult{
		TotalAmount: total,
		Unit:        unit,
		MethodID:    r.MethodID,
		Confidence:  r.Confidence,
	}
}

// GuardFloor is the smallest total the calculator accepts before treating
// the quotient as an overflow.
func GuardFloor() decimal.Decimal {
	return guardFloor
}
