// Package pricing computes price-per-base-unit values from parse results.
// All arithmetic is decimal; binary floats appear only at the display
// boundary.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/hansang/unitprice/internal/model"
	"github.com/hansang/unitprice/internal/rules"
)

// divisionPrecision bounds non-terminating quotients (e.g. thirds) without
// truncating exact ones.
const divisionPrecision = 16

// Calculate divides a purchase price by a parsed total.
//
// A zero price means the price is simply unknown; the row gets a nil result,
// not a failure. A failed parse also yields nil. A total below the guard
// floor would overflow the quotient and yields nil as well.
func Calculate(purchasePrice decimal.Decimal, parsed *model.ParseResult) *decimal.Decimal {
	if parsed == nil || !parsed.OK() {
		return nil
	}
	if !purchasePrice.IsPositive() {
		return nil
	}
	if parsed.TotalAmount.LessThan(rules.GuardFloor()) {
		return nil
	}
	q := purchasePrice.DivRound(parsed.TotalAmount, divisionPrecision)
	return &q
}

// Display rounds a stored full-precision unit price for human consumption.
// Storage always keeps full precision; rounding happens only here.
func Display(price decimal.Decimal, places int32) string {
	if places < 2 {
		places = 2
	}
	if places > 4 {
		places = 4
	}
	return price.Round(places).String()
}
