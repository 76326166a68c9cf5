package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// IngredientRow is one supplier line item from the catalog.
// PurchasePrice of zero means "no price known", not free.
type IngredientRow struct {
	UpdatedAt     time.Time        `json:"updated_at"`
	Name          string           `json:"name"`
	Specification string           `json:"specification"`
	Unit          string           `json:"unit"`
	PricePerUnit  *decimal.Decimal `json:"price_per_unit,omitempty"`
	PriceUnit     CanonicalUnit    `json:"price_unit,omitempty"`
	PurchasePrice decimal.Decimal  `json:"purchase_price"`
	ID            int64            `json:"id"`
}

// HasPrice reports whether the row carries a usable purchase price.
func (r *IngredientRow) HasPrice() bool {
	return r.PurchasePrice.IsPositive()
}
