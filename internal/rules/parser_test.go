package rules

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansang/unitprice/internal/model"
	"github.com/hansang/unitprice/internal/normalize"
)

func TestParserCatalogShapes(t *testing.T) {
	tests := []struct {
		name       string
		rawSpec    string
		rawUnit    string
		wantMethod string
		wantTotal  string
		wantUnit   model.CanonicalUnit
	}{
		{
			name:       "kilogram weight times ea count",
			rawSpec:    "1KG*10EA",
			rawUnit:    "BOX",
			wantMethod: "weight_times_count",
			wantTotal:  "10000",
			wantUnit:   model.Gram,
		},
		{
			name:       "gram weight times pac count",
			rawSpec:    "500G*20pac",
			rawUnit:    "EA",
			wantMethod: "weight_times_count",
			wantTotal:  "10000",
			wantUnit:   model.Gram,
		},
		{
			name:       "liter volume times count",
			rawSpec:    "18L*1ea",
			rawUnit:    "EA",
			wantMethod: "volume_times_count",
			wantTotal:  "18000",
			wantUnit:   model.Milliliter,
		},
		{
			name:       "bare volume",
			rawSpec:    "300ML",
			rawUnit:    "EA",
			wantMethod: "single_volume",
			wantTotal:  "300",
			wantUnit:   model.Milliliter,
		},
		{
			name:       "grouped pieces times boxes",
			rawSpec:    "(230G*10입)*4EA/BOX",
			rawUnit:    "BOX",
			wantMethod: "grouped_pieces_per_box",
			wantTotal:  "9200",
			wantUnit:   model.Gram,
		},
		{
			name:       "outer total beats the detail product",
			rawSpec:    "4.15Kg(415g*10입/10인치)",
			rawUnit:    "EA",
			wantMethod: "total_with_detail",
			wantTotal:  "4150",
			wantUnit:   model.Gram,
		},
		{
			name:       "sheet count only",
			rawSpec:    "500매입",
			rawUnit:    "BOX",
			wantMethod: "pieces_only",
			wantTotal:  "500",
			wantUnit:   model.Piece,
		},
		{
			name:       "empty spec falls back to a coercible unit",
			rawSpec:    "",
			rawUnit:    "KG",
			wantMethod: "unit_fallback",
			wantTotal:  "1000",
			wantUnit:   model.Gram,
		},
		{
			name:       "weight range resolves to its midpoint",
			rawSpec:    "400~600G",
			rawUnit:    "EA",
			wantMethod: "range_midpoint",
			wantTotal:  "500",
			wantUnit:   model.Gram,
		},
		{
			name:       "separator variants normalize before matching",
			rawSpec:    "1KG X 10EA",
			rawUnit:    "BOX",
			wantMethod: "weight_times_count",
			wantTotal:  "10000",
			wantUnit:   model.Gram,
		},
		{
			name:       "thousands commas in literals",
			rawSpec:    "1,000g",
			rawUnit:    "EA",
			wantMethod: "single_weight",
			wantTotal:  "1000",
			wantUnit:   model.Gram,
		},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(normalize.Normalize(tt.rawSpec, tt.rawUnit))
			require.True(t, got.OK(), "parse failed: reason=%q trace=%v", got.Reason, got.Trace)
			assert.Equal(t, tt.wantMethod, got.MethodID)
			assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString(tt.wantTotal)),
				"total = %s, want %s", got.TotalAmount, tt.wantTotal)
			assert.Equal(t, tt.wantUnit, got.Unit)
		})
	}
}

// Each case feeds the parser a spec that two adjacent rules both recognize
// and asserts the earlier rule claims it. Together they pin down the whole
// precedence chain.
func TestParserPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		rawSpec    string
		rawUnit    string
		wantMethod string
		wantTotal  string
	}{
		{
			name:       "kg per-ea declaration beats gram per-ea declaration",
			rawSpec:    "(100g*5입 2Kg/EA 1000g/EA)",
			rawUnit:    "EA",
			wantMethod: "detail_ea_total_kg",
			wantTotal:  "2000",
		},
		{
			name:       "gram per-ea declaration beats the grouped product",
			rawSpec:    "(230G*10입)*4EA/BOX 5000g/EA",
			rawUnit:    "BOX",
			wantMethod: "detail_ea_total_g",
			wantTotal:  "5000",
		},
		{
			name:       "grouped product beats the declared box total",
			rawSpec:    "(100g*10입)*2ea/box*5입*2봉 3kg/box",
			rawUnit:    "BOX",
			wantMethod: "grouped_pieces_per_box",
			wantTotal:  "2000",
		},
		{
			name:       "declared box total beats the leading total",
			rawSpec:    "3Kg(100g)*2입*1봉 2Kg/BOX",
			rawUnit:    "BOX",
			wantMethod: "declared_box_total",
			wantTotal:  "2000",
		},
		{
			name:       "leading total beats weight times count",
			rawSpec:    "4Kg(500g*10입)",
			rawUnit:    "EA",
			wantMethod: "total_with_detail",
			wantTotal:  "4000",
		},
		{
			name:       "weight times count beats volume times count",
			rawSpec:    "1kg*2ea 1L*3ea",
			rawUnit:    "EA",
			wantMethod: "weight_times_count",
			wantTotal:  "2000",
		},
		{
			name:       "volume times count beats pieces per box",
			rawSpec:    "2L*3입*4ea/box",
			rawUnit:    "BOX",
			wantMethod: "volume_times_count",
			wantTotal:  "6000",
		},
		{
			name:       "pieces per box beats the three-factor weight shape",
			rawSpec:    "3입*2ea/box 100g*5개*2ea/box",
			rawUnit:    "BOX",
			wantMethod: "pieces_per_box",
			wantTotal:  "6",
		},
		{
			name:       "three-factor weight shape beats single weight",
			rawSpec:    "100g*5개*2ea/box",
			rawUnit:    "BOX",
			wantMethod: "weight_count_per_box",
			wantTotal:  "1000",
		},
		{
			name:       "single weight beats single volume",
			rawSpec:    "500g 300ml",
			rawUnit:    "EA",
			wantMethod: "single_weight",
			wantTotal:  "500",
		},
		{
			name:       "single volume beats pieces only",
			rawSpec:    "300ml 500입",
			rawUnit:    "EA",
			wantMethod: "single_volume",
			wantTotal:  "300",
		},
		{
			name:       "pieces only beats the unit fallback",
			rawSpec:    "500매입",
			rawUnit:    "KG",
			wantMethod: "pieces_only",
			wantTotal:  "500",
		},
		{
			name:       "unit fallback beats the range midpoint",
			rawSpec:    "400~600G",
			rawUnit:    "KG",
			wantMethod: "unit_fallback",
			wantTotal:  "1000",
		},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(normalize.Normalize(tt.rawSpec, tt.rawUnit))
			require.True(t, got.OK(), "parse failed: reason=%q trace=%v", got.Reason, got.Trace)
			assert.Equal(t, tt.wantMethod, got.MethodID)
			assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString(tt.wantTotal)),
				"total = %s, want %s", got.TotalAmount, tt.wantTotal)
		})
	}
}

func TestParserFailures(t *testing.T) {
	p := NewParser()

	t.Run("empty spec with non-coercible unit", func(t *testing.T) {
		got := p.Parse(normalize.Normalize("", "EA"))
		assert.False(t, got.OK())
		assert.Equal(t, model.ReasonEmptySpec, got.Reason)
	})

	t.Run("no rule recognizes free text", func(t *testing.T) {
		got := p.Parse(normalize.Normalize("냉동 수입산", "EA"))
		assert.False(t, got.OK())
		assert.Equal(t, model.ReasonNoPatternMatch, got.Reason)
		assert.Len(t, got.Trace, len(Base()), "every rule should leave a decline note")
	})

	t.Run("numeric guard is terminal", func(t *testing.T) {
		// weight_times_count recognizes the shape but extracts zero; the
		// later single-weight rule must not get a second chance.
		got := p.Parse(normalize.Normalize("0G*5입", "EA"))
		assert.False(t, got.OK())
		assert.Equal(t, model.ReasonNumericGuard, got.Reason)
		assert.Equal(t, "weight_times_count", got.MethodID)
	})
}

func TestParserIsPure(t *testing.T) {
	p := NewParser()
	spec := normalize.Normalize("(230G*10입)*4EA/BOX", "BOX")

	first := p.Parse(spec)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.Parse(spec))
	}
}

func TestParserReplay(t *testing.T) {
	p := NewParser()
	spec := normalize.Normalize("1KG*10EA", "BOX")

	t.Run("replays a known method", func(t *testing.T) {
		got := p.Replay("weight_times_count", spec)
		require.NotNil(t, got)
		require.True(t, got.OK())
		assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(10000)))
	})

	t.Run("replay of a mismatched method declines", func(t *testing.T) {
		got := p.Replay("single_volume", spec)
		assert.Nil(t, got)
	})

	t.Run("unknown method yields nil", func(t *testing.T) {
		assert.Nil(t, p.Replay("no_such_method", spec))
	})
}
