package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansang/unitprice/internal/model"
)

func parsed(total string, unit model.CanonicalUnit) *model.ParseResult {
	return &model.ParseResult{
		TotalAmount: decimal.RequireFromString(total),
		Unit:        unit,
		MethodID:    "weight_times_count",
		Confidence:  0.9,
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name   string
		price  string
		parsed *model.ParseResult
		want   string
	}{
		{
			name:   "exact integer division",
			price:  "50000",
			parsed: parsed("10000", model.Gram),
			want:   "5",
		},
		{
			name:   "fractional quotient",
			price:  "45000",
			parsed: parsed("18000", model.Milliliter),
			want:   "2.5",
		},
		{
			name:   "unit price per piece",
			price:  "5000",
			parsed: parsed("500", model.Piece),
			want:   "10",
		},
		{
			name:   "non-terminating quotient is bounded",
			price:  "100",
			parsed: parsed("3", model.Gram),
			want:   "33.3333333333333333",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(decimal.RequireFromString(tt.price), tt.parsed)
			require.NotNil(t, got)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"price = %s, want %s", got, tt.want)
		})
	}
}

func TestCalculateSkips(t *testing.T) {
	t.Run("zero price means unknown, not free", func(t *testing.T) {
		assert.Nil(t, Calculate(decimal.Zero, parsed("500", model.Gram)))
	})

	t.Run("negative price", func(t *testing.T) {
		assert.Nil(t, Calculate(decimal.NewFromInt(-100), parsed("500", model.Gram)))
	})

	t.Run("failed parse", func(t *testing.T) {
		failed := &model.ParseResult{Reason: model.ReasonNoPatternMatch}
		assert.Nil(t, Calculate(decimal.NewFromInt(1000), failed))
	})

	t.Run("nil parse", func(t *testing.T) {
		assert.Nil(t, Calculate(decimal.NewFromInt(1000), nil))
	})

	t.Run("total below the guard floor", func(t *testing.T) {
		tiny := &model.ParseResult{
			TotalAmount: decimal.New(1, -12),
			Unit:        model.Gram,
			Confidence:  0.9,
		}
		assert.Nil(t, Calculate(decimal.NewFromInt(1000), tiny))
	})
}

func TestDisplay(t *testing.T) {
	price := decimal.RequireFromString("33.3333333333333333")

	assert.Equal(t, "33.33", Display(price, 2))
	assert.Equal(t, "33.333", Display(price, 3))
	assert.Equal(t, "33.3333", Display(price, 4))
	assert.Equal(t, "33.33", Display(price, 0), "places below two clamp to two")
	assert.Equal(t, "33.3333", Display(price, 9), "places above four clamp to four")
}
