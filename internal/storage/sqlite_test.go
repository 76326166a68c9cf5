package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansang/unitprice/internal/common"
	"github.com/hansang/unitprice/internal/learn"
	"github.com/hansang/unitprice/internal/model"
	"github.com/hansang/unitprice/internal/service"
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRows() []model.IngredientRow {
	return []model.IngredientRow{
		{Name: "깐마늘", Specification: "1KG*10EA", Unit: "BOX", PurchasePrice: decimal.NewFromInt(50000)},
		{Name: "참기름", Specification: "300ML", Unit: "EA", PurchasePrice: decimal.NewFromInt(300)},
		{Name: "김밥김", Specification: "500매입", Unit: "BOX", PurchasePrice: decimal.NewFromInt(5000)},
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := createTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Migrate(context.Background()))
}

func TestSaveAndGetIngredients(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	rows := testRows()
	require.NoError(t, store.SaveIngredients(ctx, rows))

	// Inserted rows get ascending IDs assigned in place.
	for i, row := range rows {
		assert.Positive(t, row.ID, "row %d should have an ID", i)
		if i > 0 {
			assert.Greater(t, row.ID, rows[i-1].ID)
		}
	}

	got, err := store.GetIngredients(ctx, service.RowFilter{Limit: 100})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "깐마늘", got[0].Name)
	assert.Equal(t, "1KG*10EA", got[0].Specification)
	assert.True(t, got[0].PurchasePrice.Equal(decimal.NewFromInt(50000)))
	assert.Nil(t, got[0].PricePerUnit)
}

func TestGetIngredientsKeysetPagination(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	rows := testRows()
	require.NoError(t, store.SaveIngredients(ctx, rows))

	first, err := store.GetIngredients(ctx, service.RowFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := store.GetIngredients(ctx, service.RowFilter{AfterID: first[1].ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Greater(t, second[0].ID, first[1].ID)

	third, err := store.GetIngredients(ctx, service.RowFilter{AfterID: second[0].ID, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, third)
}

func TestGetIngredientsOnlyUnpriced(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	rows := testRows()
	require.NoError(t, store.SaveIngredients(ctx, rows))

	price := decimal.RequireFromString("5")
	require.NoError(t, store.WriteUnitPrices(ctx, []service.UnitPriceUpdate{
		{ID: rows[0].ID, PricePerUnit: &price, Unit: model.Gram},
	}))

	unpriced, err := store.GetIngredients(ctx, service.RowFilter{Limit: 100, OnlyUnpriced: true})
	require.NoError(t, err)
	require.Len(t, unpriced, 2)
	for _, row := range unpriced {
		assert.NotEqual(t, rows[0].ID, row.ID)
	}

	count, err := store.CountIngredients(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	total, err := store.CountIngredients(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestGetIngredientsUpdatedBefore(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	rows := testRows()
	require.NoError(t, store.SaveIngredients(ctx, rows))

	future, err := store.GetIngredients(ctx, service.RowFilter{
		Limit: 100, UpdatedBefore: time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Len(t, future, 3, "every row predates a future cutoff")

	past, err := store.GetIngredients(ctx, service.RowFilter{
		Limit: 100, UpdatedBefore: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.Empty(t, past, "no row predates a cutoff in the past")
}

func TestSaveIngredientsUpsertsByID(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	rows := testRows()
	require.NoError(t, store.SaveIngredients(ctx, rows))

	rows[0].Specification = "2KG*5EA"
	rows[0].PurchasePrice = decimal.NewFromInt(60000)
	require.NoError(t, store.SaveIngredients(ctx, rows[:1]))

	got, err := store.GetIngredientByID(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "2KG*5EA", got.Specification)
	assert.True(t, got.PurchasePrice.Equal(decimal.NewFromInt(60000)))

	count, err := store.CountIngredients(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "upsert must not create a duplicate")
}

func TestSaveIngredientsValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	assert.Error(t, store.SaveIngredients(ctx, nil))
	assert.Error(t, store.SaveIngredients(ctx, []model.IngredientRow{}))
	assert.Error(t, store.SaveIngredients(ctx, []model.IngredientRow{
		{Name: "bad", PurchasePrice: decimal.NewFromInt(-1)},
	}))
}

func TestGetIngredientByIDNotFound(t *testing.T) {
	store := createTestStorage(t)

	_, err := store.GetIngredientByID(context.Background(), 9999)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestWriteUnitPrices(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	rows := testRows()
	require.NoError(t, store.SaveIngredients(ctx, rows))

	// Full-precision decimals survive the TEXT round trip exactly.
	price := decimal.RequireFromString("2.4456521739130435")
	require.NoError(t, store.WriteUnitPrices(ctx, []service.UnitPriceUpdate{
		{ID: rows[0].ID, PricePerUnit: &price, Unit: model.Gram},
	}))

	got, err := store.GetIngredientByID(ctx, rows[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.PricePerUnit)
	assert.True(t, got.PricePerUnit.Equal(price), "stored %s, want %s", got.PricePerUnit, price)
	assert.Equal(t, model.Gram, got.PriceUnit)

	// A nil price clears the column back to unknown.
	require.NoError(t, store.WriteUnitPrices(ctx, []service.UnitPriceUpdate{
		{ID: rows[0].ID, PricePerUnit: nil},
	}))

	got, err = store.GetIngredientByID(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got.PricePerUnit)
}

func TestWriteUnitPricesEmptyIsNoop(t *testing.T) {
	store := createTestStorage(t)
	assert.NoError(t, store.WriteUnitPrices(context.Background(), nil))
}

func TestUpsertPatternCounters(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	upsert := service.PatternUpsert{
		SpecTemplate:   "*KG**EA",
		UnitTemplate:   "BOX",
		MethodID:       "weight_times_count",
		ReferenceTotal: decimal.NewFromInt(10000),
		Unit:           model.Gram,
		SuccessDelta:   1,
	}
	require.NoError(t, store.UpsertPattern(ctx, upsert))
	require.NoError(t, store.UpsertPattern(ctx, upsert))

	weaken := upsert
	weaken.SuccessDelta = 0
	weaken.FailureDelta = 1
	require.NoError(t, store.UpsertPattern(ctx, weaken))

	patterns, err := store.GetPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1, "same template triple must reinforce, not duplicate")

	p := patterns[0]
	assert.Equal(t, 2, p.SuccessCount)
	assert.Equal(t, 1, p.FailureCount)
	assert.InDelta(t, 2.0/3.0, p.Confidence(), 1e-12)
	assert.True(t, p.ReferenceTotal.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, model.Gram, p.Unit)
}

func TestUpsertPatternRefreshesReference(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	upsert := service.PatternUpsert{
		SpecTemplate:   "수입 창란젓",
		UnitTemplate:   "EA",
		MethodID:       model.MethodManualCorrection,
		ReferenceTotal: decimal.NewFromInt(4000),
		Unit:           model.Gram,
		SuccessDelta:   1,
	}
	require.NoError(t, store.UpsertPattern(ctx, upsert))

	// A later success replaces the stored total and unit.
	upsert.ReferenceTotal = decimal.NewFromInt(2500)
	upsert.Unit = model.Piece
	require.NoError(t, store.UpsertPattern(ctx, upsert))

	patterns, err := store.GetPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.True(t, patterns[0].ReferenceTotal.Equal(decimal.NewFromInt(2500)),
		"reference total = %s, want 2500", patterns[0].ReferenceTotal)
	assert.Equal(t, model.Piece, patterns[0].Unit)

	// A failure tick must not touch the reference.
	weaken := upsert
	weaken.SuccessDelta = 0
	weaken.FailureDelta = 1
	weaken.ReferenceTotal = decimal.NewFromInt(9999)
	weaken.Unit = model.Milliliter
	require.NoError(t, store.UpsertPattern(ctx, weaken))

	patterns, err = store.GetPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.True(t, patterns[0].ReferenceTotal.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, model.Piece, patterns[0].Unit)
	assert.Equal(t, 2, patterns[0].SuccessCount)
	assert.Equal(t, 1, patterns[0].FailureCount)
}

func TestUpsertPatternDistinctMethods(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	base := service.PatternUpsert{
		SpecTemplate:   "*g",
		UnitTemplate:   "EA",
		MethodID:       "single_weight",
		ReferenceTotal: decimal.NewFromInt(500),
		Unit:           model.Gram,
		SuccessDelta:   1,
	}
	require.NoError(t, store.UpsertPattern(ctx, base))

	other := base
	other.MethodID = model.MethodManualCorrection
	require.NoError(t, store.UpsertPattern(ctx, other))

	patterns, err := store.GetPatterns(ctx)
	require.NoError(t, err)
	assert.Len(t, patterns, 2)
}

func TestUpsertPatternValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	t.Run("at least one delta required", func(t *testing.T) {
		err := store.UpsertPattern(ctx, service.PatternUpsert{
			SpecTemplate: "*g", UnitTemplate: "EA", MethodID: "single_weight",
		})
		assert.ErrorIs(t, err, ErrInvalidUpsert)
	})

	t.Run("negative deltas rejected", func(t *testing.T) {
		err := store.UpsertPattern(ctx, service.PatternUpsert{
			SpecTemplate: "*g", UnitTemplate: "EA", MethodID: "single_weight",
			SuccessDelta: -1,
		})
		assert.ErrorIs(t, err, ErrInvalidUpsert)
	})

	t.Run("empty spec template allowed only for fallback methods", func(t *testing.T) {
		err := store.UpsertPattern(ctx, service.PatternUpsert{
			UnitTemplate: "KG", MethodID: "unit_fallback",
			ReferenceTotal: decimal.NewFromInt(1000), Unit: model.Gram,
			SuccessDelta: 1,
		})
		assert.NoError(t, err)

		err = store.UpsertPattern(ctx, service.PatternUpsert{
			UnitTemplate: "KG", MethodID: "single_weight",
			SuccessDelta: 1,
		})
		assert.Error(t, err)
	})
}

func TestFindCandidatePatterns(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	seed := func(specTemplate, unitTemplate, methodID string) {
		t.Helper()
		require.NoError(t, store.UpsertPattern(ctx, service.PatternUpsert{
			SpecTemplate:   specTemplate,
			UnitTemplate:   unitTemplate,
			MethodID:       methodID,
			ReferenceTotal: decimal.NewFromInt(100),
			Unit:           model.Gram,
			SuccessDelta:   1,
		}))
	}
	seed("*KG**EA", "BOX", "weight_times_count")
	seed("*KG**EA", learn.Wildcard, "weight_times_count")
	seed("*KG**EA", "EA", "weight_times_count")
	seed("*ML", "EA", "single_volume")

	t.Run("exact unit plus wildcard rows match", func(t *testing.T) {
		got, err := store.FindCandidatePatterns(ctx, "*KG**EA", "BOX")
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, p := range got {
			assert.True(t, learn.UnitCompatible(p.UnitTemplate, "BOX"))
		}
	})

	t.Run("wildcard query matches every unit", func(t *testing.T) {
		got, err := store.FindCandidatePatterns(ctx, "*KG**EA", learn.Wildcard)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("spec template must match exactly", func(t *testing.T) {
		got, err := store.FindCandidatePatterns(ctx, "*G**EA", "BOX")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestLastPatternWrite(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	last, err := store.LastPatternWrite(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero(), "empty store reports the zero time")

	require.NoError(t, store.UpsertPattern(ctx, service.PatternUpsert{
		SpecTemplate: "*g", UnitTemplate: "EA", MethodID: "single_weight",
		ReferenceTotal: decimal.NewFromInt(500), Unit: model.Gram, SuccessDelta: 1,
	}))

	last, err = store.LastPatternWrite(ctx)
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestRecordAndGetFeedback(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	rows := testRows()
	require.NoError(t, store.SaveIngredients(ctx, rows))

	auto := decimal.RequireFromString("5")
	entries := []*model.FeedbackEntry{
		{IngredientID: rows[0].ID, Specification: "1KG*10EA", Unit: "BOX",
			OriginalPrice: decimal.NewFromInt(50000), AutoResult: &auto, Kind: model.FeedbackAuto},
		{IngredientID: rows[1].ID, Specification: "???", Unit: "EA",
			OriginalPrice: decimal.NewFromInt(300), Kind: model.FeedbackCalculationFailed},
		{IngredientID: rows[2].ID, Specification: "???", Unit: "BOX",
			OriginalPrice: decimal.NewFromInt(5000), Kind: model.FeedbackCalculationFailed},
	}
	for _, e := range entries {
		require.NoError(t, store.RecordFeedback(ctx, e))
		assert.Positive(t, e.ID)
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := store.GetFeedback(ctx, service.FeedbackFilter{Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, entries[2].ID, got[0].ID)
		require.NotNil(t, got[2].AutoResult)
		assert.True(t, got[2].AutoResult.Equal(auto))
	})

	t.Run("kind filter", func(t *testing.T) {
		got, err := store.GetFeedback(ctx, service.FeedbackFilter{
			Kind: model.FeedbackCalculationFailed, Limit: 10,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, e := range got {
			assert.Equal(t, model.FeedbackCalculationFailed, e.Kind)
		}
	})

	t.Run("limit applies", func(t *testing.T) {
		got, err := store.GetFeedback(ctx, service.FeedbackFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestRecordFeedbackValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	assert.Error(t, store.RecordFeedback(ctx, nil))
	assert.Error(t, store.RecordFeedback(ctx, &model.FeedbackEntry{
		Kind: model.FeedbackAuto,
	}), "ingredient id is required")
	assert.Error(t, store.RecordFeedback(ctx, &model.FeedbackEntry{
		IngredientID: 1, Kind: model.FeedbackKind("bogus"),
	}))
}
