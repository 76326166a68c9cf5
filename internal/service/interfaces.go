// Package service defines the interfaces between the pricing engine and its
// collaborators.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hansang/unitprice/internal/model"
)

// RowFilter selects catalog rows for a batch sweep. Pagination is keyset:
// rows with ID greater than AfterID, ascending, at most Limit. A non-zero
// UpdatedBefore keeps only rows last touched before that instant.
type RowFilter struct {
	UpdatedBefore time.Time
	AfterID       int64
	Limit         int
	OnlyUnpriced  bool
}

// UnitPriceUpdate is one write-back entry. A nil price clears the column
// (the row's price is unknown).
type UnitPriceUpdate struct {
	PricePerUnit *decimal.Decimal
	Unit         model.CanonicalUnit
	ID           int64
}

// PatternUpsert creates or reinforces a learned pattern. The counter deltas
// are commutative so concurrent batches compose.
type PatternUpsert struct {
	SpecTemplate   string
	UnitTemplate   string
	MethodID       string
	Notes          string
	Unit           model.CanonicalUnit
	ReferenceTotal decimal.Decimal
	SuccessDelta   int
	FailureDelta   int
}

// FeedbackFilter selects audit entries. A zero Kind matches all kinds.
type FeedbackFilter struct {
	Kind  model.FeedbackKind
	Limit int
}

// Storage is the persistence contract the engine depends on.
type Storage interface {
	// Catalog operations.
	GetIngredients(ctx context.Context, filter RowFilter) ([]model.IngredientRow, error)
	GetIngredientByID(ctx context.Context, id int64) (*model.IngredientRow, error)
	SaveIngredients(ctx context.Context, rows []model.IngredientRow) error
	CountIngredients(ctx context.Context, onlyUnpriced bool) (int, error)
	// WriteUnitPrices is atomic per call; the caller owns chunking.
	WriteUnitPrices(ctx context.Context, updates []UnitPriceUpdate) error

	// Pattern store operations.
	FindCandidatePatterns(ctx context.Context, specTemplate, unitTemplate string) ([]model.LearnedPattern, error)
	UpsertPattern(ctx context.Context, upsert PatternUpsert) error
	GetPatterns(ctx context.Context) ([]model.LearnedPattern, error)
	LastPatternWrite(ctx context.Context) (time.Time, error)

	// Feedback operations (append-only).
	RecordFeedback(ctx context.Context, entry *model.FeedbackEntry) error
	GetFeedback(ctx context.Context, filter FeedbackFilter) ([]model.FeedbackEntry, error)

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for storage-boundary operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
