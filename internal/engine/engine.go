// Package engine orchestrates ingredient pricing: normalization, the
// learned fast-path, the ruleset, calculation, write-back and feedback.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hansang/unitprice/internal/common"
	"github.com/hansang/unitprice/internal/learn"
	"github.com/hansang/unitprice/internal/model"
	"github.com/hansang/unitprice/internal/normalize"
	"github.com/hansang/unitprice/internal/pricing"
	"github.com/hansang/unitprice/internal/rules"
	"github.com/hansang/unitprice/internal/service"
)

// Engine runs the pricing pipeline over catalog rows.
type Engine struct {
	storage service.Storage
	parser  *rules.Parser
}

// Config holds configuration options for the pricing engine.
// StaleOnly restricts a sweep to rows last touched before the newest
// learned pattern, the ones a fresh pattern could improve.
type Config struct {
	ChunkSize    int
	OnlyUnpriced bool
	StaleOnly    bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 1000,
	}
}

// New creates a pricing engine over the given storage.
func New(storage service.Storage) *Engine {
	return &Engine{
		storage: storage,
		parser:  rules.NewParser(),
	}
}

// PriceRow runs the full pipeline for one catalog row: normalize, try the
// learned fast-path, fall back to the ruleset, calculate, and record
// feedback and reinforcement. It does not write the row back; the batch
// driver owns write-back so chunks stay atomic.
//
// A zero purchase price short-circuits: the row is not a calculation, gets
// a nil price and no feedback entry.
func (e *Engine) PriceRow(ctx context.Context, row *model.IngredientRow) (*model.CalculationOutcome, error) {
	outcome := &model.CalculationOutcome{
		IngredientID: row.ID,
		Timestamp:    time.Now(),
	}

	if !row.HasPrice() {
		outcome.Source = model.SourceFailed
		return outcome, nil
	}

	spec := normalize.Normalize(row.Specification, row.Unit)

	// Learned fast-path: the best proven pattern replays its method against
	// the current row's numbers.
	if parsed, pattern := e.tryLearned(ctx, spec, row); parsed != nil {
		price := pricing.Calculate(row.PurchasePrice, parsed)
		if price != nil {
			outcome.PricePerUnit = price
			outcome.Unit = parsed.Unit
			outcome.MethodID = parsed.MethodID
			outcome.Source = model.SourceLearnedPattern
			e.reinforce(ctx, spec, parsed, 1, 0)
			e.recordFeedback(ctx, row, model.FeedbackLearnedPattern, price, nil)
			return outcome, nil
		}
		// The pattern recognized the shape but the replay produced nothing
		// usable; weaken it and let the full ruleset have its turn.
		e.weaken(ctx, pattern)
	}

	parsed := e.parser.Parse(spec)
	if !parsed.OK() {
		outcome.Source = model.SourceFailed
		outcome.Reason = parsed.Reason
		if parsed.Reason != model.ReasonEmptySpec {
			e.recordFeedback(ctx, row, model.FeedbackCalculationFailed, nil, nil)
			slog.Debug("No pattern matched specification",
				"ingredient_id", row.ID,
				"specification", row.Specification,
				"reason", parsed.Reason)
		}
		return outcome, nil
	}

	price := pricing.Calculate(row.PurchasePrice, parsed)
	if price == nil {
		outcome.Source = model.SourceFailed
		outcome.Reason = model.ReasonNumericGuard
		e.recordFeedback(ctx, row, model.FeedbackCalculationFailed, nil, nil)
		return outcome, nil
	}

	outcome.PricePerUnit = price
	outcome.Unit = parsed.Unit
	outcome.MethodID = parsed.MethodID
	outcome.Source = model.SourceAuto
	kind := model.FeedbackAuto
	if parsed.MethodID == "unit_fallback" {
		outcome.Source = model.SourceFallback
		kind = model.FeedbackFallbackSuccess
	}

	e.reinforce(ctx, spec, parsed, 1, 0)
	e.recordFeedback(ctx, row, kind, price, nil)
	return outcome, nil
}

// RecordCorrection applies a human-entered unit price to a row: derives the
// implied total, stores a fresh manual_correction pattern, appends feedback
// and writes the corrected price through to the catalog.
func (e *Engine) RecordCorrection(ctx context.Context, id int64, corrected decimal.Decimal) (*model.CalculationOutcome, error) {
	if !corrected.IsPositive() {
		return nil, common.ErrCorrectionNeeded
	}

	row, err := e.storage.GetIngredientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.HasPrice() {
		return nil, fmt.Errorf("ingredient %d has no purchase price to correct against", id)
	}

	// The human told us the true unit price; the implied total quantity is
	// what makes the pattern replayable.
	total := row.PurchasePrice.DivRound(corrected, 16)
	if !total.IsPositive() {
		return nil, fmt.Errorf("correction for ingredient %d implies a non-positive total", id)
	}

	unit := row.PriceUnit
	if unit == "" {
		unit = model.Gram
	}

	spec := normalize.Normalize(row.Specification, row.Unit)
	upsert := service.PatternUpsert{
		SpecTemplate:   learn.SpecTemplate(spec.Text),
		UnitTemplate:   learn.UnitTemplate(spec.Tag),
		MethodID:       model.MethodManualCorrection,
		ReferenceTotal: total,
		Unit:           unit,
		Notes:          fmt.Sprintf("corrected from ingredient %d", id),
		SuccessDelta:   1,
	}
	if err := e.storage.UpsertPattern(ctx, upsert); err != nil {
		return nil, fmt.Errorf("failed to store correction pattern: %w", err)
	}

	e.recordFeedback(ctx, row, model.FeedbackManualCorrection, row.PricePerUnit, &corrected)

	update := service.UnitPriceUpdate{ID: row.ID, PricePerUnit: &corrected, Unit: unit}
	if err := e.storage.WriteUnitPrices(ctx, []service.UnitPriceUpdate{update}); err != nil {
		return nil, fmt.Errorf("failed to write corrected price: %w", err)
	}

	return &model.CalculationOutcome{
		IngredientID: row.ID,
		PricePerUnit: &corrected,
		Unit:         unit,
		MethodID:     model.MethodManualCorrection,
		Source:       model.SourceManualCorrection,
		Timestamp:    time.Now(),
	}, nil
}

// Parse exposes the ruleset walk for the debug command. No I/O, no learning.
func (e *Engine) Parse(rawSpec, rawUnit string) (normalize.Spec, *model.ParseResult) {
	spec := normalize.Normalize(rawSpec, rawUnit)
	return spec, e.parser.Parse(spec)
}

// tryLearned looks up the best eligible learned pattern for a row and
// replays its method. Returns the parse result and the pattern in play, or
// nils when no eligible pattern exists or the lookup fails.
func (e *Engine) tryLearned(ctx context.Context, spec normalize.Spec, row *model.IngredientRow) (*model.ParseResult, *model.LearnedPattern) {
	candidates, err := e.storage.FindCandidatePatterns(ctx,
		learn.SpecTemplate(spec.Text), learn.UnitTemplate(spec.Tag))
	if err != nil {
		slog.Warn("Pattern lookup failed, falling back to ruleset",
			"ingredient_id", row.ID, "error", err)
		return nil, nil
	}

	eligible := learn.Rank(candidates)
	if len(eligible) == 0 {
		return nil, nil
	}
	best := eligible[0]

	if best.MethodID == model.MethodManualCorrection {
		// Corrections carry no extractor; the derived total is the method.
		return &model.ParseResult{
			TotalAmount: best.ReferenceTotal,
			Unit:        best.Unit,
			MethodID:    best.MethodID,
			Confidence:  best.Confidence(),
		}, &best
	}

	parsed := e.parser.Replay(best.MethodID, spec)
	if parsed == nil || !parsed.OK() {
		e.weaken(ctx, &best)
		return nil, nil
	}
	return parsed, &best
}

// reinforce upserts the pattern generalized from a successful parse.
func (e *Engine) reinforce(ctx context.Context, spec normalize.Spec, parsed *model.ParseResult, successDelta, failureDelta int) {
	upsert := service.PatternUpsert{
		SpecTemplate:   learn.SpecTemplate(spec.Text),
		UnitTemplate:   learn.UnitTemplate(spec.Tag),
		MethodID:       parsed.MethodID,
		ReferenceTotal: parsed.TotalAmount,
		Unit:           parsed.Unit,
		SuccessDelta:   successDelta,
		FailureDelta:   failureDelta,
	}
	if err := e.storage.UpsertPattern(ctx, upsert); err != nil {
		slog.Warn("Failed to reinforce pattern",
			"method_id", parsed.MethodID, "error", err)
	}
}

// weaken ticks a pattern's failure counter after an unsuccessful replay.
func (e *Engine) weaken(ctx context.Context, pattern *model.LearnedPattern) {
	if pattern == nil {
		return
	}
	upsert := service.PatternUpsert{
		SpecTemplate:   pattern.SpecTemplate,
		UnitTemplate:   pattern.UnitTemplate,
		MethodID:       pattern.MethodID,
		ReferenceTotal: pattern.ReferenceTotal,
		Unit:           pattern.Unit,
		FailureDelta:   1,
	}
	if err := e.storage.UpsertPattern(ctx, upsert); err != nil {
		slog.Warn("Failed to weaken pattern",
			"pattern_id", pattern.ID, "error", err)
	}
}

// recordFeedback appends an audit entry; a failure to record is logged but
// never fails the row.
func (e *Engine) recordFeedback(ctx context.Context, row *model.IngredientRow, kind model.FeedbackKind, autoResult, correctedResult *decimal.Decimal) {
	entry := &model.FeedbackEntry{
		IngredientID:    row.ID,
		Specification:   row.Specification,
		Unit:            row.Unit,
		OriginalPrice:   row.PurchasePrice,
		AutoResult:      autoResult,
		CorrectedResult: correctedResult,
		Kind:            kind,
	}
	if err := e.storage.RecordFeedback(ctx, entry); err != nil {
		slog.Warn("Failed to record feedback",
			"ingredient_id", row.ID, "kind", kind, "error", err)
	}
}
