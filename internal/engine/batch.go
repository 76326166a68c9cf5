package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hansang/unitprice/internal/common"
	"github.com/hansang/unitprice/internal/model"
	"github.com/hansang/unitprice/internal/service"
)

// Progress is emitted after every committed chunk.
type Progress struct {
	Elapsed        time.Duration
	Processed      int
	Success        int
	SkippedNoSpec  int
	SkippedNoPrice int
	Failed         int
}

// ProgressFunc receives chunk progress events. May be nil.
type ProgressFunc func(Progress)

// ReasonCount pairs a failure reason with how often it occurred.
type ReasonCount struct {
	Reason model.FailureReason
	Count  int
}

// Report summarizes a completed batch run.
type Report struct {
	Duration          time.Duration
	TopFailureReasons []ReasonCount
	Total             int
	Success           int
	LearnedHits       int
	FallbackHits      int
	Failed            int
	SkippedNoSpec     int
	SkippedNoPrice    int
}

// RunBatch streams the catalog in chunks, prices every row, and writes each
// chunk back atomically. A single row's failure never aborts the batch; a
// chunk write failure is retried once and then surfaced with the chunk
// range. Cancellation is honored between chunks, so a cancel after a commit
// is durable and before a commit is a no-op.
func (e *Engine) RunBatch(ctx context.Context, cfg Config, onProgress ProgressFunc) (*Report, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}

	slog.Info("Starting pricing batch",
		"chunk_size", cfg.ChunkSize,
		"only_unpriced", cfg.OnlyUnpriced,
		"stale_only", cfg.StaleOnly)

	start := time.Now()
	report := &Report{}
	reasons := make(map[model.FailureReason]int)
	var afterID int64

	// A stale-only sweep snapshots the pattern store's high-water mark up
	// front; reinforcements during the sweep must not widen the window.
	var staleBefore time.Time
	if cfg.StaleOnly {
		last, err := e.storage.LastPatternWrite(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to read last pattern write: %w", err)
		}
		if last.IsZero() {
			// Nothing has been learned, so no row can benefit.
			report.Duration = time.Since(start)
			return report, nil
		}
		staleBefore = last
	}

	for {
		select {
		case <-ctx.Done():
			report.Duration = time.Since(start)
			report.TopFailureReasons = topReasons(reasons)
			return report, ctx.Err()
		default:
		}

		rows, err := e.storage.GetIngredients(ctx, service.RowFilter{
			AfterID:       afterID,
			Limit:         cfg.ChunkSize,
			OnlyUnpriced:  cfg.OnlyUnpriced,
			UpdatedBefore: staleBefore,
		})
		if err != nil {
			return report, fmt.Errorf("failed to read catalog chunk after id %d: %w", afterID, err)
		}
		if len(rows) == 0 {
			break
		}

		updates := make([]service.UnitPriceUpdate, 0, len(rows))
		for i := range rows {
			row := &rows[i]
			outcome, rowErr := e.PriceRow(ctx, row)
			if rowErr != nil {
				// Row-level failures are recovered: null result, keep going.
				slog.Error("Row pricing failed",
					"ingredient_id", row.ID, "error", rowErr)
				outcome = &model.CalculationOutcome{
					IngredientID: row.ID,
					Source:       model.SourceFailed,
					Timestamp:    time.Now(),
				}
			}

			e.tally(report, reasons, row, outcome)

			// Iterator order is preserved on write-back.
			updates = append(updates, service.UnitPriceUpdate{
				ID:           row.ID,
				PricePerUnit: outcome.PricePerUnit,
				Unit:         outcome.Unit,
			})
		}

		if err := e.writeChunk(ctx, updates); err != nil {
			report.Duration = time.Since(start)
			report.TopFailureReasons = topReasons(reasons)
			return report, fmt.Errorf("chunk write failed for ids %d..%d: %w",
				rows[0].ID, rows[len(rows)-1].ID, err)
		}

		report.Total += len(rows)
		afterID = rows[len(rows)-1].ID

		if onProgress != nil {
			onProgress(Progress{
				Processed:      report.Total,
				Success:        report.Success,
				SkippedNoSpec:  report.SkippedNoSpec,
				SkippedNoPrice: report.SkippedNoPrice,
				Failed:         report.Failed,
				Elapsed:        time.Since(start),
			})
		}
	}

	report.Duration = time.Since(start)
	report.TopFailureReasons = topReasons(reasons)

	slog.Info("Pricing batch complete",
		"total", report.Total,
		"success", report.Success,
		"learned_hits", report.LearnedHits,
		"fallback_hits", report.FallbackHits,
		"failed", report.Failed,
		"duration", report.Duration)

	return report, nil
}

// tally folds one row outcome into the running report.
func (e *Engine) tally(report *Report, reasons map[model.FailureReason]int, row *model.IngredientRow, outcome *model.CalculationOutcome) {
	switch {
	case !row.HasPrice():
		report.SkippedNoPrice++
	case outcome.Source == model.SourceFailed && outcome.Reason == model.ReasonEmptySpec:
		report.SkippedNoSpec++
	case outcome.PricePerUnit == nil:
		report.Failed++
		if outcome.Reason != "" {
			reasons[outcome.Reason]++
		}
	default:
		report.Success++
		if outcome.Source == model.SourceLearnedPattern {
			report.LearnedHits++
		}
		if outcome.Source == model.SourceFallback {
			report.FallbackHits++
		}
	}
}

// writeChunk writes one chunk's results, retrying once on failure.
func (e *Engine) writeChunk(ctx context.Context, updates []service.UnitPriceUpdate) error {
	return common.WithRetry(ctx, func() error {
		return e.storage.WriteUnitPrices(ctx, updates)
	}, service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: 250 * time.Millisecond,
	})
}

// topReasons flattens the failure tally, most frequent first.
func topReasons(reasons map[model.FailureReason]int) []ReasonCount {
	out := make([]ReasonCount, 0, len(reasons))
	for reason, count := range reasons {
		out = append(out, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
