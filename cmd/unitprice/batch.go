package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hansang/unitprice/internal/cli"
	"github.com/hansang/unitprice/internal/engine"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Price the whole catalog",
		Long: `Stream the catalog in chunks, compute a price per base unit for
every row, and write the results back. Learned patterns short-circuit the
ruleset; every attempt is recorded in the feedback log.`,
		RunE: runBatch,
	}

	cmd.Flags().Int("chunk-size", engine.DefaultConfig().ChunkSize, "rows per write-back chunk")
	cmd.Flags().Bool("unpriced-only", false, "only process rows without a computed unit price")
	cmd.Flags().Bool("stale-only", false, "only revisit rows not touched since the newest learned pattern")

	return cmd
}

func runBatch(cmd *cobra.Command, _ []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	unpricedOnly, _ := cmd.Flags().GetBool("unpriced-only")
	staleOnly, _ := cmd.Flags().GetBool("stale-only")

	total, err := store.CountIngredients(ctx, unpricedOnly)
	if err != nil {
		return err
	}
	if total == 0 {
		fmt.Println(cli.FormatWarning("Nothing to price - the catalog is empty"))
		return nil
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Pricing catalog..."),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	processed := 0
	eng := engine.New(store)
	report, err := eng.RunBatch(ctx, engine.Config{
		ChunkSize:    chunkSize,
		OnlyUnpriced: unpricedOnly,
		StaleOnly:    staleOnly,
	}, func(p engine.Progress) {
		_ = bar.Add(p.Processed - processed)
		processed = p.Processed
	})
	if report != nil {
		fmt.Println(cli.RenderReport(report))
	}
	return err
}
