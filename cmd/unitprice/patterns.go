package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hansang/unitprice/internal/cli"
	"github.com/hansang/unitprice/internal/learn"
)

func patternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List learned specification patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			patterns, err := store.GetPatterns(ctx)
			if err != nil {
				return err
			}
			if len(patterns) == 0 {
				fmt.Println(cli.FormatWarning("No learned patterns yet - run a batch first"))
				return nil
			}

			for _, p := range patterns {
				confidence := p.Confidence()
				line := fmt.Sprintf("%-40q %-8s %-24s conf=%.2f (+%d/-%d)",
					p.SpecTemplate, p.UnitTemplate, p.MethodID,
					confidence, p.SuccessCount, p.FailureCount)
				if confidence >= learn.MinConfidence && p.SuccessCount >= learn.MinSuccesses {
					fmt.Println(cli.SuccessStyle.Render(line))
				} else {
					fmt.Println(cli.SubtleStyle.Render(line))
				}
			}
			return nil
		},
	}
}
