package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hansang/unitprice/internal/cli"
	"github.com/hansang/unitprice/internal/model"
	"github.com/hansang/unitprice/internal/service"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "List calculation audit entries",
		Long: `Show the append-only feedback log. With --failed, only rows the
engine could not price are listed; this is the remediation queue for
manual correction.`,
		RunE: runFeedback,
	}

	cmd.Flags().Bool("failed", false, "only show failed calculations")
	cmd.Flags().Int("limit", 50, "maximum entries to show")

	return cmd
}

func runFeedback(cmd *cobra.Command, _ []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	failedOnly, _ := cmd.Flags().GetBool("failed")
	limit, _ := cmd.Flags().GetInt("limit")

	filter := service.FeedbackFilter{Limit: limit}
	if failedOnly {
		filter.Kind = model.FeedbackCalculationFailed
	}

	entries, err := store.GetFeedback(ctx, filter)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println(cli.FormatSuccess("No matching feedback entries"))
		return nil
	}

	for _, e := range entries {
		result := "unknown"
		if e.CorrectedResult != nil {
			result = e.CorrectedResult.String() + " (corrected)"
		} else if e.AutoResult != nil {
			result = e.AutoResult.String()
		}
		line := fmt.Sprintf("#%-6d ingredient=%-6d %-20s spec=%-30q price=%s result=%s",
			e.ID, e.IngredientID, e.Kind, e.Specification, e.OriginalPrice, result)
		if e.Kind == model.FeedbackCalculationFailed {
			fmt.Println(cli.ErrorStyle.Render(line))
		} else {
			fmt.Println(line)
		}
	}
	return nil
}
