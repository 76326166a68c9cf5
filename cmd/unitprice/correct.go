package main

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hansang/unitprice/internal/cli"
	"github.com/hansang/unitprice/internal/engine"
)

func correctCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correct ID PRICE",
		Short: "Record a human-corrected unit price for an ingredient",
		Long: `Overwrite an ingredient's computed unit price with a corrected
value. The correction is written through the feedback log and stored as a
learned pattern, so rows with the same specification shape benefit on the
next sweep.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ingredient id %q: %w", args[0], err)
			}
			corrected, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid corrected price %q: %w", args[1], err)
			}

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			outcome, err := engine.New(store).RecordCorrection(ctx, id, corrected)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"ingredient %d corrected to %s per %s",
				outcome.IngredientID, outcome.PricePerUnit, outcome.Unit)))
			return nil
		},
	}
}
