package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hansang/unitprice/internal/cli"
	"github.com/hansang/unitprice/internal/engine"
	"github.com/hansang/unitprice/internal/learn"
)

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse SPEC [UNIT]",
		Short: "Parse a single specification without touching the catalog",
		Long: `Run the normalizer and the full ruleset over one specification
string and print what happened. Useful for triaging rows the batch could
not price.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			rawSpec := args[0]
			rawUnit := ""
			if len(args) == 2 {
				rawUnit = args[1]
			}

			// Parsing is pure; no storage needed.
			eng := engine.New(nil)
			spec, result := eng.Parse(rawSpec, rawUnit)

			fmt.Printf("normalized:  %q\n", spec.Text)
			fmt.Printf("unit tag:    %s\n", spec.Tag)
			fmt.Printf("template:    %q\n", learn.SpecTemplate(spec.Text))

			if result.OK() {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("matched %s: %s %s (confidence %.2f)",
					result.MethodID, result.TotalAmount, result.Unit, result.Confidence)))
				return nil
			}

			fmt.Println(cli.FormatError(fmt.Sprintf("no result: %s", result.Reason)))
			if len(result.Trace) > 0 {
				fmt.Println(cli.SubtleStyle.Render("trace:\n  " + strings.Join(result.Trace, "\n  ")))
			}
			return nil
		},
	}
}
