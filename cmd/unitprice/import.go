package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hansang/unitprice/internal/cli"
	"github.com/hansang/unitprice/internal/model"
)

// importChunkSize bounds memory while loading large catalog exports.
const importChunkSize = 500

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE.csv",
		Short: "Seed the catalog from a CSV export",
		Long: `Load catalog rows from a CSV file with the columns
name,specification,unit,purchase_price. A header row is detected and
skipped. Rows are inserted as new ingredients.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	imported := 0
	skipped := 0
	chunk := make([]model.IngredientRow, 0, importChunkSize)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := store.SaveIngredients(ctx, chunk); err != nil {
			return fmt.Errorf("failed to save chunk: %w", err)
		}
		imported += len(chunk)
		chunk = chunk[:0]
		return nil
	}

	for line := 1; ; line++ {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("failed to read line %d: %w", line, readErr)
		}

		row, ok := parseImportRecord(record)
		if !ok {
			skipped++
			continue
		}
		chunk = append(chunk, row)
		if len(chunk) >= importChunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("imported %d rows (%d skipped)", imported, skipped)))
	return nil
}

// parseImportRecord converts one CSV record into an ingredient row. Header
// rows and records with an unparseable price are skipped.
func parseImportRecord(record []string) (model.IngredientRow, bool) {
	if len(record) < 4 {
		return model.IngredientRow{}, false
	}
	priceField := strings.TrimSpace(record[3])
	if priceField == "" || strings.EqualFold(priceField, "purchase_price") {
		return model.IngredientRow{}, false
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(priceField, ",", ""))
	if err != nil || price.IsNegative() {
		return model.IngredientRow{}, false
	}
	return model.IngredientRow{
		Name:          strings.TrimSpace(record[0]),
		Specification: strings.TrimSpace(record[1]),
		Unit:          strings.TrimSpace(record[2]),
		PurchasePrice: price,
	}, true
}
