package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hansang/unitprice/internal/common"
	"github.com/hansang/unitprice/internal/model"
	"github.com/hansang/unitprice/internal/service"
)

const ingredientColumns = `id, name, specification, unit, purchase_price, price_per_unit, price_unit, updated_at`

// GetIngredients retrieves catalog rows with keyset pagination. The result
// is ordered by id ascending so repeated calls with the last seen id stream
// the whole catalog.
func (s *SQLiteStorage) GetIngredients(ctx context.Context, filter service.RowFilter) ([]model.IngredientRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}

	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id > ?`
	args := []any{filter.AfterID}
	if filter.OnlyUnpriced {
		query += ` AND price_per_unit IS NULL`
	}
	if !filter.UpdatedBefore.IsZero() {
		// Bound as the same text shape CURRENT_TIMESTAMP writes, so the
		// comparison stays lexicographic over UTC timestamps.
		query += ` AND updated_at < ?`
		args = append(args, filter.UpdatedBefore.UTC().Format("2006-01-02 15:04:05"))
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get ingredients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.IngredientRow
	for rows.Next() {
		row, scanErr := scanIngredient(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		result = append(result, *row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingredients: %w", err)
	}

	return result, nil
}

// GetIngredientByID retrieves a single catalog row.
func (s *SQLiteStorage) GetIngredientByID(ctx context.Context, id int64) (*model.IngredientRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+ingredientColumns+` FROM ingredients WHERE id = ?`, id)

	ingredient, err := scanIngredient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ingredient %d: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return ingredient, nil
}

// SaveIngredients inserts or replaces catalog rows. Rows without an ID get
// one assigned; rows with an ID overwrite the stored version.
func (s *SQLiteStorage) SaveIngredients(ctx context.Context, ingredients []model.IngredientRow) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRows(ingredients); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO ingredients (name, specification, unit, purchase_price, price_per_unit, price_unit)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = insert.Close() }()

	replace, err := tx.PrepareContext(ctx, `
		INSERT INTO ingredients (id, name, specification, unit, purchase_price, price_per_unit, price_unit)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			specification = excluded.specification,
			unit = excluded.unit,
			purchase_price = excluded.purchase_price,
			price_per_unit = excluded.price_per_unit,
			price_unit = excluded.price_unit,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = replace.Close() }()

	for i := range ingredients {
		row := &ingredients[i]
		if row.ID > 0 {
			if _, execErr := replace.ExecContext(ctx, row.ID, row.Name, row.Specification, row.Unit,
				decimalColumn(row.PurchasePrice), nullDecimalColumn(row.PricePerUnit), string(row.PriceUnit)); execErr != nil {
				return fmt.Errorf("failed to upsert ingredient %d: %w", row.ID, execErr)
			}
			continue
		}
		res, execErr := insert.ExecContext(ctx, row.Name, row.Specification, row.Unit,
			decimalColumn(row.PurchasePrice), nullDecimalColumn(row.PricePerUnit), string(row.PriceUnit))
		if execErr != nil {
			return fmt.Errorf("failed to insert ingredient %q: %w", row.Name, execErr)
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return fmt.Errorf("failed to get ingredient ID: %w", idErr)
		}
		row.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ingredients: %w", err)
	}
	return nil
}

// CountIngredients counts catalog rows, optionally only those without a
// computed unit price.
func (s *SQLiteStorage) CountIngredients(ctx context.Context, onlyUnpriced bool) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	query := `SELECT COUNT(*) FROM ingredients`
	if onlyUnpriced {
		query += ` WHERE price_per_unit IS NULL`
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ingredients: %w", err)
	}
	return count, nil
}

// WriteUnitPrices writes a chunk of computed unit prices in one transaction.
// The call is atomic: either every update lands or none do.
func (s *SQLiteStorage) WriteUnitPrices(ctx context.Context, updates []service.UnitPriceUpdate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE ingredients
		SET price_per_unit = ?, price_unit = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare update: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, u := range updates {
		if _, execErr := stmt.ExecContext(ctx, nullDecimalColumn(u.PricePerUnit), string(u.Unit), u.ID); execErr != nil {
			return fmt.Errorf("failed to write unit price for ingredient %d: %w", u.ID, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unit prices: %w", err)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanIngredient.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngredient(r rowScanner) (*model.IngredientRow, error) {
	var row model.IngredientRow
	var purchasePrice string
	var pricePerUnit sql.NullString
	var priceUnit string
	var updatedAt time.Time

	if err := r.Scan(&row.ID, &row.Name, &row.Specification, &row.Unit,
		&purchasePrice, &pricePerUnit, &priceUnit, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan ingredient: %w", err)
	}

	price, err := scanDecimal(purchasePrice, "purchase_price")
	if err != nil {
		return nil, err
	}
	unitPrice, err := scanNullDecimal(pricePerUnit, "price_per_unit")
	if err != nil {
		return nil, err
	}

	row.PurchasePrice = price
	row.PricePerUnit = unitPrice
	row.PriceUnit = model.CanonicalUnit(priceUnit)
	row.UpdatedAt = updatedAt
	return &row, nil
}
