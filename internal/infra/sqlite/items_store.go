package sqlite

import (
	"context"
	"fmt"

	"github.com/boddenberg/backoffice-ledger/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Manual balance sheet items (implements port.BalanceSheetItemStore)
// ============================================================

func (d *DB) CreateItem(ctx context.Context, item *domain.BalanceSheetItem) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateItem")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", item.ID))

	amount, err := toPaise(item.Amount)
	if err != nil {
		return fmt.Errorf("insert balance sheet item: %w", err)
	}
	_, err = d.q(ctx).ExecContext(ctx,
		`INSERT INTO balance_sheet_items (id, name, category, amount_paise, notes, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, string(item.Category), amount, item.Notes, item.CreatedBy, toMillis(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert balance sheet item: %w", err)
	}
	return nil
}

func (d *DB) DeleteItem(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteItem")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", id))

	res, err := d.q(ctx).ExecContext(ctx, `DELETE FROM balance_sheet_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete balance sheet item: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("delete balance sheet item: %w", err)
	}
	if !ok {
		return &domain.ErrNotFound{Resource: "balance sheet item", ID: id}
	}
	return nil
}

func (d *DB) ListItems(ctx context.Context) ([]domain.BalanceSheetItem, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListItems")
	defer span.End()

	rows, err := d.q(ctx).QueryContext(ctx,
		`SELECT id, name, category, amount_paise, notes, created_by, created_at
		 FROM balance_sheet_items ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query balance sheet items: %w", err)
	}
	defer rows.Close()

	items := []domain.BalanceSheetItem{}
	for rows.Next() {
		var (
			item            domain.BalanceSheetItem
			category        string
			amount, created int64
		)
		if err := rows.Scan(&item.ID, &item.Name, &category, &amount, &item.Notes, &item.CreatedBy, &created); err != nil {
			return nil, fmt.Errorf("scan balance sheet item: %w", err)
		}
		item.Category = domain.BSItemCategory(category)
		item.Amount = fromPaise(amount)
		item.CreatedAt = fromMillis(created)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance sheet items: %w", err)
	}
	return items, nil
}
