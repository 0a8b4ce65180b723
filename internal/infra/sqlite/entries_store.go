package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/boddenberg/backoffice-ledger/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	sqlitedriver "modernc.org/sqlite"
)

// ============================================================
// Ledger entries (implements port.LedgerStore)
// ============================================================

const entryColumns = `id, entry_date, entry_type, accounting_category, category, amount_paise,
	description, payment_mode, ref_type, ref_id, ref_document_no, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (domain.LedgerEntry, error) {
	var (
		e                        domain.LedgerEntry
		date, created, updated   int64
		amount                   int64
		accounting               sql.NullString
		entryType, mode, refType string
	)
	err := s.Scan(&e.ID, &date, &entryType, &accounting, &e.Category, &amount,
		&e.Description, &mode, &refType, &e.Reference.ID, &e.Reference.DocumentNo,
		&e.CreatedBy, &created, &updated)
	if err != nil {
		return e, err
	}
	e.Date = fromMillis(date)
	e.Type = domain.EntryType(entryType)
	e.AccountingCategory = accounting.String
	e.Amount = fromPaise(amount)
	e.PaymentMode = domain.PaymentMode(mode)
	e.Reference.Type = domain.RefType(refType)
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return e, nil
}

func refTypeOrNone(r domain.RefType) string {
	if r == "" {
		return string(domain.RefNone)
	}
	return string(r)
}

func (d *DB) CreateEntry(ctx context.Context, e *domain.LedgerEntry) error {
	ctx, span := tracer.Start(ctx, "SQLite.CreateEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", e.ID))

	amount, err := toPaise(e.Amount)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	_, err = d.q(ctx).ExecContext(ctx,
		`INSERT INTO ledger_entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, toMillis(e.Date), string(e.Type), nullString(e.AccountingCategory), e.Category,
		amount, e.Description, string(e.PaymentMode), refTypeOrNone(e.Reference.Type),
		e.Reference.ID, e.Reference.DocumentNo, e.CreatedBy, toMillis(e.CreatedAt), toMillis(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (d *DB) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id))

	row := d.q(ctx).QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return &e, nil
}

func (d *DB) UpdateEntry(ctx context.Context, e *domain.LedgerEntry) error {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", e.ID))

	amount, err := toPaise(e.Amount)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	res, err := d.q(ctx).ExecContext(ctx,
		`UPDATE ledger_entries
		 SET entry_date = ?, entry_type = ?, accounting_category = ?, category = ?, amount_paise = ?,
		     description = ?, payment_mode = ?, updated_at = ?
		 WHERE id = ?`,
		toMillis(e.Date), string(e.Type), nullString(e.AccountingCategory), e.Category, amount,
		e.Description, string(e.PaymentMode), toMillis(e.UpdatedAt), e.ID,
	)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	if !ok {
		return &domain.ErrNotFound{Resource: "transaction", ID: e.ID}
	}
	return nil
}

func (d *DB) DeleteEntry(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteEntry")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", id))

	res, err := d.q(ctx).ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	if !ok {
		return &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	return nil
}

// likeEscaper escapes LIKE wildcards in user search input.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SQLite's lower() and LIKE fold ASCII only. Search compares both sides
// through unicode_lower instead. Accents are not folded.
func init() {
	sqlitedriver.MustRegisterDeterministicScalarFunction("unicode_lower", 1, unicodeLower)
}

func unicodeLower(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// listWhere builds the WHERE clause shared by the count and page queries.
func listWhere(f domain.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Type != "" {
		conds = append(conds, "entry_type = ?")
		args = append(args, string(f.Type))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		conds = append(conds, `(unicode_lower(description) LIKE ? ESCAPE '\'
			OR unicode_lower(category) LIKE ? ESCAPE '\'
			OR unicode_lower(payment_mode) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if f.Period != nil {
		conds = append(conds, "entry_date >= ? AND entry_date < ?")
		args = append(args, toMillis(f.Period.Start), toMillis(f.Period.End))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (d *DB) ListEntries(ctx context.Context, f domain.ListFilter) ([]domain.LedgerEntry, int, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListEntries")
	defer span.End()

	where, args := listWhere(f)

	var total int
	if err := d.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries` + where + ` ORDER BY entry_date DESC, created_at DESC`
	if !f.All {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, (f.Page-1)*f.Limit)
	}

	entries, err := d.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	span.SetAttributes(attribute.Int("entries.total", total), attribute.Int("entries.page", len(entries)))
	return entries, total, nil
}

func (d *DB) EntriesBetween(ctx context.Context, p domain.Period) ([]domain.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "SQLite.EntriesBetween")
	defer span.End()

	return d.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE entry_date >= ? AND entry_date < ? ORDER BY entry_date`,
		toMillis(p.Start), toMillis(p.End))
}

func (d *DB) AllEntries(ctx context.Context) ([]domain.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "SQLite.AllEntries")
	defer span.End()

	return d.queryEntries(ctx, `SELECT `+entryColumns+` FROM ledger_entries ORDER BY entry_date`)
}

func (d *DB) GlobalBalance(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GlobalBalance")
	defer span.End()

	var paise int64
	err := d.q(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN entry_type = 'Credit' THEN amount_paise ELSE -amount_paise END), 0)
		 FROM ledger_entries`).Scan(&paise)
	if err != nil {
		return decimal.Zero, fmt.Errorf("global balance: %w", err)
	}
	return fromPaise(paise), nil
}

func (d *DB) queryEntries(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := d.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
