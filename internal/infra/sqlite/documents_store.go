package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/boddenberg/backoffice-ledger/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Invoices (implements port.InvoiceStore)
// ============================================================

func (d *DB) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", id))

	var (
		inv         domain.Invoice
		total, paid int64
		status      string
	)
	err := d.q(ctx).QueryRowContext(ctx,
		`SELECT id, invoice_no, total_paise, paid_paise, status FROM invoices WHERE id = ?`, id,
	).Scan(&inv.ID, &inv.InvoiceNo, &total, &paid, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.TotalAmount = fromPaise(total)
	inv.AmountPaid = fromPaise(paid)
	inv.Status = domain.InvoiceStatus(status)

	history, err := d.paymentHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.PaymentHistory = history
	return &inv, nil
}

func (d *DB) paymentHistory(ctx context.Context, invoiceID string) ([]domain.PaymentRecord, error) {
	rows, err := d.q(ctx).QueryContext(ctx,
		`SELECT amount_paise, paid_at, note, transaction_id
		 FROM invoice_payments WHERE invoice_id = ? ORDER BY position`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("query invoice payments: %w", err)
	}
	defer rows.Close()

	history := []domain.PaymentRecord{}
	for rows.Next() {
		var (
			p              domain.PaymentRecord
			amount, paidAt int64
		)
		if err := rows.Scan(&amount, &paidAt, &p.Note, &p.TransactionID); err != nil {
			return nil, fmt.Errorf("scan invoice payment: %w", err)
		}
		p.Amount = fromPaise(amount)
		p.Date = fromMillis(paidAt)
		history = append(history, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice payments: %w", err)
	}
	return history, nil
}

// SaveInvoice upserts the invoice and replaces its payment history.
func (d *DB) SaveInvoice(ctx context.Context, inv *domain.Invoice) error {
	ctx, span := tracer.Start(ctx, "SQLite.SaveInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", inv.ID))

	total, err := toPaise(inv.TotalAmount)
	if err != nil {
		return fmt.Errorf("upsert invoice: %w", err)
	}
	paid, err := toPaise(inv.AmountPaid)
	if err != nil {
		return fmt.Errorf("upsert invoice: %w", err)
	}

	return d.RunInTx(ctx, func(ctx context.Context) error {
		q := d.q(ctx)
		_, err := q.ExecContext(ctx,
			`INSERT INTO invoices (id, invoice_no, total_paise, paid_paise, status)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			     invoice_no = excluded.invoice_no,
			     total_paise = excluded.total_paise,
			     paid_paise = excluded.paid_paise,
			     status = excluded.status`,
			inv.ID, inv.InvoiceNo, total, paid, string(inv.Status),
		)
		if err != nil {
			return fmt.Errorf("upsert invoice: %w", err)
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM invoice_payments WHERE invoice_id = ?`, inv.ID); err != nil {
			return fmt.Errorf("clear invoice payments: %w", err)
		}
		for i, p := range inv.PaymentHistory {
			amount, err := toPaise(p.Amount)
			if err != nil {
				return fmt.Errorf("insert invoice payment: %w", err)
			}
			_, err = q.ExecContext(ctx,
				`INSERT INTO invoice_payments (invoice_id, position, amount_paise, paid_at, note, transaction_id)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				inv.ID, i, amount, toMillis(p.Date), p.Note, p.TransactionID,
			)
			if err != nil {
				return fmt.Errorf("insert invoice payment: %w", err)
			}
		}
		return nil
	})
}

// ListOutstandingInvoices returns Pending, Partial and Overdue invoices
// without their payment history.
func (d *DB) ListOutstandingInvoices(ctx context.Context) ([]domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListOutstandingInvoices")
	defer span.End()

	rows, err := d.q(ctx).QueryContext(ctx,
		`SELECT id, invoice_no, total_paise, paid_paise, status FROM invoices
		 WHERE status IN (?, ?, ?) ORDER BY id`,
		string(domain.InvoicePending), string(domain.InvoicePartial), string(domain.InvoiceOverdue))
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		var (
			inv         domain.Invoice
			total, paid int64
			status      string
		)
		if err := rows.Scan(&inv.ID, &inv.InvoiceNo, &total, &paid, &status); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		inv.TotalAmount = fromPaise(total)
		inv.AmountPaid = fromPaise(paid)
		inv.Status = domain.InvoiceStatus(status)
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return invoices, nil
}

// ============================================================
// Salary slips (implements port.SalarySlipStore)
// ============================================================

const slipSelect = `SELECT s.id, s.slip_no, s.user_id, COALESCE(e.enable_payroll, 0), s.net_pay_paise, s.status, s.paid_on
	FROM salary_slips s LEFT JOIN employees e ON e.id = s.user_id`

func scanSlip(s rowScanner) (domain.SalarySlip, error) {
	var (
		slip    domain.SalarySlip
		payroll int64
		netPay  int64
		status  string
		paidOn  sql.NullInt64
	)
	if err := s.Scan(&slip.ID, &slip.SlipNo, &slip.UserID, &payroll, &netPay, &status, &paidOn); err != nil {
		return slip, err
	}
	slip.PayrollEnabled = payroll != 0
	slip.NetPay = fromPaise(netPay)
	slip.Status = domain.SlipStatus(status)
	if paidOn.Valid {
		t := fromMillis(paidOn.Int64)
		slip.PaidOn = &t
	}
	return slip, nil
}

func (d *DB) GetSalarySlip(ctx context.Context, id string) (*domain.SalarySlip, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetSalarySlip")
	defer span.End()
	span.SetAttributes(attribute.String("salary_slip.id", id))

	slip, err := scanSlip(d.q(ctx).QueryRowContext(ctx, slipSelect+` WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "salary slip", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get salary slip: %w", err)
	}
	return &slip, nil
}

// SaveSalarySlip upserts the slip. The payroll flag belongs to the
// employee record and is not written here.
func (d *DB) SaveSalarySlip(ctx context.Context, slip *domain.SalarySlip) error {
	ctx, span := tracer.Start(ctx, "SQLite.SaveSalarySlip")
	defer span.End()
	span.SetAttributes(attribute.String("salary_slip.id", slip.ID))

	netPay, err := toPaise(slip.NetPay)
	if err != nil {
		return fmt.Errorf("upsert salary slip: %w", err)
	}
	var paidOn sql.NullInt64
	if slip.PaidOn != nil {
		paidOn = sql.NullInt64{Int64: toMillis(*slip.PaidOn), Valid: true}
	}
	_, err = d.q(ctx).ExecContext(ctx,
		`INSERT INTO salary_slips (id, slip_no, user_id, net_pay_paise, status, paid_on)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     slip_no = excluded.slip_no,
		     user_id = excluded.user_id,
		     net_pay_paise = excluded.net_pay_paise,
		     status = excluded.status,
		     paid_on = excluded.paid_on`,
		slip.ID, slip.SlipNo, slip.UserID, netPay, string(slip.Status), paidOn,
	)
	if err != nil {
		return fmt.Errorf("upsert salary slip: %w", err)
	}
	return nil
}

func (d *DB) ListPayableSlips(ctx context.Context) ([]domain.SalarySlip, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListPayableSlips")
	defer span.End()

	rows, err := d.q(ctx).QueryContext(ctx,
		slipSelect+` WHERE s.status = ? AND COALESCE(e.enable_payroll, 0) = 1 ORDER BY s.id`,
		string(domain.SlipFinalized))
	if err != nil {
		return nil, fmt.Errorf("query salary slips: %w", err)
	}
	defer rows.Close()

	slips := []domain.SalarySlip{}
	for rows.Next() {
		slip, err := scanSlip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan salary slip: %w", err)
		}
		slips = append(slips, slip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate salary slips: %w", err)
	}
	return slips, nil
}

// SaveEmployee upserts the payroll flag of a user.
func (d *DB) SaveEmployee(ctx context.Context, id, name string, enablePayroll bool) error {
	ctx, span := tracer.Start(ctx, "SQLite.SaveEmployee")
	defer span.End()

	flag := 0
	if enablePayroll {
		flag = 1
	}
	_, err := d.q(ctx).ExecContext(ctx,
		`INSERT INTO employees (id, name, enable_payroll) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, enable_payroll = excluded.enable_payroll`,
		id, name, flag,
	)
	if err != nil {
		return fmt.Errorf("upsert employee: %w", err)
	}
	return nil
}
