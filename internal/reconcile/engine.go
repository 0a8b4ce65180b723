package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("reconcile")

// Engine applies ledger mutations to the referenced Invoice or SalarySlip.
// A referenced document that no longer exists is skipped; any other store
// error is returned so the caller can roll the ledger write back.
type Engine struct {
	invoices port.InvoiceStore
	slips    port.SalarySlipStore
	logger   *zap.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(invoices port.InvoiceStore, slips port.SalarySlipStore, logger *zap.Logger) *Engine {
	return &Engine{invoices: invoices, slips: slips, logger: logger}
}

// OnCreate records a new payment against the referenced document.
func (e *Engine) OnCreate(ctx context.Context, entry *domain.LedgerEntry) (domain.ReconciliationOutcome, error) {
	ctx, span := tracer.Start(ctx, "Reconcile.OnCreate")
	defer span.End()

	switch entry.Reference.Type {
	case domain.RefInvoice:
		return e.withInvoice(ctx, entry, func(inv *domain.Invoice) {
			ApplyPayment(inv, entry)
		})
	case domain.RefSalarySlip:
		return e.withSlip(ctx, entry, func(slip *domain.SalarySlip) {
			MarkSlipPaid(slip, entry.Date)
		})
	}
	return domain.ReconciliationOutcome{Status: domain.ReconcileNone}, nil
}

// OnUpdate resyncs the document after an edit. before is the entry as it
// was loaded; after carries the patched values.
func (e *Engine) OnUpdate(ctx context.Context, before, after *domain.LedgerEntry) (domain.ReconciliationOutcome, error) {
	ctx, span := tracer.Start(ctx, "Reconcile.OnUpdate")
	defer span.End()

	switch after.Reference.Type {
	case domain.RefInvoice:
		delta := after.Amount.Sub(before.Amount)
		return e.withInvoice(ctx, after, func(inv *domain.Invoice) {
			AdjustPayment(inv, after, delta)
		})
	case domain.RefSalarySlip:
		return e.withSlip(ctx, after, func(slip *domain.SalarySlip) {
			SyncSlipDate(slip, after.Date)
		})
	}
	return domain.ReconciliationOutcome{Status: domain.ReconcileNone}, nil
}

// OnDelete reverses whatever the entry applied.
func (e *Engine) OnDelete(ctx context.Context, entry *domain.LedgerEntry) (domain.ReconciliationOutcome, error) {
	ctx, span := tracer.Start(ctx, "Reconcile.OnDelete")
	defer span.End()

	switch entry.Reference.Type {
	case domain.RefInvoice:
		return e.withInvoice(ctx, entry, func(inv *domain.Invoice) {
			ReversePayment(inv, entry)
		})
	case domain.RefSalarySlip:
		return e.withSlip(ctx, entry, func(slip *domain.SalarySlip) {
			RevertSlip(slip)
		})
	}
	return domain.ReconciliationOutcome{Status: domain.ReconcileNone}, nil
}

func (e *Engine) withInvoice(ctx context.Context, entry *domain.LedgerEntry, mutate func(*domain.Invoice)) (domain.ReconciliationOutcome, error) {
	ref := entry.Reference
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("invoice.id", ref.ID))

	inv, err := e.invoices.GetInvoice(ctx, ref.ID)
	if err != nil {
		if outcome, skip := e.skipped(entry, err); skip {
			return outcome, nil
		}
		return domain.ReconciliationOutcome{}, fmt.Errorf("load invoice %s: %w", ref.ID, err)
	}

	mutate(inv)

	if err := e.invoices.SaveInvoice(ctx, inv); err != nil {
		return domain.ReconciliationOutcome{}, fmt.Errorf("save invoice %s: %w", ref.ID, err)
	}

	e.logger.Debug("invoice reconciled",
		zap.String("invoice_id", inv.ID),
		zap.String("transaction_id", entry.ID),
		zap.String("amount_paid", inv.AmountPaid.String()),
		zap.String("status", string(inv.Status)),
	)
	return domain.ReconciliationOutcome{Document: domain.RefInvoice, DocumentID: ref.ID, Status: domain.ReconcileApplied}, nil
}

func (e *Engine) withSlip(ctx context.Context, entry *domain.LedgerEntry, mutate func(*domain.SalarySlip)) (domain.ReconciliationOutcome, error) {
	ref := entry.Reference
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("salary_slip.id", ref.ID))

	slip, err := e.slips.GetSalarySlip(ctx, ref.ID)
	if err != nil {
		if outcome, skip := e.skipped(entry, err); skip {
			return outcome, nil
		}
		return domain.ReconciliationOutcome{}, fmt.Errorf("load salary slip %s: %w", ref.ID, err)
	}

	mutate(slip)

	if err := e.slips.SaveSalarySlip(ctx, slip); err != nil {
		return domain.ReconciliationOutcome{}, fmt.Errorf("save salary slip %s: %w", ref.ID, err)
	}

	e.logger.Debug("salary slip reconciled",
		zap.String("salary_slip_id", slip.ID),
		zap.String("transaction_id", entry.ID),
		zap.String("status", string(slip.Status)),
	)
	return domain.ReconciliationOutcome{Document: domain.RefSalarySlip, DocumentID: ref.ID, Status: domain.ReconcileApplied}, nil
}

// skipped turns a missing document into a skipped outcome.
func (e *Engine) skipped(entry *domain.LedgerEntry, err error) (domain.ReconciliationOutcome, bool) {
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		return domain.ReconciliationOutcome{}, false
	}
	e.logger.Warn("reconciliation skipped: referenced document not found",
		zap.String("transaction_id", entry.ID),
		zap.String("reference_type", string(entry.Reference.Type)),
		zap.String("reference_id", entry.Reference.ID),
	)
	return domain.ReconciliationOutcome{
		Document:   entry.Reference.Type,
		DocumentID: entry.Reference.ID,
		Status:     domain.ReconcileSkipped,
		Reason:     err.Error(),
	}, true
}

// ============================================================
// Document mutations
// ============================================================

// ApplyPayment adds the entry to the invoice and appends its history row.
func ApplyPayment(inv *domain.Invoice, entry *domain.LedgerEntry) {
	inv.AmountPaid = inv.AmountPaid.Add(entry.Amount)
	inv.Status = InvoiceStatus(inv.AmountPaid, inv.TotalAmount)
	inv.PaymentHistory = append(inv.PaymentHistory, domain.PaymentRecord{
		Amount:        entry.Amount,
		Date:          entry.Date,
		Note:          paymentNote(entry),
		TransactionID: entry.ID,
	})
}

// AdjustPayment rewrites the entry's history row and, when the amount
// changed, moves amountPaid by delta.
func AdjustPayment(inv *domain.Invoice, entry *domain.LedgerEntry, delta decimal.Decimal) {
	for i := range inv.PaymentHistory {
		if inv.PaymentHistory[i].TransactionID != entry.ID {
			continue
		}
		inv.PaymentHistory[i].Amount = entry.Amount
		inv.PaymentHistory[i].Date = entry.Date
		inv.PaymentHistory[i].Note = paymentNote(entry)
		break
	}
	if delta.IsZero() {
		return
	}
	inv.AmountPaid = clampZero(inv.AmountPaid.Add(delta))
	inv.Status = InvoiceStatus(inv.AmountPaid, inv.TotalAmount)
}

// ReversePayment undoes ApplyPayment.
func ReversePayment(inv *domain.Invoice, entry *domain.LedgerEntry) {
	kept := inv.PaymentHistory[:0]
	for _, p := range inv.PaymentHistory {
		if p.TransactionID != entry.ID {
			kept = append(kept, p)
		}
	}
	inv.PaymentHistory = kept
	inv.AmountPaid = clampZero(inv.AmountPaid.Sub(entry.Amount))
	inv.Status = InvoiceStatus(inv.AmountPaid, inv.TotalAmount)
}

// MarkSlipPaid flags the slip as paid on the entry date.
func MarkSlipPaid(slip *domain.SalarySlip, on time.Time) {
	slip.Status = domain.SlipPaid
	paid := on
	slip.PaidOn = &paid
}

// SyncSlipDate keeps paidOn aligned with an edited entry date.
func SyncSlipDate(slip *domain.SalarySlip, on time.Time) {
	if slip.Status != domain.SlipPaid {
		return
	}
	paid := on
	slip.PaidOn = &paid
}

// RevertSlip returns a paid slip to finalized.
func RevertSlip(slip *domain.SalarySlip) {
	slip.Status = domain.SlipFinalized
	slip.PaidOn = nil
}

func paymentNote(entry *domain.LedgerEntry) string {
	if entry.Description != "" {
		return entry.Description
	}
	return fmt.Sprintf("Payment via %s", entry.PaymentMode)
}
