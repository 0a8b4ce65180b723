package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// External documents (partial views)
// ============================================================

// InvoiceStatus is derived from amountPaid vs totalAmount once a payment exists.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "Pending"
	InvoicePartial   InvoiceStatus = "Partial"
	InvoicePaid      InvoiceStatus = "Paid"
	InvoiceOverdue   InvoiceStatus = "Overdue"
	InvoiceCancelled InvoiceStatus = "Cancelled"
)

// Outstanding reports whether the invoice is still receivable.
func (s InvoiceStatus) Outstanding() bool {
	return s == InvoicePending || s == InvoicePartial || s == InvoiceOverdue
}

// PaymentRecord is one row of an invoice's payment history. Each row maps
// to exactly one ledger entry through TransactionID.
type PaymentRecord struct {
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	Note          string          `json:"note"`
	TransactionID string          `json:"transactionId"`
}

// Invoice is the slice of an invoice the ledger reads and writes.
type Invoice struct {
	ID             string          `json:"id"`
	InvoiceNo      string          `json:"invoiceNo"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	AmountPaid     decimal.Decimal `json:"amountPaid"`
	Status         InvoiceStatus   `json:"status"`
	PaymentHistory []PaymentRecord `json:"paymentHistory"`
}

// Receivable is the unpaid remainder, never negative.
func (inv *Invoice) Receivable() decimal.Decimal {
	rest := inv.TotalAmount.Sub(inv.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// SlipStatus is the payroll lifecycle of a salary slip.
type SlipStatus string

const (
	SlipDraft     SlipStatus = "draft"
	SlipFinalized SlipStatus = "finalized"
	SlipPaid      SlipStatus = "paid"
)

// SalarySlip is the slice of a salary slip the ledger reads and writes.
type SalarySlip struct {
	ID             string          `json:"id"`
	SlipNo         string          `json:"slipNo"`
	UserID         string          `json:"userId"`
	PayrollEnabled bool            `json:"payrollEnabled"`
	NetPay         decimal.Decimal `json:"netPay"`
	Status         SlipStatus      `json:"status"`
	PaidOn         *time.Time      `json:"paidOn"`
}
