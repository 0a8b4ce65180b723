// Package reconcile keeps invoices and salary slips in step with the ledger
// entries that settle them.
package reconcile

import (
	"github.com/boddenberg/backoffice-ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// Tolerance absorbs rounding noise when comparing amountPaid to totalAmount.
var Tolerance = decimal.NewFromInt(1)

// InvoiceStatus derives the payment status of an invoice. It is the only
// place that sets status once a payment exists.
func InvoiceStatus(amountPaid, totalAmount decimal.Decimal) domain.InvoiceStatus {
	switch {
	case amountPaid.LessThanOrEqual(decimal.Zero):
		return domain.InvoicePending
	case amountPaid.GreaterThanOrEqual(totalAmount.Sub(Tolerance)):
		return domain.InvoicePaid
	default:
		return domain.InvoicePartial
	}
}

// clampZero floors d at zero.
func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
