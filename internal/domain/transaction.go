package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ============================================================
// Ledger entries
// ============================================================

// EntryType is the direction of a ledger entry.
type EntryType string

const (
	EntryCredit EntryType = "Credit"
	EntryDebit  EntryType = "Debit"
)

// Valid reports whether t is Credit or Debit.
func (t EntryType) Valid() bool {
	return t == EntryCredit || t == EntryDebit
}

// Sign is +1 for Credit and -1 for Debit.
func (t EntryType) Sign() int64 {
	if t == EntryDebit {
		return -1
	}
	return 1
}

// PaymentMode is how money moved.
type PaymentMode string

const (
	PaymentCash         PaymentMode = "Cash"
	PaymentBankTransfer PaymentMode = "Bank Transfer"
	PaymentUPI          PaymentMode = "UPI"
	PaymentCheque       PaymentMode = "Cheque"
	PaymentOther        PaymentMode = "Other"
)

// Valid reports whether m is a known payment mode.
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentBankTransfer, PaymentUPI, PaymentCheque, PaymentOther:
		return true
	}
	return false
}

// IsCash reports whether the entry settles in cash rather than the bank.
func (m PaymentMode) IsCash() bool { return m == PaymentCash }

// RefType names the external document a ledger entry settles.
type RefType string

const (
	RefNone       RefType = "None"
	RefInvoice    RefType = "Invoice"
	RefSalarySlip RefType = "SalarySlip"
)

// Valid reports whether r is a known reference type. Empty counts as None.
func (r RefType) Valid() bool {
	switch r {
	case "", RefNone, RefInvoice, RefSalarySlip:
		return true
	}
	return false
}

// Reference links an entry to an Invoice or SalarySlip.
type Reference struct {
	Type       RefType `json:"type"`
	ID         string  `json:"id,omitempty"`
	DocumentNo string  `json:"documentNo,omitempty"`
}

// Linked reports whether the reference points at a document.
func (r Reference) Linked() bool {
	return (r.Type == RefInvoice || r.Type == RefSalarySlip) && r.ID != ""
}

// LedgerEntry is a single dated monetary movement. Amount is always
// positive; the sign comes from Type at aggregation time.
type LedgerEntry struct {
	ID                 string          `json:"id"`
	Date               time.Time       `json:"date"`
	Type               EntryType       `json:"type"`
	AccountingCategory string          `json:"accountingCategory"`
	Category           string          `json:"category"`
	Amount             decimal.Decimal `json:"amount"`
	Description        string          `json:"description"`
	PaymentMode        PaymentMode     `json:"paymentMode"`
	Reference          Reference       `json:"reference"`
	CreatedBy          string          `json:"createdBy"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// IsLegacy reports whether the entry predates the accounting taxonomy.
func (e *LedgerEntry) IsLegacy() bool { return e.AccountingCategory == "" }

// Signed returns the amount with the sign implied by the entry type.
func (e *LedgerEntry) Signed() decimal.Decimal {
	if e.Type == EntryDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// CreateEntryRequest is the POST /v1/transactions payload.
type CreateEntryRequest struct {
	Date               string              `json:"date"`
	Type               EntryType           `json:"type"`
	Category           string              `json:"category"`
	AccountingCategory string              `json:"accountingCategory,omitempty"`
	Amount             decimal.NullDecimal `json:"amount"`
	Description        string              `json:"description"`
	PaymentMode        PaymentMode         `json:"paymentMode"`
	Reference          *Reference          `json:"reference,omitempty"`
}

// UpdateEntryRequest is the PUT /v1/transactions payload. Nil fields are
// left untouched; the reference cannot be changed after creation.
type UpdateEntryRequest struct {
	ID                 string              `json:"id"`
	Date               *string             `json:"date,omitempty"`
	Type               *EntryType          `json:"type,omitempty"`
	Category           *string             `json:"category,omitempty"`
	AccountingCategory *string             `json:"accountingCategory,omitempty"`
	Amount             decimal.NullDecimal `json:"amount"`
	Description        *string             `json:"description,omitempty"`
	PaymentMode        *PaymentMode        `json:"paymentMode,omitempty"`
}

// Period is a half-open instant range [Start, End).
type Period struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// ListFilter narrows GET /v1/transactions.
type ListFilter struct {
	Type   EntryType
	Search string
	Period *Period
	Page   int
	Limit  int
	All    bool
}

// ListResult is one page of entries plus the window-independent balance.
type ListResult struct {
	Entries       []LedgerEntry   `json:"data"`
	Total         int             `json:"total"`
	Page          int             `json:"page"`
	Limit         int             `json:"limit"`
	TotalPages    int             `json:"totalPages"`
	GlobalBalance decimal.Decimal `json:"globalBalance"`
}

// ReconcileStatus tells the client what happened to the referenced document.
type ReconcileStatus string

const (
	ReconcileNone    ReconcileStatus = "none"
	ReconcileApplied ReconcileStatus = "applied"
	ReconcileSkipped ReconcileStatus = "skipped"
)

// ReconciliationOutcome is attached to every mutation response.
type ReconciliationOutcome struct {
	Document   RefType         `json:"document,omitempty"`
	DocumentID string          `json:"documentId,omitempty"`
	Status     ReconcileStatus `json:"status"`
	Reason     string          `json:"reason,omitempty"`
}

// MutationResult is returned by create, update and delete.
type MutationResult struct {
	Entry          *LedgerEntry          `json:"entry"`
	Reconciliation ReconciliationOutcome `json:"reconciliation"`
}

// LedgerEvent is published after a mutation commits.
type LedgerEvent struct {
	Kind           string                `json:"kind"` // transaction.created, transaction.updated, transaction.deleted
	Entry          LedgerEntry           `json:"entry"`
	Reconciliation ReconciliationOutcome `json:"reconciliation"`
	Actor          string                `json:"actor"`
	OccurredAt     time.Time             `json:"occurredAt"`
}
