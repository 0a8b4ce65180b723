// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// TxRunner runs fn as one unit of work. Stores called with the ctx handed
// to fn take part in the same transaction; returning an error rolls back.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LedgerStore persists ledger entries.
type LedgerStore interface {
	CreateEntry(ctx context.Context, e *domain.LedgerEntry) error
	GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error)
	UpdateEntry(ctx context.Context, e *domain.LedgerEntry) error
	DeleteEntry(ctx context.Context, id string) error

	// ListEntries applies the filter and pagination; total is the filtered count.
	ListEntries(ctx context.Context, f domain.ListFilter) (entries []domain.LedgerEntry, total int, err error)
	// EntriesBetween returns every entry in [p.Start, p.End).
	EntriesBetween(ctx context.Context, p domain.Period) ([]domain.LedgerEntry, error)
	// AllEntries returns the whole ledger.
	AllEntries(ctx context.Context) ([]domain.LedgerEntry, error)
	// GlobalBalance is Σ Credit − Σ Debit over the entire, unfiltered ledger.
	GlobalBalance(ctx context.Context) (decimal.Decimal, error)
}

// InvoiceStore is the invoicing collaborator.
type InvoiceStore interface {
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	SaveInvoice(ctx context.Context, inv *domain.Invoice) error
	ListOutstandingInvoices(ctx context.Context) ([]domain.Invoice, error)
}

// SalarySlipStore is the payroll collaborator.
type SalarySlipStore interface {
	GetSalarySlip(ctx context.Context, id string) (*domain.SalarySlip, error)
	SaveSalarySlip(ctx context.Context, slip *domain.SalarySlip) error
	// ListPayableSlips returns finalized slips of payroll-enabled users.
	ListPayableSlips(ctx context.Context) ([]domain.SalarySlip, error)
}

// BalanceSheetItemStore persists manual balance sheet adjustments.
type BalanceSheetItemStore interface {
	CreateItem(ctx context.Context, item *domain.BalanceSheetItem) error
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context) ([]domain.BalanceSheetItem, error)
}

// EventPublisher announces committed ledger mutations.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	// SetIfAbsent stores value unless a live entry exists; it returns the
	// existing value and false in that case.
	SetIfAbsent(key string, value T) (T, bool)
	Delete(key string)
}

// SessionVerifier turns a bearer token into a session.
type SessionVerifier interface {
	Verify(token string) (*domain.Session, error)
}

// Clock is injected so statements and createdAt are testable.
type Clock func() time.Time
