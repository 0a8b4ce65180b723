package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/calendar"
	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/infra/cache"
	"github.com/boddenberg/backoffice-ledger/internal/infra/observability"
	"github.com/boddenberg/backoffice-ledger/internal/infra/resilience"
	"github.com/boddenberg/backoffice-ledger/internal/reconcile"
	"github.com/boddenberg/backoffice-ledger/internal/service"
	"github.com/boddenberg/backoffice-ledger/internal/taxonomy"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Mocks ---

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, calendar.IST)

func clock() time.Time { return fixedNow }

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func amount(v string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d(v), Valid: true}
}

type memLedger struct {
	mu         sync.Mutex
	entries    map[string]domain.LedgerEntry
	lastFilter domain.ListFilter
	failAll    error
}

func newMemLedger() *memLedger {
	return &memLedger{entries: map[string]domain.LedgerEntry{}}
}

func (m *memLedger) CreateEntry(_ context.Context, e *domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = *e
	return nil
}

func (m *memLedger) GetEntry(_ context.Context, id string) (*domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	return &e, nil
}

func (m *memLedger) UpdateEntry(_ context.Context, e *domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		return &domain.ErrNotFound{Resource: "transaction", ID: e.ID}
	}
	m.entries[e.ID] = *e
	return nil
}

func (m *memLedger) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	delete(m.entries, id)
	return nil
}

func (m *memLedger) sorted() []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (m *memLedger) ListEntries(_ context.Context, f domain.ListFilter) ([]domain.LedgerEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = f

	var matched []domain.LedgerEntry
	for _, e := range m.sorted() {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Period != nil && !f.Period.Contains(e.Date) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(e.Description), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, e)
	}
	total := len(matched)
	if f.All {
		return matched, total, nil
	}
	start := (f.Page - 1) * f.Limit
	if start >= total {
		return nil, total, nil
	}
	end := min(start+f.Limit, total)
	return matched[start:end], total, nil
}

func (m *memLedger) EntriesBetween(_ context.Context, p domain.Period) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range m.sorted() {
		if p.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLedger) AllEntries(context.Context) ([]domain.LedgerEntry, error) {
	if m.failAll != nil {
		return nil, m.failAll
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(), nil
}

func (m *memLedger) GlobalBalance(context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, e := range m.entries {
		total = total.Add(e.Signed())
	}
	return total, nil
}

type memInvoices struct {
	mu       sync.Mutex
	invoices map[string]domain.Invoice
	saveErr  error
}

func copyInvoice(inv domain.Invoice) domain.Invoice {
	inv.PaymentHistory = append([]domain.PaymentRecord(nil), inv.PaymentHistory...)
	return inv
}

func (m *memInvoices) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "invoice", ID: id}
	}
	c := copyInvoice(inv)
	return &c, nil
}

func (m *memInvoices) SaveInvoice(_ context.Context, inv *domain.Invoice) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = copyInvoice(*inv)
	return nil
}

func (m *memInvoices) ListOutstandingInvoices(context.Context) ([]domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Invoice
	for _, inv := range m.invoices {
		if inv.Status.Outstanding() {
			out = append(out, copyInvoice(inv))
		}
	}
	return out, nil
}

type memSlips struct {
	mu    sync.Mutex
	slips map[string]domain.SalarySlip
}

func (m *memSlips) GetSalarySlip(_ context.Context, id string) (*domain.SalarySlip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slips[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "salary slip", ID: id}
	}
	return &s, nil
}

func (m *memSlips) SaveSalarySlip(_ context.Context, s *domain.SalarySlip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slips[s.ID] = *s
	return nil
}

func (m *memSlips) ListPayableSlips(context.Context) ([]domain.SalarySlip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SalarySlip
	for _, s := range m.slips {
		if s.Status == domain.SlipFinalized && s.PayrollEnabled {
			out = append(out, s)
		}
	}
	return out, nil
}

type memItems struct {
	mu    sync.Mutex
	items []domain.BalanceSheetItem
}

func (m *memItems) CreateItem(_ context.Context, item *domain.BalanceSheetItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, *item)
	return nil
}

func (m *memItems) DeleteItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.items {
		if item.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "balance sheet item", ID: id}
}

func (m *memItems) ListItems(context.Context) ([]domain.BalanceSheetItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.BalanceSheetItem(nil), m.items...), nil
}

// memTx restores the ledger and invoices when fn fails.
type memTx struct {
	ledger   *memLedger
	invoices *memInvoices
}

func (t *memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.ledger.mu.Lock()
	entries := make(map[string]domain.LedgerEntry, len(t.ledger.entries))
	for k, v := range t.ledger.entries {
		entries[k] = v
	}
	t.ledger.mu.Unlock()

	t.invoices.mu.Lock()
	invoices := make(map[string]domain.Invoice, len(t.invoices.invoices))
	for k, v := range t.invoices.invoices {
		invoices[k] = copyInvoice(v)
	}
	t.invoices.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.ledger.mu.Lock()
		t.ledger.entries = entries
		t.ledger.mu.Unlock()
		t.invoices.mu.Lock()
		t.invoices.invoices = invoices
		t.invoices.mu.Unlock()
		return err
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

var errBoom = errors.New("boom")

// --- Fixture ---

type fixture struct {
	ledger     *memLedger
	invoices   *memInvoices
	slips      *memSlips
	items      *memItems
	publisher  *recordingPublisher
	metrics    *observability.Metrics
	svc        *service.LedgerService
	statements *service.StatementService
}

func newFixture() *fixture {
	f := &fixture{
		ledger:    newMemLedger(),
		invoices:  &memInvoices{invoices: map[string]domain.Invoice{}},
		slips:     &memSlips{slips: map[string]domain.SalarySlip{}},
		items:     &memItems{},
		publisher: &recordingPublisher{},
		metrics:   observability.NewMetrics(),
	}
	logger := zap.NewNop()
	registry := taxonomy.Default()
	engine := reconcile.NewEngine(f.invoices, f.slips, logger)
	idem := cache.New[string](context.Background(), time.Hour)

	f.svc = service.NewLedgerService(f.ledger, &memTx{ledger: f.ledger, invoices: f.invoices},
		engine, registry, f.publisher, idem, f.metrics, clock, logger)
	f.statements = service.NewStatementService(f.ledger, f.invoices, f.slips, f.items,
		registry, resilience.NewBulkhead(2), f.metrics, clock, logger)
	return f
}

func creditFor(ref domain.RefType, id, value string) *domain.CreateEntryRequest {
	return &domain.CreateEntryRequest{
		Date:               "2024-06-10",
		Type:               domain.EntryCredit,
		AccountingCategory: "client_payment",
		Amount:             amount(value),
		Description:        "client payment",
		PaymentMode:        domain.PaymentBankTransfer,
		Reference:          &domain.Reference{Type: ref, ID: id},
	}
}
