package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/calendar"
	"github.com/boddenberg/backoffice-ledger/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, calendar.IST)
}

func newEntry(id string, typ domain.EntryType, amount string, date time.Time) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:          id,
		Date:        date,
		Type:        typ,
		Category:    "General",
		Amount:      d(amount),
		PaymentMode: domain.PaymentBankTransfer,
		CreatedAt:   date,
		UpdatedAt:   date,
	}
}

func TestEntries_CRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e := newEntry("tx-1", domain.EntryCredit, "1234.56", day(2024, 5, 3))
	e.AccountingCategory = "client_payment"
	e.Description = "Invoice INV-7"
	e.Reference = domain.Reference{Type: domain.RefInvoice, ID: "inv-7", DocumentNo: "INV-7"}
	e.CreatedBy = "user-1"
	require.NoError(t, db.CreateEntry(ctx, e))

	got, err := db.GetEntry(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(d("1234.56")))
	assert.True(t, got.Date.Equal(e.Date))
	assert.Equal(t, "client_payment", got.AccountingCategory)
	assert.Equal(t, e.Reference, got.Reference)
	assert.Equal(t, "user-1", got.CreatedBy)

	got.AccountingCategory = ""
	got.Amount = d("10")
	got.Description = "edited"
	require.NoError(t, db.UpdateEntry(ctx, got))

	again, err := db.GetEntry(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, again.IsLegacy())
	assert.True(t, again.Amount.Equal(d("10")))
	assert.Equal(t, "edited", again.Description)

	require.NoError(t, db.DeleteEntry(ctx, "tx-1"))
	_, err = db.GetEntry(ctx, "tx-1")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestEntries_MissingRowsAreNotFound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	var nf *domain.ErrNotFound

	err := db.UpdateEntry(ctx, newEntry("nope", domain.EntryDebit, "1", day(2024, 1, 1)))
	assert.True(t, errors.As(err, &nf))

	err = db.DeleteEntry(ctx, "nope")
	assert.True(t, errors.As(err, &nf))
}

func TestEntries_ListFiltersAndBalance(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seed := []*domain.LedgerEntry{
		newEntry("a", domain.EntryCredit, "1000", day(2024, 5, 1)),
		newEntry("b", domain.EntryDebit, "300", day(2024, 5, 20)),
		newEntry("c", domain.EntryDebit, "200", day(2024, 6, 2)),
		newEntry("d", domain.EntryCredit, "50", day(2023, 12, 31)),
	}
	seed[1].Description = "AWS Hosting"
	seed[2].PaymentMode = domain.PaymentCash
	for _, e := range seed {
		require.NoError(t, db.CreateEntry(ctx, e))
	}

	may, err := calendar.Month(2024, 5)
	require.NoError(t, err)
	entries, total, err := db.ListEntries(ctx, domain.ListFilter{Period: &may, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].ID, "newest first")

	entries, total, err = db.ListEntries(ctx, domain.ListFilter{Search: "hosting", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "b", entries[0].ID)

	_, total, err = db.ListEntries(ctx, domain.ListFilter{Search: "CASH", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, total, err = db.ListEntries(ctx, domain.ListFilter{Search: "100%", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	entries, total, err = db.ListEntries(ctx, domain.ListFilter{Type: domain.EntryDebit, Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].ID)

	entries, _, err = db.ListEntries(ctx, domain.ListFilter{All: true})
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	balance, err := db.GlobalBalance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("550")), "balance = %s", balance)

	between, err := db.EntriesBetween(ctx, may)
	require.NoError(t, err)
	assert.Len(t, between, 2)
}

func TestEntries_SearchFoldsNonASCIICase(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e := newEntry("fees", domain.EntryDebit, "900", day(2024, 6, 1))
	e.Description = "ÉCOLE fees"
	e.Category = "Ärztliche Leistungen"
	require.NoError(t, db.CreateEntry(ctx, e))

	for _, q := range []string{"ÉCOLE", "école", "École Fees", "ärztliche", "ÄRZT"} {
		_, total, err := db.ListEntries(ctx, domain.ListFilter{Search: q, Page: 1, Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, 1, total, q)
	}

	// No accent folding.
	_, total, err := db.ListEntries(ctx, domain.ListFilter{Search: "ecole", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestRunInTx_RollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.RunInTx(ctx, func(ctx context.Context) error {
		if err := db.CreateEntry(ctx, newEntry("tx-1", domain.EntryCredit, "10", day(2024, 1, 1))); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = db.GetEntry(ctx, "tx-1")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf), "entry must not survive rollback")
}

func TestInvoices_SaveAndHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	inv := &domain.Invoice{
		ID:          "inv-1",
		InvoiceNo:   "INV-001",
		TotalAmount: d("1000"),
		AmountPaid:  d("400"),
		Status:      domain.InvoicePartial,
		PaymentHistory: []domain.PaymentRecord{
			{Amount: d("400"), Date: day(2024, 5, 1), Note: "first", TransactionID: "tx-1"},
		},
	}
	require.NoError(t, db.SaveInvoice(ctx, inv))

	inv.AmountPaid = d("1000")
	inv.Status = domain.InvoicePaid
	inv.PaymentHistory = append(inv.PaymentHistory,
		domain.PaymentRecord{Amount: d("600"), Date: day(2024, 5, 9), Note: "second", TransactionID: "tx-2"})
	require.NoError(t, db.SaveInvoice(ctx, inv))

	got, err := db.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, got.Status)
	assert.True(t, got.AmountPaid.Equal(d("1000")))
	require.Len(t, got.PaymentHistory, 2)
	assert.Equal(t, "tx-2", got.PaymentHistory[1].TransactionID)

	require.NoError(t, db.SaveInvoice(ctx, &domain.Invoice{
		ID: "inv-2", TotalAmount: d("500"), AmountPaid: decimal.Zero, Status: domain.InvoiceOverdue,
	}))
	outstanding, err := db.ListOutstandingInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, outstanding, 1)
	assert.Equal(t, "inv-2", outstanding[0].ID)

	_, err = db.GetInvoice(ctx, "missing")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestSalarySlips_PayableRespectsPayrollFlag(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveEmployee(ctx, "u1", "Asha", true))
	require.NoError(t, db.SaveEmployee(ctx, "u2", "Ravi", false))

	paid := day(2024, 6, 30)
	slips := []*domain.SalarySlip{
		{ID: "s1", UserID: "u1", NetPay: d("30000"), Status: domain.SlipFinalized},
		{ID: "s2", UserID: "u2", NetPay: d("20000"), Status: domain.SlipFinalized},
		{ID: "s3", UserID: "u1", NetPay: d("25000"), Status: domain.SlipPaid, PaidOn: &paid},
	}
	for _, s := range slips {
		require.NoError(t, db.SaveSalarySlip(ctx, s))
	}

	payable, err := db.ListPayableSlips(ctx)
	require.NoError(t, err)
	require.Len(t, payable, 1)
	assert.Equal(t, "s1", payable[0].ID)
	assert.True(t, payable[0].PayrollEnabled)

	got, err := db.GetSalarySlip(ctx, "s3")
	require.NoError(t, err)
	require.NotNil(t, got.PaidOn)
	assert.True(t, got.PaidOn.Equal(paid))

	got.Status = domain.SlipFinalized
	got.PaidOn = nil
	require.NoError(t, db.SaveSalarySlip(ctx, got))
	got, err = db.GetSalarySlip(ctx, "s3")
	require.NoError(t, err)
	assert.Nil(t, got.PaidOn)
}

func TestItems_CRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	item := &domain.BalanceSheetItem{
		ID: "i1", Name: "Security deposit", Category: domain.BSItemCurrentAsset,
		Amount: d("15000"), Notes: "lease", CreatedBy: "user-1", CreatedAt: day(2024, 1, 1),
	}
	require.NoError(t, db.CreateItem(ctx, item))

	items, err := db.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Amount.Equal(d("15000")))
	assert.Equal(t, domain.BSItemCurrentAsset, items[0].Category)

	require.NoError(t, db.DeleteItem(ctx, "i1"))
	err = db.DeleteItem(ctx, "i1")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestPaiseRoundTrip(t *testing.T) {
	for _, v := range []string{"0.01", "1", "999.99", "1234567.89", "-250.5"} {
		p, err := toPaise(d(v))
		require.NoError(t, err, v)
		assert.True(t, fromPaise(p).Equal(d(v)), v)
	}
	p, err := toPaise(d("12.345"))
	require.NoError(t, err)
	assert.Equal(t, int64(1235), p)
}

func TestPaise_OutOfRange(t *testing.T) {
	for _, v := range []string{"184467440737095517", "92233720368547758.08", "-92233720368547758.09"} {
		_, err := toPaise(d(v))
		assert.ErrorIs(t, err, errAmountRange, v)
	}
	p, err := toPaise(d("92233720368547758.07"))
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), p)
}

func TestCreateEntry_RejectsUnstorableAmount(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e := newEntry("huge", domain.EntryCredit, "184467440737095517", day(2024, 6, 1))
	err := db.CreateEntry(ctx, e)
	assert.ErrorIs(t, err, errAmountRange)

	_, err = db.GetEntry(ctx, "huge")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf), "nothing should be written")
}
