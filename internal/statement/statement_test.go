package statement_test

import (
	"testing"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/calendar"
	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/statement"
	"github.com/boddenberg/backoffice-ledger/internal/taxonomy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, calendar.IST)

func newBuilder() *statement.Builder {
	return statement.NewBuilder(taxonomy.Default(), func() time.Time { return fixedNow })
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func entry(id string, typ domain.EntryType, category, amount string, mode domain.PaymentMode, date time.Time) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:                 id,
		Date:               date,
		Type:               typ,
		AccountingCategory: category,
		Amount:             d(amount),
		PaymentMode:        mode,
	}
}

func findLine(t *testing.T, lines []domain.PLLine, label string) domain.PLLine {
	t.Helper()
	for _, l := range lines {
		if l.Label == label {
			return l
		}
	}
	t.Fatalf("line %q not found in %+v", label, lines)
	return domain.PLLine{}
}

func findBSLine(t *testing.T, s domain.BSSection, name string) domain.BSLine {
	t.Helper()
	for _, l := range s.Lines {
		if l.Name == name {
			return l
		}
	}
	t.Fatalf("line %q not found in section %s", name, s.Title)
	return domain.BSLine{}
}

// ============================================================
// Profit & Loss
// ============================================================

func TestProfitAndLoss_COGS(t *testing.T) {
	period, err := calendar.Month(2024, 5)
	require.NoError(t, err)
	may := time.Date(2024, 5, 10, 0, 0, 0, 0, calendar.IST)

	entries := []domain.LedgerEntry{
		entry("r1", domain.EntryCredit, "client_payment", "1000", domain.PaymentBankTransfer, may),
		entry("c1", domain.EntryDebit, "hosting_cloud", "100", domain.PaymentUPI, may),
	}
	pl := newBuilder().ProfitAndLoss(period, entries)

	assert.True(t, pl.TotalCOGS.Equal(d("100")), "totalCOGS = %s", pl.TotalCOGS)
	assert.True(t, pl.GrossProfit.Equal(pl.TotalRevenue.Sub(d("100"))))
	assert.True(t, pl.GrossProfit.Equal(d("900")))
	assert.Equal(t, "90.0", pl.GrossMargin)
	assert.Equal(t, 2, pl.EntryCount)

	line := findLine(t, pl.COGS.Lines, "Hosting & Cloud Infrastructure")
	assert.Equal(t, 1, line.Count)
}

func TestProfitAndLoss_Totals(t *testing.T) {
	period, err := calendar.Year(2024)
	require.NoError(t, err)
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, calendar.IST)

	entries := []domain.LedgerEntry{
		entry("1", domain.EntryCredit, "client_payment", "10000", domain.PaymentBankTransfer, at),
		entry("2", domain.EntryDebit, "contractor_payment", "2000", domain.PaymentBankTransfer, at),
		entry("3", domain.EntryDebit, "rent_office", "3000", domain.PaymentBankTransfer, at),
		entry("4", domain.EntryCredit, "interest_income", "500", domain.PaymentBankTransfer, at),
		entry("5", domain.EntryDebit, "income_tax", "1000", domain.PaymentBankTransfer, at),
		// No P&L effect.
		entry("6", domain.EntryCredit, "owner_capital", "50000", domain.PaymentBankTransfer, at),
		// Outside the window.
		entry("7", domain.EntryCredit, "client_payment", "999", domain.PaymentBankTransfer, at.AddDate(1, 0, 0)),
	}
	pl := newBuilder().ProfitAndLoss(period, entries)

	assert.True(t, pl.TotalRevenue.Equal(d("10000")))
	assert.True(t, pl.GrossProfit.Equal(d("8000")))
	assert.True(t, pl.OperatingIncome.Equal(d("5000")))
	assert.True(t, pl.TotalOtherIncome.Equal(d("500")))
	assert.True(t, pl.NetIncome.Equal(d("4500")), "netIncome = %s", pl.NetIncome)
	assert.Equal(t, "80.0", pl.GrossMargin)
	assert.Equal(t, "50.0", pl.OperatingMargin)
	assert.Equal(t, "45.0", pl.NetMargin)
	assert.Equal(t, 5, pl.EntryCount)
	assert.Equal(t, fixedNow, pl.GeneratedAt)
}

func TestProfitAndLoss_ZeroRevenueMargins(t *testing.T) {
	period, err := calendar.Year(2024)
	require.NoError(t, err)

	entries := []domain.LedgerEntry{
		entry("1", domain.EntryDebit, "rent_office", "3000", domain.PaymentCash, fixedNow),
	}
	pl := newBuilder().ProfitAndLoss(period, entries)

	assert.True(t, pl.TotalRevenue.IsZero())
	assert.Equal(t, "0.0", pl.GrossMargin)
	assert.Equal(t, "0.0", pl.OperatingMargin)
	assert.Equal(t, "0.0", pl.NetMargin)

	empty := newBuilder().ProfitAndLoss(period, nil)
	assert.Equal(t, "0.0", empty.NetMargin)
	assert.Empty(t, empty.Revenue.Lines)
}

func TestProfitAndLoss_LegacyFallback(t *testing.T) {
	period, err := calendar.Year(2024)
	require.NoError(t, err)

	entries := []domain.LedgerEntry{
		entry("1", domain.EntryCredit, "", "50", domain.PaymentCash, fixedNow),
		entry("2", domain.EntryDebit, "", "20", domain.PaymentCash, fixedNow),
		entry("3", domain.EntryDebit, "retired_category", "5", domain.PaymentCash, fixedNow),
	}
	pl := newBuilder().ProfitAndLoss(period, entries)

	income := findLine(t, pl.Revenue.Lines, taxonomy.UnclassifiedIncomeLabel)
	assert.True(t, income.Amount.Equal(d("50")))

	expense := findLine(t, pl.OperatingExpenses.Lines, taxonomy.UnclassifiedExpenseLabel)
	assert.True(t, expense.Amount.Equal(d("25")))
	assert.Equal(t, 2, expense.Count)
}

func TestProfitAndLoss_OppositeSideReverses(t *testing.T) {
	period, err := calendar.Year(2024)
	require.NoError(t, err)

	entries := []domain.LedgerEntry{
		entry("1", domain.EntryDebit, "misc_expense", "300", domain.PaymentCash, fixedNow),
		entry("2", domain.EntryCredit, "misc_expense", "100", domain.PaymentCash, fixedNow),
	}
	pl := newBuilder().ProfitAndLoss(period, entries)
	assert.True(t, pl.TotalOpEx.Equal(d("200")), "totalOpEx = %s", pl.TotalOpEx)
}

func TestProfitAndLoss_ISTMonthBoundary(t *testing.T) {
	period, err := calendar.Month(2024, 5)
	require.NoError(t, err)

	// 30 Apr 19:00 UTC is 1 May 00:30 IST.
	inside := time.Date(2024, 4, 30, 19, 0, 0, 0, time.UTC)
	// 31 May 18:30 UTC is 1 Jun 00:00 IST.
	outside := time.Date(2024, 5, 31, 18, 30, 0, 0, time.UTC)

	entries := []domain.LedgerEntry{
		entry("1", domain.EntryCredit, "client_payment", "10", domain.PaymentUPI, inside),
		entry("2", domain.EntryCredit, "client_payment", "20", domain.PaymentUPI, outside),
	}
	pl := newBuilder().ProfitAndLoss(period, entries)
	assert.True(t, pl.TotalRevenue.Equal(d("10")))
}

// ============================================================
// Balance Sheet
// ============================================================

func TestBalanceSheet_OwnerCapitalCountedOnce(t *testing.T) {
	entries := []domain.LedgerEntry{
		entry("1", domain.EntryCredit, "owner_capital", "5000", domain.PaymentBankTransfer, fixedNow),
	}
	bs, err := newBuilder().BalanceSheet(statement.BalanceSheetInput{AsOf: fixedNow, Entries: entries})
	require.NoError(t, err)

	assert.True(t, bs.OwnerCapital.Equal(d("5000")))
	assert.True(t, bs.BankBalance.Equal(d("5000")), "bank = %s", bs.BankBalance)
	assert.True(t, bs.CashBalance.IsZero())
	assert.True(t, bs.Balanced)
}

func TestBalanceSheet_LegacyEntry(t *testing.T) {
	entries := []domain.LedgerEntry{
		entry("1", domain.EntryCredit, "", "50", domain.PaymentCash, fixedNow),
	}
	b := newBuilder()

	bs, err := b.BalanceSheet(statement.BalanceSheetInput{AsOf: fixedNow, Entries: entries})
	require.NoError(t, err)
	assert.True(t, bs.CashBalance.Equal(d("50")))
	assert.True(t, bs.NetIncomeCurrentYear.Equal(d("50")))

	pl := b.ProfitAndLoss(calendar.YearContaining(fixedNow), entries)
	line := findLine(t, pl.Revenue.Lines, taxonomy.UnclassifiedIncomeLabel)
	assert.True(t, line.Amount.Equal(d("50")))
}

func TestBalanceSheet_DedicatedLines(t *testing.T) {
	entries := []domain.LedgerEntry{
		entry("cap", domain.EntryCredit, "owner_capital", "100000", domain.PaymentBankTransfer, fixedNow),
		entry("eq", domain.EntryDebit, "equipment_purchase", "30000", domain.PaymentBankTransfer, fixedNow),
		entry("pre", domain.EntryDebit, "prepaid_expense", "6000", domain.PaymentBankTransfer, fixedNow),
		entry("loan", domain.EntryCredit, "loan_received", "50000", domain.PaymentBankTransfer, fixedNow),
		entry("rep", domain.EntryDebit, "loan_repayment", "10000", domain.PaymentBankTransfer, fixedNow),
		entry("cash", domain.EntryCredit, "client_payment", "2000", domain.PaymentCash, fixedNow),
	}
	bs, err := newBuilder().BalanceSheet(statement.BalanceSheetInput{AsOf: fixedNow, Entries: entries})
	require.NoError(t, err)

	assert.True(t, bs.FixedAssetTotal.Equal(d("30000")))
	assert.True(t, bs.PrepaidBalance.Equal(d("6000")))
	assert.True(t, bs.LoanLiability.Equal(d("40000")))
	// 100000 capital + 50000 loan - 10000 repayment; asset purchases stay out.
	assert.True(t, bs.BankBalance.Equal(d("140000")), "bank = %s", bs.BankBalance)
	assert.True(t, bs.CashBalance.Equal(d("2000")))

	loans := findBSLine(t, bs.LongTermLiabilities, statement.LineLongTermLoans)
	assert.True(t, loans.Amount.Equal(d("40000")))
	assert.True(t, loans.IsSystem)
}

func TestBalanceSheet_DisplayFloorsNegativeBalances(t *testing.T) {
	entries := []domain.LedgerEntry{
		entry("1", domain.EntryDebit, "rent_office", "700", domain.PaymentCash, fixedNow),
		entry("2", domain.EntryDebit, "loan_repayment", "300", domain.PaymentBankTransfer, fixedNow),
	}
	bs, err := newBuilder().BalanceSheet(statement.BalanceSheetInput{AsOf: fixedNow, Entries: entries})
	require.NoError(t, err)

	assert.True(t, bs.CashBalance.Equal(d("-700")))
	assert.True(t, bs.LoanLiability.Equal(d("-300")))
	assert.True(t, findBSLine(t, bs.CurrentAssets, statement.LineCash).Amount.IsZero())
	assert.True(t, findBSLine(t, bs.CurrentAssets, statement.LineBank).Amount.IsZero())
	assert.True(t, findBSLine(t, bs.LongTermLiabilities, statement.LineLongTermLoans).Amount.IsZero())
}

func TestBalanceSheet_RetainedEarningsSplit(t *testing.T) {
	lastYear := time.Date(2023, 8, 1, 0, 0, 0, 0, calendar.IST)
	entries := []domain.LedgerEntry{
		entry("1", domain.EntryCredit, "client_payment", "1000", domain.PaymentBankTransfer, lastYear),
		entry("2", domain.EntryDebit, "rent_office", "400", domain.PaymentBankTransfer, lastYear),
		entry("3", domain.EntryCredit, "client_payment", "300", domain.PaymentBankTransfer, fixedNow),
	}
	bs, err := newBuilder().BalanceSheet(statement.BalanceSheetInput{AsOf: fixedNow, Entries: entries})
	require.NoError(t, err)

	assert.Equal(t, "2024", bs.CurrentYear.Label)
	assert.True(t, bs.NetIncomeCurrentYear.Equal(d("300")))
	assert.True(t, bs.RetainedEarnings.Equal(d("600")))
	assert.True(t, bs.Balanced, "difference = %s", bs.Difference)
}

func TestBalanceSheet_ReceivablesPayablesAndItems(t *testing.T) {
	invoices := []domain.Invoice{
		{ID: "a", TotalAmount: d("1000"), AmountPaid: d("400"), Status: domain.InvoicePartial},
		{ID: "b", TotalAmount: d("500"), AmountPaid: decimal.Zero, Status: domain.InvoiceOverdue},
		{ID: "c", TotalAmount: d("800"), AmountPaid: d("800"), Status: domain.InvoicePaid},
		{ID: "d", TotalAmount: d("900"), AmountPaid: decimal.Zero, Status: domain.InvoiceCancelled},
		{ID: "e", TotalAmount: d("100"), AmountPaid: d("150"), Status: domain.InvoicePending},
	}
	slips := []domain.SalarySlip{
		{ID: "s1", NetPay: d("30000"), Status: domain.SlipFinalized, PayrollEnabled: true},
		{ID: "s2", NetPay: d("20000"), Status: domain.SlipFinalized, PayrollEnabled: false},
		{ID: "s3", NetPay: d("25000"), Status: domain.SlipPaid, PayrollEnabled: true},
	}
	items := []domain.BalanceSheetItem{
		{ID: "i1", Name: "Security deposit", Category: domain.BSItemCurrentAsset, Amount: d("15000"), Notes: "office lease"},
		{ID: "i2", Name: "GST payable", Category: domain.BSItemCurrentLiability, Amount: d("4000")},
	}

	bs, err := newBuilder().BalanceSheet(statement.BalanceSheetInput{
		AsOf:     fixedNow,
		Invoices: invoices,
		Slips:    slips,
		Items:    items,
	})
	require.NoError(t, err)

	assert.True(t, bs.AccountsReceivable.Equal(d("1100")), "AR = %s", bs.AccountsReceivable)
	assert.True(t, bs.AccountsPayable.Equal(d("30000")), "AP = %s", bs.AccountsPayable)

	deposit := findBSLine(t, bs.CurrentAssets, "Security deposit")
	assert.False(t, deposit.IsSystem)
	assert.Equal(t, "i1", deposit.ID)
	assert.Equal(t, "office lease", deposit.Notes)

	assert.True(t, bs.CurrentAssets.Total.Equal(d("16100")))
	assert.True(t, bs.CurrentLiabilities.Total.Equal(d("34000")))
	assert.False(t, bs.Balanced)
	assert.True(t, bs.Difference.Equal(d("-17900")))
}

func TestBalanceSheet_DefaultsAsOfToNow(t *testing.T) {
	bs, err := newBuilder().BalanceSheet(statement.BalanceSheetInput{})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, bs.AsOf)
	assert.Equal(t, "2024", bs.CurrentYear.Label)
}

func TestBalanceSheet_UnknownItemCategory(t *testing.T) {
	_, err := newBuilder().BalanceSheet(statement.BalanceSheetInput{
		AsOf:  fixedNow,
		Items: []domain.BalanceSheetItem{{ID: "x", Name: "?", Category: "Goodwill", Amount: d("1")}},
	})
	assert.Error(t, err)
}
