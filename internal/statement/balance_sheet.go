package statement

import (
	"fmt"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/calendar"
	"github.com/boddenberg/backoffice-ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// System line names.
const (
	LineFixedAssets       = "Fixed Assets (Equipment)"
	LineCash              = "Cash in Hand"
	LineBank              = "Bank Balance"
	LineReceivable        = "Accounts Receivable"
	LinePrepaid           = "Prepaid Expenses"
	LineLongTermLoans     = "Long-term Loans"
	LineSalariesPayable   = "Salaries Payable"
	LineOwnerCapital      = "Owner's Capital"
	LineRetainedEarnings  = "Retained Earnings"
	LineCurrentYearIncome = "Current Year Net Income"
)

// BalanceSheetInput is the snapshot a balance sheet is computed from.
// Entries is the whole ledger; AsOf only selects the current year.
type BalanceSheetInput struct {
	AsOf     time.Time
	Entries  []domain.LedgerEntry
	Items    []domain.BalanceSheetItem
	Invoices []domain.Invoice
	Slips    []domain.SalarySlip
}

// rollup holds the single-pass accumulators.
type rollup struct {
	cash, bank  decimal.Decimal
	fixedAssets decimal.Decimal
	prepaid     decimal.Decimal
	capital     decimal.Decimal
	loan        decimal.Decimal

	allTime     incomeExpense
	currentYear incomeExpense
}

// addCashOrBank applies the generic signed roll-up.
func (r *rollup) addCashOrBank(e *domain.LedgerEntry) {
	if e.PaymentMode.IsCash() {
		r.cash = r.cash.Add(e.Signed())
		return
	}
	r.bank = r.bank.Add(e.Signed())
}

func (r *rollup) apply(e *domain.LedgerEntry, impact domain.BSImpact) error {
	switch impact {
	case domain.BSImpactNone:
		r.addCashOrBank(e)
	case domain.BSImpactFixedAsset:
		r.fixedAssets = r.fixedAssets.Add(e.Amount)
	case domain.BSImpactPrepaidExpense:
		r.prepaid = r.prepaid.Add(e.Amount)
	case domain.BSImpactEquityCapital:
		r.capital = r.capital.Add(e.Amount)
		r.bank = r.bank.Add(e.Amount)
	case domain.BSImpactLongTermLiability:
		r.loan = r.loan.Add(e.Amount)
		r.bank = r.bank.Add(e.Amount)
	case domain.BSImpactLongTermLiabilityReduction:
		// The repayment leaves cash or bank through the generic path.
		r.loan = r.loan.Sub(e.Amount)
		r.addCashOrBank(e)
	default:
		return fmt.Errorf("entry %s: unclassified bs impact %s", e.ID, impact)
	}
	return nil
}

// BalanceSheet rolls the entire ledger up into a balance sheet as of
// in.AsOf. A zero AsOf means now.
func (b *Builder) BalanceSheet(in BalanceSheetInput) (*domain.BalanceSheet, error) {
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = b.now()
	}
	year := calendar.YearContaining(asOf)

	var r rollup
	for i := range in.Entries {
		e := &in.Entries[i]
		cls := b.registry.Classify(e)
		if err := r.apply(e, cls.Category.BSImpact); err != nil {
			return nil, err
		}
		r.allTime.add(e, cls.Group)
		if year.Contains(e.Date) {
			r.currentYear.add(e, cls.Group)
		}
	}

	receivable := decimal.Zero
	for i := range in.Invoices {
		inv := &in.Invoices[i]
		if inv.Status.Outstanding() {
			receivable = receivable.Add(inv.Receivable())
		}
	}
	payable := decimal.Zero
	for _, s := range in.Slips {
		if s.Status == domain.SlipFinalized && s.PayrollEnabled {
			payable = payable.Add(s.NetPay)
		}
	}

	netCurrent := r.currentYear.net()
	retained := r.allTime.net().Sub(netCurrent)

	bs := &domain.BalanceSheet{
		AsOf:                 asOf,
		CurrentYear:          year,
		CashBalance:          r.cash,
		BankBalance:          r.bank,
		FixedAssetTotal:      r.fixedAssets,
		PrepaidBalance:       r.prepaid,
		OwnerCapital:         r.capital,
		LoanLiability:        r.loan,
		AccountsReceivable:   receivable,
		AccountsPayable:      payable,
		RetainedEarnings:     retained,
		NetIncomeCurrentYear: netCurrent,
		GeneratedAt:          b.now(),
	}

	bs.FixedAssets = section("Fixed Assets",
		systemLine(LineFixedAssets, r.fixedAssets))
	bs.CurrentAssets = section("Current Assets",
		systemLine(LineCash, floorZero(r.cash)),
		systemLine(LineBank, floorZero(r.bank)),
		systemLine(LineReceivable, receivable),
		systemLine(LinePrepaid, r.prepaid))
	bs.LongTermLiabilities = section("Long-term Liabilities",
		systemLine(LineLongTermLoans, floorZero(r.loan)))
	bs.CurrentLiabilities = section("Current Liabilities",
		systemLine(LineSalariesPayable, payable))
	bs.Equity = section("Equity",
		systemLine(LineOwnerCapital, r.capital),
		systemLine(LineRetainedEarnings, retained),
		systemLine(LineCurrentYearIncome, netCurrent))

	for _, item := range in.Items {
		target := sectionFor(bs, item.Category)
		if target == nil {
			return nil, fmt.Errorf("balance sheet item %s: unknown category %q", item.ID, item.Category)
		}
		target.Lines = append(target.Lines, domain.BSLine{
			ID:     item.ID,
			Name:   item.Name,
			Amount: item.Amount,
			Notes:  item.Notes,
		})
		target.Total = target.Total.Add(item.Amount)
	}

	bs.TotalAssets = bs.FixedAssets.Total.Add(bs.CurrentAssets.Total)
	bs.TotalLiabilities = bs.LongTermLiabilities.Total.Add(bs.CurrentLiabilities.Total)
	bs.TotalEquity = bs.Equity.Total
	bs.TotalLiabilitiesAndEquity = bs.TotalLiabilities.Add(bs.TotalEquity)
	bs.Difference = bs.TotalAssets.Sub(bs.TotalLiabilitiesAndEquity)
	bs.Balanced = bs.Difference.Abs().LessThan(decimal.NewFromInt(1))
	return bs, nil
}

// sectionFor returns the section a manual item of category c is merged into.
func sectionFor(bs *domain.BalanceSheet, c domain.BSItemCategory) *domain.BSSection {
	switch c {
	case domain.BSItemFixedAsset:
		return &bs.FixedAssets
	case domain.BSItemCurrentAsset:
		return &bs.CurrentAssets
	case domain.BSItemLongTermLiability:
		return &bs.LongTermLiabilities
	case domain.BSItemCurrentLiability:
		return &bs.CurrentLiabilities
	case domain.BSItemEquity:
		return &bs.Equity
	}
	return nil
}

func systemLine(name string, amount decimal.Decimal) domain.BSLine {
	return domain.BSLine{Name: name, Amount: amount, IsSystem: true}
}

func section(title string, lines ...domain.BSLine) domain.BSSection {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return domain.BSSection{Title: title, Lines: lines, Total: total}
}
