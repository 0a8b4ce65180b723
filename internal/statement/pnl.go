package statement

import (
	"github.com/boddenberg/backoffice-ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// ProfitAndLoss buckets the entries that fall inside period by P&L group and
// line label. Entries outside the window and categories without a P&L
// group are ignored.
func (b *Builder) ProfitAndLoss(period domain.Period, entries []domain.LedgerEntry) *domain.ProfitAndLoss {
	sets := map[domain.PLGroup]*bucketSet{
		domain.PLGroupRevenue:          newBucketSet(domain.PLGroupRevenue),
		domain.PLGroupCOGS:             newBucketSet(domain.PLGroupCOGS),
		domain.PLGroupOperatingExpense: newBucketSet(domain.PLGroupOperatingExpense),
		domain.PLGroupOtherIncome:      newBucketSet(domain.PLGroupOtherIncome),
		domain.PLGroupTax:              newBucketSet(domain.PLGroupTax),
	}

	count := 0
	for i := range entries {
		e := &entries[i]
		if !period.Contains(e.Date) {
			continue
		}
		cls := b.registry.Classify(e)
		set, ok := sets[cls.Group]
		if !ok {
			continue
		}
		set.add(cls.Line, contribution(e, cls.Group))
		count++
	}

	pl := &domain.ProfitAndLoss{
		Period:            period,
		Revenue:           sets[domain.PLGroupRevenue].section(),
		COGS:              sets[domain.PLGroupCOGS].section(),
		OperatingExpenses: sets[domain.PLGroupOperatingExpense].section(),
		OtherIncome:       sets[domain.PLGroupOtherIncome].section(),
		Tax:               sets[domain.PLGroupTax].section(),
		EntryCount:        count,
		GeneratedAt:       b.now(),
	}
	pl.TotalRevenue = pl.Revenue.Total
	pl.TotalCOGS = pl.COGS.Total
	pl.GrossProfit = pl.TotalRevenue.Sub(pl.TotalCOGS)
	pl.TotalOpEx = pl.OperatingExpenses.Total
	pl.OperatingIncome = pl.GrossProfit.Sub(pl.TotalOpEx)
	pl.TotalOtherIncome = pl.OtherIncome.Total
	pl.TotalTax = pl.Tax.Total
	pl.NetIncome = pl.OperatingIncome.Add(pl.TotalOtherIncome).Sub(pl.TotalTax)

	pl.GrossMargin = margin(pl.GrossProfit, pl.TotalRevenue)
	pl.OperatingMargin = margin(pl.OperatingIncome, pl.TotalRevenue)
	pl.NetMargin = margin(pl.NetIncome, pl.TotalRevenue)
	return pl
}

// incomeExpense is the reduced P&L the balance sheet needs.
type incomeExpense struct {
	income  decimal.Decimal
	expense decimal.Decimal
}

func (ie *incomeExpense) add(e *domain.LedgerEntry, group domain.PLGroup) {
	if group == domain.PLGroupNone {
		return
	}
	amt := contribution(e, group)
	if group.IsIncome() {
		ie.income = ie.income.Add(amt)
		return
	}
	ie.expense = ie.expense.Add(amt)
}

func (ie incomeExpense) net() decimal.Decimal { return ie.income.Sub(ie.expense) }
