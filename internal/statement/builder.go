// Package statement derives the Profit & Loss and the Balance Sheet from a
// ledger snapshot. Everything here is pure: callers load the inputs and the
// builder only aggregates them.
package statement

import (
	"sort"
	"time"

	"github.com/boddenberg/backoffice-ledger/internal/domain"
	"github.com/boddenberg/backoffice-ledger/internal/port"
	"github.com/boddenberg/backoffice-ledger/internal/taxonomy"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Builder aggregates ledger entries according to a category registry.
type Builder struct {
	registry *taxonomy.Registry
	now      port.Clock
}

// NewBuilder creates a statement builder. A nil clock means time.Now.
func NewBuilder(registry *taxonomy.Registry, now port.Clock) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{registry: registry, now: now}
}

// contribution is the signed amount an entry adds to its P&L group: the
// natural side of the group increases it, the opposite side reverses it.
func contribution(e *domain.LedgerEntry, group domain.PLGroup) decimal.Decimal {
	if e.Type == group.NaturalSide() {
		return e.Amount
	}
	return e.Amount.Neg()
}

// margin renders part/revenue as a percentage with one decimal.
func margin(part, revenue decimal.Decimal) string {
	if revenue.IsZero() {
		return "0.0"
	}
	return part.Div(revenue).Mul(hundred).StringFixed(1)
}

// floorZero is used for display lines that never show a negative balance.
func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// bucketSet accumulates P&L lines for one group, keeping first-seen order
// until sorted for output.
type bucketSet struct {
	group domain.PLGroup
	index map[string]int
	lines []domain.PLLine
	total decimal.Decimal
}

func newBucketSet(group domain.PLGroup) *bucketSet {
	return &bucketSet{group: group, index: make(map[string]int)}
}

func (b *bucketSet) add(label string, amount decimal.Decimal) {
	i, ok := b.index[label]
	if !ok {
		i = len(b.lines)
		b.index[label] = i
		b.lines = append(b.lines, domain.PLLine{Label: label, Amount: decimal.Zero})
	}
	b.lines[i].Amount = b.lines[i].Amount.Add(amount)
	b.lines[i].Count++
	b.total = b.total.Add(amount)
}

func (b *bucketSet) section() domain.PLSection {
	lines := make([]domain.PLLine, len(b.lines))
	copy(lines, b.lines)
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].Amount.Equal(lines[j].Amount) {
			return lines[i].Amount.GreaterThan(lines[j].Amount)
		}
		return lines[i].Label < lines[j].Label
	})
	return domain.PLSection{Group: b.group, Lines: lines, Total: b.total}
}
