// Package taxonomy holds the accounting category registry. The registry is
// built once at startup and injected wherever categories are looked up.
package taxonomy

import (
	"fmt"

	"github.com/boddenberg/backoffice-ledger/internal/domain"
)

// Fallback P&L lines for entries without an accounting category.
const (
	UnclassifiedIncomeLabel  = "Other/Unclassified Income"
	UnclassifiedExpenseLabel = "Other/Unclassified Expense"
)

// Registry is an immutable, indexed set of categories.
type Registry struct {
	ordered []domain.Category
	byID    map[string]domain.Category
}

// NewRegistry validates the categories and indexes them by id.
func NewRegistry(categories []domain.Category) (*Registry, error) {
	r := &Registry{
		ordered: make([]domain.Category, 0, len(categories)),
		byID:    make(map[string]domain.Category, len(categories)),
	}
	for _, c := range categories {
		if c.ID == "" {
			return nil, fmt.Errorf("category %q: empty id", c.Label)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("category %q: duplicate id", c.ID)
		}
		if !c.AppliesTo.Valid() {
			return nil, fmt.Errorf("category %q: invalid appliesTo %q", c.ID, c.AppliesTo)
		}
		if !c.PLGroup.Valid() {
			return nil, fmt.Errorf("category %q: invalid plGroup %q", c.ID, c.PLGroup)
		}
		if !c.BSImpact.Valid() {
			return nil, fmt.Errorf("category %q: invalid bsImpact %s", c.ID, c.BSImpact)
		}
		r.byID[c.ID] = c
		r.ordered = append(r.ordered, c)
	}
	return r, nil
}

// MustNewRegistry is NewRegistry for static tables; it panics on error.
func MustNewRegistry(categories []domain.Category) *Registry {
	r, err := NewRegistry(categories)
	if err != nil {
		panic("taxonomy: " + err.Error())
	}
	return r
}

// Default returns the registry built from the built-in chart.
func Default() *Registry {
	return MustNewRegistry(defaultCategories)
}

// CategoryByID looks up a category in O(1).
func (r *Registry) CategoryByID(id string) (domain.Category, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// CategoriesByType returns the categories usable for t, in declaration order.
func (r *Registry) CategoriesByType(t domain.EntryType) []domain.Category {
	out := make([]domain.Category, 0, len(r.ordered))
	for _, c := range r.ordered {
		if c.AppliesTo.Allows(t) {
			out = append(out, c)
		}
	}
	return out
}

// All returns every category in declaration order.
func (r *Registry) All() []domain.Category {
	out := make([]domain.Category, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Classification is where an entry lands on the statements.
type Classification struct {
	Category domain.Category
	Legacy   bool
	Group    domain.PLGroup
	Line     string
}

// Classify resolves the entry's category. Entries without a category, or
// with an id the registry no longer knows, fold into the type-keyed
// fallback buckets.
func (r *Registry) Classify(e *domain.LedgerEntry) Classification {
	if !e.IsLegacy() {
		if c, ok := r.byID[e.AccountingCategory]; ok {
			return Classification{Category: c, Group: c.PLGroup, Line: c.LineLabel()}
		}
	}
	if e.Type == domain.EntryCredit {
		return Classification{Legacy: true, Group: domain.PLGroupRevenue, Line: UnclassifiedIncomeLabel}
	}
	return Classification{Legacy: true, Group: domain.PLGroupOperatingExpense, Line: UnclassifiedExpenseLabel}
}
