package domain

import (
	"encoding/json"
	"fmt"
)

// ============================================================
// Accounting categories
// ============================================================

// AppliesTo restricts which entry types may use a category.
type AppliesTo string

const (
	AppliesToCredit AppliesTo = "Credit"
	AppliesToDebit  AppliesTo = "Debit"
	AppliesToBoth   AppliesTo = "Both"
)

// Valid reports whether a is a known value.
func (a AppliesTo) Valid() bool {
	switch a {
	case AppliesToCredit, AppliesToDebit, AppliesToBoth:
		return true
	}
	return false
}

// Allows reports whether an entry of type t may carry the category.
func (a AppliesTo) Allows(t EntryType) bool {
	return a == AppliesToBoth || string(a) == string(t)
}

// PLGroup is the P&L section a category rolls into. The zero value means
// the category has no P&L effect.
type PLGroup string

const (
	PLGroupNone             PLGroup = ""
	PLGroupRevenue          PLGroup = "Revenue"
	PLGroupCOGS             PLGroup = "COGS"
	PLGroupOperatingExpense PLGroup = "Operating Expense"
	PLGroupOtherIncome      PLGroup = "Other Income"
	PLGroupTax              PLGroup = "Tax"
)

// Valid reports whether g is a known value (including none).
func (g PLGroup) Valid() bool {
	switch g {
	case PLGroupNone, PLGroupRevenue, PLGroupCOGS, PLGroupOperatingExpense, PLGroupOtherIncome, PLGroupTax:
		return true
	}
	return false
}

// IsIncome reports whether the group is on the income side of the P&L.
func (g PLGroup) IsIncome() bool {
	return g == PLGroupRevenue || g == PLGroupOtherIncome
}

// NaturalSide is the entry type that increases the group.
func (g PLGroup) NaturalSide() EntryType {
	if g.IsIncome() {
		return EntryCredit
	}
	return EntryDebit
}

// BSImpact is the balance sheet line a category feeds directly.
// It is a closed set: every switch over it must name all variants.
type BSImpact uint8

const (
	BSImpactNone BSImpact = iota
	BSImpactFixedAsset
	BSImpactPrepaidExpense
	BSImpactEquityCapital
	BSImpactLongTermLiability
	BSImpactLongTermLiabilityReduction

	bsImpactCount
)

var bsImpactNames = [bsImpactCount]string{
	BSImpactNone:                       "",
	BSImpactFixedAsset:                 "fixed_asset",
	BSImpactPrepaidExpense:             "current_asset_prepaid",
	BSImpactEquityCapital:              "equity_capital",
	BSImpactLongTermLiability:          "liability_longterm",
	BSImpactLongTermLiabilityReduction: "liability_longterm_reduction",
}

// AllBSImpacts lists every variant, none included.
func AllBSImpacts() []BSImpact {
	out := make([]BSImpact, 0, bsImpactCount)
	for i := BSImpact(0); i < bsImpactCount; i++ {
		out = append(out, i)
	}
	return out
}

// Valid reports whether b is one of the declared variants.
func (b BSImpact) Valid() bool { return b < bsImpactCount }

func (b BSImpact) String() string {
	if !b.Valid() {
		return fmt.Sprintf("BSImpact(%d)", uint8(b))
	}
	return bsImpactNames[b]
}

// SkipsCashRollup reports whether entries with this impact are kept out of
// the generic cash/bank roll-up because a dedicated line represents them.
func (b BSImpact) SkipsCashRollup() bool {
	return b == BSImpactFixedAsset || b == BSImpactPrepaidExpense
}

// ParseBSImpact maps the wire name back to the variant.
func ParseBSImpact(s string) (BSImpact, error) {
	for i, name := range bsImpactNames {
		if name == s {
			return BSImpact(i), nil
		}
	}
	return BSImpactNone, fmt.Errorf("unknown bs impact %q", s)
}

func (b BSImpact) MarshalJSON() ([]byte, error) {
	if b == BSImpactNone {
		return []byte("null"), nil
	}
	return json.Marshal(b.String())
}

func (b *BSImpact) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = BSImpactNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseBSImpact(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Category is a developer-maintained accounting category.
type Category struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	AppliesTo   AppliesTo `json:"appliesTo"`
	PLGroup     PLGroup   `json:"plGroup,omitempty"`
	PLLabel     string    `json:"plLabel,omitempty"`
	BSImpact    BSImpact  `json:"bsImpact"`
	Description string    `json:"description"`
}

// LineLabel is the P&L line a category's amounts are reported under.
func (c Category) LineLabel() string {
	if c.PLLabel != "" {
		return c.PLLabel
	}
	return c.Label
}
