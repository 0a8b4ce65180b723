package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Manual balance sheet adjustments
// ============================================================

// BSItemCategory is the section a manual item is merged into.
type BSItemCategory string

const (
	BSItemFixedAsset        BSItemCategory = "Fixed Asset"
	BSItemCurrentAsset      BSItemCategory = "Current Asset"
	BSItemLongTermLiability BSItemCategory = "Long-term Liability"
	BSItemCurrentLiability  BSItemCategory = "Current Liability"
	BSItemEquity            BSItemCategory = "Equity"
)

// Valid reports whether c names a balance sheet section.
func (c BSItemCategory) Valid() bool {
	switch c {
	case BSItemFixedAsset, BSItemCurrentAsset, BSItemLongTermLiability, BSItemCurrentLiability, BSItemEquity:
		return true
	}
	return false
}

// BalanceSheetItem is a manual adjustment kept outside the ledger.
type BalanceSheetItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  BSItemCategory  `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes,omitempty"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt time.Time       `json:"createdAt"`
}

// CreateBalanceSheetItemRequest is the POST /v1/balance-sheet payload.
type CreateBalanceSheetItemRequest struct {
	Name     string              `json:"name"`
	Category BSItemCategory      `json:"category"`
	Amount   decimal.NullDecimal `json:"amount"`
	Notes    string              `json:"notes"`
}

// ============================================================
// Profit & Loss
// ============================================================

// PLLine is one bucket of a P&L section.
type PLLine struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// PLSection groups the lines of one plGroup.
type PLSection struct {
	Group PLGroup         `json:"group"`
	Lines []PLLine        `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// ProfitAndLoss is computed on demand and never persisted.
type ProfitAndLoss struct {
	Period            Period          `json:"period"`
	Revenue           PLSection       `json:"revenue"`
	COGS              PLSection       `json:"cogs"`
	OperatingExpenses PLSection       `json:"operatingExpenses"`
	OtherIncome       PLSection       `json:"otherIncome"`
	Tax               PLSection       `json:"tax"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TotalCOGS         decimal.Decimal `json:"totalCOGS"`
	GrossProfit       decimal.Decimal `json:"grossProfit"`
	TotalOpEx         decimal.Decimal `json:"totalOpEx"`
	OperatingIncome   decimal.Decimal `json:"operatingIncome"`
	TotalOtherIncome  decimal.Decimal `json:"totalOtherIncome"`
	TotalTax          decimal.Decimal `json:"totalTax"`
	NetIncome         decimal.Decimal `json:"netIncome"`
	GrossMargin       string          `json:"grossMargin"`
	OperatingMargin   string          `json:"operatingMargin"`
	NetMargin         string          `json:"netMargin"`
	EntryCount        int             `json:"entryCount"`
	GeneratedAt       time.Time       `json:"generatedAt"`
}

// ============================================================
// Balance Sheet
// ============================================================

// BSLine is one displayed balance sheet line.
type BSLine struct {
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	IsSystem bool            `json:"isSystem"`
	Notes    string          `json:"notes,omitempty"`
}

// BSSection is a titled list of lines with their total.
type BSSection struct {
	Title string          `json:"title"`
	Lines []BSLine        `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// BalanceSheet is computed on demand and never persisted.
type BalanceSheet struct {
	AsOf                      time.Time       `json:"asOf"`
	CurrentYear               Period          `json:"currentYear"`
	FixedAssets               BSSection       `json:"fixedAssets"`
	CurrentAssets             BSSection       `json:"currentAssets"`
	LongTermLiabilities       BSSection       `json:"longTermLiabilities"`
	CurrentLiabilities        BSSection       `json:"currentLiabilities"`
	Equity                    BSSection       `json:"equity"`
	TotalAssets               decimal.Decimal `json:"totalAssets"`
	TotalLiabilities          decimal.Decimal `json:"totalLiabilities"`
	TotalEquity               decimal.Decimal `json:"totalEquity"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"totalLiabilitiesAndEquity"`
	Difference                decimal.Decimal `json:"difference"`
	Balanced                  bool            `json:"balanced"`

	// Raw figures before display flooring.
	CashBalance          decimal.Decimal `json:"cashBalance"`
	BankBalance          decimal.Decimal `json:"bankBalance"`
	FixedAssetTotal      decimal.Decimal `json:"fixedAssetTotal"`
	PrepaidBalance       decimal.Decimal `json:"prepaidBalance"`
	OwnerCapital         decimal.Decimal `json:"ownerCapital"`
	LoanLiability        decimal.Decimal `json:"loanLiability"`
	AccountsReceivable   decimal.Decimal `json:"accountsReceivable"`
	AccountsPayable      decimal.Decimal `json:"accountsPayable"`
	RetainedEarnings     decimal.Decimal `json:"retainedEarnings"`
	NetIncomeCurrentYear decimal.Decimal `json:"netIncomeCurrentYear"`
	GeneratedAt          time.Time       `json:"generatedAt"`
}
