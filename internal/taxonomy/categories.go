package taxonomy

import "github.com/boddenberg/backoffice-ledger/internal/domain"

// defaultCategories is the built-in chart. Ids are persisted on ledger
// entries, so they must never be renamed.
var defaultCategories = []domain.Category{
	// --- Income ---
	{ID: "client_payment", Label: "Client Payment", AppliesTo: domain.AppliesToCredit, PLGroup: domain.PLGroupRevenue, PLLabel: "Service Revenue", Description: "Payment received from a client against services or an invoice."},
	{ID: "product_sales", Label: "Product Sales", AppliesTo: domain.AppliesToCredit, PLGroup: domain.PLGroupRevenue, Description: "Sale of licences, goods or other products."},
	{ID: "interest_income", Label: "Interest Income", AppliesTo: domain.AppliesToCredit, PLGroup: domain.PLGroupOtherIncome, Description: "Interest credited on deposits or savings."},
	{ID: "refund_received", Label: "Refund Received", AppliesTo: domain.AppliesToCredit, PLGroup: domain.PLGroupOtherIncome, PLLabel: "Refunds & Reimbursements", Description: "Refunds from vendors or reimbursements received."},
	{ID: "other_income", Label: "Other Income", AppliesTo: domain.AppliesToCredit, PLGroup: domain.PLGroupOtherIncome, PLLabel: "Miscellaneous Income", Description: "Non-operating income not covered elsewhere."},

	// --- Capital & financing ---
	{ID: "owner_capital", Label: "Owner Capital Injection", AppliesTo: domain.AppliesToCredit, BSImpact: domain.BSImpactEquityCapital, Description: "Capital introduced by the owner; lands in the bank account."},
	{ID: "loan_received", Label: "Loan Received", AppliesTo: domain.AppliesToCredit, BSImpact: domain.BSImpactLongTermLiability, Description: "Disbursement of a long-term loan."},
	{ID: "loan_repayment", Label: "Loan Repayment (Principal)", AppliesTo: domain.AppliesToDebit, BSImpact: domain.BSImpactLongTermLiabilityReduction, Description: "Principal repaid against a long-term loan."},

	// --- Cost of goods sold ---
	{ID: "hosting_cloud", Label: "Hosting & Cloud", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupCOGS, PLLabel: "Hosting & Cloud Infrastructure", Description: "Servers, cloud services and infrastructure used to deliver client work."},
	{ID: "contractor_payment", Label: "Contractor Payment", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupCOGS, PLLabel: "Contractors & Freelancers", Description: "Payments to contractors working on client deliverables."},

	// --- Operating expenses ---
	{ID: "salary_payroll", Label: "Salary / Payroll", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupOperatingExpense, PLLabel: "Salaries & Wages", Description: "Net salary paid to employees."},
	{ID: "software_subscriptions", Label: "Software Subscriptions", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupOperatingExpense, PLLabel: "Software & Subscriptions", Description: "Monthly SaaS and tooling subscriptions."},
	{ID: "rent_office", Label: "Rent & Office", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupOperatingExpense, Description: "Office rent, co-working and maintenance."},
	{ID: "utilities", Label: "Utilities & Internet", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupOperatingExpense, Description: "Electricity, internet and phone."},
	{ID: "marketing", Label: "Marketing & Advertising", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupOperatingExpense, Description: "Ads, sponsorships and promotional material."},
	{ID: "travel", Label: "Travel & Conveyance", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupOperatingExpense, Description: "Business travel, local conveyance and lodging."},
	{ID: "professional_fees", Label: "Professional Fees", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupOperatingExpense, PLLabel: "Legal & Professional Fees", Description: "Accountants, lawyers and consultants."},
	{ID: "bank_charges", Label: "Bank Charges", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupOperatingExpense, PLLabel: "Bank & Payment Charges", Description: "Bank fees and payment gateway charges."},
	{ID: "loan_interest", Label: "Loan Interest", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupOperatingExpense, PLLabel: "Finance Costs", Description: "Interest portion of a loan instalment."},
	{ID: "misc_expense", Label: "Miscellaneous Expense", AppliesTo: domain.AppliesToBoth, PLGroup: domain.PLGroupOperatingExpense, Description: "Small expenses; a Credit records a reversal."},

	// --- Tax ---
	{ID: "income_tax", Label: "Income Tax", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupTax, PLLabel: "Income Tax / Advance Tax", Description: "Advance tax and self-assessment tax payments."},
	{ID: "gst_payment", Label: "GST Payment", AppliesTo: domain.AppliesToDebit, PLGroup: domain.PLGroupTax, PLLabel: "GST Paid", Description: "GST remitted to the government."},

	// --- Assets ---
	{ID: "equipment_purchase", Label: "Equipment Purchase", AppliesTo: domain.AppliesToDebit, BSImpact: domain.BSImpactFixedAsset, Description: "Laptops, furniture and other capital equipment."},
	{ID: "prepaid_expense", Label: "Prepaid Expense", AppliesTo: domain.AppliesToDebit, BSImpact: domain.BSImpactPrepaidExpense, Description: "Annual subscriptions, deposits and advances paid ahead of use."},

	// --- Neutral ---
	{ID: "internal_transfer", Label: "Internal Transfer", AppliesTo: domain.AppliesToBoth, Description: "Movement between cash and bank; no P&L effect."},
}
