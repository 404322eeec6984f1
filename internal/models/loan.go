package models

import "time"

// Debt category variants.
const (
	DebtExternalMultilateral = "EXTERNAL_MULTILATERAL"
	DebtExternalBilateral    = "EXTERNAL_BILATERAL"
	DebtExternalCommercial   = "EXTERNAL_COMMERCIAL"
	DebtDomesticBonds        = "DOMESTIC_BONDS"
	DebtDomesticBills        = "DOMESTIC_BILLS"
	DebtDomesticOverdraft    = "DOMESTIC_OVERDRAFT"
	DebtPendingBills         = "PENDING_BILLS"
	DebtCountyGuaranteed     = "COUNTY_GUARANTEED"
	DebtOther                = "OTHER"
)

// Loan is a stored debt instrument, unique per (entity, lender, issue_date).
type Loan struct {
	ID             int64      `json:"id"`
	EntityID       int64      `json:"entity_id"`
	Lender         string     `json:"lender"`
	IssueDate      time.Time  `json:"issue_date"`
	Principal      float64    `json:"principal"`
	Outstanding    float64    `json:"outstanding"`
	InterestRate   *float64   `json:"interest_rate,omitempty"`
	MaturityDate   *time.Time `json:"maturity_date,omitempty"`
	Currency       string     `json:"currency"`
	DebtCategory   string     `json:"debt_category"`
	SourceDocument int64      `json:"source_document_id"`
}

// DebtTimeline is the national debt summary for one fiscal year.
type DebtTimeline struct {
	FiscalYear   string  `json:"fiscal_year"`
	ExternalDebt float64 `json:"external_debt"`
	DomesticDebt float64 `json:"domestic_debt"`
	TotalDebt    float64 `json:"total_debt"`
}

// FiscalSummary aggregates revenue and expenditure per (entity, fiscal year).
type FiscalSummary struct {
	EntityID    int64   `json:"entity_id"`
	FiscalYear  string  `json:"fiscal_year"`
	Revenue     float64 `json:"revenue"`
	Expenditure float64 `json:"expenditure"`
	Deficit     float64 `json:"deficit"`
}

// RevenueBySource aggregates revenue per (fiscal year, revenue source).
type RevenueBySource struct {
	FiscalYear    string  `json:"fiscal_year"`
	RevenueSource string  `json:"revenue_source"`
	Amount        float64 `json:"amount"`
}
