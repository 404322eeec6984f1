package models

import "time"

// RecordKind discriminates the parser output union. The loader's dispatcher
// is an exhaustive switch over these values.
type RecordKind string

const (
	KindBudgetLine   RecordKind = "budget_line"
	KindAuditFinding RecordKind = "audit_finding"
	KindLoan         RecordKind = "loan"
	KindPopulation   RecordKind = "population_data"
	KindGDP          RecordKind = "gdp_data"
	KindIndicator    RecordKind = "economic_indicator"
	KindPoverty      RecordKind = "poverty_index"
)

// Provenance references a fact record back to the page/table/row it was
// derived from. Every record carries at least one provenance entry; the
// loader adds the source document id before persisting.
type Provenance struct {
	SourceDocumentID int64     `json:"source_document_id,omitempty"`
	Page             int       `json:"page"`
	TableIndex       *int      `json:"table_index,omitempty"`
	RowIndex         *int      `json:"row_index,omitempty"`
	Confidence       float64   `json:"confidence"`
	ExtractionDate   time.Time `json:"extraction_date"`
	Line             string    `json:"line,omitempty"`
}

// Record is the tagged union flowing from parsers to the loader. Exactly one
// variant pointer is non-nil, matching Kind. Parsers never touch the
// database; they only produce Records.
type Record struct {
	Kind       RecordKind        `json:"_kind"`
	BudgetLine *BudgetLineRecord `json:"budget_line,omitempty"`
	Audit      *AuditRecord      `json:"audit_finding,omitempty"`
	Loan       *LoanRecord       `json:"loan,omitempty"`
	Population *PopulationRecord `json:"population_data,omitempty"`
	GDP        *GDPRecord        `json:"gdp_data,omitempty"`
	Indicator  *IndicatorRecord  `json:"economic_indicator,omitempty"`
	Poverty    *PovertyRecord    `json:"poverty_index,omitempty"`
	Provenance []Provenance      `json:"provenance"`
}

// BudgetLineRecord is one allocation/expenditure row. Unique per
// (entity, period, category, subcategory).
type BudgetLineRecord struct {
	Entity      *EntityInfo       `json:"entity"`
	Period      *FiscalPeriodInfo `json:"period,omitempty"`
	Category    string            `json:"category"`
	Subcategory string            `json:"subcategory,omitempty"`
	Allocated   *Amount           `json:"allocated,omitempty"`
	ActualSpent *Amount           `json:"actual_spent,omitempty"`
	Committed   *Amount           `json:"committed,omitempty"`
}

// Audit severity variants.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// AuditRecord is one audit finding with its classified severity.
type AuditRecord struct {
	Entity            *EntityInfo       `json:"entity,omitempty"`
	Period            *FiscalPeriodInfo `json:"period,omitempty"`
	Finding           string            `json:"finding"`
	Severity          string            `json:"severity"`
	RecommendedAction string            `json:"recommended_action,omitempty"`
	AmountInvolved    *Amount           `json:"amount_involved,omitempty"`
}

// LoanRecord is one debt-register row from a LOAN-typed document.
// IssueDate falls back to the fiscal period start when the register
// carries no date column.
type LoanRecord struct {
	Entity       *EntityInfo `json:"entity,omitempty"`
	Lender       string      `json:"lender"`
	IssueDate    time.Time   `json:"issue_date"`
	Principal    *Amount     `json:"principal,omitempty"`
	Outstanding  *Amount     `json:"outstanding,omitempty"`
	InterestRate *float64    `json:"interest_rate,omitempty"`
	MaturityDate *time.Time  `json:"maturity_date,omitempty"`
	DebtCategory string      `json:"debt_category"`
}

// PopulationRecord is a census/survey population figure, unique per
// (entity, year).
type PopulationRecord struct {
	Entity          *EntityInfo `json:"entity,omitempty"`
	Year            int         `json:"year"`
	TotalPopulation float64     `json:"total_population"`
	Male            *float64    `json:"male_population,omitempty"`
	Female          *float64    `json:"female_population,omitempty"`
	Urban           *float64    `json:"urban_population,omitempty"`
	Rural           *float64    `json:"rural_population,omitempty"`
	Density         *float64    `json:"density,omitempty"`
	Confidence      float64     `json:"confidence"`
}

// GDPRecord is a GDP or Gross County Product observation. Entity nil means
// national. Unique per (entity, year, quarter).
type GDPRecord struct {
	Entity     *EntityInfo `json:"entity,omitempty"`
	Year       int         `json:"year"`
	Quarter    *int        `json:"quarter,omitempty"`
	Value      float64     `json:"gdp_value"`
	GrowthRate *float64    `json:"growth_rate,omitempty"`
	Currency   string      `json:"currency"`
	Confidence float64     `json:"confidence"`
}

// Economic indicator types understood by the statistics parser.
const (
	IndicatorCPI          = "cpi"
	IndicatorInflation    = "inflation_rate"
	IndicatorUnemployment = "unemployment_rate"
	IndicatorExchangeRate = "exchange_rate"
	IndicatorInterestRate = "interest_rate"
)

// IndicatorRecord is a typed scalar observation, unique per
// (type, date, entity).
type IndicatorRecord struct {
	Type       string      `json:"indicator_type"`
	Date       time.Time   `json:"date"`
	Entity     *EntityInfo `json:"entity,omitempty"`
	Value      float64     `json:"value"`
	Unit       string      `json:"unit,omitempty"`
	Confidence float64     `json:"confidence"`
}

// PovertyRecord is a poverty headcount observation, unique per (entity, year).
type PovertyRecord struct {
	Entity      *EntityInfo `json:"entity,omitempty"`
	Year        int         `json:"year"`
	PovertyRate *float64    `json:"poverty_rate,omitempty"`
	ExtremeRate *float64    `json:"extreme_poverty_rate,omitempty"`
	Gini        *float64    `json:"gini_coefficient,omitempty"`
	Confidence  float64     `json:"confidence"`
}
