package models

import "time"

// FiscalPeriodInfo is the normalizer's verdict on a raw fiscal-period string.
// Kenya fiscal years run July 1 through June 30; labels read FY{YYYY}/{YY}.
type FiscalPeriodInfo struct {
	Label      string    `json:"label"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Confidence float64   `json:"confidence"`
}

// FiscalPeriod is a stored fiscal period, unique per (country, label).
type FiscalPeriod struct {
	ID        int64     `json:"id"`
	CountryID int64     `json:"country_id"`
	Label     string    `json:"label"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}
