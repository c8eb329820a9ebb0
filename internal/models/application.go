package models

import "time"

// Application is a saved eligibility check for a named applicant
type Application struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	MonthlyIncome float64           `json:"monthly_income"`
	TenureYears   int               `json:"tenure_years"`
	Result        EligibilityResult `json:"result"`
	IsEligible    bool              `json:"is_eligible"`
	Signature     string            `json:"signature"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ApplicationFilter narrows application listings
type ApplicationFilter struct {
	Eligible *bool
	Limit    int
}

// ApplicationSummary aggregates saved applications
type ApplicationSummary struct {
	Total               int     `json:"total"`
	Eligible            int     `json:"eligible"`
	TotalEligibleAmount float64 `json:"total_eligible_amount"`
	AverageEMI          float64 `json:"average_emi"`
}
