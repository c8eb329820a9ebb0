package models

import "github.com/shopspring/decimal"

// EligibilityResult is the outcome of an eligibility computation.
// TotalPayment is MonthlyEMI times the number of months and
// TotalInterest is TotalPayment minus EligibleAmount.
type EligibilityResult struct {
	EligibleAmount float64         `json:"eligible_amount"`
	MonthlyEMI     float64         `json:"monthly_emi"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	TotalPayment   float64         `json:"total_payment"`
	TotalInterest  float64         `json:"total_interest"`
}
