package amortization

import (
	"context"
	"math"

	"github.com/Dan9191/loan-eligibility/internal/config"
	"github.com/Dan9191/loan-eligibility/internal/models"
	"github.com/shopspring/decimal"
)

const monthsPerYear = 12

// RateResolver returns the annual rate percent for a tenure
type RateResolver interface {
	RateFor(ctx context.Context, tenureYears int) decimal.Decimal
}

// Engine computes eligibility against a rate table and lending policy
type Engine struct {
	rates  RateResolver
	policy config.Policy
}

// NewEngine initializes a new engine
func NewEngine(rates RateResolver, policy config.Policy) *Engine {
	return &Engine{rates: rates, policy: policy}
}

// Policy returns the lending rules the engine applies
func (e *Engine) Policy() config.Policy {
	return e.policy
}

// MonthlyEMI returns the equated monthly installment that repays principal
// over tenureYears at annualRatePercent.
func MonthlyEMI(principal, annualRatePercent float64, tenureYears int) float64 {
	monthlyRate := annualRatePercent / (monthsPerYear * 100)
	numPayments := tenureYears * monthsPerYear

	if monthlyRate == 0 {
		return principal / float64(numPayments)
	}

	growth := math.Pow(1+monthlyRate, float64(numPayments))
	return principal * monthlyRate * growth / (growth - 1)
}

// EligibleAmount returns the largest principal whose EMI fits maxEMI.
func EligibleAmount(maxEMI, annualRatePercent float64, tenureYears int) float64 {
	monthlyRate := annualRatePercent / (monthsPerYear * 100)
	numPayments := tenureYears * monthsPerYear

	if monthlyRate == 0 {
		return maxEMI * float64(numPayments)
	}

	growth := math.Pow(1+monthlyRate, float64(numPayments))
	return maxEMI * (growth - 1) / (monthlyRate * growth)
}

// Eligibility computes the maximum principal affordable on monthlyIncome over
// tenureYears. MonthlyEMI in the result is recomputed from the eligible amount
// and is the authoritative installment.
func (e *Engine) Eligibility(ctx context.Context, monthlyIncome float64, tenureYears int) models.EligibilityResult {
	rate := e.rates.RateFor(ctx, tenureYears)
	annualRate := rate.InexactFloat64()
	numPayments := float64(tenureYears * monthsPerYear)

	maxEMI := monthlyIncome * e.policy.DTICeiling
	eligibleAmount := EligibleAmount(maxEMI, annualRate, tenureYears)
	actualEMI := MonthlyEMI(eligibleAmount, annualRate, tenureYears)
	totalPayment := actualEMI * numPayments

	return models.EligibilityResult{
		EligibleAmount: eligibleAmount,
		MonthlyEMI:     actualEMI,
		InterestRate:   rate,
		TotalPayment:   totalPayment,
		TotalInterest:  totalPayment - eligibleAmount,
	}
}
