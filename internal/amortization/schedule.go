package amortization

import "github.com/Dan9191/loan-eligibility/internal/models"

// Schedule breaks a loan into monthly installments. The last installment
// absorbs rounding drift so the closing balance is zero.
func Schedule(principal, annualRatePercent float64, tenureYears int) []models.Installment {
	numPayments := tenureYears * monthsPerYear
	if numPayments <= 0 || principal <= 0 {
		return nil
	}

	monthlyRate := annualRatePercent / (monthsPerYear * 100)
	emi := MonthlyEMI(principal, annualRatePercent, tenureYears)

	schedule := make([]models.Installment, 0, numPayments)
	balance := principal
	for month := 1; month <= numPayments; month++ {
		interest := balance * monthlyRate
		principalPart := emi - interest
		payment := emi
		if month == numPayments {
			principalPart = balance
			payment = principalPart + interest
		}
		balance -= principalPart

		schedule = append(schedule, models.Installment{
			Month:     month,
			Payment:   payment,
			Principal: principalPart,
			Interest:  interest,
			Balance:   balance,
		})
	}
	return schedule
}
