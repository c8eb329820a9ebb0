package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateEntry maps a tenure bracket to its annual interest rate
type RateEntry struct {
	ID                int64           `json:"id"`
	TenureYears       int             `json:"tenure_years"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	EffectiveDate     time.Time       `json:"effective_date"`
}
