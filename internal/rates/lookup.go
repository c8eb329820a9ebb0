package rates

import (
	"context"
	"sort"

	"github.com/Dan9191/loan-eligibility/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Source provides a snapshot of the rate table
type Source interface {
	ListRates(ctx context.Context) ([]models.RateEntry, error)
}

// Lookup resolves interest rates for a tenure against a Source
type Lookup struct {
	source      Source
	defaultRate decimal.Decimal
	log         *logrus.Logger
}

// NewLookup creates a Lookup that falls back to defaultRate
func NewLookup(source Source, defaultRate decimal.Decimal, log *logrus.Logger) *Lookup {
	return &Lookup{source: source, defaultRate: defaultRate, log: log}
}

// RateFor returns the annual rate percent for tenureYears.
// Tenures past the largest bracket and source failures both yield the default rate.
func (l *Lookup) RateFor(ctx context.Context, tenureYears int) decimal.Decimal {
	table, err := l.source.ListRates(ctx)
	if err != nil {
		l.log.WithError(err).WithField("tenure_years", tenureYears).
			Warnf("Rate table unavailable, using default rate %s%%", l.defaultRate.StringFixed(2))
		return l.defaultRate
	}

	if rate, ok := Resolve(table, tenureYears); ok {
		return rate
	}

	l.log.WithField("tenure_years", tenureYears).
		Debugf("No bracket covers tenure, using default rate %s%%", l.defaultRate.StringFixed(2))
	return l.defaultRate
}

// Resolve finds the rate for tenureYears in table: the exact bracket if present,
// otherwise the smallest bracket above it. ok is false when tenureYears exceeds
// every bracket.
func Resolve(table []models.RateEntry, tenureYears int) (rate decimal.Decimal, ok bool) {
	found := false
	var best models.RateEntry
	for _, e := range table {
		if e.TenureYears == tenureYears {
			return e.AnnualRatePercent, true
		}
		if e.TenureYears > tenureYears && (!found || e.TenureYears < best.TenureYears) {
			best = e
			found = true
		}
	}
	if !found {
		return decimal.Decimal{}, false
	}
	return best.AnnualRatePercent, true
}

// Table is an in-memory Source over a fixed set of brackets
type Table struct {
	entries []models.RateEntry
}

// NewTable copies entries into a Table sorted by tenure
func NewTable(entries []models.RateEntry) *Table {
	sorted := make([]models.RateEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TenureYears < sorted[j].TenureYears })
	return &Table{entries: sorted}
}

// ListRates returns a copy of the table
func (t *Table) ListRates(ctx context.Context) ([]models.RateEntry, error) {
	out := make([]models.RateEntry, len(t.entries))
	copy(out, t.entries)
	return out, nil
}

// SeedRates returns the stock tenure brackets loaded at first-time setup
func SeedRates() []models.RateEntry {
	seed := []struct {
		tenure int
		rate   string
	}{
		{1, "8.50"}, {2, "9.00"}, {3, "9.50"},
		{5, "10.00"}, {7, "10.50"}, {10, "11.00"},
		{15, "11.50"}, {20, "12.00"},
	}

	entries := make([]models.RateEntry, 0, len(seed))
	for _, s := range seed {
		entries = append(entries, models.RateEntry{
			TenureYears:       s.tenure,
			AnnualRatePercent: decimal.RequireFromString(s.rate),
		})
	}
	return entries
}
