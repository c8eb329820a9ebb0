package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/loan-eligibility/internal/config"
	"github.com/Dan9191/loan-eligibility/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrStorage marks every failure reported by the repository
var ErrStorage = errors.New("storage error")

// Repository provides database operations
type Repository struct {
	db     *sql.DB
	driver string
	log    *logrus.Logger
	now    func() time.Time
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB, driver string, log *logrus.Logger) *Repository {
	return &Repository{
		db:     db,
		driver: driver,
		log:    log,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStorage, op, err)
}

// rollback undoes tx, ignoring the error returned after a successful commit.
func (r *Repository) rollback(tx *sql.Tx, op string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.log.WithError(err).WithField("operation", op).Error("Failed to rollback transaction")
	}
}

func (r *Repository) schema() []string {
	pk := "SERIAL PRIMARY KEY"
	if r.driver == config.DriverSQLite {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS interest_rates (
			rate_id ` + pk + `,
			loan_tenure_years INTEGER NOT NULL UNIQUE,
			interest_rate NUMERIC(5,2) NOT NULL,
			effective_date TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS loan_applications (
			application_id ` + pk + `,
			applicant_name VARCHAR(100) NOT NULL,
			monthly_income NUMERIC(12,2) NOT NULL,
			loan_tenure_years INTEGER NOT NULL,
			interest_rate NUMERIC(5,2) NOT NULL,
			eligible_amount NUMERIC(12,2) NOT NULL,
			monthly_emi NUMERIC(12,2) NOT NULL,
			total_payment NUMERIC(14,2) NOT NULL,
			total_interest NUMERIC(14,2) NOT NULL,
			is_eligible BOOLEAN NOT NULL,
			signature VARCHAR(64) NOT NULL,
			application_date TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS loan_applications_date_idx ON loan_applications (application_date)`,
	}
}

// EnsureSchema creates the rate and application tables if they do not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin schema transaction", err)
	}
	defer r.rollback(tx, "ensure_schema")

	for _, stmt := range r.schema() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return storageErr("create schema", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit schema", err)
	}
	return nil
}

// SeedRates inserts rate brackets, leaving brackets that already exist untouched.
// It returns the number of rows inserted.
func (r *Repository) SeedRates(ctx context.Context, entries []models.RateEntry) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin seed transaction", err)
	}
	defer r.rollback(tx, "seed_rates")

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO interest_rates (loan_tenure_years, interest_rate, effective_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (loan_tenure_years) DO NOTHING`)
	if err != nil {
		return 0, storageErr("prepare rate insert", err)
	}
	defer stmt.Close()

	effective := r.now()
	inserted := 0
	for _, e := range entries {
		res, err := stmt.ExecContext(ctx, e.TenureYears, e.AnnualRatePercent, effective)
		if err != nil {
			return 0, storageErr(fmt.Sprintf("insert rate for %d years", e.TenureYears), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit rates", err)
	}
	return inserted, nil
}

// ListRates returns the rate table ordered by tenure
func (r *Repository) ListRates(ctx context.Context) ([]models.RateEntry, error) {
	query := `
		SELECT rate_id, loan_tenure_years, interest_rate, effective_date
		FROM interest_rates
		ORDER BY loan_tenure_years`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("list rates", err)
	}
	defer rows.Close()

	entries := make([]models.RateEntry, 0)
	for rows.Next() {
		var e models.RateEntry
		if err := rows.Scan(&e.ID, &e.TenureYears, &e.AnnualRatePercent, &e.EffectiveDate); err != nil {
			return nil, storageErr("scan rate", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate rates", err)
	}
	return entries, nil
}

// CreateApplication stores app in its own transaction and sets its ID.
// A zero CreatedAt is replaced with the current time.
func (r *Repository) CreateApplication(ctx context.Context, app *models.Application) error {
	if app.CreatedAt.IsZero() {
		app.CreatedAt = r.now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin application transaction", err)
	}
	defer r.rollback(tx, "create_application")

	query := `
		INSERT INTO loan_applications (
			applicant_name, monthly_income, loan_tenure_years, interest_rate,
			eligible_amount, monthly_emi, total_payment, total_interest,
			is_eligible, signature, application_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING application_id`
	err = tx.QueryRowContext(ctx, query,
		app.Name, app.MonthlyIncome, app.TenureYears, app.Result.InterestRate,
		app.Result.EligibleAmount, app.Result.MonthlyEMI, app.Result.TotalPayment, app.Result.TotalInterest,
		app.IsEligible, app.Signature, app.CreatedAt,
	).Scan(&app.ID)
	if err != nil {
		return storageErr("create application", err)
	}

	if err := tx.Commit(); err != nil {
		app.ID = 0
		return storageErr("commit application", err)
	}
	return nil
}

// ListApplications returns saved applications, newest first
func (r *Repository) ListApplications(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	var (
		where []string
		args  []any
	)
	if filter.Eligible != nil {
		args = append(args, *filter.Eligible)
		where = append(where, fmt.Sprintf("is_eligible = $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT application_id, applicant_name, monthly_income, loan_tenure_years, interest_rate,
			eligible_amount, monthly_emi, total_payment, total_interest,
			is_eligible, signature, application_date
		FROM loan_applications`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY application_date DESC, application_id DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, storageErr("list applications", err)
	}
	defer rows.Close()

	apps := make([]models.Application, 0)
	for rows.Next() {
		var a models.Application
		if err := rows.Scan(&a.ID, &a.Name, &a.MonthlyIncome, &a.TenureYears, &a.Result.InterestRate,
			&a.Result.EligibleAmount, &a.Result.MonthlyEMI, &a.Result.TotalPayment, &a.Result.TotalInterest,
			&a.IsEligible, &a.Signature, &a.CreatedAt); err != nil {
			return nil, storageErr("scan application", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate applications", err)
	}
	return apps, nil
}

// SummarizeApplications aggregates all saved applications
func (r *Repository) SummarizeApplications(ctx context.Context) (models.ApplicationSummary, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_eligible THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(eligible_amount), 0),
			COALESCE(AVG(monthly_emi), 0)
		FROM loan_applications`
	var s models.ApplicationSummary
	err := r.db.QueryRowContext(ctx, query).Scan(&s.Total, &s.Eligible, &s.TotalEligibleAmount, &s.AverageEMI)
	if err != nil {
		return models.ApplicationSummary{}, storageErr("summarize applications", err)
	}
	return s, nil
}
