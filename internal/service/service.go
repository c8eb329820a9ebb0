package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/loan-eligibility/internal/amortization"
	"github.com/Dan9191/loan-eligibility/internal/config"
	"github.com/Dan9191/loan-eligibility/internal/models"
	"github.com/Dan9191/loan-eligibility/internal/rates"
	"github.com/Dan9191/loan-eligibility/internal/repository"
	"github.com/Dan9191/loan-eligibility/internal/utils"
	"github.com/sirupsen/logrus"
)

// ErrInvalidInput is returned for non-positive or non-finite income and tenure
var ErrInvalidInput = errors.New("invalid input")

// ErrOutOfRange marks input too large to produce a finite result. It wraps ErrInvalidInput.
var ErrOutOfRange = fmt.Errorf("%w: out of range", ErrInvalidInput)

// Notifier is told about every saved application
type Notifier interface {
	ApplicationSaved(ctx context.Context, app models.Application) error
}

// Assessment is an eligibility result with the policy verdict applied
type Assessment struct {
	Result     models.EligibilityResult `json:"result"`
	IsEligible bool                     `json:"is_eligible"`
}

// Service handles business logic
type Service struct {
	repo     *repository.Repository
	engine   *amortization.Engine
	notifier Notifier
	log      *logrus.Logger
	config   *config.Config
	now      func() time.Time
}

// NewService initializes a new service. Rates are looked up from repo.
func NewService(repo *repository.Repository, notifier Notifier, log *logrus.Logger, cfg *config.Config) *Service {
	lookup := rates.NewLookup(repo, cfg.Policy.DefaultRatePercent, log)
	return &Service{
		repo:     repo,
		engine:   amortization.NewEngine(lookup, cfg.Policy),
		notifier: notifier,
		log:      log,
		config:   cfg,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Policy returns the lending rules in effect
func (s *Service) Policy() config.Policy {
	return s.config.Policy
}

// Setup creates the schema and loads the seed rate brackets
func (s *Service) Setup(ctx context.Context) error {
	if err := s.repo.EnsureSchema(ctx); err != nil {
		s.log.WithError(err).Error("Database setup failed")
		return err
	}
	n, err := s.repo.SeedRates(ctx, rates.SeedRates())
	if err != nil {
		s.log.WithError(err).Error("Seeding interest rates failed")
		return err
	}
	s.log.WithField("inserted", n).Info("Database setup completed")
	return nil
}

// Assess computes eligibility for monthlyIncome over tenureYears
func (s *Service) Assess(ctx context.Context, monthlyIncome float64, tenureYears int) (Assessment, error) {
	if err := validate(monthlyIncome, tenureYears); err != nil {
		return Assessment{}, err
	}

	result := s.engine.Eligibility(ctx, monthlyIncome, tenureYears)
	if !representable(result) {
		s.log.WithFields(logrus.Fields{
			"monthly_income": monthlyIncome,
			"tenure_years":   tenureYears,
		}).Warn("Eligibility result out of range")
		return Assessment{}, fmt.Errorf("%w: income or tenure too large", ErrOutOfRange)
	}
	assessment := Assessment{
		Result:     result,
		IsEligible: s.config.Policy.IsEligible(result.EligibleAmount),
	}

	s.log.WithFields(logrus.Fields{
		"monthly_income":  monthlyIncome,
		"tenure_years":    tenureYears,
		"interest_rate":   result.InterestRate.StringFixed(2),
		"eligible_amount": result.EligibleAmount,
		"is_eligible":     assessment.IsEligible,
	}).Debug("Eligibility computed")
	return assessment, nil
}

// Schedule returns the monthly amortization of an assessed loan.
// Tenures above the policy's MaxScheduleYears are rejected.
func (s *Service) Schedule(result models.EligibilityResult, tenureYears int) ([]models.Installment, error) {
	if tenureYears <= 0 {
		return nil, fmt.Errorf("%w: tenure must be positive", ErrInvalidInput)
	}
	if limit := s.config.Policy.MaxScheduleYears; tenureYears > limit {
		return nil, fmt.Errorf("%w: schedule tenure must not exceed %d years", ErrOutOfRange, limit)
	}
	return amortization.Schedule(result.EligibleAmount, result.InterestRate.InexactFloat64(), tenureYears), nil
}

// SaveApplication persists a signed application built from an assessed result.
// Amounts are stored to the cent.
func (s *Service) SaveApplication(ctx context.Context, name string, monthlyIncome float64, tenureYears int, result models.EligibilityResult) (*models.Application, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: applicant name is required", ErrInvalidInput)
	}
	if err := validate(monthlyIncome, tenureYears); err != nil {
		return nil, err
	}

	app := &models.Application{
		Name:          name,
		MonthlyIncome: roundToCents(monthlyIncome),
		TenureYears:   tenureYears,
		Result: models.EligibilityResult{
			EligibleAmount: roundToCents(result.EligibleAmount),
			MonthlyEMI:     roundToCents(result.MonthlyEMI),
			InterestRate:   result.InterestRate.Round(2),
			TotalPayment:   roundToCents(result.TotalPayment),
			TotalInterest:  roundToCents(result.TotalInterest),
		},
		IsEligible: s.config.Policy.IsEligible(result.EligibleAmount),
		CreatedAt:  s.now(),
	}
	app.Signature = utils.GenerateHMAC(s.config.HMACSecret, signedFields(app)...)

	if err := s.repo.CreateApplication(ctx, app); err != nil {
		s.log.WithError(err).WithField("applicant", name).Error("Failed to save application")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"application_id": app.ID,
		"is_eligible":    app.IsEligible,
	}).Info("Application saved")

	if err := s.notifier.ApplicationSaved(ctx, *app); err != nil {
		s.log.WithError(err).WithField("application_id", app.ID).Warn("Application notification failed")
	}
	return app, nil
}

// VerifyApplication reports whether app still matches its signature
func (s *Service) VerifyApplication(app models.Application) bool {
	return utils.VerifyHMAC(s.config.HMACSecret, app.Signature, signedFields(&app)...)
}

// ListApplications returns saved applications, newest first
func (s *Service) ListApplications(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	apps, err := s.repo.ListApplications(ctx, filter)
	if err != nil {
		s.log.WithError(err).Error("Failed to list applications")
		return nil, err
	}
	for _, a := range apps {
		if !s.VerifyApplication(a) {
			s.log.WithField("application_id", a.ID).Warn("Application signature mismatch")
		}
	}
	return apps, nil
}

// Summary aggregates saved applications
func (s *Service) Summary(ctx context.Context) (models.ApplicationSummary, error) {
	summary, err := s.repo.SummarizeApplications(ctx)
	if err != nil {
		s.log.WithError(err).Error("Failed to summarize applications")
		return models.ApplicationSummary{}, err
	}
	return summary, nil
}

// Rates returns the rate table
func (s *Service) Rates(ctx context.Context) ([]models.RateEntry, error) {
	list, err := s.repo.ListRates(ctx)
	if err != nil {
		s.log.WithError(err).Error("Failed to list rates")
		return nil, err
	}
	return list, nil
}

func validate(monthlyIncome float64, tenureYears int) error {
	if math.IsNaN(monthlyIncome) || math.IsInf(monthlyIncome, 0) || monthlyIncome <= 0 {
		return fmt.Errorf("%w: monthly income must be positive", ErrInvalidInput)
	}
	if tenureYears <= 0 {
		return fmt.Errorf("%w: tenure must be positive", ErrInvalidInput)
	}
	return nil
}

// representable reports whether every monetary field is finite and non-negative.
// Float drift under half a cent counts as zero.
func representable(r models.EligibilityResult) bool {
	for _, v := range []float64{r.EligibleAmount, r.MonthlyEMI, r.TotalPayment, r.TotalInterest} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < -0.005 {
			return false
		}
	}
	return true
}

func signedFields(app *models.Application) []string {
	money := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return []string{
		app.Name,
		money(app.MonthlyIncome),
		strconv.Itoa(app.TenureYears),
		app.Result.InterestRate.StringFixed(2),
		money(app.Result.EligibleAmount),
		money(app.Result.MonthlyEMI),
		money(app.Result.TotalPayment),
		money(app.Result.TotalInterest),
		strconv.FormatBool(app.IsEligible),
		app.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func roundToCents(v float64) float64 {
	return math.Round(v*100) / 100
}
