package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Dan9191/loan-eligibility/internal/models"
	"github.com/Dan9191/loan-eligibility/internal/service"
	"github.com/sirupsen/logrus"
)

var errInputClosed = errors.New("input closed")

// Menu is the interactive text front end
type Menu struct {
	svc *service.Service
	in  *bufio.Scanner
	out io.Writer
	log *logrus.Logger
}

// NewMenu creates a menu reading from in and writing to out
func NewMenu(svc *service.Service, in io.Reader, out io.Writer, log *logrus.Logger) *Menu {
	return &Menu{svc: svc, in: bufio.NewScanner(in), out: out, log: log}
}

// Run shows the banner, offers first-time setup and serves the menu until the
// user exits or input ends.
func (m *Menu) Run(ctx context.Context) error {
	m.printf("\n%s\nPERSONAL LOAN ELIGIBILITY CALCULATOR\n%s\n", rule("=", 60), rule("=", 60))

	setup, err := m.prompt("\nFirst time setup? (yes/no): ")
	if err != nil {
		return m.finish(err)
	}
	if strings.EqualFold(setup, "yes") {
		if err := m.svc.Setup(ctx); err != nil {
			m.printf("Error setting up database: %v\n", err)
		} else {
			m.printf("Database setup completed successfully\n")
		}
	}

	for {
		m.printf("\n%s\nMENU\n%s\n", rule("-", 60), rule("-", 60))
		m.printf("1. Calculate Loan Eligibility\n")
		m.printf("2. View All Applications\n")
		m.printf("3. Exit\n")
		m.printf("4. View Interest Rates\n")
		m.printf("5. Applications Summary\n")

		choice, err := m.prompt("\nEnter your choice (1-5): ")
		if err != nil {
			return m.finish(err)
		}

		switch choice {
		case "1":
			err = m.calculate(ctx)
		case "2":
			m.viewApplications(ctx)
		case "3":
			m.printf("\nThank you for using Loan Eligibility Calculator!\n")
			return nil
		case "4":
			m.viewRates(ctx)
		case "5":
			m.viewSummary(ctx)
		default:
			m.printf("Invalid choice! Please select 1-5.\n")
		}
		if err != nil {
			return m.finish(err)
		}
	}
}

func (m *Menu) finish(err error) error {
	if errors.Is(err, errInputClosed) {
		m.log.Debug("Input closed, leaving menu")
		return nil
	}
	return err
}

func (m *Menu) calculate(ctx context.Context) error {
	name, err := m.prompt("\nEnter applicant name: ")
	if err != nil {
		return err
	}
	incomeText, err := m.prompt("Enter monthly income (₹): ")
	if err != nil {
		return err
	}
	income, err := strconv.ParseFloat(incomeText, 64)
	if err != nil {
		m.printf("Invalid input! Please enter numeric values.\n")
		return nil
	}
	tenureText, err := m.prompt("Enter loan tenure (years): ")
	if err != nil {
		return err
	}
	tenure, err := strconv.Atoi(tenureText)
	if err != nil {
		m.printf("Invalid input! Please enter numeric values.\n")
		return nil
	}

	assessment, err := m.svc.Assess(ctx, income, tenure)
	if errors.Is(err, service.ErrOutOfRange) {
		m.printf("Invalid input! Income or tenure is too large.\n")
		return nil
	}
	if errors.Is(err, service.ErrInvalidInput) {
		m.printf("Invalid input! Income and tenure must be positive.\n")
		return nil
	}
	if err != nil {
		m.printf("Error: %v\n", err)
		return nil
	}
	m.displayResult(assessment, income)

	save, err := m.prompt("\nSave this application? (yes/no): ")
	if err != nil {
		return err
	}
	if !strings.EqualFold(save, "yes") {
		return nil
	}

	app, err := m.svc.SaveApplication(ctx, name, income, tenure, assessment.Result)
	if err != nil {
		m.printf("Error saving application: %v\n", err)
		return nil
	}
	m.printf("\n✓ Application saved successfully! (ID: %d)\n", app.ID)
	return nil
}

func (m *Menu) displayResult(a service.Assessment, income float64) {
	r := a.Result
	m.printf("\n%s\nLOAN ELIGIBILITY RESULTS\n%s\n", rule("=", 60), rule("=", 60))
	m.printf("Monthly Income:           %s%s\n", rupee, money(income))
	m.printf("Interest Rate:            %s%%\n", r.InterestRate.StringFixed(2))
	m.printf("Eligible Loan Amount:     %s%s\n", rupee, money(r.EligibleAmount))
	m.printf("Monthly EMI:              %s%s\n", rupee, money(r.MonthlyEMI))
	m.printf("Total Amount Payable:     %s%s\n", rupee, money(r.TotalPayment))
	m.printf("Total Interest:           %s%s\n", rupee, money(r.TotalInterest))
	m.printf("%s\n", rule("=", 60))

	if a.IsEligible {
		m.printf("✓ You are ELIGIBLE for a personal loan!\n")
	} else {
		m.printf("✗ Loan amount too low. Minimum eligible amount is %s%s\n",
			rupee, printer.Sprintf("%.0f", m.svc.Policy().MinEligibleAmount))
	}
}

func (m *Menu) viewApplications(ctx context.Context) {
	apps, err := m.svc.ListApplications(ctx, models.ApplicationFilter{})
	if err != nil {
		m.printf("Error fetching applications: %v\n", err)
		return
	}
	if len(apps) == 0 {
		m.printf("\nNo applications found in database.\n")
		return
	}

	m.printf("\n%s\nALL LOAN APPLICATIONS\n%s\n", rule("=", 100), rule("=", 100))
	m.printf("%-20s %-15s %-10s %-18s %-15s %-10s %-12s\n",
		"Name", "Income", "Tenure", "Eligible Amt", "EMI", "Status", "Date")
	m.printf("%s\n", rule("-", 100))
	for _, a := range apps {
		m.printf("%-20s %s %8d yrs %s %s %-10s %-12s\n",
			a.Name,
			moneyCol(a.MonthlyIncome, 13),
			a.TenureYears,
			moneyCol(a.Result.EligibleAmount, 15),
			moneyCol(a.Result.MonthlyEMI, 13),
			yesNo(a.IsEligible),
			reportDate(a.CreatedAt),
		)
	}
	m.printf("%s\n", rule("=", 100))
}

func (m *Menu) viewRates(ctx context.Context) {
	list, err := m.svc.Rates(ctx)
	if err != nil {
		m.printf("Error fetching interest rates: %v\n", err)
		return
	}
	if len(list) == 0 {
		m.printf("\nNo interest rates configured. Run first time setup.\n")
		return
	}

	m.printf("\n%s\nINTEREST RATES\n%s\n", rule("=", 40), rule("=", 40))
	m.printf("%-15s %s\n", "Tenure (yrs)", "Rate (%)")
	m.printf("%s\n", rule("-", 40))
	for _, e := range list {
		m.printf("%-15d %s\n", e.TenureYears, e.AnnualRatePercent.StringFixed(2))
	}
	m.printf("Longer tenures: %s\n", m.svc.Policy().DefaultRatePercent.StringFixed(2))
	m.printf("%s\n", rule("=", 40))
}

func (m *Menu) viewSummary(ctx context.Context) {
	s, err := m.svc.Summary(ctx)
	if err != nil {
		m.printf("Error fetching summary: %v\n", err)
		return
	}

	m.printf("\n%s\nAPPLICATIONS SUMMARY\n%s\n", rule("=", 60), rule("=", 60))
	m.printf("Total Applications:       %d\n", s.Total)
	m.printf("Eligible Applications:    %d\n", s.Eligible)
	m.printf("Total Eligible Amount:    %s%s\n", rupee, money(s.TotalEligibleAmount))
	m.printf("Average Monthly EMI:      %s%s\n", rupee, money(s.AverageEMI))
	m.printf("%s\n", rule("=", 60))
}

func (m *Menu) prompt(label string) (string, error) {
	m.printf("%s", label)
	if !m.in.Scan() {
		if err := m.in.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(m.in.Text()), nil
}

func (m *Menu) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}

func rule(ch string, n int) string {
	return strings.Repeat(ch, n)
}
