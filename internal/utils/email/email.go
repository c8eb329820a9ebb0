package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/Dan9191/loan-eligibility/internal/config"
	"github.com/Dan9191/loan-eligibility/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender mails loan officers about saved applications via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, a smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send:   (*email.Email).Send,
	}
}

// ApplicationSaved notifies the configured recipient about app
func (s *Sender) ApplicationSaved(ctx context.Context, app models.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := s.buildMessage(app)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", s.cfg.NotifyEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.NotifyEmail, e.Subject)
	return nil
}

func (s *Sender) buildMessage(app models.Application) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.NotifyEmail}

	status := "NOT ELIGIBLE"
	if app.IsEligible {
		status = "ELIGIBLE"
	}
	e.Subject = fmt.Sprintf("Loan application #%d: %s", app.ID, status)

	body := fmt.Sprintf("A personal loan application was saved on %s.\n\n", app.CreatedAt.Format("2006-01-02 15:04:05"))
	body += fmt.Sprintf(
		"Applicant:        %s\n"+
			"Monthly income:   %.2f\n"+
			"Tenure:           %d years\n"+
			"Interest rate:    %s%%\n"+
			"Eligible amount:  %.2f\n"+
			"Monthly EMI:      %.2f\n"+
			"Total payable:    %.2f\n"+
			"Total interest:   %.2f\n",
		app.Name, app.MonthlyIncome, app.TenureYears, app.Result.InterestRate.StringFixed(2),
		app.Result.EligibleAmount, app.Result.MonthlyEMI, app.Result.TotalPayment, app.Result.TotalInterest,
	)
	if !app.IsEligible {
		body += fmt.Sprintf("\nThe eligible amount is below the minimum of %.2f.\n", s.cfg.Policy.MinEligibleAmount)
	}
	body += "\nBest regards,\nLoan Eligibility Service"
	e.Text = []byte(body)
	return e
}

// Nop discards notifications; used when SMTP is not configured
type Nop struct{}

// ApplicationSaved does nothing
func (Nop) ApplicationSaved(ctx context.Context, app models.Application) error {
	return nil
}
