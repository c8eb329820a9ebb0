package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Policy holds the lending rules applied by the eligibility engine
type Policy struct {
	// DTICeiling is the share of monthly income that may go to the EMI.
	DTICeiling float64
	// MinEligibleAmount is the smallest principal that qualifies for a loan.
	MinEligibleAmount float64
	// DefaultRatePercent applies when no tenure bracket matches or the rate table is unreachable.
	DefaultRatePercent decimal.Decimal
	// MaxScheduleYears bounds the tenure an amortization schedule is built for.
	MaxScheduleYears int
}

// DefaultPolicy returns the stock lending rules
func DefaultPolicy() Policy {
	return Policy{
		DTICeiling:         0.50,
		MinEligibleAmount:  50000,
		DefaultRatePercent: decimal.NewFromFloat(12.0),
		MaxScheduleYears:   50,
	}
}

// IsEligible reports whether amount reaches the eligibility floor (inclusive)
func (p Policy) IsEligible(amount float64) bool {
	return amount >= p.MinEligibleAmount
}

// Config holds application configuration
type Config struct {
	Port               string
	DBDriver           string
	DBConn             string
	LogLevel           string
	Environment        string
	CBRURL             string
	KeyRateRefreshSpec string
	RedisAddr          string
	HMACSecret         string
	SMTPHost           string
	SMTPPort           string
	SMTPUsername       string
	SMTPPassword       string
	SenderEmail        string
	NotifyEmail        string
	Policy             Policy
}

// NewConfig loads configuration from environment variables and an optional .env file
func NewConfig() (*Config, error) {
	// Missing .env is fine; variables already in the environment take precedence.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DBDriver:           strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DBConn:             getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=loans sslmode=disable"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Environment:        strings.ToLower(getEnv("ENVIRONMENT", "development")),
		CBRURL:             getEnv("CBR_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		KeyRateRefreshSpec: getEnv("KEY_RATE_REFRESH_SPEC", "0 */6 * * *"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		HMACSecret:         getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnv("SMTP_PORT", "587"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SenderEmail:        getEnv("SENDER_EMAIL", "loans@example.com"),
		NotifyEmail:        getEnv("NOTIFY_EMAIL", ""),
	}

	if cfg.DBDriver != DriverPostgres && cfg.DBDriver != DriverSQLite {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}

	policy, err := loadPolicy()
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	return cfg, nil
}

// SMTPEnabled reports whether application notifications can be mailed
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.NotifyEmail != ""
}

func loadPolicy() (Policy, error) {
	p := DefaultPolicy()

	if v, ok := os.LookupEnv("MAX_DTI_RATIO"); ok {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid MAX_DTI_RATIO: %w", err)
		}
		if ratio <= 0 || ratio > 1 {
			return Policy{}, fmt.Errorf("MAX_DTI_RATIO must be in (0, 1], got %v", ratio)
		}
		p.DTICeiling = ratio
	}

	if v, ok := os.LookupEnv("MIN_ELIGIBLE_AMOUNT"); ok {
		floor, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid MIN_ELIGIBLE_AMOUNT: %w", err)
		}
		if floor < 0 {
			return Policy{}, fmt.Errorf("MIN_ELIGIBLE_AMOUNT must not be negative, got %v", floor)
		}
		p.MinEligibleAmount = floor
	}

	if v, ok := os.LookupEnv("DEFAULT_RATE_PERCENT"); ok {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid DEFAULT_RATE_PERCENT: %w", err)
		}
		if rate.IsNegative() {
			return Policy{}, fmt.Errorf("DEFAULT_RATE_PERCENT must not be negative, got %s", rate)
		}
		p.DefaultRatePercent = rate.Round(2)
	}

	if v, ok := os.LookupEnv("MAX_SCHEDULE_YEARS"); ok {
		years, err := strconv.Atoi(v)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid MAX_SCHEDULE_YEARS: %w", err)
		}
		if years <= 0 {
			return Policy{}, fmt.Errorf("MAX_SCHEDULE_YEARS must be positive, got %d", years)
		}
		p.MaxScheduleYears = years
	}

	return p, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
