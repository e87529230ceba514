// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mbd888/txguard/internal/fraud"
	txvalidator "github.com/mbd888/txguard/internal/validator"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port         string `env:"PORT" validate:"required,numeric"`
	Env          string `env:"ENV" validate:"oneof=development staging production"`
	LogLevel     string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat    string `env:"LOG_FORMAT" validate:"oneof=text json"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// HTTP protection
	RateLimitRPM   int    `env:"RATE_LIMIT_RPM" validate:"gte=0"`
	RateLimitBurst int    `env:"RATE_LIMIT_BURST" validate:"gt=0"`
	CORSOrigins    string `env:"CORS_ALLOWED_ORIGINS"`
	MaxBodyBytes   int64  `env:"MAX_BODY_BYTES" validate:"gt=0"`

	// Validation pipeline
	MaxTransactionAmount     string `env:"MAX_TRANSACTION_AMOUNT" validate:"required,numeric"`
	MinTransactionAmount     string `env:"MIN_TRANSACTION_AMOUNT" validate:"required,numeric"`
	FraudThreshold           int    `env:"FRAUD_THRESHOLD" validate:"gte=0,lte=100"`
	EnableDuplicateCheck     bool   `env:"ENABLE_DUPLICATE_CHECK"`
	EnableAMLCheck           bool   `env:"ENABLE_AML_CHECK"`
	VelocityWindowMinutes    int    `env:"VELOCITY_WINDOW_MINUTES" validate:"gt=0"`
	MaxTransactionsPerWindow int    `env:"MAX_TRANSACTIONS_PER_WINDOW" validate:"gt=0"`
	MaxAmountPerWindow       string `env:"MAX_AMOUNT_PER_WINDOW" validate:"required,numeric"`
	AMLEnforce               bool   `env:"AML_ENFORCE"`

	// Fraud scorer
	FraudMaxAmount   string `env:"FRAUD_MAX_AMOUNT" validate:"required,numeric"`
	FraudMaxPerHour  int    `env:"FRAUD_MAX_PER_HOUR" validate:"gt=0"`
	FraudRoundAmount string `env:"FRAUD_ROUND_AMOUNT" validate:"required,numeric"`

	// Network analysis
	ReportingThreshold string `env:"REPORTING_THRESHOLD" validate:"required,numeric"`
	NetworkMaxHops     int    `env:"NETWORK_MAX_HOPS" validate:"gte=3,lte=12"`

	// History maintenance
	EvictionInterval time.Duration `env:"EVICTION_INTERVAL" validate:"gt=0"`
	HistoryRetention time.Duration `env:"HISTORY_RETENTION" validate:"gt=0"`
}

const (
	DefaultPort                     = "8080"
	DefaultEnv                      = "development"
	DefaultLogLevel                 = "info"
	DefaultLogFormat                = "text"
	DefaultRateLimitRPM             = 600
	DefaultRateLimitBurst           = 50
	DefaultCORSOrigins              = "*"
	DefaultMaxBodyBytes             = 4 << 20
	DefaultMaxTransactionAmount     = "1000000"
	DefaultMinTransactionAmount     = "0.01"
	DefaultFraudThreshold           = 70
	DefaultVelocityWindowMinutes    = 60
	DefaultMaxTransactionsPerWindow = 10
	DefaultMaxAmountPerWindow       = "100000"
	DefaultFraudMaxAmount           = "50000"
	DefaultFraudMaxPerHour          = 10
	DefaultFraudRoundAmount         = "10000"
	DefaultReportingThreshold       = "10000"
	DefaultNetworkMaxHops           = 5
	DefaultEvictionInterval         = 10 * time.Minute
	DefaultHistoryRetention         = 24 * time.Hour
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                     getEnv("PORT", DefaultPort),
		Env:                      getEnv("ENV", DefaultEnv),
		LogLevel:                 getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:                getEnv("LOG_FORMAT", DefaultLogFormat),
		OTLPEndpoint:             os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:             int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
		RateLimitBurst:           int(getEnvInt64("RATE_LIMIT_BURST", DefaultRateLimitBurst)),
		CORSOrigins:              getEnv("CORS_ALLOWED_ORIGINS", DefaultCORSOrigins),
		MaxBodyBytes:             getEnvInt64("MAX_BODY_BYTES", DefaultMaxBodyBytes),
		MaxTransactionAmount:     getEnv("MAX_TRANSACTION_AMOUNT", DefaultMaxTransactionAmount),
		MinTransactionAmount:     getEnv("MIN_TRANSACTION_AMOUNT", DefaultMinTransactionAmount),
		FraudThreshold:           int(getEnvInt64("FRAUD_THRESHOLD", DefaultFraudThreshold)),
		EnableDuplicateCheck:     getEnvBool("ENABLE_DUPLICATE_CHECK", true),
		EnableAMLCheck:           getEnvBool("ENABLE_AML_CHECK", true),
		VelocityWindowMinutes:    int(getEnvInt64("VELOCITY_WINDOW_MINUTES", DefaultVelocityWindowMinutes)),
		MaxTransactionsPerWindow: int(getEnvInt64("MAX_TRANSACTIONS_PER_WINDOW", DefaultMaxTransactionsPerWindow)),
		MaxAmountPerWindow:       getEnv("MAX_AMOUNT_PER_WINDOW", DefaultMaxAmountPerWindow),
		AMLEnforce:               getEnvBool("AML_ENFORCE", true),
		FraudMaxAmount:           getEnv("FRAUD_MAX_AMOUNT", DefaultFraudMaxAmount),
		FraudMaxPerHour:          int(getEnvInt64("FRAUD_MAX_PER_HOUR", DefaultFraudMaxPerHour)),
		FraudRoundAmount:         getEnv("FRAUD_ROUND_AMOUNT", DefaultFraudRoundAmount),
		ReportingThreshold:       getEnv("REPORTING_THRESHOLD", DefaultReportingThreshold),
		NetworkMaxHops:           int(getEnvInt64("NETWORK_MAX_HOPS", DefaultNetworkMaxHops)),
		EvictionInterval:         getEnvDuration("EVICTION_INTERVAL", DefaultEvictionInterval),
		HistoryRetention:         getEnvDuration("HISTORY_RETENTION", DefaultHistoryRetention),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// Validate checks field constraints and cross-field consistency
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	minAmt := decimal.RequireFromString(c.MinTransactionAmount)
	maxAmt := decimal.RequireFromString(c.MaxTransactionAmount)
	if !minAmt.IsPositive() {
		return fmt.Errorf("MIN_TRANSACTION_AMOUNT must be positive")
	}
	if minAmt.GreaterThan(maxAmt) {
		return fmt.Errorf("MIN_TRANSACTION_AMOUNT (%s) must not exceed MAX_TRANSACTION_AMOUNT (%s)", minAmt, maxAmt)
	}
	for name, v := range map[string]string{
		"MAX_AMOUNT_PER_WINDOW": c.MaxAmountPerWindow,
		"FRAUD_MAX_AMOUNT":      c.FraudMaxAmount,
		"FRAUD_ROUND_AMOUNT":    c.FraudRoundAmount,
		"REPORTING_THRESHOLD":   c.ReportingThreshold,
	} {
		if !decimal.RequireFromString(v).IsPositive() {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ValidatorConfig converts the pipeline settings. Call after Validate.
func (c *Config) ValidatorConfig() txvalidator.Config {
	return txvalidator.Config{
		MaxTransactionAmount:     decimal.RequireFromString(c.MaxTransactionAmount),
		MinTransactionAmount:     decimal.RequireFromString(c.MinTransactionAmount),
		FraudThreshold:           c.FraudThreshold,
		EnableDuplicateCheck:     c.EnableDuplicateCheck,
		EnableAMLCheck:           c.EnableAMLCheck,
		VelocityWindow:           time.Duration(c.VelocityWindowMinutes) * time.Minute,
		MaxTransactionsPerWindow: c.MaxTransactionsPerWindow,
		MaxAmountPerWindow:       decimal.RequireFromString(c.MaxAmountPerWindow),
	}
}

// FraudThresholds converts the fraud scorer settings. Call after Validate.
func (c *Config) FraudThresholds() fraud.Thresholds {
	return fraud.Thresholds{
		MaxAmount:            decimal.RequireFromString(c.FraudMaxAmount),
		MaxPerHour:           c.FraudMaxPerHour,
		RoundAmountThreshold: decimal.RequireFromString(c.FraudRoundAmount),
	}
}

// ReportingThresholdAmount returns the structuring reference threshold.
func (c *Config) ReportingThresholdAmount() decimal.Decimal {
	return decimal.RequireFromString(c.ReportingThreshold)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
