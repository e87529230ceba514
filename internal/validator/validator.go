// Package validator implements the transaction validation pipeline.
//
// Validate runs every check in a fixed order with no early exit: amount
// bounds, account format, duplicate id, per-user velocity, history append,
// the pattern pass (plus the fraud scorer), time-of-day risk, the compliance
// hook, business rules and the risk threshold. Failures are data in the
// Result; Validate itself never fails.
//
// A Validator owns its state (processed ids, per-user history, the fraud
// scorer) and is not safe for concurrent use. Service wraps one with a mutex.
package validator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mbd888/txguard/internal/fraud"
	"github.com/mbd888/txguard/internal/history"
	"github.com/mbd888/txguard/internal/transaction"
	"github.com/shopspring/decimal"
)

// ComplianceCheckAML is the key under which the compliance hook outcome is
// recorded.
const ComplianceCheckAML = "AML"

var accountPattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

const maskedPrefix = "****"

var (
	tierHigh      = decimal.NewFromInt(100_000)
	tierElevated  = decimal.NewFromInt(50_000)
	tierModerate  = decimal.NewFromInt(10_000)
	roundMinimum  = decimal.NewFromInt(10_000)
	roundStep     = decimal.NewFromInt(1_000)
	highValue     = decimal.NewFromInt(50_000)
	amountWarning = decimal.NewFromFloat(0.75)
)

// Config holds the pipeline settings.
type Config struct {
	MaxTransactionAmount     decimal.Decimal
	MinTransactionAmount     decimal.Decimal
	FraudThreshold           int
	EnableDuplicateCheck     bool
	EnableAMLCheck           bool
	VelocityWindow           time.Duration
	MaxTransactionsPerWindow int
	MaxAmountPerWindow       decimal.Decimal
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{
		MaxTransactionAmount:     decimal.NewFromInt(1_000_000),
		MinTransactionAmount:     decimal.RequireFromString("0.01"),
		FraudThreshold:           70,
		EnableDuplicateCheck:     true,
		EnableAMLCheck:           true,
		VelocityWindow:           60 * time.Minute,
		MaxTransactionsPerWindow: 10,
		MaxAmountPerWindow:       decimal.NewFromInt(100_000),
	}
}

// ComplianceHook decides whether a transaction passes AML compliance.
type ComplianceHook interface {
	CheckCompliance(tx *transaction.Transaction) bool
}

// ComplianceFunc adapts a function to ComplianceHook.
type ComplianceFunc func(tx *transaction.Transaction) bool

func (f ComplianceFunc) CheckCompliance(tx *transaction.Transaction) bool { return f(tx) }

// PassHook accepts every transaction.
var PassHook ComplianceHook = ComplianceFunc(func(*transaction.Transaction) bool { return true })

// Option configures a Validator.
type Option func(*Validator)

// WithComplianceHook replaces the default pass-through compliance hook.
func WithComplianceHook(h ComplianceHook) Option {
	return func(v *Validator) {
		if h != nil {
			v.compliance = h
		}
	}
}

// WithScorer replaces the default fraud scorer.
func WithScorer(s *fraud.Scorer) Option {
	return func(v *Validator) {
		if s != nil {
			v.scorer = s
		}
	}
}

// WithClock sets the clock used for ValidatedAt.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// Validator runs the validation pipeline.
type Validator struct {
	cfg        Config
	compliance ComplianceHook
	scorer     *fraud.Scorer
	now        func() time.Time

	processed map[string]struct{}
	history   *history.Store
}

// New creates a Validator with its own empty state.
func New(cfg Config, opts ...Option) *Validator {
	v := &Validator{
		cfg:        cfg,
		compliance: PassHook,
		scorer:     fraud.NewScorer(fraud.DefaultThresholds()),
		now:        time.Now,
		processed:  make(map[string]struct{}),
		history:    history.New(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Config returns the pipeline settings.
func (v *Validator) Config() Config { return v.cfg }

// Scorer returns the fraud scorer owned by this validator.
func (v *Validator) Scorer() *fraud.Scorer { return v.scorer }

// Validate assesses one transaction. It mutates the processed-id set, the
// per-user history and the scorer's history.
func (v *Validator) Validate(in *transaction.Transaction) *Result {
	t := *in
	if t.Timestamp.IsZero() {
		t.Timestamp = v.now()
	}
	t.Normalize()
	tx := &t

	var (
		errs      []ValidationError
		warnings  []string
		breakdown RiskBreakdown
	)
	checks := make(map[string]bool)

	if err := v.checkAmount(tx.Amount); err != nil {
		errs = append(errs, *err)
	}
	breakdown.AmountRisk = amountRisk(tx.Amount)

	errs = append(errs, checkAccounts(tx)...)

	if v.cfg.EnableDuplicateCheck {
		if _, seen := v.processed[tx.ID]; seen {
			errs = append(errs, newError(DuplicateTransaction, "%s", tx.ID))
		}
		v.processed[tx.ID] = struct{}{}
	}

	velocityRisk, velocityErrs, velocityWarnings := v.checkVelocity(tx)
	breakdown.VelocityRisk = velocityRisk
	errs = append(errs, velocityErrs...)
	warnings = append(warnings, velocityWarnings...)

	v.history.Append(tx.UserID, tx.Timestamp, tx.Amount)

	patternRisk, patternWarnings := patternPass(tx)
	breakdown.PatternRisk = patternRisk
	warnings = append(warnings, patternWarnings...)
	assessment := v.scorer.Score(tx)

	breakdown.TimeRisk = timeRisk(tx.Timestamp)
	score := breakdown.total()

	if v.cfg.EnableAMLCheck {
		ok := v.compliance.CheckCompliance(tx)
		checks[ComplianceCheckAML] = ok
		if !ok {
			errs = append(errs, newError(ComplianceFailed, "AML compliance check failed"))
		}
	}

	if err := checkBusinessRules(tx); err != nil {
		errs = append(errs, *err)
	}

	if score > v.cfg.FraudThreshold {
		errs = append(errs, newError(RiskThresholdExceeded,
			"risk score %d exceeds threshold %d", score, v.cfg.FraudThreshold))
	}

	if errs == nil {
		errs = []ValidationError{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return &Result{
		TransactionID:    tx.ID,
		IsValid:          len(errs) == 0,
		Errors:           errs,
		Warnings:         warnings,
		FraudScore:       score,
		RiskBreakdown:    breakdown,
		ComplianceChecks: checks,
		ValidatedAt:      v.now().UTC(),
		FraudAssessment:  assessment,
	}
}

// ValidateBatch validates each transaction in order.
func (v *Validator) ValidateBatch(txs []*transaction.Transaction) []*Result {
	results := make([]*Result, 0, len(txs))
	for _, tx := range txs {
		results = append(results, v.Validate(tx))
	}
	return results
}

// Stats reports the processed-id count and the pipeline history size.
type Stats struct {
	TotalProcessed             int `json:"total_processed"`
	TotalTransactionsInHistory int `json:"total_transactions_in_history"`
}

// Stats returns current counters.
func (v *Validator) Stats() Stats {
	return Stats{
		TotalProcessed:             len(v.processed),
		TotalTransactionsInHistory: v.history.Len(),
	}
}

// ClearHistory drops pipeline history entries older than before. The
// processed-id set is never evicted. Returns the number of entries removed.
func (v *Validator) ClearHistory(before time.Time) int {
	return v.history.EvictBefore(before)
}

func (v *Validator) checkAmount(amount decimal.Decimal) *ValidationError {
	switch {
	case !amount.IsPositive():
		err := newError(InvalidAmount, "amount %s must be positive", amount)
		return &err
	case amount.LessThan(v.cfg.MinTransactionAmount):
		err := newError(InvalidAmount, "amount %s below minimum %s", amount, v.cfg.MinTransactionAmount)
		return &err
	case amount.GreaterThan(v.cfg.MaxTransactionAmount):
		err := newError(InvalidAmount, "amount %s exceeds maximum %s", amount, v.cfg.MaxTransactionAmount)
		return &err
	}
	return nil
}

func amountRisk(amount decimal.Decimal) int {
	switch {
	case amount.GreaterThan(tierHigh):
		return 40
	case amount.GreaterThan(tierElevated):
		return 30
	case amount.GreaterThan(tierModerate):
		return 15
	default:
		return 0
	}
}

// ValidAccount reports whether s is a well-formed or masked account number.
func ValidAccount(s string) bool {
	return accountPattern.MatchString(s) || strings.HasPrefix(s, maskedPrefix)
}

func checkAccounts(tx *transaction.Transaction) []ValidationError {
	var errs []ValidationError
	if tx.HasSource() && !ValidAccount(tx.FromAccount) {
		errs = append(errs, newError(InvalidAccount, "invalid from_account format: %s", tx.FromAccount))
	}
	if tx.HasDestination() && !ValidAccount(tx.ToAccount) {
		errs = append(errs, newError(InvalidAccount, "invalid to_account format: %s", tx.ToAccount))
	}
	return errs
}

// checkVelocity aggregates the user's history from tx.Timestamp minus the
// window onward. The current transaction's amount counts toward the total.
func (v *Validator) checkVelocity(tx *transaction.Transaction) (int, []ValidationError, []string) {
	var (
		risk     int
		errs     []ValidationError
		warnings []string
	)
	window := v.cfg.VelocityWindow
	minutes := int(window / time.Minute)
	recent := v.history.Since(tx.UserID, tx.Timestamp.Add(-window))
	count := len(recent)
	total := history.Sum(recent).Add(tx.Amount)

	switch {
	case count >= v.cfg.MaxTransactionsPerWindow:
		risk += 30
		errs = append(errs, newError(VelocityViolation,
			"too many transactions: %d in %d minutes", count+1, minutes))
	case count >= v.cfg.MaxTransactionsPerWindow/2:
		risk += 15
		warnings = append(warnings, fmt.Sprintf("High transaction velocity: %d transactions in window", count+1))
	}

	limit := v.cfg.MaxAmountPerWindow
	switch {
	case total.GreaterThanOrEqual(limit):
		risk += 25
		errs = append(errs, newError(VelocityViolation,
			"total amount $%s exceeds window limit $%s", total.StringFixed(2), limit.StringFixed(2)))
	case total.GreaterThanOrEqual(limit.Mul(amountWarning)):
		risk += 10
		warnings = append(warnings, fmt.Sprintf("Approaching amount limit: $%s of $%s",
			total.StringFixed(2), limit.StringFixed(2)))
	}
	return risk, errs, warnings
}

// patternPass is the pipeline's own fraud pattern check, independent of the
// fraud scorer.
func patternPass(tx *transaction.Transaction) (int, []string) {
	var (
		score    int
		warnings []string
	)
	if tx.Amount.GreaterThanOrEqual(roundMinimum) && tx.Amount.Mod(roundStep).IsZero() {
		score += 20
		warnings = append(warnings, "Large round number transaction")
	}
	if tx.Amount.GreaterThan(highValue) {
		score += 30
		warnings = append(warnings, "High-value transaction requires review")
	}
	if tx.Type == transaction.WireTransfer {
		score += 15
		warnings = append(warnings, "Wire transfer flagged for review")
	}
	if hour := tx.Timestamp.Hour(); hour < 6 || hour > 22 {
		score += 10
		warnings = append(warnings, "Transaction outside business hours")
	}
	return score, warnings
}

// timeRisk scores the UTC hour: 20 outside 06:00-22:59, 10 outside
// 09:00-17:59, else 0.
func timeRisk(ts time.Time) int {
	hour := ts.Hour()
	switch {
	case hour < 6 || hour > 22:
		return 20
	case hour < 9 || hour > 17:
		return 10
	default:
		return 0
	}
}

func checkBusinessRules(tx *transaction.Transaction) *ValidationError {
	var err ValidationError
	switch {
	case tx.Type == transaction.Transfer && (!tx.HasSource() || !tx.HasDestination()):
		err = newError(BusinessRuleViolation, "transfers must specify both from and to accounts")
	case tx.Type == transaction.Deposit && !tx.HasDestination():
		err = newError(BusinessRuleViolation, "deposits must specify to_account")
	case tx.Type == transaction.Withdrawal && !tx.HasSource():
		err = newError(BusinessRuleViolation, "withdrawals must specify from_account")
	default:
		return nil
	}
	return &err
}
