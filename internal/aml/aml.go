// Package aml implements the anti-money-laundering red flag checker and the
// KYC completeness validator.
package aml

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mbd888/txguard/internal/transaction"
	"github.com/shopspring/decimal"
)

// RedFlagType names an AML red flag.
type RedFlagType string

const (
	PotentialStructuring RedFlagType = "potential_structuring"
	HighValue            RedFlagType = "high_value_transaction"
	SanctionedEntity     RedFlagType = "sanctioned_entity"
	RapidMovement        RedFlagType = "rapid_movement"
	UnusualPattern       RedFlagType = "unusual_pattern"
	CashIntensive        RedFlagType = "cash_intensive"
	CrossBorder          RedFlagType = "cross_border"
)

// Severity grades a red flag.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Score contributions and the compliance cut-off.
const (
	structuringPoints   = 35
	highValuePoints     = 15
	crossBorderPoints   = 20
	cashIntensivePoints = 25
	sanctionedScore     = 100
	maxScore            = 100
	compliantBelow      = 75
)

// Thresholds are the regulatory amounts the checker compares against.
type Thresholds struct {
	// CTR is the currency transaction report filing amount.
	CTR decimal.Decimal
	// SAR is the amount at which cash deposits and withdrawals count as
	// cash intensive.
	SAR decimal.Decimal
	// Structuring is the lower edge of the band just below CTR.
	Structuring decimal.Decimal
}

// DefaultThresholds returns the FinCEN amounts.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CTR:         decimal.NewFromInt(10_000),
		SAR:         decimal.NewFromInt(5_000),
		Structuring: decimal.NewFromInt(9_500),
	}
}

// DefaultSanctionedEntities are matched as substrings of account identifiers.
var DefaultSanctionedEntities = []string{"OFAC-SANCTIONED-001", "SANCTIONED-ENTITY-002"}

// RedFlag is one finding.
type RedFlag struct {
	Type        RedFlagType `json:"flag_type"`
	Description string      `json:"description"`
	Severity    Severity    `json:"severity"`
}

// Result is the outcome of a compliance check.
type Result struct {
	Compliant   bool      `json:"compliant"`
	RequiresCTR bool      `json:"requires_ctr"`
	RequiresSAR bool      `json:"requires_sar"`
	RedFlags    []RedFlag `json:"red_flags"`
	RiskScore   int       `json:"risk_score"`
}

// Has reports whether a flag of type t was raised.
func (r Result) Has(t RedFlagType) bool {
	return slices.ContainsFunc(r.RedFlags, func(f RedFlag) bool { return f.Type == t })
}

// Checker applies AML red flag rules to single transactions. It is not safe
// for concurrent mutation.
type Checker struct {
	thresholds Thresholds
	sanctioned []string
}

// NewChecker creates a checker with the default thresholds and entity list.
func NewChecker() *Checker {
	return &Checker{
		thresholds: DefaultThresholds(),
		sanctioned: slices.Clone(DefaultSanctionedEntities),
	}
}

// Thresholds returns the active thresholds.
func (c *Checker) Thresholds() Thresholds { return c.thresholds }

// CheckCompliance evaluates tx against every red flag rule.
func (c *Checker) CheckCompliance(tx *transaction.Transaction) Result {
	res := Result{
		RedFlags:    []RedFlag{},
		RequiresCTR: tx.Amount.GreaterThanOrEqual(c.thresholds.CTR),
	}
	score := 0

	if tx.Amount.GreaterThanOrEqual(c.thresholds.Structuring) && tx.Amount.LessThan(c.thresholds.CTR) {
		res.RedFlags = append(res.RedFlags, RedFlag{
			Type:        PotentialStructuring,
			Description: fmt.Sprintf("Amount %s is just below CTR threshold (potential structuring)", tx.Amount),
			Severity:    SeverityHigh,
		})
		score += structuringPoints
		res.RequiresSAR = true
	}

	if res.RequiresCTR {
		res.RedFlags = append(res.RedFlags, RedFlag{
			Type:        HighValue,
			Description: fmt.Sprintf("High value transaction: %s (CTR required)", tx.Amount),
			Severity:    SeverityMedium,
		})
		score += highValuePoints
	}

	if c.IsSanctioned(tx.FromAccount) || c.IsSanctioned(tx.ToAccount) {
		res.RedFlags = append(res.RedFlags, RedFlag{
			Type:        SanctionedEntity,
			Description: "Transaction involves sanctioned entity",
			Severity:    SeverityCritical,
		})
		score = sanctionedScore
		res.RequiresSAR = true
	}

	if v, ok := tx.Meta("cross_border"); ok && v == "true" {
		res.RedFlags = append(res.RedFlags, RedFlag{
			Type:        CrossBorder,
			Description: "Cross-border transaction requires additional due diligence",
			Severity:    SeverityMedium,
		})
		score += crossBorderPoints
	}

	if (tx.Type == transaction.Deposit || tx.Type == transaction.Withdrawal) &&
		tx.Amount.GreaterThanOrEqual(c.thresholds.SAR) {
		res.RedFlags = append(res.RedFlags, RedFlag{
			Type:        CashIntensive,
			Description: fmt.Sprintf("Large cash %s of %s", tx.Type, tx.Amount),
			Severity:    SeverityHigh,
		})
		score += cashIntensivePoints
	}

	res.Compliant = score < compliantBelow
	res.RiskScore = min(score, maxScore)
	return res
}

// IsSanctioned reports whether entity contains any listed identifier.
// The empty string never matches.
func (c *Checker) IsSanctioned(entity string) bool {
	if entity == "" {
		return false
	}
	for _, s := range c.sanctioned {
		if strings.Contains(entity, s) {
			return true
		}
	}
	return false
}

// AddSanctionedEntity appends entity to the list unless already present.
func (c *Checker) AddSanctionedEntity(entity string) {
	if entity == "" || slices.Contains(c.sanctioned, entity) {
		return
	}
	c.sanctioned = append(c.sanctioned, entity)
}

// SanctionedEntities returns a copy of the list.
func (c *Checker) SanctionedEntities() []string {
	return slices.Clone(c.sanctioned)
}
