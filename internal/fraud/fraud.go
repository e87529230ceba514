// Package fraud scores individual transactions against six additive fraud
// signals: velocity, unusual amount, round amount, high-risk country, rapid
// succession and amount progression.
//
// Scores range from 0 (clean) to 100 (critical). The Scorer keeps its own
// per-account history; every scored transaction that names a source account
// is appended after scoring.
package fraud

import (
	"github.com/shopspring/decimal"
)

// RiskLevel buckets a fraud score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"      // 0-25
	RiskMedium   RiskLevel = "medium"   // 26-50
	RiskHigh     RiskLevel = "high"     // 51-75
	RiskCritical RiskLevel = "critical" // 76-100
)

// LevelFor buckets a 0-100 score.
func LevelFor(score int) RiskLevel {
	switch {
	case score <= 25:
		return RiskLow
	case score <= 50:
		return RiskMedium
	case score <= 75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// FlagType identifies which signal fired.
type FlagType string

const (
	FlagVelocityExceeded  FlagType = "velocity_exceeded"
	FlagUnusualAmount     FlagType = "unusual_amount"
	FlagRoundAmount       FlagType = "round_amount"
	FlagHighRiskCountry   FlagType = "high_risk_country"
	FlagRapidSuccession   FlagType = "rapid_succession"
	FlagAmountProgression FlagType = "amount_progression"
)

// Flag is a single fired signal.
type Flag struct {
	Type        FlagType `json:"type"`
	Description string   `json:"description"`
	Severity    int      `json:"severity"`
}

// Score is the outcome of scoring one transaction.
type Score struct {
	Score int       `json:"score"`
	Level RiskLevel `json:"risk_level"`
	Flags []Flag    `json:"flags"`
}

// Has reports whether a flag of the given type fired.
func (s *Score) Has(t FlagType) bool {
	for _, f := range s.Flags {
		if f.Type == t {
			return true
		}
	}
	return false
}

// Thresholds configures the scorer.
type Thresholds struct {
	MaxAmount            decimal.Decimal
	MaxPerHour           int
	RoundAmountThreshold decimal.Decimal
}

// DefaultThresholds returns the stock thresholds: a 50,000 ceiling,
// 10 transactions per hour, and round amounts from 10,000.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxAmount:            decimal.NewFromInt(50_000),
		MaxPerHour:           10,
		RoundAmountThreshold: decimal.NewFromInt(10_000),
	}
}

// DefaultHighRiskCountries is the stock country denylist.
var DefaultHighRiskCountries = []string{"KP", "IR", "SY"}
