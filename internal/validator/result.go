package validator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mbd888/txguard/internal/fraud"
)

const (
	maxRiskScore      = 100
	approvalCutoff    = 50
	manualReviewScore = 50
)

// RiskBreakdown holds the four independent sub-scores and their capped sum.
type RiskBreakdown struct {
	AmountRisk   int `json:"amount_risk"`
	VelocityRisk int `json:"velocity_risk"`
	PatternRisk  int `json:"pattern_risk"`
	TimeRisk     int `json:"time_risk"`
	TotalScore   int `json:"total_score"`
}

func (b *RiskBreakdown) total() int {
	sum := b.AmountRisk + b.VelocityRisk + b.PatternRisk + b.TimeRisk
	if sum > maxRiskScore {
		sum = maxRiskScore
	}
	b.TotalScore = sum
	return sum
}

// Result is the decision record for one Validate call.
type Result struct {
	TransactionID    string            `json:"transaction_id"`
	IsValid          bool              `json:"is_valid"`
	Errors           []ValidationError `json:"errors"`
	Warnings         []string          `json:"warnings"`
	FraudScore       int               `json:"fraud_score"`
	RiskBreakdown    RiskBreakdown     `json:"risk_breakdown"`
	ComplianceChecks map[string]bool   `json:"compliance_checks"`
	ValidatedAt      time.Time         `json:"validated_at"`
	FraudAssessment  *fraud.Score      `json:"fraud_assessment,omitempty"`
}

// IsApproved reports whether the transaction passed every check and scored
// below the approval cutoff.
func (r *Result) IsApproved() bool {
	return r.IsValid && len(r.Errors) == 0 && r.FraudScore < approvalCutoff
}

// RequiresManualReview reports whether a human should look at the transaction.
func (r *Result) RequiresManualReview() bool {
	return r.FraudScore >= manualReviewScore || len(r.Warnings) > 0
}

// RiskLevel names the bucket of the fraud score.
func (r *Result) RiskLevel() string {
	switch {
	case r.FraudScore <= 25:
		return "Low"
	case r.FraudScore <= 50:
		return "Medium"
	case r.FraudScore <= 75:
		return "High"
	default:
		return "Critical"
	}
}

// HasError reports whether an error of the given kind was recorded.
func (r *Result) HasError(kind ErrorKind) bool {
	for _, e := range r.Errors {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// JSON renders the result as indented JSON.
func (r *Result) JSON() (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result %s: %w", r.TransactionID, err)
	}
	return string(b), nil
}

// String renders a short human-readable summary.
func (r *Result) String() string {
	var sb strings.Builder
	status := "VALID"
	if !r.IsValid {
		status = "INVALID"
	}
	fmt.Fprintf(&sb, "Transaction %s: %s\n", r.TransactionID, status)
	fmt.Fprintf(&sb, "  Fraud score: %d/100 (%s)\n", r.FraudScore, r.RiskLevel())
	fmt.Fprintf(&sb, "  Risk: amount=%d velocity=%d pattern=%d time=%d\n",
		r.RiskBreakdown.AmountRisk, r.RiskBreakdown.VelocityRisk,
		r.RiskBreakdown.PatternRisk, r.RiskBreakdown.TimeRisk)
	fmt.Fprintf(&sb, "  Approved: %t  Manual review: %t\n", r.IsApproved(), r.RequiresManualReview())

	for _, e := range r.Errors {
		fmt.Fprintf(&sb, "  error: %s\n", e.Error())
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "  warning: %s\n", w)
	}
	names := make([]string, 0, len(r.ComplianceChecks))
	for name := range r.ComplianceChecks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		outcome := "FAIL"
		if r.ComplianceChecks[name] {
			outcome = "PASS"
		}
		fmt.Fprintf(&sb, "  compliance %s: %s\n", name, outcome)
	}
	return sb.String()
}
