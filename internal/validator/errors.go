package validator

import "fmt"

// ErrorKind classifies a validation failure.
type ErrorKind int

const (
	InvalidAmount ErrorKind = iota + 1
	InvalidAccount
	DuplicateTransaction
	// FraudDetected is reserved; the pipeline reports fraud signals as risk
	// and warnings instead.
	FraudDetected
	ComplianceFailed
	BusinessRuleViolation
	VelocityViolation
	RiskThresholdExceeded
)

var kindNames = map[ErrorKind]string{
	InvalidAmount:         "invalid_amount",
	InvalidAccount:        "invalid_account",
	DuplicateTransaction:  "duplicate_transaction",
	FraudDetected:         "fraud_detected",
	ComplianceFailed:      "compliance_failed",
	BusinessRuleViolation: "business_rule_violation",
	VelocityViolation:     "velocity_violation",
	RiskThresholdExceeded: "risk_threshold_exceeded",
}

var kindTitles = map[ErrorKind]string{
	InvalidAmount:         "Invalid amount",
	InvalidAccount:        "Invalid account number",
	DuplicateTransaction:  "Duplicate transaction detected",
	FraudDetected:         "Fraud pattern detected",
	ComplianceFailed:      "Compliance check failed",
	BusinessRuleViolation: "Business rule violation",
	VelocityViolation:     "Velocity check failed",
	RiskThresholdExceeded: "Risk threshold exceeded",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown error kind %d", int(k))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ErrorKind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", string(b))
}

// ValidationError is one failed check. It is data inside a Result, never a
// failure of Validate itself.
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e ValidationError) Error() string {
	return kindTitles[e.Kind] + ": " + e.Message
}

// Is matches on kind. A target with an empty message matches any message.
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind ErrorKind, format string, args ...any) ValidationError {
	return ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
