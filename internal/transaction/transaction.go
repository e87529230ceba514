// Package transaction defines the financial transaction record consumed by
// the validation pipeline, the fraud scorer and the compliance checkers.
//
// A Transaction carries no validity guarantee: amounts may be negative,
// accounts may be malformed. Validity is an output of the validator package.
package transaction

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the kind of money movement.
type Type string

const (
	Deposit      Type = "deposit"
	Withdrawal   Type = "withdrawal"
	Transfer     Type = "transfer"
	Payment      Type = "payment"
	WireTransfer Type = "wire_transfer"
)

// ErrInvalidType is returned when a transaction type string is not recognized.
var ErrInvalidType = errors.New("invalid transaction type")

// Types lists every recognized transaction type.
func Types() []Type {
	return []Type{Deposit, Withdrawal, Transfer, Payment, WireTransfer}
}

// ParseType converts a string into a Type. Accepts "wire-transfer" as an
// alias of "wire_transfer".
func ParseType(s string) (Type, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, t := range Types() {
		if string(t) == norm {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t Type) String() string { return string(t) }

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Transaction is a single financial transaction submitted for assessment.
// Empty FromAccount / ToAccount mean the account is absent.
type Transaction struct {
	ID          string            `json:"transaction_id"`
	Type        Type              `json:"transaction_type"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	FromAccount string            `json:"from_account,omitempty"`
	ToAccount   string            `json:"to_account,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	UserID      string            `json:"user_id"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Normalize converts the timestamp to UTC. Call once on ingest.
func (t *Transaction) Normalize() {
	t.Timestamp = t.Timestamp.UTC()
}

// HasSource reports whether the transaction names a source account.
func (t *Transaction) HasSource() bool { return t.FromAccount != "" }

// HasDestination reports whether the transaction names a destination account.
func (t *Transaction) HasDestination() bool { return t.ToAccount != "" }

// Meta returns a metadata value and whether it was present.
func (t *Transaction) Meta(key string) (string, bool) {
	if t.Metadata == nil {
		return "", false
	}
	v, ok := t.Metadata[key]
	return v, ok
}
