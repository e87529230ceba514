package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mbd888/txguard/internal/transaction"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noon UTC keeps time-of-day risk at zero.
var noon = time.Date(2026, 4, 14, 12, 0, 0, 0, time.UTC)

func validTx(id string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:          id,
		Type:        transaction.Transfer,
		Amount:      decimal.NewFromInt(1000),
		Currency:    "USD",
		FromAccount: "ABCD-1234-EFGH-5678",
		ToAccount:   "WXYZ-9876-STUV-5432",
		Timestamp:   noon,
		UserID:      "USER-001",
	}
}

func TestValidate_ValidTransaction(t *testing.T) {
	v := New(DefaultConfig())
	res := v.Validate(validTx("TXN-001"))

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 0, res.FraudScore)
	assert.True(t, res.ComplianceChecks[ComplianceCheckAML])
	assert.True(t, res.IsApproved())
	assert.False(t, res.RequiresManualReview())
	assert.Equal(t, "Low", res.RiskLevel())
	require.NotNil(t, res.FraudAssessment)
}

func TestValidate_NonPositiveAmountAlwaysInvalid(t *testing.T) {
	for i, amt := range []string{"0", "-0.01", "-1000.0", "-999999999"} {
		v := New(DefaultConfig())
		tx := validTx(fmt.Sprintf("TXN-NEG-%d", i))
		tx.Amount = decimal.RequireFromString(amt)

		res := v.Validate(tx)
		assert.False(t, res.IsValid, amt)
		assert.True(t, res.HasError(InvalidAmount), amt)
	}
}

func TestValidate_AmountBounds(t *testing.T) {
	v := New(DefaultConfig())

	tx := validTx("TXN-MIN")
	tx.Amount = decimal.RequireFromString("0.001")
	res := v.Validate(tx)
	assert.True(t, res.HasError(InvalidAmount))

	tx = validTx("TXN-MINOK")
	tx.Amount = decimal.RequireFromString("0.01")
	res = v.Validate(tx)
	assert.False(t, res.HasError(InvalidAmount), "min bound is inclusive")

	tx = validTx("TXN-MAX")
	tx.Amount = decimal.NewFromInt(1_000_001)
	tx.UserID = "USER-MAX"
	res = v.Validate(tx)
	assert.True(t, res.HasError(InvalidAmount))

	// Only one amount error even though several bounds fail.
	count := 0
	for _, e := range res.Errors {
		if e.Kind == InvalidAmount {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestValidate_AccountFormat(t *testing.T) {
	v := New(DefaultConfig())

	tx := validTx("TXN-ACC-1")
	tx.FromAccount = "****5678"
	assert.False(t, v.Validate(tx).HasError(InvalidAccount), "masked accounts pass")

	tx = validTx("TXN-ACC-2")
	tx.FromAccount = "abcd-1234-efgh-5678"
	res := v.Validate(tx)
	assert.True(t, res.HasError(InvalidAccount), "lowercase is rejected")

	tx = validTx("TXN-ACC-3")
	tx.FromAccount = "ACCT-1234-5678-9012-3456"
	tx.ToAccount = "12345"
	res = v.Validate(tx)
	n := 0
	for _, e := range res.Errors {
		if e.Kind == InvalidAccount {
			n++
		}
	}
	assert.Equal(t, 2, n)
}

func TestValidate_Duplicate(t *testing.T) {
	v := New(DefaultConfig())

	first := v.Validate(validTx("TXN-DUP"))
	assert.True(t, first.IsValid)

	second := v.Validate(validTx("TXN-DUP"))
	assert.False(t, second.IsValid)
	assert.True(t, second.HasError(DuplicateTransaction))
}

func TestValidate_DuplicateRecordedEvenWhenInvalid(t *testing.T) {
	v := New(DefaultConfig())

	bad := validTx("TXN-RETRY")
	bad.Amount = decimal.NewFromInt(-5)
	assert.False(t, v.Validate(bad).IsValid)

	retry := v.Validate(validTx("TXN-RETRY"))
	assert.False(t, retry.IsValid)
	assert.True(t, retry.HasError(DuplicateTransaction))
}

func TestValidate_DuplicateCheckDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableDuplicateCheck = false
	v := New(cfg)

	v.Validate(validTx("TXN-X"))
	res := v.Validate(validTx("TXN-X"))
	assert.False(t, res.HasError(DuplicateTransaction))
	assert.Equal(t, 0, v.Stats().TotalProcessed)
}

func TestValidate_VelocityCountViolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTransactionsPerWindow = 3
	v := New(cfg)

	var res *Result
	for i := 0; i < cfg.MaxTransactionsPerWindow; i++ {
		tx := validTx(fmt.Sprintf("TXN-V-%d", i))
		tx.Timestamp = noon.Add(time.Duration(i) * time.Minute)
		res = v.Validate(tx)
		assert.False(t, res.HasError(VelocityViolation), "call %d", i)
	}
	// 3/2 = 1 prior entry is enough for the warning tier.
	assert.Equal(t, 15, res.RiskBreakdown.VelocityRisk)
	assert.Contains(t, res.Warnings[0], "High transaction velocity")

	tx := validTx("TXN-V-LAST")
	tx.Timestamp = noon.Add(10 * time.Minute)
	res = v.Validate(tx)
	assert.True(t, res.HasError(VelocityViolation))
	assert.Equal(t, 30, res.RiskBreakdown.VelocityRisk)
	assert.False(t, res.IsValid)
}

func TestValidate_VelocityAmountTiers(t *testing.T) {
	v := New(DefaultConfig())
	submit := func(id string, amount int64, at time.Time) *Result {
		tx := validTx(id)
		tx.Amount = decimal.NewFromInt(amount)
		tx.Timestamp = at
		return v.Validate(tx)
	}

	first := submit("A1", 40_001, noon)
	assert.Equal(t, 0, first.RiskBreakdown.VelocityRisk)

	second := submit("A2", 40_001, noon.Add(time.Minute))
	assert.Equal(t, 10, second.RiskBreakdown.VelocityRisk, "80,002 is past 75% of the limit")
	assert.False(t, second.HasError(VelocityViolation))
	assert.Contains(t, second.Warnings, "Approaching amount limit: $80002.00 of $100000.00")

	third := submit("A3", 40_001, noon.Add(2*time.Minute))
	assert.Equal(t, 25, third.RiskBreakdown.VelocityRisk)
	assert.True(t, third.HasError(VelocityViolation))
}

func TestValidate_VelocityBothDimensionsReportBothErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTransactionsPerWindow = 1
	cfg.MaxAmountPerWindow = decimal.NewFromInt(1500)
	v := New(cfg)

	v.Validate(validTx("B1"))
	tx := validTx("B2")
	tx.Timestamp = noon.Add(time.Minute)
	res := v.Validate(tx)

	n := 0
	for _, e := range res.Errors {
		if e.Kind == VelocityViolation {
			n++
		}
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, 55, res.RiskBreakdown.VelocityRisk)
}

func TestValidate_VelocityWindowExcludesOldEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTransactionsPerWindow = 2
	v := New(cfg)

	for i := 0; i < 5; i++ {
		tx := validTx(fmt.Sprintf("OLD-%d", i))
		tx.Timestamp = noon.Add(-3 * time.Hour).Add(time.Duration(i) * time.Minute)
		v.Validate(tx)
	}

	res := v.Validate(validTx("NEW"))
	assert.Equal(t, 0, res.RiskBreakdown.VelocityRisk)
	assert.False(t, res.HasError(VelocityViolation))
}

func TestValidate_VelocityIsPerUser(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTransactionsPerWindow = 2
	v := New(cfg)

	for i := 0; i < 4; i++ {
		tx := validTx(fmt.Sprintf("U1-%d", i))
		tx.Timestamp = noon.Add(time.Duration(i) * time.Minute)
		v.Validate(tx)
	}

	other := validTx("U2-0")
	other.UserID = "USER-002"
	other.Timestamp = noon.Add(5 * time.Minute)
	res := v.Validate(other)
	assert.Equal(t, 0, res.RiskBreakdown.VelocityRisk)
}

func TestValidate_RoundAmountAlwaysFlagged(t *testing.T) {
	for _, amt := range []int64{10_000, 12_000, 49_000} {
		v := New(DefaultConfig())
		tx := validTx("ROUND")
		tx.Amount = decimal.NewFromInt(amt)

		res := v.Validate(tx)
		assert.Contains(t, res.Warnings, "Large round number transaction", amt)
		assert.GreaterOrEqual(t, res.RiskBreakdown.PatternRisk, 20)
	}

	v := New(DefaultConfig())
	tx := validTx("NOT-ROUND")
	tx.Amount = decimal.RequireFromString("10000.50")
	assert.NotContains(t, v.Validate(tx).Warnings, "Large round number transaction")
}

func TestValidate_BreakdownTotalCapped(t *testing.T) {
	v := New(DefaultConfig())
	tx := validTx("TXN-CAP")
	tx.Type = transaction.WireTransfer
	tx.Amount = decimal.NewFromInt(150_000)
	tx.Timestamp = time.Date(2026, 4, 14, 3, 0, 0, 0, time.UTC)

	res := v.Validate(tx)
	b := res.RiskBreakdown
	assert.Equal(t, 40, b.AmountRisk)
	assert.Equal(t, 25, b.VelocityRisk)
	assert.Equal(t, 75, b.PatternRisk)
	assert.Equal(t, 20, b.TimeRisk)
	assert.Equal(t, 100, b.TotalScore)
	assert.Equal(t, b.TotalScore, res.FraudScore)
	assert.Equal(t, "Critical", res.RiskLevel())
}

func TestValidate_BreakdownTotalMatchesScore(t *testing.T) {
	v := New(DefaultConfig())
	for i, amt := range []int64{5, 12_500, 20_000, 60_000, 99_999} {
		tx := validTx(fmt.Sprintf("TOT-%d", i))
		tx.UserID = fmt.Sprintf("user-%d", i)
		tx.Amount = decimal.NewFromInt(amt)
		tx.Timestamp = noon.Add(time.Duration(i) * 5 * time.Hour)

		res := v.Validate(tx)
		b := res.RiskBreakdown
		sum := b.AmountRisk + b.VelocityRisk + b.PatternRisk + b.TimeRisk
		if sum > 100 {
			sum = 100
		}
		assert.Equal(t, sum, b.TotalScore)
		assert.Equal(t, b.TotalScore, res.FraudScore)
	}
}

func TestValidate_HighValueWire(t *testing.T) {
	v := New(DefaultConfig())
	tx := validTx("TXN-WIRE")
	tx.Type = transaction.WireTransfer
	tx.Amount = decimal.NewFromInt(100_000)

	res := v.Validate(tx)
	assert.Greater(t, res.FraudScore, 0)
	assert.NotEmpty(t, res.Warnings)
	assert.GreaterOrEqual(t, res.FraudScore, 50)
	assert.False(t, res.IsApproved())
	assert.True(t, res.RequiresManualReview())
}

func TestTimeRisk(t *testing.T) {
	tests := []struct {
		hour int
		want int
	}{
		{0, 20}, {5, 20}, {6, 10}, {8, 10}, {9, 0}, {12, 0},
		{17, 0}, {18, 10}, {22, 10}, {23, 20},
	}
	for _, tt := range tests {
		ts := time.Date(2026, 1, 1, tt.hour, 30, 0, 0, time.UTC)
		assert.Equal(t, tt.want, timeRisk(ts), "hour %d", tt.hour)
	}
}

func TestValidate_TimestampNormalizedToUTC(t *testing.T) {
	v := New(DefaultConfig())
	tx := validTx("TXN-TZ")
	// 01:00 in UTC+10 is 15:00 UTC the previous day.
	tx.Timestamp = time.Date(2026, 4, 15, 1, 0, 0, 0, time.FixedZone("AEST", 10*3600))

	res := v.Validate(tx)
	assert.Equal(t, 0, res.RiskBreakdown.TimeRisk)
	assert.Equal(t, time.FixedZone("AEST", 10*3600).String(), tx.Timestamp.Location().String(), "input is not mutated")
}

func TestValidate_BusinessRules(t *testing.T) {
	tests := []struct {
		name    string
		typ     transaction.Type
		from    string
		to      string
		wantErr bool
	}{
		{"transfer missing source", transaction.Transfer, "", "WXYZ-9876-STUV-5432", true},
		{"transfer missing destination", transaction.Transfer, "ABCD-1234-EFGH-5678", "", true},
		{"deposit missing destination", transaction.Deposit, "ABCD-1234-EFGH-5678", "", true},
		{"deposit ok", transaction.Deposit, "", "WXYZ-9876-STUV-5432", false},
		{"withdrawal missing source", transaction.Withdrawal, "", "WXYZ-9876-STUV-5432", true},
		{"withdrawal ok", transaction.Withdrawal, "ABCD-1234-EFGH-5678", "", false},
		{"payment without accounts", transaction.Payment, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(DefaultConfig())
			tx := validTx("TXN-BR")
			tx.Type = tt.typ
			tx.FromAccount = tt.from
			tx.ToAccount = tt.to

			res := v.Validate(tx)
			assert.Equal(t, tt.wantErr, res.HasError(BusinessRuleViolation))
			assert.Equal(t, !tt.wantErr, res.IsValid)
		})
	}
}

func TestValidate_ComplianceHook(t *testing.T) {
	deny := ComplianceFunc(func(*transaction.Transaction) bool { return false })
	v := New(DefaultConfig(), WithComplianceHook(deny))

	res := v.Validate(validTx("TXN-AML"))
	assert.False(t, res.IsValid)
	assert.True(t, res.HasError(ComplianceFailed))
	ok, present := res.ComplianceChecks[ComplianceCheckAML]
	assert.True(t, present)
	assert.False(t, ok)

	cfg := DefaultConfig()
	cfg.EnableAMLCheck = false
	v = New(cfg, WithComplianceHook(deny))
	res = v.Validate(validTx("TXN-AML"))
	assert.True(t, res.IsValid)
	assert.Empty(t, res.ComplianceChecks)
}

func TestValidate_ThresholdIndependentOfApproval(t *testing.T) {
	// Score 80 with a threshold of 90: valid, yet not approved.
	cfg := DefaultConfig()
	cfg.FraudThreshold = 90
	v := New(cfg)
	tx := validTx("TXN-T1")
	tx.Amount = decimal.NewFromInt(60_000)

	res := v.Validate(tx)
	assert.Equal(t, 80, res.FraudScore)
	assert.True(t, res.IsValid)
	assert.False(t, res.HasError(RiskThresholdExceeded))
	assert.False(t, res.IsApproved())

	// Score 35 with a threshold of 10: below the approval cutoff, yet invalid.
	cfg.FraudThreshold = 10
	v = New(cfg)
	tx = validTx("TXN-T2")
	tx.Amount = decimal.NewFromInt(20_000)

	res = v.Validate(tx)
	assert.Equal(t, 35, res.FraudScore)
	assert.True(t, res.HasError(RiskThresholdExceeded))
	assert.False(t, res.IsValid)
	assert.False(t, res.IsApproved())
}

func TestValidate_NoEarlyExit(t *testing.T) {
	v := New(DefaultConfig())
	v.Validate(validTx("TXN-ALL"))

	tx := validTx("TXN-ALL")
	tx.Amount = decimal.NewFromInt(-1)
	tx.FromAccount = "bad"
	tx.ToAccount = ""

	res := v.Validate(tx)
	for _, kind := range []ErrorKind{InvalidAmount, InvalidAccount, DuplicateTransaction, BusinessRuleViolation} {
		assert.True(t, res.HasError(kind), kind.String())
	}
}

func TestValidate_FraudAssessmentAttached(t *testing.T) {
	v := New(DefaultConfig())
	tx := validTx("TXN-FA")
	tx.Metadata = map[string]string{"country": "KP"}

	res := v.Validate(tx)
	require.NotNil(t, res.FraudAssessment)
	assert.Equal(t, 35, res.FraudAssessment.Score)
	assert.Equal(t, 0, res.FraudScore, "scorer output does not feed the breakdown")
	assert.Equal(t, 1, v.Scorer().TransactionCount(tx.FromAccount))
}

func TestValidateBatch(t *testing.T) {
	v := New(DefaultConfig())
	txs := []*transaction.Transaction{validTx("B-1"), validTx("B-2"), validTx("B-1")}

	results := v.ValidateBatch(txs)
	require.Len(t, results, 3)
	assert.Equal(t, "B-1", results[0].TransactionID)
	assert.Equal(t, "B-2", results[1].TransactionID)
	assert.True(t, results[2].HasError(DuplicateTransaction))
}

func TestStatsAndClearHistory(t *testing.T) {
	v := New(DefaultConfig())
	for i := 0; i < 5; i++ {
		tx := validTx(fmt.Sprintf("S-%d", i))
		tx.Timestamp = noon.Add(time.Duration(i) * time.Hour)
		v.Validate(tx)
	}

	stats := v.Stats()
	assert.Equal(t, 5, stats.TotalProcessed)
	assert.Equal(t, 5, stats.TotalTransactionsInHistory)

	removed := v.ClearHistory(noon.Add(2 * time.Hour))
	assert.Equal(t, 2, removed)
	assert.Equal(t, 3, v.Stats().TotalTransactionsInHistory)
	assert.Equal(t, 5, v.Stats().TotalProcessed, "processed ids are never evicted")
}

func TestValidate_MissingTimestampUsesClock(t *testing.T) {
	v := New(DefaultConfig(), WithClock(func() time.Time { return noon }))
	tx := validTx("TXN-NO-TS")
	tx.Timestamp = time.Time{}

	res := v.Validate(tx)
	assert.True(t, res.IsValid)
	assert.Equal(t, 0, res.RiskBreakdown.TimeRisk)
	assert.True(t, tx.Timestamp.IsZero(), "caller's transaction is not mutated")

	removed := v.ClearHistory(noon.Add(-time.Minute))
	assert.Equal(t, 0, removed, "history entry is stamped with the clock time")
}

func TestResult_JSON(t *testing.T) {
	v := New(DefaultConfig(), WithClock(func() time.Time { return noon }))
	tx := validTx("TXN-JSON")
	tx.Amount = decimal.NewFromInt(-1)

	out, err := v.Validate(tx).JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	for _, key := range []string{
		"transaction_id", "is_valid", "errors", "warnings", "fraud_score",
		"risk_breakdown", "compliance_checks", "validated_at",
	} {
		assert.Contains(t, decoded, key)
	}
	errs := decoded["errors"].([]any)
	require.NotEmpty(t, errs)
	assert.Equal(t, "invalid_amount", errs[0].(map[string]any)["kind"])
	assert.Equal(t, "2026-04-14T12:00:00Z", decoded["validated_at"])
}

func TestResult_String(t *testing.T) {
	v := New(DefaultConfig())
	tx := validTx("TXN-STR")
	tx.Amount = decimal.NewFromInt(-1)

	s := v.Validate(tx).String()
	assert.Contains(t, s, "Transaction TXN-STR: INVALID")
	assert.Contains(t, s, "Invalid amount")
	assert.Contains(t, s, "compliance AML: PASS")
}

func TestValidationError_Is(t *testing.T) {
	err := error(newError(VelocityViolation, "too many"))
	assert.True(t, errors.Is(err, ValidationError{Kind: VelocityViolation}))
	assert.False(t, errors.Is(err, ValidationError{Kind: InvalidAmount}))
	assert.Equal(t, "Velocity check failed: too many", err.Error())
}

func TestErrorKind_TextRoundTrip(t *testing.T) {
	var k ErrorKind
	require.NoError(t, k.UnmarshalText([]byte("risk_threshold_exceeded")))
	assert.Equal(t, RiskThresholdExceeded, k)
	assert.Error(t, k.UnmarshalText([]byte("nope")))
}
