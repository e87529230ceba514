package fraud

import (
	"fmt"
	"strings"
	"time"

	"github.com/mbd888/txguard/internal/history"
	"github.com/mbd888/txguard/internal/transaction"
	"github.com/shopspring/decimal"
)

const (
	velocityWindow   = time.Hour
	rapidGap         = 30 * time.Second
	retention        = 24 * time.Hour
	averageMultiple  = 5
	progressionDepth = 3

	severityVelocity    = 25
	severityOverCeiling = 30
	severityOverAverage = 20
	severityRound       = 15
	severityCountry     = 35
	severityRapid       = 10
	severityProgression = 20

	maxScore = 100
)

var thousand = decimal.NewFromInt(1000)

// Scorer computes fraud scores and owns the per-account history they need.
// Not safe for concurrent use.
type Scorer struct {
	thresholds Thresholds
	countries  map[string]struct{}
	history    *history.Store
}

// NewScorer creates a scorer with the given thresholds and the default
// country denylist.
func NewScorer(t Thresholds) *Scorer {
	s := &Scorer{thresholds: t, history: history.New()}
	s.WithHighRiskCountries(DefaultHighRiskCountries...)
	return s
}

// WithHighRiskCountries replaces the country denylist. Codes are matched
// case-insensitively.
func (s *Scorer) WithHighRiskCountries(codes ...string) *Scorer {
	s.countries = make(map[string]struct{}, len(codes))
	for _, c := range codes {
		s.countries[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return s
}

// Thresholds returns the active thresholds.
func (s *Scorer) Thresholds() Thresholds { return s.thresholds }

// Score evaluates tx against every signal, then records it in the history
// of its source account. A transaction without a source account is scored
// with no history and is not recorded.
func (s *Scorer) Score(tx *transaction.Transaction) *Score {
	var past []history.Entry
	if tx.HasSource() {
		past = s.history.Entries(tx.FromAccount)
	}

	var flags []Flag
	add := func(f *Flag) {
		if f != nil {
			flags = append(flags, *f)
		}
	}
	add(s.checkVelocity(tx, past))
	add(s.checkCeiling(tx))
	add(s.checkAverage(tx, past))
	add(s.checkRound(tx))
	add(s.checkCountry(tx))
	add(s.checkRapid(tx, past))
	add(s.checkProgression(past))

	total := 0
	for _, f := range flags {
		total += f.Severity
	}
	if total > maxScore {
		total = maxScore
	}

	if tx.HasSource() {
		s.history.Append(tx.FromAccount, tx.Timestamp, tx.Amount)
	}

	if flags == nil {
		flags = []Flag{}
	}
	return &Score{Score: total, Level: LevelFor(total), Flags: flags}
}

func (s *Scorer) checkVelocity(tx *transaction.Transaction, past []history.Entry) *Flag {
	if len(past) == 0 {
		return nil
	}
	from := tx.Timestamp.Add(-velocityWindow)
	recent := 0
	for _, e := range past {
		if e.Timestamp.After(from) {
			recent++
		}
	}
	if recent < s.thresholds.MaxPerHour {
		return nil
	}
	return &Flag{
		Type:        FlagVelocityExceeded,
		Description: fmt.Sprintf("%d transactions in last hour (limit: %d)", recent, s.thresholds.MaxPerHour),
		Severity:    severityVelocity,
	}
}

func (s *Scorer) checkCeiling(tx *transaction.Transaction) *Flag {
	if !tx.Amount.GreaterThan(s.thresholds.MaxAmount) {
		return nil
	}
	return &Flag{
		Type:        FlagUnusualAmount,
		Description: fmt.Sprintf("amount %s exceeds threshold %s", tx.Amount, s.thresholds.MaxAmount),
		Severity:    severityOverCeiling,
	}
}

func (s *Scorer) checkAverage(tx *transaction.Transaction, past []history.Entry) *Flag {
	if len(past) == 0 {
		return nil
	}
	avg := history.Sum(past).Div(decimal.NewFromInt(int64(len(past))))
	if !tx.Amount.GreaterThan(avg.Mul(decimal.NewFromInt(averageMultiple))) {
		return nil
	}
	return &Flag{
		Type:        FlagUnusualAmount,
		Description: fmt.Sprintf("amount %s is more than %dx the average %s", tx.Amount, averageMultiple, avg.StringFixed(2)),
		Severity:    severityOverAverage,
	}
}

func (s *Scorer) checkRound(tx *transaction.Transaction) *Flag {
	if tx.Amount.LessThan(s.thresholds.RoundAmountThreshold) || !tx.Amount.Mod(thousand).IsZero() {
		return nil
	}
	return &Flag{
		Type:        FlagRoundAmount,
		Description: fmt.Sprintf("suspicious round amount %s (potential structuring)", tx.Amount),
		Severity:    severityRound,
	}
}

func (s *Scorer) checkCountry(tx *transaction.Transaction) *Flag {
	country, ok := tx.Meta("country")
	if !ok {
		return nil
	}
	if _, bad := s.countries[strings.ToUpper(country)]; !bad {
		return nil
	}
	return &Flag{
		Type:        FlagHighRiskCountry,
		Description: "transaction from high-risk country " + country,
		Severity:    severityCountry,
	}
}

func (s *Scorer) checkRapid(tx *transaction.Transaction, past []history.Entry) *Flag {
	if len(past) == 0 {
		return nil
	}
	gap := tx.Timestamp.Sub(past[len(past)-1].Timestamp)
	if gap >= rapidGap {
		return nil
	}
	return &Flag{
		Type:        FlagRapidSuccession,
		Description: fmt.Sprintf("transaction within %d seconds of previous", int(gap.Seconds())),
		Severity:    severityRapid,
	}
}

// checkProgression looks at the most recent recorded amounts only; the
// transaction being scored is not part of the sequence.
func (s *Scorer) checkProgression(past []history.Entry) *Flag {
	if len(past) < progressionDepth {
		return nil
	}
	last := past[len(past)-progressionDepth:]
	for i := 1; i < len(last); i++ {
		if !last[i-1].Amount.LessThan(last[i].Amount) {
			return nil
		}
	}
	return &Flag{
		Type:        FlagAmountProgression,
		Description: "incrementing amounts detected (potential account testing)",
		Severity:    severityProgression,
	}
}

// Cleanup drops history entries older than 24 hours before now and removes
// accounts left empty. Returns the number of entries removed.
func (s *Scorer) Cleanup(now time.Time) int {
	return s.history.EvictBefore(now.Add(-retention))
}

// TransactionCount returns how many transactions are recorded for account.
func (s *Scorer) TransactionCount(account string) int {
	return s.history.Count(account)
}

// DailyTotal sums the account's recorded amounts over the 24 hours before now.
func (s *Scorer) DailyTotal(account string, now time.Time) decimal.Decimal {
	return history.Sum(s.history.After(account, now.Add(-retention)))
}

// HistorySize returns the number of entries held across all accounts.
func (s *Scorer) HistorySize() int { return s.history.Len() }
