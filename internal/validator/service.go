package validator

import (
	"context"
	"sync"
	"time"

	"github.com/mbd888/txguard/internal/logging"
	"github.com/mbd888/txguard/internal/traces"
	"github.com/mbd888/txguard/internal/transaction"
	"go.opentelemetry.io/otel/attribute"
)

// Service serializes access to a Validator and instruments each call.
type Service struct {
	mu        sync.Mutex
	validator *Validator
}

// NewService wraps v. v must not be used directly afterwards.
func NewService(v *Validator) *Service {
	return &Service{validator: v}
}

// Validate runs the pipeline for one transaction.
func (s *Service) Validate(ctx context.Context, tx *transaction.Transaction) *Result {
	ctx, span := traces.StartSpan(ctx, "validator.Validate",
		traces.TransactionID(tx.ID),
		traces.TransactionType(tx.Type.String()),
		traces.UserID(tx.UserID),
		traces.Amount(tx.Amount.String()),
	)
	defer span.End()

	s.mu.Lock()
	res := s.validator.Validate(tx)
	s.mu.Unlock()

	span.SetAttributes(
		traces.FraudScore(res.FraudScore),
		attribute.Bool("validation.valid", res.IsValid),
	)
	observe(res)
	s.log(ctx, res)
	return res
}

// ValidateBatch validates txs in order under a single lock.
func (s *Service) ValidateBatch(ctx context.Context, txs []*transaction.Transaction) []*Result {
	ctx, span := traces.StartSpan(ctx, "validator.ValidateBatch",
		attribute.Int("batch.size", len(txs)))
	defer span.End()

	s.mu.Lock()
	results := s.validator.ValidateBatch(txs)
	s.mu.Unlock()

	for _, res := range results {
		observe(res)
		s.log(ctx, res)
	}
	return results
}

// Stats returns the validator counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validator.Stats()
}

// Evict drops pipeline and fraud scorer history older than retention
// before now. The scorer keeps its fixed 24h horizon when retention is
// longer. Returns the total number of entries removed.
func (s *Service) Evict(ctx context.Context, now time.Time, retention time.Duration) int {
	s.mu.Lock()
	removed := s.validator.ClearHistory(now.Add(-retention))
	removed += s.validator.Scorer().Cleanup(now)
	size := s.validator.Stats().TotalTransactionsInHistory + s.validator.Scorer().HistorySize()
	s.mu.Unlock()

	evictedTotal.Add(float64(removed))
	historySize.Set(float64(size))
	if removed > 0 {
		logging.L(ctx).Info("evicted transaction history", "removed", removed, "remaining", size)
	}
	return removed
}

func (s *Service) log(ctx context.Context, res *Result) {
	logger := logging.L(ctx)
	if !res.IsValid {
		kinds := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			kinds = append(kinds, e.Kind.String())
		}
		logger.Info("transaction rejected",
			"transaction_id", res.TransactionID,
			"fraud_score", res.FraudScore,
			"errors", kinds,
		)
		return
	}
	logger.Debug("transaction validated",
		"transaction_id", res.TransactionID,
		"fraud_score", res.FraudScore,
		"approved", res.IsApproved(),
		"warnings", len(res.Warnings),
	)
}
