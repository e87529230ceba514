// Package screening exposes sanctions screening, KYC record checks and
// geographic risk lookups over HTTP.
package screening

import (
	"context"
	"sync"

	"github.com/mbd888/txguard/internal/aml"
	"github.com/mbd888/txguard/internal/georisk"
	"github.com/mbd888/txguard/internal/logging"
	"github.com/mbd888/txguard/internal/sanctions"
	"github.com/mbd888/txguard/internal/traces"
	"go.opentelemetry.io/otel/attribute"
)

// Service serializes access to the screener and risk tables.
type Service struct {
	mu       sync.RWMutex
	screener *sanctions.Screener
	geo      *georisk.Scorer
}

// NewService wraps screener and geo.
func NewService(screener *sanctions.Screener, geo *georisk.Scorer) *Service {
	return &Service{screener: screener, geo: geo}
}

// Screen checks names against the enabled sanctions lists.
func (s *Service) Screen(ctx context.Context, names ...string) []sanctions.Result {
	ctx, span := traces.StartSpan(ctx, "screening.Sanctions", attribute.Int("screening.names", len(names)))
	defer span.End()

	s.mu.RLock()
	results := s.screener.ScreenBatch(names)
	s.mu.RUnlock()

	hits := 0
	for _, r := range results {
		outcome := "clear"
		if r.IsMatch {
			outcome = "match"
			hits++
			if r.HasHighConfidenceMatch() {
				top, _ := r.Highest()
				logging.L(ctx).Warn("high confidence sanctions match",
					"entry_id", top.EntryID,
					"list", top.List,
					"confidence", top.Confidence,
				)
			}
		}
		screeningsTotal.WithLabelValues("sanctions", outcome).Inc()
	}
	span.SetAttributes(attribute.Int("screening.hits", hits))
	return results
}

// AddEntity lists a new party and enables its list.
func (s *Service) AddEntity(ctx context.Context, name string, aliases []string, list sanctions.List) string {
	s.mu.Lock()
	id := s.screener.AddEntity(name, aliases, list)
	s.screener.EnableList(list)
	s.mu.Unlock()

	logging.L(ctx).Info("sanctioned entity added", "entry_id", id, "list", list)
	return id
}

// ValidateCustomer checks a KYC record.
func (s *Service) ValidateCustomer(ctx context.Context, customer map[string]any) aml.KYCResult {
	_, span := traces.StartSpan(ctx, "screening.KYC")
	defer span.End()

	res := aml.ValidateCustomer(customer)
	outcome := "complete"
	switch {
	case !res.Valid:
		outcome = "incomplete"
	case res.RequiresEnhancedDD:
		outcome = "enhanced_dd"
	}
	screeningsTotal.WithLabelValues("kyc", outcome).Inc()
	return res
}

// GeoRisk scores an origin/destination country pair.
func (s *Service) GeoRisk(ctx context.Context, origin, destination string) georisk.TransactionRisk {
	_, span := traces.StartSpan(ctx, "screening.GeoRisk",
		attribute.String("geo.origin", origin),
		attribute.String("geo.destination", destination),
	)
	defer span.End()

	s.mu.RLock()
	res := s.geo.TransactionRisk(origin, destination)
	s.mu.RUnlock()

	screeningsTotal.WithLabelValues("geo", res.Level.String()).Inc()
	return res
}

// ProhibitedCountries lists the prohibited countries.
func (s *Service) ProhibitedCountries() []georisk.CountryRisk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.geo.ProhibitedCountries()
}
