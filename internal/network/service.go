package network

import (
	"context"
	"sync"
	"time"

	"github.com/mbd888/txguard/internal/logging"
	"github.com/mbd888/txguard/internal/traces"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// Transfer is one edge submitted to the graph.
type Transfer struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Service guards an Analyzer with a mutex and instruments its calls.
type Service struct {
	mu       sync.Mutex
	analyzer *Analyzer
	maxHops  int
}

// NewService wraps a. maxHops below 1 falls back to DefaultMaxHops.
func NewService(a *Analyzer, maxHops int) *Service {
	if maxHops < 1 {
		maxHops = DefaultMaxHops
	}
	return &Service{analyzer: a, maxHops: maxHops}
}

// MaxHops is the hop limit used when a caller does not supply one.
func (s *Service) MaxHops() int { return s.maxHops }

// Record adds transfers to the graph in order. A zero timestamp is
// replaced with the current time.
func (s *Service) Record(ctx context.Context, transfers ...Transfer) {
	s.mu.Lock()
	for _, t := range transfers {
		at := t.Timestamp
		if at.IsZero() {
			at = s.analyzer.now()
		}
		s.analyzer.AddTransaction(t.From, t.To, t.Amount, at)
	}
	stats := s.analyzer.Graph().Stats()
	s.mu.Unlock()

	transfersRecorded.Add(float64(len(transfers)))
	graphNodes.Set(float64(stats.NodeCount))
	graphEdges.Set(float64(stats.EdgeCount))
	logging.L(ctx).Debug("transfers recorded", "count", len(transfers), "nodes", stats.NodeCount)
}

// Analyze runs every detector. maxHops <= 0 uses the service default.
func (s *Service) Analyze(ctx context.Context, maxHops int) *Report {
	if maxHops <= 0 {
		maxHops = s.maxHops
	}
	ctx, span := traces.StartSpan(ctx, "network.Analyze", traces.MaxHops(maxHops))
	defer span.End()

	start := time.Now()
	s.mu.Lock()
	report := s.analyzer.Analyze(maxHops)
	s.mu.Unlock()
	analysisDuration.Observe(time.Since(start).Seconds())

	span.SetAttributes(
		traces.ReportID(report.ID),
		attribute.Int("network.findings", report.SuspiciousPatternCount()),
	)
	observeReport(report)

	logger := logging.L(ctx)
	if report.HasSuspiciousActivity() {
		logger.Info("suspicious network activity",
			"report_id", report.ID,
			"circular_flows", len(report.CircularFlows),
			"structuring", len(report.Structuring),
			"funnels", len(report.FunnelAccounts),
			"distributors", len(report.Distributors),
			"pass_through", len(report.PassThrough),
		)
	} else {
		logger.Debug("network analysis clean", "report_id", report.ID, "nodes", report.Stats.NodeCount)
	}
	return report
}

// AccountStats returns the aggregates for one account.
func (s *Service) AccountStats(ctx context.Context, id string) (AccountStats, bool) {
	_, span := traces.StartSpan(ctx, "network.AccountStats", traces.Account(id))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer.AccountStats(id)
}
