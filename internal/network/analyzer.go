package network

import (
	"time"

	"github.com/mbd888/txguard/internal/idgen"
	"github.com/shopspring/decimal"
)

// DefaultMaxHops bounds the circular flow search in AnalyzeAll.
const DefaultMaxHops = 5

// Report is the combined output of every detector plus graph statistics.
type Report struct {
	ID             string               `json:"id"`
	CircularFlows  []CircularFlowResult `json:"circular_flows"`
	Structuring    []StructuringResult  `json:"structuring"`
	FunnelAccounts []RoleResult         `json:"funnel_accounts"`
	Distributors   []RoleResult         `json:"distributors"`
	PassThrough    []PassThroughResult  `json:"pass_through"`
	Stats          Stats                `json:"graph_stats"`
	AnalyzedAt     time.Time            `json:"analyzed_at"`
}

// HasSuspiciousActivity reports whether any detector found something.
func (r *Report) HasSuspiciousActivity() bool {
	return r.SuspiciousPatternCount() > 0
}

// SuspiciousPatternCount is the total number of findings across detectors.
func (r *Report) SuspiciousPatternCount() int {
	return len(r.CircularFlows) + len(r.Structuring) + len(r.FunnelAccounts) +
		len(r.Distributors) + len(r.PassThrough)
}

// Analyzer owns a Graph and assembles reports over it.
type Analyzer struct {
	graph *Graph
	now   func() time.Time
}

// NewAnalyzer creates an analyzer over an empty graph.
func NewAnalyzer() *Analyzer {
	return &Analyzer{graph: NewGraph(), now: time.Now}
}

// Graph exposes the underlying graph.
func (a *Analyzer) Graph() *Graph { return a.graph }

// AddTransaction records a transfer.
func (a *Analyzer) AddTransaction(from, to string, amount decimal.Decimal, at time.Time) {
	a.graph.AddTransaction(from, to, amount, at)
}

// Analyze runs every detector, bounding the cycle search at maxHops.
func (a *Analyzer) Analyze(maxHops int) *Report {
	return &Report{
		ID:             idgen.WithPrefix("rpt_"),
		CircularFlows:  orEmpty(a.graph.DetectCircularFlows(maxHops)),
		Structuring:    orEmpty(a.graph.DetectStructuring()),
		FunnelAccounts: orEmpty(a.graph.DetectFunnelAccounts()),
		Distributors:   orEmpty(a.graph.DetectDistributors()),
		PassThrough:    orEmpty(a.graph.DetectPassThrough()),
		Stats:          a.graph.Stats(),
		AnalyzedAt:     a.now().UTC(),
	}
}

// AnalyzeAll runs every detector with DefaultMaxHops.
func (a *Analyzer) AnalyzeAll() *Report {
	return a.Analyze(DefaultMaxHops)
}

// AccountStats returns the aggregates for one account.
func (a *Analyzer) AccountStats(id string) (AccountStats, bool) {
	return a.graph.AccountStats(id)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
