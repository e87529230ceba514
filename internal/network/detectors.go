package network

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const (
	minStructuringEdges = 3
	roleManyNeighbors   = 5
	roleFewNeighbors    = 2
	minPassThroughCount = 4
)

var (
	structuringBand = decimal.RequireFromString("0.85")
	passThroughLow  = decimal.RequireFromString("0.9")
	passThroughHigh = decimal.RequireFromString("1.1")
)

// CircularFlowResult is one cycle that returns to its starting account.
// Accounts begins and ends with the starting account.
type CircularFlowResult struct {
	Accounts    []string        `json:"accounts"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Pattern     Pattern         `json:"pattern"`
}

// StructuringResult flags an account with several outgoing edges whose
// average amount sits just below the reporting threshold.
type StructuringResult struct {
	AccountID          string            `json:"account_id"`
	TransactionAmounts []decimal.Decimal `json:"transaction_amounts"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	Pattern            Pattern           `json:"pattern"`
	ThresholdAvoided   decimal.Decimal   `json:"threshold_avoided"`
}

// RoleResult describes a funnel or distributor account.
type RoleResult struct {
	AccountID     string          `json:"account_id"`
	IncomingCount int             `json:"incoming_count"`
	OutgoingCount int             `json:"outgoing_count"`
	TotalInflow   decimal.Decimal `json:"total_inflow"`
	TotalOutflow  decimal.Decimal `json:"total_outflow"`
	Pattern       Pattern         `json:"pattern"`
}

// PassThroughResult describes an account whose outflow mirrors its inflow.
type PassThroughResult struct {
	AccountID             string          `json:"account_id"`
	TotalInflow           decimal.Decimal `json:"total_inflow"`
	TotalOutflow          decimal.Decimal `json:"total_outflow"`
	TransactionCount      int             `json:"transaction_count"`
	ActivityDuration      time.Duration   `json:"-"`
	ActivityDurationHours int64           `json:"activity_duration_hours"`
	Pattern               Pattern         `json:"pattern"`
}

// DetectCircularFlows returns, for every account, the first cycle of more
// than two accounts found within maxHops edges that leads back to it. The
// same cycle is reported once per account on it.
func (g *Graph) DetectCircularFlows(maxHops int) []CircularFlowResult {
	var results []CircularFlowResult
	for _, start := range g.accounts() {
		path := g.findCycle(start, maxHops)
		if path == nil {
			continue
		}
		total := decimal.Zero
		for i := 1; i < len(path); i++ {
			if e, ok := g.edges[edgeKey{from: path[i-1], to: path[i]}]; ok {
				total = total.Add(e.total)
			}
		}
		results = append(results, CircularFlowResult{
			Accounts:    path,
			TotalAmount: total,
			Pattern:     CircularFlow,
		})
	}
	return results
}

func (g *Graph) findCycle(start string, maxHops int) []string {
	visited := map[string]bool{start: true}
	path := []string{start}

	var dfs func(current string, remaining int) []string
	dfs = func(current string, remaining int) []string {
		if remaining == 0 {
			return nil
		}
		n, ok := g.nodes[current]
		if !ok {
			return nil
		}
		for _, next := range sortedSet(n.outgoing) {
			if next == start && len(path) > 2 {
				return append(slices.Clone(path), start)
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			path = append(path, next)
			if found := dfs(next, remaining-1); found != nil {
				return found
			}
			path = path[:len(path)-1]
			visited[next] = false
		}
		return nil
	}
	return dfs(start, maxHops)
}

// DetectStructuring flags accounts with at least three outgoing edges whose
// per-edge average lies in [0.85*threshold, threshold).
func (g *Graph) DetectStructuring() []StructuringResult {
	low := g.threshold.Mul(structuringBand)

	var results []StructuringResult
	for _, account := range g.accounts() {
		var amounts []decimal.Decimal
		for _, to := range sortedSet(g.nodes[account].outgoing) {
			avg := g.edges[edgeKey{from: account, to: to}].average()
			if avg.GreaterThanOrEqual(low) && avg.LessThan(g.threshold) {
				amounts = append(amounts, avg)
			}
		}
		if len(amounts) < minStructuringEdges {
			continue
		}
		total := decimal.Zero
		for _, a := range amounts {
			total = total.Add(a)
		}
		results = append(results, StructuringResult{
			AccountID:          account,
			TransactionAmounts: amounts,
			TotalAmount:        total,
			Pattern:            Structuring,
			ThresholdAvoided:   g.threshold,
		})
	}
	return results
}

// DetectFunnelAccounts returns accounts with at least five distinct senders
// and at most two distinct recipients.
func (g *Graph) DetectFunnelAccounts() []RoleResult {
	return g.detectRole(FunnelAccount, func(n *node) bool {
		return len(n.incoming) >= roleManyNeighbors && len(n.outgoing) <= roleFewNeighbors
	})
}

// DetectDistributors returns accounts with at most two distinct senders and
// at least five distinct recipients.
func (g *Graph) DetectDistributors() []RoleResult {
	return g.detectRole(Distributor, func(n *node) bool {
		return len(n.incoming) <= roleFewNeighbors && len(n.outgoing) >= roleManyNeighbors
	})
}

func (g *Graph) detectRole(p Pattern, match func(*node) bool) []RoleResult {
	var results []RoleResult
	for _, account := range g.accounts() {
		n := g.nodes[account]
		if !match(n) {
			continue
		}
		results = append(results, RoleResult{
			AccountID:     account,
			IncomingCount: len(n.incoming),
			OutgoingCount: len(n.outgoing),
			TotalInflow:   n.inflow,
			TotalOutflow:  n.outflow,
			Pattern:       p,
		})
	}
	return results
}

// DetectPassThrough returns accounts with non-zero inflow, an outflow/inflow
// ratio within [0.9, 1.1], and at least four transactions.
func (g *Graph) DetectPassThrough() []PassThroughResult {
	var results []PassThroughResult
	for _, account := range g.accounts() {
		n := g.nodes[account]
		if n.inflow.IsZero() || n.count < minPassThroughCount {
			continue
		}
		ratio := n.outflow.Div(n.inflow)
		if ratio.LessThan(passThroughLow) || ratio.GreaterThan(passThroughHigh) {
			continue
		}
		active := n.lastSeen.Sub(n.firstSeen)
		results = append(results, PassThroughResult{
			AccountID:             account,
			TotalInflow:           n.inflow,
			TotalOutflow:          n.outflow,
			TransactionCount:      n.count,
			ActivityDuration:      active,
			ActivityDurationHours: int64(active / time.Hour),
			Pattern:               PassThrough,
		})
	}
	return results
}
