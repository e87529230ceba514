// Package network builds a directed graph of account-to-account transfers and
// detects laundering typologies over it: circular flows, structuring just
// below a reporting threshold, funnel and distributor accounts, and
// pass-through accounts.
//
// The graph only grows. Detectors are pure reads recomputed on demand and
// iterate accounts in sorted order so results are deterministic. Graph and
// Analyzer are not safe for concurrent use; Service wraps an Analyzer with a
// mutex.
package network

import (
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultReportingThreshold is the CTR filing threshold used as the
// structuring reference.
var DefaultReportingThreshold = decimal.NewFromInt(10_000)

// Pattern tags a suspicious typology.
type Pattern string

const (
	CircularFlow  Pattern = "circular_flow"
	Structuring   Pattern = "structuring"
	FunnelAccount Pattern = "funnel_account"
	Distributor   Pattern = "distributor"
	PassThrough   Pattern = "pass_through"
)

type node struct {
	inflow    decimal.Decimal
	outflow   decimal.Decimal
	count     int
	firstSeen time.Time
	lastSeen  time.Time
	incoming  map[string]struct{}
	outgoing  map[string]struct{}
}

func newNode(at time.Time) *node {
	return &node{
		firstSeen: at,
		lastSeen:  at,
		incoming:  make(map[string]struct{}),
		outgoing:  make(map[string]struct{}),
	}
}

func (n *node) touch(at time.Time) {
	n.count++
	if at.Before(n.firstSeen) {
		n.firstSeen = at
	}
	if at.After(n.lastSeen) {
		n.lastSeen = at
	}
}

type edgeKey struct {
	from, to string
}

type edge struct {
	total      decimal.Decimal
	count      int
	timestamps []time.Time
}

func (e *edge) average() decimal.Decimal {
	return e.total.Div(decimal.NewFromInt(int64(e.count)))
}

// Graph is the accumulated transfer graph.
type Graph struct {
	nodes     map[string]*node
	edges     map[edgeKey]*edge
	threshold decimal.Decimal
}

// NewGraph creates an empty graph with the default reporting threshold.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*node),
		edges:     make(map[edgeKey]*edge),
		threshold: DefaultReportingThreshold,
	}
}

// SetReportingThreshold changes the structuring reference threshold.
func (g *Graph) SetReportingThreshold(t decimal.Decimal) {
	g.threshold = t
}

// ReportingThreshold returns the structuring reference threshold.
func (g *Graph) ReportingThreshold() decimal.Decimal { return g.threshold }

// AddTransaction records a transfer from one account to another.
func (g *Graph) AddTransaction(from, to string, amount decimal.Decimal, at time.Time) {
	at = at.UTC()

	src := g.nodeFor(from, at)
	src.outflow = src.outflow.Add(amount)
	src.touch(at)
	src.outgoing[to] = struct{}{}

	dst := g.nodeFor(to, at)
	dst.inflow = dst.inflow.Add(amount)
	dst.touch(at)
	dst.incoming[from] = struct{}{}

	key := edgeKey{from: from, to: to}
	e, ok := g.edges[key]
	if !ok {
		e = &edge{}
		g.edges[key] = e
	}
	e.total = e.total.Add(amount)
	e.count++
	e.timestamps = append(e.timestamps, at)
}

func (g *Graph) nodeFor(id string, at time.Time) *node {
	n, ok := g.nodes[id]
	if !ok {
		n = newNode(at)
		g.nodes[id] = n
	}
	return n
}

func (g *Graph) accounts() []string {
	return slices.Sorted(maps.Keys(g.nodes))
}

func sortedSet(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}

// Stats summarizes the whole graph.
type Stats struct {
	NodeCount         int             `json:"node_count"`
	EdgeCount         int             `json:"edge_count"`
	TotalTransactions int             `json:"total_transactions"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
}

// Stats returns node, distinct edge and transaction counts plus the total
// amount moved.
func (g *Graph) Stats() Stats {
	s := Stats{NodeCount: len(g.nodes), EdgeCount: len(g.edges), TotalAmount: decimal.Zero}
	for _, e := range g.edges {
		s.TotalTransactions += e.count
		s.TotalAmount = s.TotalAmount.Add(e.total)
	}
	return s
}

// AccountStats describes one account.
type AccountStats struct {
	AccountID           string          `json:"account_id"`
	TotalInflow         decimal.Decimal `json:"total_inflow"`
	TotalOutflow        decimal.Decimal `json:"total_outflow"`
	NetFlow             decimal.Decimal `json:"net_flow"`
	TransactionCount    int             `json:"transaction_count"`
	IncomingConnections int             `json:"incoming_connections"`
	OutgoingConnections int             `json:"outgoing_connections"`
	FirstSeen           time.Time       `json:"first_seen"`
	LastSeen            time.Time       `json:"last_seen"`
}

// AccountStats returns the aggregates for id, or false if it was never seen.
func (g *Graph) AccountStats(id string) (AccountStats, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return AccountStats{}, false
	}
	return AccountStats{
		AccountID:           id,
		TotalInflow:         n.inflow,
		TotalOutflow:        n.outflow,
		NetFlow:             n.inflow.Sub(n.outflow),
		TransactionCount:    n.count,
		IncomingConnections: len(n.incoming),
		OutgoingConnections: len(n.outgoing),
		FirstSeen:           n.firstSeen,
		LastSeen:            n.lastSeen,
	}, true
}
