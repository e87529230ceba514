package network

import "github.com/prometheus/client_golang/prometheus"

var (
	transfersRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "txguard",
		Subsystem: "network",
		Name:      "transfers_total",
		Help:      "Transfers added to the transaction graph.",
	})

	findingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "txguard",
		Subsystem: "network",
		Name:      "findings_total",
		Help:      "Suspicious patterns reported by analysis runs, by pattern.",
	}, []string{"pattern"})

	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "txguard",
		Subsystem: "network",
		Name:      "analysis_duration_seconds",
		Help:      "Duration of full network analysis runs in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	graphNodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "txguard",
		Subsystem: "network",
		Name:      "graph_nodes",
		Help:      "Accounts in the transaction graph.",
	})

	graphEdges = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "txguard",
		Subsystem: "network",
		Name:      "graph_edges",
		Help:      "Distinct account pairs in the transaction graph.",
	})
)

func init() {
	prometheus.MustRegister(
		transfersRecorded,
		findingsTotal,
		analysisDuration,
		graphNodes,
		graphEdges,
	)
}

func observeReport(r *Report) {
	findingsTotal.WithLabelValues(string(CircularFlow)).Add(float64(len(r.CircularFlows)))
	findingsTotal.WithLabelValues(string(Structuring)).Add(float64(len(r.Structuring)))
	findingsTotal.WithLabelValues(string(FunnelAccount)).Add(float64(len(r.FunnelAccounts)))
	findingsTotal.WithLabelValues(string(Distributor)).Add(float64(len(r.Distributors)))
	findingsTotal.WithLabelValues(string(PassThrough)).Add(float64(len(r.PassThrough)))
	graphNodes.Set(float64(r.Stats.NodeCount))
	graphEdges.Set(float64(r.Stats.EdgeCount))
}
