package validator

import "github.com/prometheus/client_golang/prometheus"

var (
	validationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "txguard",
		Subsystem: "validator",
		Name:      "validations_total",
		Help:      "Total transactions validated by outcome (approved, review, rejected).",
	}, []string{"outcome"})

	validationErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "txguard",
		Subsystem: "validator",
		Name:      "errors_total",
		Help:      "Validation errors emitted by kind.",
	}, []string{"kind"})

	fraudScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "txguard",
		Subsystem: "validator",
		Name:      "fraud_score",
		Help:      "Distribution of pipeline fraud scores.",
		Buckets:   []float64{0, 10, 25, 40, 50, 60, 75, 90, 100},
	})

	historySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "txguard",
		Subsystem: "validator",
		Name:      "history_entries",
		Help:      "Entries held in the pipeline and fraud scorer histories.",
	})

	evictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "txguard",
		Subsystem: "validator",
		Name:      "evicted_entries_total",
		Help:      "History entries removed by eviction.",
	})
)

func init() {
	prometheus.MustRegister(
		validationsTotal,
		validationErrorsTotal,
		fraudScore,
		historySize,
		evictedTotal,
	)
}

func outcome(r *Result) string {
	switch {
	case r.IsApproved():
		return "approved"
	case r.IsValid:
		return "review"
	default:
		return "rejected"
	}
}

func observe(r *Result) {
	validationsTotal.WithLabelValues(outcome(r)).Inc()
	fraudScore.Observe(float64(r.FraudScore))
	for _, e := range r.Errors {
		validationErrorsTotal.WithLabelValues(e.Kind.String()).Inc()
	}
}
