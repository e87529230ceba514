package screening

import "github.com/prometheus/client_golang/prometheus"

var screeningsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "txguard",
	Subsystem: "screening",
	Name:      "checks_total",
	Help:      "Screening checks by kind and outcome.",
}, []string{"kind", "outcome"})

func init() {
	prometheus.MustRegister(screeningsTotal)
}
