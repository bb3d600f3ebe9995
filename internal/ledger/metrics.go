package ledger

import "github.com/prometheus/client_golang/prometheus"

var metricMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "betpro_ledger_mutations_total",
	Help: "Balance mutations applied by the ledger, by journal entry type.",
}, []string{"type"})

func init() {
	prometheus.MustRegister(metricMutationsTotal)
}
