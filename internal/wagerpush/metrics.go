package wagerpush

import "github.com/prometheus/client_golang/prometheus"

var (
	metricPushTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betpro_wager_push_total",
		Help: "Outbound event deliveries by sink and result.",
	}, []string{"sink", "result"})
	metricQueueLen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "betpro_wager_push_queue_len",
		Help: "Jobs waiting in the dispatch queue.",
	})
)

func init() {
	prometheus.MustRegister(metricPushTotal, metricQueueLen)
}
