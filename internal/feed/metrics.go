package feed

import "github.com/prometheus/client_golang/prometheus"

var (
	metricStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "betpro_feed_streams_active",
		Help: "Open account event streams.",
	})
	metricDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betpro_feed_dropped_total",
		Help: "Events not delivered to a slow stream subscriber.",
	})
)

func init() {
	prometheus.MustRegister(metricStreamsActive, metricDroppedTotal)
}
