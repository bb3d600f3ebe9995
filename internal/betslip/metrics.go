package betslip

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betpro_slip_submissions_total",
		Help: "Slip submissions by result.",
	}, []string{"result"})
	metricWagersPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betpro_wagers_placed_total",
		Help: "Wagers created by successful submissions.",
	})
	metricWagersSettledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betpro_wagers_settled_total",
		Help: "Wagers settled by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(metricSubmissionsTotal, metricWagersPlacedTotal, metricWagersSettledTotal)
}

func submissionResult(err error) string {
	switch {
	case err == nil:
		return "placed"
	case errors.Is(err, ErrEmpty):
		return "empty"
	case errors.Is(err, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case Retryable(err):
		return "placement_failed"
	default:
		return "rejected"
	}
}
