// Package gateway implements the client side of the locker hardware link.
//
// This file exposes Prometheus instrumentation for hardware traffic. Attempt
// and outcome counters are kept separate: attempts show how hard the retry
// loop is working (a rising failure rate predicts ErrUnreachable before users
// see it), while outcomes count what callers actually observed.
package gateway

import "github.com/prometheus/client_golang/prometheus"

var (
	// hwAttempts counts individual command POSTs by result.
	hwAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hardware_open_attempts_total",
			Help: "Total individual open-command attempts against the locker controller.",
		},
		[]string{"result"},
	)

	// hwOpens counts completed Open calls by final outcome.
	hwOpens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hardware_opens_total",
			Help: "Total Open calls by final outcome (ok or unreachable).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(hwAttempts, hwOpens)
}

func observeAttempt(ok bool) {
	if ok {
		hwAttempts.WithLabelValues("ok").Inc()
		return
	}
	hwAttempts.WithLabelValues("error").Inc()
}

func observeOpen(ok bool) {
	if ok {
		hwOpens.WithLabelValues("ok").Inc()
		return
	}
	hwOpens.WithLabelValues("unreachable").Inc()
}
