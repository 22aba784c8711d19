package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
type Service struct {
	PollTicks          prometheus.Counter
	TickDuration       prometheus.Histogram
	PoolSize           *prometheus.GaugeVec
	MatchesCreated     prometheus.Counter
	MatchesSettled     prometheus.Counter
	Disputes           prometheus.Counter
	SessionsAbandoned  prometheus.Counter
	NotifSent          prometheus.Counter
	NotifFailed        prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}
