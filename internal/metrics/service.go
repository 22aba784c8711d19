package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		PollTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_poll_ticks_total",
			Help: "The total number of queue poller ticks across all groups.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ladder_poll_tick_duration_seconds",
			Help:    "The duration of a single queue poller tick.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PoolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ladder_pool_size",
			Help: "The number of teams waiting in a group's automatic pool.",
		}, []string{"group"}),
		MatchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_matches_created_total",
			Help: "The total number of matches created from the queues.",
		}),
		MatchesSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_matches_settled_total",
			Help: "The total number of matches settled by agreeing votes.",
		}),
		Disputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_vote_disputes_total",
			Help: "The total number of vote rounds that ended in disagreement.",
		}),
		SessionsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_sessions_abandoned_total",
			Help: "The total number of match sessions abandoned because a team disappeared.",
		}),
		NotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_notifications_sent_total",
			Help: "The total number of notifications successfully sent.",
		}),
		NotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_notifications_failed_total",
			Help: "The total number of notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ladder_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.PollTicks,
		s.TickDuration,
		s.PoolSize,
		s.MatchesCreated,
		s.MatchesSettled,
		s.Disputes,
		s.SessionsAbandoned,
		s.NotifSent,
		s.NotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncPollTicks() {
	s.PollTicks.Inc()
}

func (s *Service) ObserveTickDuration(duration float64) {
	s.TickDuration.Observe(duration)
}

func (s *Service) SetPoolSize(groupID string, size int) {
	s.PoolSize.WithLabelValues(groupID).Set(float64(size))
}

func (s *Service) IncMatchesCreated() {
	s.MatchesCreated.Inc()
}

func (s *Service) IncMatchesSettled() {
	s.MatchesSettled.Inc()
}

func (s *Service) IncDisputes() {
	s.Disputes.Inc()
}

func (s *Service) IncSessionsAbandoned() {
	s.SessionsAbandoned.Inc()
}

func (s *Service) IncNotifSent() {
	s.NotifSent.Inc()
}

func (s *Service) IncNotifFailed() {
	s.NotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
