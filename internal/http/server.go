package http

import (
	"net/http"

	"github.com/mauv0809/ranked-queue/internal/config"
	"github.com/mauv0809/ranked-queue/internal/league"
	"github.com/mauv0809/ranked-queue/internal/lifecycle"
	"github.com/mauv0809/ranked-queue/internal/metrics"
	"github.com/mauv0809/ranked-queue/internal/poller"
	"github.com/mauv0809/ranked-queue/internal/pubsub"
	"golang.org/x/time/rate"
)

// Requests per second allowed across the whole API, and the burst on top of it.
const (
	requestRate  = 20
	requestBurst = 40
)

func NewServer(league *league.Service, lifecycle *lifecycle.Manager, poller *poller.Poller, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config, pubsub pubsub.PubSubClient) *Server {
	server := &Server{
		League:         league,
		Lifecycle:      lifecycle,
		Poller:         poller,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
		pubsub:         pubsub,
		limiter:        rate.NewLimiter(rate.Limit(requestRate), requestBurst),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	limit := rateLimitMiddleware(s.limiter)
	handle := func(pattern string, h http.Handler) {
		s.Router.Handle(pattern, Chain(h, paramsMiddleware, limit))
	}

	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))

	handle("POST /teams", s.CreateTeamHandler())
	handle("GET /teams/info", s.TeamInfoHandler())
	handle("POST /teams/members", s.AddMemberHandler())
	handle("DELETE /teams/members", s.RemoveMemberHandler())
	handle("POST /teams/captain", s.SetCaptainHandler())
	handle("POST /teams/rating", s.SetRatingHandler())
	handle("POST /teams/clear", s.ClearTeamsHandler())
	handle("POST /season/reset", s.ResetSeasonHandler())

	handle("GET /leaderboard", s.LeaderboardHandler())
	handle("GET /rank", s.RankHandler())
	handle("GET /history", s.HistoryHandler())
	handle("GET /teamqueue", s.TeamQueueHandler())

	handle("POST /queue/join", s.JoinQueueHandler())
	handle("POST /queue/leave", s.LeaveQueueHandler())
	handle("POST /pool/join", s.JoinPoolHandler())
	handle("POST /pool/leave", s.LeavePoolHandler())

	handle("POST /groups/setup", s.SetupGroupHandler())
	handle("POST /groups/close", s.CloseGroupHandler())
	handle("POST /groups/tick", s.TickHandler())

	handle("POST /matches/vote", s.VoteHandler())
	handle("GET /matches/active", s.ActiveMatchesHandler())

	s.Router.Handle("POST /events", Chain(s.MatchEventHandler(), paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
