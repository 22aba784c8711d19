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

type Server struct {
	League         *league.Service
	Lifecycle      *lifecycle.Manager
	Poller         *poller.Poller
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
	pubsub         pubsub.PubSubClient
	limiter        *rate.Limiter
}

type teamRequest struct {
	Name string `json:"name"`
}

type memberRequest struct {
	Team   string `json:"team"`
	UserID string `json:"user_id"`
	Member string `json:"member"`
}

type captainRequest struct {
	Team    string `json:"team"`
	Captain string `json:"captain"`
}

type ratingRequest struct {
	Team   string `json:"team"`
	Rating int    `json:"rating"`
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

type queueRequest struct {
	GroupID string `json:"group_id"`
	Team    string `json:"team"`
	UserID  string `json:"user_id"`
}

type groupRequest struct {
	GroupID          string `json:"group_id"`
	QueueChannelID   string `json:"queue_channel_id"`
	ResultsChannelID string `json:"results_channel_id"`
}

type voteRequest struct {
	lifecycle.Vote
	UserID string `json:"user_id"`
}

// pushMessage is the envelope of a Pub/Sub push subscription request.
type pushMessage struct {
	Subscription string `json:"subscription"`
	Message      struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
}
