package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mauv0809/ranked-queue/internal/config"
	"github.com/mauv0809/ranked-queue/internal/database"
	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/mauv0809/ranked-queue/internal/league"
	"github.com/mauv0809/ranked-queue/internal/lifecycle"
	"github.com/mauv0809/ranked-queue/internal/metrics"
	"github.com/mauv0809/ranked-queue/internal/notifier"
	"github.com/mauv0809/ranked-queue/internal/poller"
	"github.com/mauv0809/ranked-queue/internal/pubsub"
	"github.com/mauv0809/ranked-queue/internal/rating"
	"github.com/mauv0809/ranked-queue/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/time/rate"
)

// setupTestServer wires a server over an in-memory database and mock chat clients.
func setupTestServer(t *testing.T) (*Server, *notifier.Mock) {
	t.Helper()

	db, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	metricsSvc := metrics.NewService(reg)
	metricsHandler := metrics.NewMetricsHandler(reg)
	events := pubsub.NewMock()
	chat := notifier.NewMock()
	store := ladder.New(db)
	locker := ladder.NewLocker()

	manager := lifecycle.New(store, session.NewMemoryStore(), chat, chat, events, metricsSvc, rating.NewModel(32), locker, time.Minute)
	// Long interval: tests drive ticks through the API.
	poll := poller.New(store, manager, chat, metricsSvc, locker, time.Hour)
	t.Cleanup(poll.Shutdown)
	svc := league.New(store, locker, manager, poll, chat, nil, 0)

	return NewServer(svc, manager, poll, metricsSvc, metricsHandler, config.Config{}, events), chat
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthCheckHandler(t *testing.T) {
	server, _ := setupTestServer(t)
	rr := do(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK!", rr.Body.String())
}

func TestTeamHandlers(t *testing.T) {
	server, _ := setupTestServer(t)

	rr := do(t, server, http.MethodPost, "/teams", map[string]string{"name": "Alpha"})
	require.Equal(t, http.StatusCreated, rr.Code)
	team := decodeBody[ladder.Team](t, rr)
	assert.Equal(t, "alpha", team.Key)
	assert.Equal(t, 1000, team.Rating)

	rr = do(t, server, http.MethodPost, "/teams", map[string]string{"name": "ALPHA"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, server, http.MethodPost, "/teams/members", map[string]string{"team": "alpha", "user_id": "u1", "member": "u2"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, server, http.MethodPost, "/teams/captain", map[string]string{"team": "alpha", "captain": "u1"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, server, http.MethodPost, "/teams/members", map[string]string{"team": "alpha", "user_id": "u1", "member": "u2"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"u1", "u2"}, decodeBody[ladder.Team](t, rr).Members)

	rr = do(t, server, http.MethodDelete, "/teams/members", map[string]string{"team": "alpha", "user_id": "u1", "member": "u1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, server, http.MethodPost, "/teams/rating", map[string]any{"team": "alpha", "rating": 1600})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, server, http.MethodGet, "/rank?user_id=u2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rank := decodeBody[league.RankInfo](t, rr)
	assert.Equal(t, "Platinum", rank.Progress.Current.Name)

	rr = do(t, server, http.MethodGet, "/teams/info?team=nobody", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, server, http.MethodPost, "/teams/clear", map[string]bool{"confirm": false})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, server, http.MethodPost, "/teams/clear", map[string]bool{"confirm": true})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]int{"removed": 1}, decodeBody[map[string]int](t, rr))
}

func TestInvalidJSON(t *testing.T) {
	server, _ := setupTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/teams", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAutoMatchFlow(t *testing.T) {
	server, chat := setupTestServer(t)
	for _, tc := range []struct{ name, captain string }{{"Alpha", "u1"}, {"Beta", "u2"}} {
		require.Equal(t, http.StatusCreated, do(t, server, http.MethodPost, "/teams", map[string]string{"name": tc.name}).Code)
		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/teams/captain", map[string]string{"team": tc.name, "captain": tc.captain}).Code)
	}

	rr := do(t, server, http.MethodPost, "/pool/join", map[string]string{"group_id": "g1", "team": "alpha", "user_id": "u1"})
	assert.Equal(t, http.StatusNotFound, rr.Code, "group not set up yet")

	rr = do(t, server, http.MethodPost, "/groups/setup", map[string]string{"group_id": "g1", "queue_channel_id": "queue"})
	require.Equal(t, http.StatusOK, rr.Code)

	require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/pool/join", map[string]string{"group_id": "g1", "team": "alpha", "user_id": "u1"}).Code)
	require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/pool/join", map[string]string{"group_id": "g1", "team": "beta", "user_id": "u2"}).Code)

	rr = do(t, server, http.MethodPost, "/groups/tick", map[string]string{"group_id": "g1"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]int{"matches_created": 1}, decodeBody[map[string]int](t, rr))
	require.Len(t, chat.Creates(), 1)

	rr = do(t, server, http.MethodGet, "/matches/active", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	active := decodeBody[[]session.Session](t, rr)
	require.Len(t, active, 1)
	matchID := active[0].MatchID

	rr = do(t, server, http.MethodPost, "/matches/vote", map[string]string{"match_id": matchID, "voting_team": "alpha", "voted_winner": "alpha", "user_id": "u2"})
	assert.Equal(t, http.StatusForbidden, rr.Code, "only the voting team's captain may vote")

	rr = do(t, server, http.MethodPost, "/matches/vote", map[string]string{"match_id": matchID, "voting_team": "gamma", "voted_winner": "alpha", "user_id": "u1"})
	assert.Equal(t, http.StatusForbidden, rr.Code, "a team outside the match cannot vote")
	assert.Contains(t, rr.Body.String(), lifecycle.ErrNotParticipant.Error())

	rr = do(t, server, http.MethodPost, "/matches/vote", map[string]string{"match_id": "match_nope", "voting_team": "alpha", "voted_winner": "alpha", "user_id": "u1"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, server, http.MethodPost, "/matches/vote", map[string]string{"match_id": matchID, "voting_team": "alpha", "voted_winner": "alpha", "user_id": "u1"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, lifecycle.OutcomePending, decodeBody[lifecycle.Result](t, rr).Outcome)

	rr = do(t, server, http.MethodPost, "/matches/vote", map[string]string{"match_id": matchID, "voting_team": "beta", "voted_winner": "alpha", "user_id": "u2"})
	require.Equal(t, http.StatusOK, rr.Code)
	result := decodeBody[lifecycle.Result](t, rr)
	assert.Equal(t, lifecycle.OutcomeSettled, result.Outcome)
	require.NotNil(t, result.Record)
	assert.Equal(t, 16, result.Record.WinnerRatingChange)

	rr = do(t, server, http.MethodGet, "/leaderboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	board := decodeBody[[]league.Standing](t, rr)
	require.Len(t, board, 2)
	assert.Equal(t, "alpha", board[0].Team.Key)
	assert.Equal(t, 1016, board[0].Team.Rating)
	assert.Equal(t, 984, board[1].Team.Rating)

	rr = do(t, server, http.MethodGet, "/history?team=beta&limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]ladder.MatchRecord](t, rr), 1)

	rr = do(t, server, http.MethodPost, "/matches/vote", map[string]string{"match_id": matchID, "voting_team": "beta", "voted_winner": "alpha", "user_id": "u2"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ladder_matches_settled_total 1")

	rr = do(t, server, http.MethodPost, "/groups/close", map[string]string{"group_id": "g1"})
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestManualQueueFlow(t *testing.T) {
	server, chat := setupTestServer(t)
	for _, tc := range []struct{ name, captain string }{{"Alpha", "u1"}, {"Beta", "u2"}} {
		require.Equal(t, http.StatusCreated, do(t, server, http.MethodPost, "/teams", map[string]string{"name": tc.name}).Code)
		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/teams/captain", map[string]string{"team": tc.name, "captain": tc.captain}).Code)
	}

	rr := do(t, server, http.MethodPost, "/queue/join", map[string]string{"group_id": "g1", "team": "alpha", "user_id": "u1"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decodeBody[league.JoinResult](t, rr).Position)

	rr = do(t, server, http.MethodGet, "/teamqueue?group_id=g1&team=alpha", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, league.QueueManual, decodeBody[league.QueuePosition](t, rr).Queue)

	rr = do(t, server, http.MethodPost, "/queue/join", map[string]string{"group_id": "g1", "team": "alpha", "user_id": "u1"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, server, http.MethodPost, "/queue/join", map[string]string{"group_id": "g1", "team": "beta", "user_id": "u2"})
	require.Equal(t, http.StatusOK, rr.Code)
	res := decodeBody[league.JoinResult](t, rr)
	require.NotNil(t, res.Match)
	assert.False(t, res.Match.AutoMatched)
	assert.Len(t, chat.Creates(), 1)

	rr = do(t, server, http.MethodPost, "/queue/leave", map[string]string{"group_id": "g1", "team": "alpha", "user_id": "u1"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMatchEventHandler(t *testing.T) {
	server, chat := setupTestServer(t)

	data, err := msgpack.Marshal(pubsub.MatchEvent{Type: pubsub.EventMatchSettled, MatchID: "match_1", Winner: "alpha"})
	require.NoError(t, err)
	var push pushMessage
	push.Subscription = "projects/p/subscriptions/match-settled"
	push.Message.Data = base64.StdEncoding.EncodeToString(data)

	rr := do(t, server, http.MethodPost, "/events", push)
	assert.Equal(t, http.StatusOK, rr.Code)

	t.Run("auto match redraws the queue status", func(t *testing.T) {
		require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/groups/setup", map[string]string{"group_id": "g1", "queue_channel_id": "queue"}).Code)
		before := len(chat.Statuses())

		data, err := msgpack.Marshal(pubsub.MatchEvent{Type: pubsub.EventMatchCreated, MatchID: "match_2", GroupID: "g1", AutoMatched: true})
		require.NoError(t, err)
		var created pushMessage
		created.Message.Data = base64.StdEncoding.EncodeToString(data)

		rr := do(t, server, http.MethodPost, "/events", created)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, chat.Statuses(), before+1)
	})

	push.Message.Data = "%%%"
	rr = do(t, server, http.MethodPost, "/events", push)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), rateLimitMiddleware(rate.NewLimiter(0, 1)))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}
