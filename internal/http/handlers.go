package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/mauv0809/ranked-queue/internal/lifecycle"
	"github.com/mauv0809/ranked-queue/internal/pubsub"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Warn("Invalid request body", "error", err, "url", r.URL.Path)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ladder.ErrTeamNotFound),
		errors.Is(err, ladder.ErrNotQueued),
		errors.Is(err, ladder.ErrQueueNotConfigured),
		errors.Is(err, lifecycle.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ladder.ErrTeamExists),
		errors.Is(err, ladder.ErrAlreadyQueued),
		errors.Is(err, ladder.ErrAlreadyMember),
		errors.Is(err, lifecycle.ErrTeamNotFound):
		return http.StatusConflict
	case errors.Is(err, ladder.ErrNotCaptain),
		errors.Is(err, ladder.ErrNoCaptain),
		errors.Is(err, lifecycle.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ladder.ErrInvalidName),
		errors.Is(err, ladder.ErrNotMember),
		errors.Is(err, ladder.ErrCannotRemoveCaptain),
		errors.Is(err, ladder.ErrConfirmationRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) CreateTeamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req teamRequest
		if !decode(w, r, &req) {
			return
		}
		team, err := s.League.CreateTeam(r.Context(), req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, team)
	}
}

func (s *Server) TeamInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := s.League.TeamInfo(r.Context(), r.URL.Query().Get("team"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func (s *Server) AddMemberHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req memberRequest
		if !decode(w, r, &req) {
			return
		}
		team, err := s.League.AddMember(r.Context(), req.Team, req.UserID, req.Member)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func (s *Server) RemoveMemberHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req memberRequest
		if !decode(w, r, &req) {
			return
		}
		team, err := s.League.RemoveMember(r.Context(), req.Team, req.UserID, req.Member)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func (s *Server) SetCaptainHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req captainRequest
		if !decode(w, r, &req) {
			return
		}
		team, err := s.League.SetCaptain(r.Context(), req.Team, req.Captain)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func (s *Server) SetRatingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ratingRequest
		if !decode(w, r, &req) {
			return
		}
		team, err := s.League.SetRating(r.Context(), req.Team, req.Rating)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func (s *Server) ClearTeamsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmRequest
		if !decode(w, r, &req) {
			return
		}
		removed, err := s.League.ClearTeams(r.Context(), req.Confirm)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	}
}

func (s *Server) ResetSeasonHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archived, err := s.League.ResetSeason(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"archived_matches": archived})
	}
}

func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, err := s.League.Leaderboard(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func (s *Server) RankHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("team")
		if query == "" {
			query = r.URL.Query().Get("user_id")
		}
		info, err := s.League.Rank(r.Context(), query)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func (s *Server) HistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil {
				log.Warn("Invalid 'limit' parameter provided. Using the default.", "limit_param", limitStr)
			} else {
				limit = parsed
			}
		}
		records, err := s.League.History(r.Context(), r.URL.Query().Get("team"), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func (s *Server) TeamQueueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		pos, err := s.League.TeamQueue(r.Context(), q.Get("group_id"), q.Get("team"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pos)
	}
}

func (s *Server) JoinQueueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queueRequest
		if !decode(w, r, &req) {
			return
		}
		res, err := s.League.JoinManualQueue(r.Context(), req.GroupID, req.Team, req.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) LeaveQueueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queueRequest
		if !decode(w, r, &req) {
			return
		}
		if err := s.League.LeaveManualQueue(r.Context(), req.GroupID, req.Team, req.UserID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
	}
}

func (s *Server) JoinPoolHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queueRequest
		if !decode(w, r, &req) {
			return
		}
		size, err := s.League.JoinPool(r.Context(), req.GroupID, req.Team, req.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"pool_size": size})
	}
}

func (s *Server) LeavePoolHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queueRequest
		if !decode(w, r, &req) {
			return
		}
		if err := s.League.LeavePool(r.Context(), req.GroupID, req.Team, req.UserID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
	}
}

func (s *Server) SetupGroupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req groupRequest
		if !decode(w, r, &req) {
			return
		}
		cfg, err := s.League.SetupGroup(r.Context(), req.GroupID, req.QueueChannelID, req.ResultsChannelID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func (s *Server) CloseGroupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req groupRequest
		if !decode(w, r, &req) {
			return
		}
		removed, err := s.League.CloseGroup(r.Context(), req.GroupID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
	}
}

// TickHandler runs one matching pass immediately, outside the poll schedule.
func (s *Server) TickHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req groupRequest
		if !decode(w, r, &req) {
			return
		}
		created, err := s.Poller.Tick(r.Context(), req.GroupID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"matches_created": created})
	}
}

// VoteHandler records a captain's report. The voting team must be in the match and
// the caller must captain it.
func (s *Server) VoteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req voteRequest
		if !decode(w, r, &req) {
			return
		}
		match, err := s.Lifecycle.Session(r.Context(), req.MatchID)
		if err != nil {
			writeError(w, err)
			return
		}
		voting := ladder.TeamKey(req.VotingTeam)
		if !match.IsParticipant(voting) {
			writeError(w, lifecycle.ErrNotParticipant)
			return
		}
		// A team missing from the registry falls back to the captain recorded at match start.
		captain := match.CaptainA
		if voting == match.TeamB {
			captain = match.CaptainB
		}
		team, err := s.League.TeamInfo(r.Context(), voting)
		switch {
		case err == nil:
			captain = team.Captain()
		case !errors.Is(err, ladder.ErrTeamNotFound):
			writeError(w, err)
			return
		}
		if captain == "" || captain != req.UserID {
			writeError(w, ladder.ErrNotCaptain)
			return
		}
		res, err := s.Lifecycle.CastVote(r.Context(), req.Vote)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) ActiveMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, err := s.Lifecycle.Active(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, active)
	}
}

// MatchEventHandler receives match events from a Pub/Sub push subscription. Events are
// logged, and auto-match events redraw the group's queue status.
func (s *Server) MatchEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg pushMessage
		if !decode(w, r, &msg) {
			return
		}
		rawData, err := base64.StdEncoding.DecodeString(msg.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}
		var event pubsub.MatchEvent
		if err := s.pubsub.ProcessMessage(rawData, &event); err != nil {
			http.Error(w, "Invalid event payload", http.StatusBadRequest)
			return
		}
		log.Info("Received match event", "subscription", msg.Subscription, "type", event.Type, "matchID", event.MatchID, "group", event.GroupID, "winner", event.Winner)
		// Auto matches created by any instance shrink the pool, so the display is redrawn here.
		if event.Type == pubsub.EventMatchCreated && event.AutoMatched && event.GroupID != "" {
			if err := s.Poller.RefreshStatus(r.Context(), event.GroupID); err != nil {
				log.Warn("Failed to refresh queue status", "error", err, "group", event.GroupID)
			}
		}
		w.Write([]byte("OK"))
	}
}
