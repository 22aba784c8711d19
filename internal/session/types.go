package session

import (
	"maps"
	"time"
)

// Status is the lifecycle state of a match session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Session is the transient state of one in-progress match's result confirmation.
// Votes maps a voting team key to the team key it named as winner.
type Session struct {
	MatchID       string            `json:"match_id" msgpack:"match_id"`
	GroupID       string            `json:"group_id" msgpack:"group_id"`
	TeamA         string            `json:"team_a" msgpack:"team_a"`
	TeamB         string            `json:"team_b" msgpack:"team_b"`
	CaptainA      string            `json:"captain_a" msgpack:"captain_a"`
	CaptainB      string            `json:"captain_b" msgpack:"captain_b"`
	ChannelID     string            `json:"channel_id" msgpack:"channel_id"`
	Status        Status            `json:"status" msgpack:"status"`
	Votes         map[string]string `json:"votes" msgpack:"votes"`
	DisputeRounds int               `json:"dispute_rounds" msgpack:"dispute_rounds"`
	AutoMatched   bool              `json:"auto_matched" msgpack:"auto_matched"`
	CreatedAt     time.Time         `json:"created_at" msgpack:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty" msgpack:"completed_at,omitempty"`
}

// IsParticipant reports whether teamKey is one of the two sides.
func (s *Session) IsParticipant(teamKey string) bool {
	return teamKey == s.TeamA || teamKey == s.TeamB
}

// Opponent returns the other side's key.
func (s *Session) Opponent(teamKey string) string {
	if teamKey == s.TeamA {
		return s.TeamB
	}
	return s.TeamA
}

// Agreement returns the winner when both sides have voted for the same participant.
func (s *Session) Agreement() (string, bool) {
	a, okA := s.Votes[s.TeamA]
	b, okB := s.Votes[s.TeamB]
	if !okA || !okB || a != b || !s.IsParticipant(a) {
		return "", false
	}
	return a, true
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	s.Votes = maps.Clone(s.Votes)
	if s.Votes == nil {
		s.Votes = map[string]string{}
	}
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		s.CompletedAt = &at
	}
	return s
}
