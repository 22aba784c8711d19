package ladder

import (
	"slices"
	"strings"
	"time"
)

// Team is a registered competitor. Key is the lower-cased name and is used for every lookup.
type Team struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	CaptainID *string   `json:"captain_id,omitempty"`
	Members   []string  `json:"members"`
	Rating    int       `json:"rating"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamKey normalises a team name into its registry key.
func TeamKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsCaptain reports whether userID captains the team.
func (t Team) IsCaptain(userID string) bool {
	return t.CaptainID != nil && *t.CaptainID == userID
}

// HasMember reports whether userID is on the roster. The captain always counts as a member.
func (t Team) HasMember(userID string) bool {
	return t.IsCaptain(userID) || slices.Contains(t.Members, userID)
}

// Captain returns the captain id or an empty string.
func (t Team) Captain() string {
	if t.CaptainID == nil {
		return ""
	}
	return *t.CaptainID
}

// TeamNames maps each team key to its display name.
func TeamNames(teams map[string]Team) map[string]string {
	names := make(map[string]string, len(teams))
	for k, t := range teams {
		names[k] = t.Name
	}
	return names
}

// DisplayName returns the team's name from names, or the key when it is unknown.
func DisplayName(key string, names map[string]string) string {
	if n, ok := names[key]; ok && n != "" {
		return n
	}
	return key
}

// QueueEntry is a team waiting in a group's manual queue.
type QueueEntry struct {
	TeamKey   string    `json:"team_key"`
	CaptainID string    `json:"captain_id"`
	Rating    int       `json:"rating"`
	AddedAt   time.Time `json:"added_at"`
}

// AutoQueueEntry is a team waiting in a group's automatic pool.
type AutoQueueEntry struct {
	TeamKey   string    `json:"team_key"`
	CaptainID string    `json:"captain_id"`
	Rating    int       `json:"rating"`
	AddedAt   time.Time `json:"added_at"`
}

// WaitTime is derived from AddedAt and never persisted.
func (e AutoQueueEntry) WaitTime(now time.Time) time.Duration {
	if now.Before(e.AddedAt) {
		return 0
	}
	return now.Sub(e.AddedAt)
}

// QueueConfig governs polling and publishing for a group.
type QueueConfig struct {
	GroupID          string    `json:"group_id"`
	Enabled          bool      `json:"enabled"`
	QueueChannelID   string    `json:"queue_channel_id"`
	ResultsChannelID string    `json:"results_channel_id,omitempty"`
	StatusMessageID  string    `json:"status_message_id,omitempty"`
	StartedAt        time.Time `json:"started_at"`
}

// MatchRecord is the durable, append-only outcome of a settled match.
type MatchRecord struct {
	ID                 string    `json:"id"`
	Team1              string    `json:"team1"`
	Team2              string    `json:"team2"`
	Winner             string    `json:"winner"`
	WinnerRatingChange int       `json:"winner_rating_change"`
	LoserRatingChange  int       `json:"loser_rating_change"`
	CompletedAt        time.Time `json:"completed_at"`
}

// Loser returns the key of the team that did not win.
func (r MatchRecord) Loser() string {
	if r.Winner == r.Team1 {
		return r.Team2
	}
	return r.Team1
}

// MatchStartStatus is the state of a manual-queue match start record.
type MatchStartStatus string

const (
	MatchStartActive    MatchStartStatus = "ACTIVE"
	MatchStartCompleted MatchStartStatus = "COMPLETED"
)

// MatchStart is the durable record written when a manual-queue match begins.
type MatchStart struct {
	ID          string           `json:"id"`
	GroupID     string           `json:"group_id"`
	Team1       string           `json:"team1"`
	Team2       string           `json:"team2"`
	ChannelID   string           `json:"channel_id"`
	Status      MatchStartStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}
