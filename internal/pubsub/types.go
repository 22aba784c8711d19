package pubsub

import (
	"time"

	"cloud.google.com/go/pubsub"
)

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub.
type EventType string

const (
	EventMatchCreated   EventType = "match-created"
	EventMatchSettled   EventType = "match-settled"
	EventMatchAbandoned EventType = "match-abandoned"
)

// MatchEvent is the payload of every match event.
type MatchEvent struct {
	Type               EventType `msgpack:"type" json:"type"`
	MatchID            string    `msgpack:"match_id" json:"match_id"`
	GroupID            string    `msgpack:"group_id" json:"group_id"`
	TeamA              string    `msgpack:"team_a" json:"team_a"`
	TeamB              string    `msgpack:"team_b" json:"team_b"`
	AutoMatched        bool      `msgpack:"auto_matched" json:"auto_matched"`
	Winner             string    `msgpack:"winner,omitempty" json:"winner,omitempty"`
	WinnerRatingChange int       `msgpack:"winner_rating_change,omitempty" json:"winner_rating_change,omitempty"`
	LoserRatingChange  int       `msgpack:"loser_rating_change,omitempty" json:"loser_rating_change,omitempty"`
	Reason             string    `msgpack:"reason,omitempty" json:"reason,omitempty"`
	OccurredAt         time.Time `msgpack:"occurred_at" json:"occurred_at"`
}
