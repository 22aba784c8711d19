package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName   string
	Port     string
	Turso    TursoConfig
	Notifier string
	Discord  DiscordConfig
	Slack    SlackConfig
	Sessions SessionConfig
	// ProjectID enables match events on Google Cloud Pub/Sub when set.
	ProjectID         string
	RanksFile         string
	PollInterval      time.Duration
	ChannelCloseDelay time.Duration
	RatingK           float64
	BaseRating        int
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

type DiscordConfig struct {
	Token      string
	GuildID    string
	CategoryID string
}

type SlackConfig struct {
	Token string
}

type SessionConfig struct {
	Store     string
	RedisAddr string
}

const (
	NotifierDiscord = "discord"
	NotifierSlack   = "slack"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)
