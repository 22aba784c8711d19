package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}
	cfg, err := load(os.LookupEnv)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	return cfg
}

type lookupFunc func(key string) (string, bool)

func load(lookup lookupFunc) (Config, error) {
	var missing []string
	getEnv := func(key string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		missing = append(missing, key)
		return ""
	}
	optional := func(key, def string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		return def
	}

	cfg := Config{
		DBName: getEnv("DB_NAME"),
		Port:   getEnv("PORT"),
		Turso: TursoConfig{
			PrimaryURL: optional("TURSO_PRIMARY_URL", ""),
			AuthToken:  optional("TURSO_AUTH_TOKEN", ""),
		},
		Notifier: optional("NOTIFIER", NotifierDiscord),
		Sessions: SessionConfig{
			Store:     optional("SESSION_STORE", SessionStoreMemory),
			RedisAddr: optional("REDIS_ADDR", "localhost:6379"),
		},
		ProjectID: optional("GCP_PROJECT", ""),
		RanksFile: optional("RANKS_FILE", ""),
	}

	switch cfg.Notifier {
	case NotifierDiscord:
		cfg.Discord = DiscordConfig{
			Token:      getEnv("DISCORD_BOT_TOKEN"),
			GuildID:    getEnv("DISCORD_GUILD_ID"),
			CategoryID: optional("DISCORD_CATEGORY_ID", ""),
		}
	case NotifierSlack:
		cfg.Slack = SlackConfig{Token: getEnv("SLACK_BOT_TOKEN")}
	default:
		return Config{}, fmt.Errorf("unknown NOTIFIER %q", cfg.Notifier)
	}
	if cfg.Sessions.Store != SessionStoreMemory && cfg.Sessions.Store != SessionStoreRedis {
		return Config{}, fmt.Errorf("unknown SESSION_STORE %q", cfg.Sessions.Store)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	var err error
	if cfg.PollInterval, err = time.ParseDuration(optional("POLL_INTERVAL", "3s")); err != nil {
		return Config{}, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	if cfg.ChannelCloseDelay, err = time.ParseDuration(optional("CHANNEL_CLOSE_DELAY", "60s")); err != nil {
		return Config{}, fmt.Errorf("invalid CHANNEL_CLOSE_DELAY: %w", err)
	}
	if cfg.RatingK, err = strconv.ParseFloat(optional("RATING_K", "32"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid RATING_K: %w", err)
	}
	if cfg.BaseRating, err = strconv.Atoi(optional("BASE_RATING", "1000")); err != nil {
		return Config{}, fmt.Errorf("invalid BASE_RATING: %w", err)
	}
	return cfg, nil
}
