package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/ranked-queue/internal/config"
	"github.com/mauv0809/ranked-queue/internal/database"
	server "github.com/mauv0809/ranked-queue/internal/http"
	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/mauv0809/ranked-queue/internal/league"
	"github.com/mauv0809/ranked-queue/internal/lifecycle"
	"github.com/mauv0809/ranked-queue/internal/metrics"
	"github.com/mauv0809/ranked-queue/internal/notifier"
	"github.com/mauv0809/ranked-queue/internal/notifier/discord"
	"github.com/mauv0809/ranked-queue/internal/notifier/slack"
	"github.com/mauv0809/ranked-queue/internal/poller"
	"github.com/mauv0809/ranked-queue/internal/pubsub"
	"github.com/mauv0809/ranked-queue/internal/rating"
	"github.com/mauv0809/ranked-queue/internal/session"
	"github.com/redis/go-redis/v9"
)

// chatClient is what the match flow needs from a chat platform.
type chatClient interface {
	notifier.Notifier
	notifier.ChannelContext
}

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	db, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		db.Close()
	}()

	tiers, err := rating.LoadTiers(cfg.RanksFile)
	if err != nil {
		log.Fatalf("Failed to load rank tiers: %s", err)
	}

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	store := ladder.New(db)
	locker := ladder.NewLocker()
	sessions := newSessionStore(cfg)
	chat := newChatClient(cfg, metricsSvc)
	events := pubsub.New(cfg.ProjectID)
	if closer, ok := events.(interface{ Close() }); ok {
		defer closer.Close()
	}

	manager := lifecycle.New(store, sessions, chat, chat, events, metricsSvc, rating.NewModel(cfg.RatingK), locker, cfg.ChannelCloseDelay)
	poll := poller.New(store, manager, chat, metricsSvc, locker, cfg.PollInterval)
	leagueSvc := league.New(store, locker, manager, poll, chat, tiers, cfg.BaseRating)

	// Resume polling for every group that was enabled before the restart.
	if err := poll.StartAll(context.Background()); err != nil {
		log.Error("Failed to resume polling", "error", err)
	}

	s := server.NewServer(leagueSvc, manager, poll, metricsSvc, metricsHandler, cfg, events)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port, "notifier", cfg.Notifier)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Create a context with a timeout for the shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	poll.Shutdown()
	log.Info("Server process shutting down")
}

func newSessionStore(cfg config.Config) session.Store {
	if cfg.Sessions.Store != config.SessionStoreRedis {
		return session.NewMemoryStore()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Sessions.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to redis at %s: %s", cfg.Sessions.RedisAddr, err)
	}
	log.Info("Using redis session store", "addr", cfg.Sessions.RedisAddr)
	return session.NewRedisStore(client)
}

func newChatClient(cfg config.Config, metricsSvc metrics.Metrics) chatClient {
	if cfg.Notifier == config.NotifierSlack {
		return slack.NewNotifier(cfg.Slack.Token, metricsSvc)
	}
	n, err := discord.NewNotifier(cfg.Discord.Token, cfg.Discord.GuildID, cfg.Discord.CategoryID, metricsSvc)
	if err != nil {
		log.Fatalf("Failed to create discord client: %s", err)
	}
	return n
}
