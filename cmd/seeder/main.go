package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mauv0809/ranked-queue/internal/database"
	"github.com/mauv0809/ranked-queue/internal/ladder"
	"github.com/mauv0809/ranked-queue/internal/rating"
)

const (
	numTeams   = 24
	numMatches = 500
	teamSize   = 4
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{"DB_NAME": "ladder.db"}
	for _, key := range []string{"DB_NAME", "TURSO_PRIMARY_URL", "TURSO_AUTH_TOKEN"} {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	return config
}

func main() {
	log.Info("Starting ladder seeder...")
	cfg := loadConfig()
	ctx := context.Background()

	db, err := database.InitDB(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"])
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	defer db.Close()
	store := ladder.New(db)

	faker := gofakeit.New(uint64(time.Now().UnixNano()))
	teams := generateTeams(faker)
	if err := store.SaveTeams(ctx, teams); err != nil {
		log.Fatalf("Failed to save teams: %s", err)
	}
	log.Info("Seeded teams", "count", len(teams))

	keys := make([]string, 0, len(teams))
	for k := range teams {
		keys = append(keys, k)
	}

	model := rating.NewModel(rating.DefaultK)
	startTime := time.Now()
	playedAt := startTime.Add(-numMatches * time.Hour)
	for i := 0; i < numMatches; i++ {
		a := keys[faker.Number(0, len(keys)-1)]
		b := keys[faker.Number(0, len(keys)-1)]
		if a == b {
			continue
		}
		winner, loser := teams[a], teams[b]
		if faker.Bool() {
			winner, loser = loser, winner
		}
		winnerChange, loserChange := model.Apply(&winner.Rating, &loser.Rating)
		winner.Wins++
		loser.Losses++
		teams[winner.Key], teams[loser.Key] = winner, loser

		playedAt = playedAt.Add(time.Hour)
		record := ladder.MatchRecord{
			ID:                 "match_" + uuid.NewString(),
			Team1:              a,
			Team2:              b,
			Winner:             winner.Key,
			WinnerRatingChange: winnerChange,
			LoserRatingChange:  loserChange,
			CompletedAt:        playedAt,
		}
		if err := store.RecordSettlement(ctx, []ladder.Team{winner, loser}, record); err != nil {
			log.Fatalf("Failed to record match %d: %s", i, err)
		}
		if (i+1)%100 == 0 {
			log.Info("Recorded matches", "completed", i+1, "total", numMatches)
		}
	}

	log.Info("Successfully seeded the ladder.", "duration", time.Since(startTime))
}

func generateTeams(faker *gofakeit.Faker) map[string]ladder.Team {
	teams := make(map[string]ladder.Team, numTeams)
	for len(teams) < numTeams {
		name := fmt.Sprintf("%s %s", faker.AdjectiveDescriptive(), faker.Animal())
		key := ladder.TeamKey(name)
		if _, ok := teams[key]; ok {
			continue
		}
		members := make([]string, teamSize)
		for i := range members {
			members[i] = faker.Numerify("##################")
		}
		captain := members[0]
		teams[key] = ladder.Team{
			Key:       key,
			Name:      name,
			CaptainID: &captain,
			Members:   members,
			Rating:    1000,
			CreatedAt: faker.PastDate(),
		}
	}
	return teams
}
