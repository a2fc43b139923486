// Command seed fills the database with fake users, quotes and votes.
package main

import (
	"flag"
	"log"

	"quotely/internal/config"
	"quotely/internal/database"
	"quotely/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numQuotes := flag.Int("quotes", 200, "Number of quotes to create")
	voteRatio := flag.Float64("vote-ratio", 0.8, "Share of users that cast a vote")
	maxDays := flag.Int("days", 90, "Spread quote creation over this many days")
	fast := flag.Bool("fast", false, "Skip bcrypt; seeded users cannot log in")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Printf("Target: %d users, %d quotes, vote ratio %.2f, clean=%v", *numUsers, *numQuotes, *voteRatio, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	s := seed.NewSeeder(db)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	summary, err := s.Seed(seed.Options{
		NumUsers:    *numUsers,
		NumQuotes:   *numQuotes,
		VoteRatio:   *voteRatio,
		SeedOptions: seed.SeedOptions{SkipBcrypt: *fast, MaxDays: *maxDays},
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d quotes, %d votes", summary.Users, summary.Quotes, summary.Votes)
	if !*fast {
		log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
	}
}
