package seed

import (
	"fmt"

	"quotely/internal/middleware"
	"quotely/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers  int
	NumQuotes int
	// VoteRatio is the share of users, between 0 and 1, that cast a vote.
	VoteRatio float64
	SeedOptions
}

// Summary counts what a seeding run wrote.
type Summary struct {
	Users  int
	Quotes int
	Votes  int
}

// Seeder populates the database with fake users, quotes and votes.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll deletes every vote, quote and user.
func (s *Seeder) ClearAll() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Vote{}, &models.Quote{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Seed creates opts.NumUsers users and opts.NumQuotes quotes spread over
// them, then lets a share of the users vote. Votes skew toward the first
// quotes so vote-count sorting has something to show.
func (s *Seeder) Seed(opts Options) (*Summary, error) {
	if opts.NumUsers <= 0 {
		return nil, fmt.Errorf("at least one user is required")
	}
	f := NewFactory(s.db, opts.SeedOptions)
	summary := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	middleware.Logger.Info("seeded users", "count", summary.Users)

	quotes := make([]*models.Quote, 0, opts.NumQuotes)
	for i := 0; i < opts.NumQuotes; i++ {
		quotes = append(quotes, f.BuildQuote(users[i%len(users)]))
	}
	if err := f.CreateQuotesBatch(quotes); err != nil {
		return nil, fmt.Errorf("failed to create quotes: %w", err)
	}
	summary.Quotes = len(quotes)
	middleware.Logger.Info("seeded quotes", "count", summary.Quotes)

	if len(quotes) == 0 || opts.VoteRatio <= 0 {
		return summary, nil
	}

	voters := int(float64(len(users)) * opts.VoteRatio)
	if voters > len(users) {
		voters = len(users)
	}
	for _, voter := range users[:voters] {
		// Square the draw to favour low indexes.
		r := f.rng.Float64()
		quote := quotes[int(r*r*float64(len(quotes)))]
		written, err := f.CastVote(voter, quote)
		if err != nil {
			return nil, fmt.Errorf("failed to cast vote: %w", err)
		}
		if written {
			summary.Votes++
		}
	}
	middleware.Logger.Info("seeded votes", "count", summary.Votes)

	return summary, nil
}
