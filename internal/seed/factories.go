// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"
	"unicode/utf8"

	"quotely/internal/models"
	"quotely/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password every seeded user logs in with.
const DefaultPassword = "password123"

// SeedOptions tunes how the factory builds rows.
type SeedOptions struct {
	// SkipBcrypt stores a cheap hash so large seeds finish quickly.
	// Seeded users cannot log in when it is set.
	SkipBcrypt bool
	// MaxDays spreads quote creation times over the last MaxDays days.
	MaxDays int
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts SeedOptions
	rng  *rand.Rand
	hash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts SeedOptions) *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed))}
}

func (f *Factory) passwordHash() (string, error) {
	if f.opts.SkipBcrypt {
		return "seeded", nil
	}
	if f.hash == "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		f.hash = string(hashed)
	}
	return f.hash, nil
}

// CreateUser constructs and persists a user with a unique fake handle.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(1000, 9999)),
		PasswordHash: hash,
	}
	if n := utf8.RuneCountInString(user.Username); n > validation.MaxUsernameLength {
		user.Username = string([]rune(user.Username)[n-validation.MaxUsernameLength:])
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildQuote constructs a quote for owner without persisting it. The
// creation time is spread over the configured window.
func (f *Factory) BuildQuote(owner *models.User, overrides ...func(*models.Quote)) *models.Quote {
	text := gofakeit.Quote()
	if utf8.RuneCountInString(text) > validation.MaxQuoteTextLength {
		text = string([]rune(text)[:validation.MaxQuoteTextLength])
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24*60))*time.Minute
	created := time.Now().UTC().Add(-back)

	quote := &models.Quote{
		Text:      text,
		UserID:    owner.ID,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, override := range overrides {
		override(quote)
	}
	return quote
}

// CreateQuotesBatch persists multiple quotes in a single DB call.
func (f *Factory) CreateQuotesBatch(quotes []*models.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	return f.db.CreateInBatches(quotes, 100).Error
}

// CastVote records voter's vote for quote unless the voter already has one.
// It reports whether a row was written.
func (f *Factory) CastVote(voter *models.User, quote *models.Quote) (bool, error) {
	vote := &models.Vote{UserID: voter.ID, QuoteID: quote.ID}
	result := f.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(vote)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
