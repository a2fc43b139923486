package server

import (
	"context"
	"time"

	"quotely/internal/auth"
	"quotely/internal/config"
	"quotely/internal/listing"
	"quotely/internal/models"
	"quotely/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

const testSecret = "test-secret-at-least-32-characters!"

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockQuoteRepository is a mock of the QuoteRepository interface
type MockQuoteRepository struct {
	mock.Mock
}

func (m *MockQuoteRepository) Create(ctx context.Context, quote *models.Quote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *MockQuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

func (m *MockQuoteRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuoteRepository) UpdateOwned(ctx context.Context, id, ownerID uuid.UUID, text string) error {
	args := m.Called(ctx, id, ownerID, text)
	return args.Error(0)
}

func (m *MockQuoteRepository) DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (m *MockQuoteRepository) List(ctx context.Context, plan *listing.Plan) (*models.QuotePage, error) {
	args := m.Called(ctx, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuotePage), args.Error(1)
}

// MockVoteRepository is a mock of the VoteRepository interface
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) Upsert(ctx context.Context, userID, quoteID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, quoteID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVoteRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Vote, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vote), args.Error(1)
}

func (m *MockVoteRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockRepos struct {
	users  *MockUserRepository
	quotes *MockQuoteRepository
	votes  *MockVoteRepository
}

// newMockServer wires the real services over mock repositories, without
// Redis.
func newMockServer() (*Server, mockRepos) {
	repos := mockRepos{
		users:  new(MockUserRepository),
		quotes: new(MockQuoteRepository),
		votes:  new(MockVoteRepository),
	}
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	s := &Server{
		config:       &config.Config{JWTSecret: testSecret},
		tokens:       tokens,
		userRepo:     repos.users,
		quoteRepo:    repos.quotes,
		voteRepo:     repos.votes,
		authService:  service.NewAuthService(repos.users, tokens),
		quoteService: service.NewQuoteService(repos.quotes, nil, time.UTC, 0),
		voteService:  service.NewVoteService(repos.quotes, repos.votes, nil),
		userService:  service.NewUserService(repos.users, repos.votes),
	}
	return s, repos
}

// withIdentity stands in for AuthRequired in handler tests.
func withIdentity(identity auth.Identity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(identityLocal, identity)
		c.Locals("userID", identity.UserID)
		return c.Next()
	}
}
