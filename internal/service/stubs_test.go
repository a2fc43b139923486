package service

import (
	"context"

	"quotely/internal/listing"
	"quotely/internal/models"

	"github.com/google/uuid"
)

// quoteRepoStub is a stub for repository.QuoteRepository.
type quoteRepoStub struct {
	createFn      func(context.Context, *models.Quote) error
	getByIDFn     func(context.Context, uuid.UUID) (*models.Quote, error)
	existsFn      func(context.Context, uuid.UUID) (bool, error)
	updateOwnedFn func(context.Context, uuid.UUID, uuid.UUID, string) error
	deleteOwnedFn func(context.Context, uuid.UUID, uuid.UUID) error
	listFn        func(context.Context, *listing.Plan) (*models.QuotePage, error)
}

func (s *quoteRepoStub) Create(ctx context.Context, quote *models.Quote) error {
	return s.createFn(ctx, quote)
}
func (s *quoteRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	return s.getByIDFn(ctx, id)
}
func (s *quoteRepoStub) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *quoteRepoStub) UpdateOwned(ctx context.Context, id, ownerID uuid.UUID, text string) error {
	return s.updateOwnedFn(ctx, id, ownerID, text)
}
func (s *quoteRepoStub) DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) error {
	return s.deleteOwnedFn(ctx, id, ownerID)
}
func (s *quoteRepoStub) List(ctx context.Context, plan *listing.Plan) (*models.QuotePage, error) {
	return s.listFn(ctx, plan)
}

func noopQuoteRepo() *quoteRepoStub {
	return &quoteRepoStub{
		createFn: func(_ context.Context, q *models.Quote) error {
			q.ID = uuid.New()
			return nil
		},
		getByIDFn: func(_ context.Context, id uuid.UUID) (*models.Quote, error) {
			return &models.Quote{ID: id}, nil
		},
		existsFn:      func(_ context.Context, _ uuid.UUID) (bool, error) { return true, nil },
		updateOwnedFn: func(_ context.Context, _, _ uuid.UUID, _ string) error { return nil },
		deleteOwnedFn: func(_ context.Context, _, _ uuid.UUID) error { return nil },
		listFn: func(_ context.Context, plan *listing.Plan) (*models.QuotePage, error) {
			return &models.QuotePage{Page: plan.PageNumber(), Limit: plan.Limit(), Data: []*models.Quote{}}, nil
		},
	}
}

// voteRepoStub is a stub for repository.VoteRepository.
type voteRepoStub struct {
	upsertFn       func(context.Context, uuid.UUID, uuid.UUID) (int64, error)
	getByUserFn    func(context.Context, uuid.UUID) (*models.Vote, error)
	deleteByUserFn func(context.Context, uuid.UUID) error
}

func (s *voteRepoStub) Upsert(ctx context.Context, userID, quoteID uuid.UUID) (int64, error) {
	return s.upsertFn(ctx, userID, quoteID)
}
func (s *voteRepoStub) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Vote, error) {
	return s.getByUserFn(ctx, userID)
}
func (s *voteRepoStub) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return s.deleteByUserFn(ctx, userID)
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn        func(context.Context, *models.User) error
	getByIDFn       func(context.Context, uuid.UUID) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
