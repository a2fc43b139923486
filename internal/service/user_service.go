package service

import (
	"context"

	"quotely/internal/models"
	"quotely/internal/repository"

	"github.com/google/uuid"
)

type UserService struct {
	userRepo repository.UserRepository
	voteRepo repository.VoteRepository
}

func NewUserService(userRepo repository.UserRepository, voteRepo repository.VoteRepository) *UserService {
	return &UserService{userRepo: userRepo, voteRepo: voteRepo}
}

// Profile returns the caller's account and current vote, if any.
func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}

	vote, err := s.voteRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if vote != nil {
		profile.Vote = &models.ProfileVote{
			ID:        vote.ID,
			CreatedAt: vote.CreatedAt,
			Quote:     models.QuoteRef{ID: vote.QuoteID},
		}
	}
	return profile, nil
}
