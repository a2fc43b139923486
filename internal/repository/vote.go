package repository

import (
	"context"
	"errors"

	"quotely/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepository defines persistence operations for votes.
type VoteRepository interface {
	Upsert(ctx context.Context, userID, quoteID uuid.UUID) (int64, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Vote, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// Upsert inserts the user's vote or, when one exists, points it at quoteID,
// in a single statement keyed on the unique user_id. It returns the number
// of rows the statement wrote.
func (r *voteRepository) Upsert(ctx context.Context, userID, quoteID uuid.UUID) (int64, error) {
	vote := &models.Vote{UserID: userID, QuoteID: quoteID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quote_id"}),
	}).Create(vote)
	if res.Error != nil {
		if isForeignKeyError(res.Error) {
			return 0, models.NewNotFoundError("Quote", quoteID)
		}
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// GetByUser returns the user's vote with voter and quote loaded, or nil, nil
// when the user has not voted.
func (r *voteRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Vote, error) {
	var vote models.Vote
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Quote").
		Where("user_id = ?", userID).
		First(&vote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &vote, nil
}

// DeleteByUser removes the user's vote in one statement.
func (r *voteRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Vote{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Vote not found")
	}
	return nil
}
