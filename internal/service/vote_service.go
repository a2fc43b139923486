package service

import (
	"context"
	"log/slog"

	"quotely/internal/cache"
	"quotely/internal/middleware"
	"quotely/internal/models"
	"quotely/internal/observability"
	"quotely/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// VoteService enforces one vote per user. A repeat cast moves the existing
// vote instead of adding a second one.
type VoteService struct {
	quoteRepo repository.QuoteRepository
	voteRepo  repository.VoteRepository
	rdb       *redis.Client
}

func NewVoteService(quoteRepo repository.QuoteRepository, voteRepo repository.VoteRepository, rdb *redis.Client) *VoteService {
	return &VoteService{
		quoteRepo: quoteRepo,
		voteRepo:  voteRepo,
		rdb:       rdb,
	}
}

// CastVote points voterID's single vote at quoteID, creating it if needed.
// The write is one upsert keyed on the voter; the row is then re-read and
// must reference quoteID.
func (s *VoteService) CastVote(ctx context.Context, voterID, quoteID uuid.UUID) (*models.Vote, error) {
	span, ctx := observability.NewSpan(ctx, "votes.cast",
		attribute.String("vote.quote_id", quoteID.String()),
	)
	defer span.End()

	vote, err := s.castVote(ctx, voterID, quoteID)
	if err != nil {
		span.SetError(err)
		observability.VotesTotal.WithLabelValues(voteOutcome(err)).Inc()
		return nil, err
	}

	observability.VotesTotal.WithLabelValues(observability.VoteCast).Inc()
	s.invalidateLists(ctx)
	return vote, nil
}

func (s *VoteService) castVote(ctx context.Context, voterID, quoteID uuid.UUID) (*models.Vote, error) {
	if quoteID == uuid.Nil {
		return nil, models.NewValidationError("quoteId must be a valid UUID")
	}

	exists, err := s.quoteRepo.Exists(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Quote", quoteID)
	}

	affected, err := s.voteRepo.Upsert(ctx, voterID, quoteID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, models.NewConflictError("Vote was neither created nor updated")
	}

	vote, err := s.voteRepo.GetByUser(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if vote == nil || vote.QuoteID != quoteID {
		return nil, models.NewConflictError("Vote changed concurrently")
	}
	return vote, nil
}

// RetractVote deletes voterID's vote. Retracting without a vote is NOT_FOUND.
func (s *VoteService) RetractVote(ctx context.Context, voterID uuid.UUID) error {
	span, ctx := observability.NewSpan(ctx, "votes.retract")
	defer span.End()

	if err := s.voteRepo.DeleteByUser(ctx, voterID); err != nil {
		span.SetError(err)
		observability.VotesTotal.WithLabelValues(voteOutcome(err)).Inc()
		return err
	}

	observability.VotesTotal.WithLabelValues(observability.VoteRetracted).Inc()
	s.invalidateLists(ctx)
	return nil
}

func voteOutcome(err error) string {
	switch {
	case models.HasCode(err, models.CodeNotFound):
		return observability.VoteNotFound
	case models.HasCode(err, models.CodeConflict):
		return observability.VoteConflict
	default:
		return observability.VoteFailed
	}
}

func (s *VoteService) invalidateLists(ctx context.Context) {
	if err := cache.InvalidateQuoteLists(ctx, s.rdb); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to invalidate quote lists", slog.String("error", err.Error()))
	}
}
