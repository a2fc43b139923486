package service

import (
	"context"
	"log/slog"
	"time"

	"quotely/internal/cache"
	"quotely/internal/listing"
	"quotely/internal/middleware"
	"quotely/internal/models"
	"quotely/internal/observability"
	"quotely/internal/repository"
	"quotely/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// QuoteService owns quote writes and the cached public listing.
type QuoteService struct {
	quoteRepo repository.QuoteRepository
	rdb       *redis.Client
	loc       *time.Location
	listTTL   time.Duration
}

type CreateQuoteInput struct {
	OwnerID uuid.UUID
	Text    string
}

type UpdateQuoteInput struct {
	OwnerID uuid.UUID
	QuoteID uuid.UUID
	Text    string
}

type DeleteQuoteInput struct {
	OwnerID uuid.UUID
	QuoteID uuid.UUID
}

// NewQuoteService builds the service. loc is the reference timezone for
// date filters; a nil rdb or zero listTTL disables list caching.
func NewQuoteService(quoteRepo repository.QuoteRepository, rdb *redis.Client, loc *time.Location, listTTL time.Duration) *QuoteService {
	if loc == nil {
		loc = time.UTC
	}
	return &QuoteService{
		quoteRepo: quoteRepo,
		rdb:       rdb,
		loc:       loc,
		listTTL:   listTTL,
	}
}

func (s *QuoteService) CreateQuote(ctx context.Context, in CreateQuoteInput) (*models.Quote, error) {
	text, err := validation.NormalizeQuoteText(in.Text)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	quote := &models.Quote{Text: text, UserID: in.OwnerID}
	if err := s.quoteRepo.Create(ctx, quote); err != nil {
		return nil, err
	}
	s.invalidateLists(ctx)

	return s.quoteRepo.GetByID(ctx, quote.ID)
}

// UpdateQuote rewrites the text of a quote the caller owns.
func (s *QuoteService) UpdateQuote(ctx context.Context, in UpdateQuoteInput) (*models.Quote, error) {
	text, err := validation.NormalizeQuoteText(in.Text)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if err := s.quoteRepo.UpdateOwned(ctx, in.QuoteID, in.OwnerID, text); err != nil {
		return nil, err
	}
	s.invalidateLists(ctx)

	return s.quoteRepo.GetByID(ctx, in.QuoteID)
}

// DeleteQuote removes a quote the caller owns, together with its votes.
func (s *QuoteService) DeleteQuote(ctx context.Context, in DeleteQuoteInput) error {
	if err := s.quoteRepo.DeleteOwned(ctx, in.QuoteID, in.OwnerID); err != nil {
		return err
	}
	s.invalidateLists(ctx)
	return nil
}

// ListQuotes validates criteria and returns the matching page. Pages are
// cached under the current list generation when caching is enabled.
func (s *QuoteService) ListQuotes(ctx context.Context, criteria listing.Criteria) (*models.QuotePage, error) {
	plan, err := listing.NewPlan(criteria, s.loc)
	if err != nil {
		return nil, err
	}

	span, ctx := observability.NewSpan(ctx, "quotes.list",
		attribute.String("quotes.plan", plan.PathName()),
		attribute.Int("quotes.page", plan.PageNumber()),
	)
	defer span.End()

	fetch := func(dest *models.QuotePage) error {
		page, err := s.quoteRepo.List(ctx, plan)
		if err != nil {
			return err
		}
		*dest = *page
		return nil
	}

	var page models.QuotePage
	if s.rdb == nil || s.listTTL <= 0 {
		if err := fetch(&page); err != nil {
			span.SetError(err)
			return nil, err
		}
		observability.QuoteListQueries.WithLabelValues(plan.PathName(), "bypass").Inc()
		return &page, nil
	}

	key, err := cache.QuoteListKey(ctx, s.rdb, plan.Key())
	if err != nil {
		middleware.Logger.WarnContext(ctx, "quote list cache unavailable", slog.String("error", err.Error()))
		if err := fetch(&page); err != nil {
			span.SetError(err)
			return nil, err
		}
		observability.QuoteListQueries.WithLabelValues(plan.PathName(), "bypass").Inc()
		return &page, nil
	}

	hit, err := cache.Aside(ctx, s.rdb, key, &page, s.listTTL, func() error {
		return fetch(&page)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	span.AddAttributes(attribute.String("cache", result))
	observability.QuoteListQueries.WithLabelValues(plan.PathName(), result).Inc()

	if page.Data == nil {
		page.Data = []*models.Quote{}
	}
	return &page, nil
}

func (s *QuoteService) invalidateLists(ctx context.Context) {
	if err := cache.InvalidateQuoteLists(ctx, s.rdb); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to invalidate quote lists", slog.String("error", err.Error()))
	}
}
