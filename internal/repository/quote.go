package repository

import (
	"context"
	"time"

	"quotely/internal/listing"
	"quotely/internal/models"
	"quotely/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuoteRepository defines persistence operations for quotes.
type QuoteRepository interface {
	Create(ctx context.Context, quote *models.Quote) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateOwned(ctx context.Context, id, ownerID uuid.UUID, text string) error
	DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) error
	List(ctx context.Context, plan *listing.Plan) (*models.QuotePage, error)
}

type quoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

// quoteRow is the flat shape every quote read scans into.
type quoteRow struct {
	ID        uuid.UUID
	Text      string
	UserID    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Username  string
	VoteCount int64
}

func (r quoteRow) toModel() *models.Quote {
	return &models.Quote{
		ID:        r.ID,
		Text:      r.Text,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Author:    &models.Author{ID: r.UserID, Username: r.Username},
		VoteCount: r.VoteCount,
	}
}

const quoteColumns = "quotes.id, quotes.text, quotes.user_id, quotes.created_at, quotes.updated_at, users.username AS username"

// plainQuotes selects quotes with their author and a correlated vote count.
func plainQuotes(db *gorm.DB) *gorm.DB {
	return db.Table("quotes").
		Select(quoteColumns + ", (SELECT COUNT(*) FROM votes WHERE votes.quote_id = quotes.id) AS vote_count").
		Joins("JOIN users ON users.id = quotes.user_id")
}

func (r *quoteRepository) Create(ctx context.Context, quote *models.Quote) error {
	if err := r.db.WithContext(ctx).Create(quote).Error; err != nil {
		if isForeignKeyError(err) {
			return models.NewNotFoundError("User", quote.UserID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID reads from the primary so a quote is visible right after a write.
func (r *quoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var rows []quoteRow
	if err := plainQuotes(r.db.WithContext(ctx)).
		Where("quotes.id = ?", id).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(rows) == 0 {
		return nil, models.NewNotFoundError("Quote", id)
	}
	return rows[0].toModel(), nil
}

func (r *quoteRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Quote{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// UpdateOwned rewrites the text of a quote owned by ownerID. A missing quote
// and a quote owned by someone else both yield NOT_FOUND.
func (r *quoteRepository) UpdateOwned(ctx context.Context, id, ownerID uuid.UUID, text string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(map[string]interface{}{"text": text, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Quote", id)
	}
	return nil
}

// DeleteOwned removes a quote owned by ownerID; its votes cascade.
func (r *quoteRepository) DeleteOwned(ctx context.Context, id, ownerID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.Quote{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Quote", id)
	}
	return nil
}

// List runs plan against the store. The page and the total are computed
// from the same predicates, so total always counts the rows pages draw from.
func (r *quoteRepository) List(ctx context.Context, plan *listing.Plan) (*models.QuotePage, error) {
	defer observability.TrackQuery("list", "quotes")()

	db := readDB(r.db).WithContext(ctx)

	var (
		rows  []quoteRow
		total int64
		err   error
	)
	if plan.Grouped() {
		rows, total, err = r.listGrouped(db, plan)
	} else {
		rows, total, err = r.listPlain(db, plan)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	page := &models.QuotePage{
		Page:  plan.PageNumber(),
		Limit: plan.Limit(),
		Total: total,
		Data:  make([]*models.Quote, 0, len(rows)),
	}
	for _, row := range rows {
		page.Data = append(page.Data, row.toModel())
	}
	return page, nil
}

func (r *quoteRepository) listPlain(db *gorm.DB, plan *listing.Plan) ([]quoteRow, int64, error) {
	var total int64
	if err := db.Model(&models.Quote{}).Scopes(plan.Filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []quoteRow
	if err := plainQuotes(db).
		Scopes(plan.Filters, plan.Order, plan.Paginate).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *quoteRepository) listGrouped(db *gorm.DB, plan *listing.Plan) ([]quoteRow, int64, error) {
	matching := db.Table("quotes").
		Select("quotes.id").
		Joins("LEFT JOIN votes ON votes.quote_id = quotes.id").
		Scopes(plan.Filters).
		Group("quotes.id").
		Scopes(plan.Having)

	var total int64
	if err := db.Table("(?) AS matching", matching).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []quoteRow
	if err := db.Table("quotes").
		Select(quoteColumns+", COUNT(votes.id) AS vote_count").
		Joins("JOIN users ON users.id = quotes.user_id").
		Joins("LEFT JOIN votes ON votes.quote_id = quotes.id").
		Scopes(plan.Filters).
		Group("quotes.id").
		Group("users.id").
		Group("users.username").
		Scopes(plan.Having, plan.Order, plan.Paginate).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
