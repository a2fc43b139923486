// Package listing turns quote list criteria into a validated query plan.
//
// A Plan is a value object: it owns every predicate, the ordering and the
// window of a listing and exposes them as GORM scopes. The page query and
// the total-count query are both built from the same scopes, so a filter
// can never apply to one and not the other.
//
// Two execution paths exist. The plain path reads the vote count through a
// correlated subquery. The grouped path joins votes, groups by quote and
// filters on COUNT(votes.id) with HAVING; it is required whenever a vote
// bound or a vote-count sort is present.
package listing

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quotely/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SortField names a sortable quote attribute.
type SortField string

const (
	SortByID        SortField = "id"
	SortByText      SortField = "text"
	SortByCreatedAt SortField = "createdAt"
	SortByVoteCount SortField = "voteCount"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 50
)

// Filter holds the optional, ANDed list predicates. CreatedFrom and
// CreatedTo carry a calendar day; only their year, month and day are used.
type Filter struct {
	ID          *uuid.UUID
	OwnerID     *uuid.UUID
	Text        string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	MinVotes    *int64
	MaxVotes    *int64
}

// Sort selects the primary ordering key.
type Sort struct {
	Field     SortField
	Direction Direction
}

// Page is a 1-based window. A zero Number means the whole ordered set.
type Page struct {
	Number int
	Limit  int
}

// Criteria is the raw listing request.
type Criteria struct {
	Filter Filter
	Sort   Sort
	Page   Page
}

// Plan is a validated, normalized listing query.
type Plan struct {
	filter Filter
	from   *time.Time
	to     *time.Time
	sort   Sort
	page   Page
}

// NewPlan validates c and normalizes it against the reference timezone loc.
// Any invalid enum or range yields a VALIDATION_ERROR before the store is
// touched.
func NewPlan(c Criteria, loc *time.Location) (*Plan, error) {
	if loc == nil {
		loc = time.UTC
	}

	p := &Plan{filter: c.Filter}
	p.filter.Text = strings.TrimSpace(c.Filter.Text)

	switch c.Sort.Field {
	case "":
		p.sort.Field = SortByCreatedAt
	case SortByID, SortByText, SortByCreatedAt, SortByVoteCount:
		p.sort.Field = c.Sort.Field
	default:
		return nil, models.NewValidationError("sortField must be one of id, voteCount, text, createdAt")
	}

	switch Direction(strings.ToLower(string(c.Sort.Direction))) {
	case "", Asc:
		p.sort.Direction = Asc
	case Desc:
		p.sort.Direction = Desc
	default:
		return nil, models.NewValidationError("sortDirection must be one of asc, desc")
	}

	switch {
	case c.Page.Number < 0:
		return nil, models.NewValidationError("page must be at least 1")
	case c.Page.Number > 0:
		if c.Page.Limit < 1 || c.Page.Limit > MaxLimit {
			return nil, models.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
		}
		// The row offset (page-1)*limit must fit in an int.
		if c.Page.Number-1 > math.MaxInt/c.Page.Limit {
			return nil, models.NewValidationError("page is out of range")
		}
		p.page = c.Page
	}

	if v := c.Filter.MinVotes; v != nil && *v < 0 {
		return nil, models.NewValidationError("minVotes must not be negative")
	}
	if v := c.Filter.MaxVotes; v != nil && *v < 0 {
		return nil, models.NewValidationError("maxVotes must not be negative")
	}
	if c.Filter.MinVotes != nil && c.Filter.MaxVotes != nil && *c.Filter.MinVotes > *c.Filter.MaxVotes {
		return nil, models.NewValidationError("minVotes must not exceed maxVotes")
	}

	if c.Filter.CreatedFrom != nil {
		from := StartOfDay(*c.Filter.CreatedFrom, loc)
		p.from = &from
	}
	if c.Filter.CreatedTo != nil {
		to := EndOfDay(*c.Filter.CreatedTo, loc)
		p.to = &to
	}
	if p.from != nil && p.to != nil && p.from.After(*p.to) {
		return nil, models.NewValidationError("dateFrom must not be after dateTo")
	}

	return p, nil
}

// StartOfDay returns 00:00:00.000 of t's calendar day in loc, in UTC.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC()
}

// EndOfDay returns 23:59:59.999 of t's calendar day in loc, in UTC.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc).UTC()
}

// Grouped reports whether the plan needs the vote join and aggregation.
func (p *Plan) Grouped() bool {
	return p.filter.MinVotes != nil || p.filter.MaxVotes != nil || p.sort.Field == SortByVoteCount
}

// PathName labels the execution path for metrics and tracing.
func (p *Plan) PathName() string {
	if p.Grouped() {
		return "grouped"
	}
	return "plain"
}

// Paginated reports whether the plan returns a single page.
func (p *Plan) Paginated() bool {
	return p.page.Number > 0
}

// PageNumber is the 1-based page, or 0 when unpaginated.
func (p *Plan) PageNumber() int {
	return p.page.Number
}

// Limit is the page size, or 0 when unpaginated.
func (p *Plan) Limit() int {
	return p.page.Limit
}

// Sort returns the normalized sort.
func (p *Plan) Sort() Sort {
	return p.sort
}

// Filters applies every predicate that does not depend on the vote count.
func (p *Plan) Filters(db *gorm.DB) *gorm.DB {
	if p.filter.ID != nil {
		db = db.Where("quotes.id = ?", *p.filter.ID)
	}
	if p.filter.OwnerID != nil {
		db = db.Where("quotes.user_id = ?", *p.filter.OwnerID)
	}
	if p.filter.Text != "" {
		db = db.Where(`quotes.text LIKE ? ESCAPE '\'`, "%"+EscapeLike(p.filter.Text)+"%")
	}
	if p.from != nil {
		db = db.Where("quotes.created_at >= ?", *p.from)
	}
	if p.to != nil {
		db = db.Where("quotes.created_at <= ?", *p.to)
	}
	return db
}

// Having applies the vote-count bounds. It is only meaningful on the
// grouped path, where votes are joined and rows grouped by quote.
func (p *Plan) Having(db *gorm.DB) *gorm.DB {
	if p.filter.MinVotes != nil {
		db = db.Having("COUNT(votes.id) >= ?", *p.filter.MinVotes)
	}
	if p.filter.MaxVotes != nil {
		db = db.Having("COUNT(votes.id) <= ?", *p.filter.MaxVotes)
	}
	return db
}

// Order applies the primary sort key and the quotes.id tie-break that makes
// pagination deterministic.
func (p *Plan) Order(db *gorm.DB) *gorm.DB {
	var column string
	switch p.sort.Field {
	case SortByID:
		column = "quotes.id"
	case SortByText:
		column = "quotes.text"
	case SortByVoteCount:
		column = "COUNT(votes.id)"
	default:
		column = "quotes.created_at"
	}

	db = db.Order(clause.OrderByColumn{
		Column: clause.Column{Name: column, Raw: true},
		Desc:   p.sort.Direction == Desc,
	})
	if p.sort.Field != SortByID {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: "quotes.id", Raw: true}})
	}
	return db
}

// Paginate applies OFFSET/LIMIT for paginated plans.
func (p *Plan) Paginate(db *gorm.DB) *gorm.DB {
	if !p.Paginated() {
		return db
	}
	return db.Offset((p.page.Number - 1) * p.page.Limit).Limit(p.page.Limit)
}

// Key is a canonical encoding of the normalized plan, stable across
// equivalent requests. It is used as a cache key suffix.
func (p *Plan) Key() string {
	v := url.Values{}
	if p.filter.ID != nil {
		v.Set("id", p.filter.ID.String())
	}
	if p.filter.OwnerID != nil {
		v.Set("owner", p.filter.OwnerID.String())
	}
	if p.filter.Text != "" {
		v.Set("text", p.filter.Text)
	}
	if p.from != nil {
		v.Set("from", p.from.Format(time.RFC3339Nano))
	}
	if p.to != nil {
		v.Set("to", p.to.Format(time.RFC3339Nano))
	}
	if p.filter.MinVotes != nil {
		v.Set("min", strconv.FormatInt(*p.filter.MinVotes, 10))
	}
	if p.filter.MaxVotes != nil {
		v.Set("max", strconv.FormatInt(*p.filter.MaxVotes, 10))
	}
	v.Set("sort", string(p.sort.Field)+":"+string(p.sort.Direction))
	v.Set("page", strconv.Itoa(p.page.Number))
	v.Set("limit", strconv.Itoa(p.page.Limit))
	return v.Encode()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so s matches as a literal substring.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
