package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"quotely/internal/auth"
	"quotely/internal/listing"
	"quotely/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const dateLayout = "2006-01-02"

// parseUUID extracts a route parameter by name as a UUID.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseUUID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil || id == uuid.Nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(param+" must be a valid UUID"))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// currentIdentity returns the identity stored by AuthRequired.
func currentIdentity(c *fiber.Ctx) (auth.Identity, bool) {
	identity, ok := c.Locals(identityLocal).(auth.Identity)
	return identity, ok
}

// requireIdentity is currentIdentity for handlers mounted behind
// AuthRequired; it writes a 401 if the identity is somehow absent.
func requireIdentity(c *fiber.Ctx) (auth.Identity, error) {
	identity, ok := currentIdentity(c)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
		return auth.Identity{}, errResponseWritten
	}
	return identity, nil
}

// parseListCriteria reads the /quotes/list query string. Omitted page and
// limit default to the first page of ten; every other parameter is optional.
// Dates are read as calendar days in loc.
func parseListCriteria(c *fiber.Ctx, loc *time.Location) (listing.Criteria, error) {
	var criteria listing.Criteria

	id, err := optionalUUID(c, "id")
	if err != nil {
		return criteria, err
	}
	criteria.Filter.ID = id

	owner, err := optionalUUID(c, "userId")
	if err != nil {
		return criteria, err
	}
	criteria.Filter.OwnerID = owner

	criteria.Filter.Text = c.Query("text")

	if criteria.Filter.MinVotes, err = optionalInt64(c, "minVotes"); err != nil {
		return criteria, err
	}
	if criteria.Filter.MaxVotes, err = optionalInt64(c, "maxVotes"); err != nil {
		return criteria, err
	}

	if criteria.Filter.CreatedFrom, err = optionalDate(c, "dateFrom", loc); err != nil {
		return criteria, err
	}
	if criteria.Filter.CreatedTo, err = optionalDate(c, "dateTo", loc); err != nil {
		return criteria, err
	}

	page, err := intWithDefault(c, "page", listing.DefaultPage)
	if err != nil {
		return criteria, err
	}
	if page < 1 {
		return criteria, models.NewValidationError("page must be at least 1")
	}
	limit, err := intWithDefault(c, "limit", listing.DefaultLimit)
	if err != nil {
		return criteria, err
	}
	criteria.Page = listing.Page{Number: page, Limit: limit}

	criteria.Sort = listing.Sort{
		Field:     listing.SortField(c.Query("sortField")),
		Direction: listing.Direction(c.Query("sortDirection")),
	}

	return criteria, nil
}

func optionalUUID(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, models.NewValidationError(key + " must be a valid UUID")
	}
	return &id, nil
}

func optionalInt64(c *fiber.Ctx, key string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, models.NewValidationError(key + " must be an integer")
	}
	return &n, nil
}

// optionalDate accepts a calendar date or an RFC 3339 timestamp. A
// timestamp is moved into loc first, so its day is the day it falls on in
// the reference zone. The list plan expands the day to whole-day bounds.
func optionalDate(c *fiber.Ctx, key string, loc *time.Location) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, models.NewValidationError(key + " must be a date (YYYY-MM-DD)")
	}
	t = t.In(loc)
	return &t, nil
}

func intWithDefault(c *fiber.Ctx, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError(key + " must be an integer")
	}
	return n, nil
}
