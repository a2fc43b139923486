package server

import (
	"quotely/internal/models"
	"quotely/internal/service"

	"github.com/gofiber/fiber/v2"
)

type quoteTextRequest struct {
	Text string `json:"text"`
}

// ListQuotes handles GET /quotes/list
// @Summary List quotes
// @Description Filtered, sorted, paginated quotes with their vote counts
// @Tags quotes
// @Produce json
// @Param id query string false "Quote ID"
// @Param userId query string false "Author ID"
// @Param text query string false "Substring of the quote text"
// @Param minVotes query int false "Minimum vote count"
// @Param maxVotes query int false "Maximum vote count"
// @Param dateFrom query string false "First creation day (YYYY-MM-DD)"
// @Param dateTo query string false "Last creation day (YYYY-MM-DD)"
// @Param sortField query string false "Sort key" Enums(id, text, createdAt, voteCount)
// @Param sortDirection query string false "Sort direction" Enums(asc, desc)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (1-50)" default(10)
// @Success 200 {object} models.QuotePage
// @Failure 400 {object} models.ErrorResponse
// @Router /quotes/list [get]
func (s *Server) ListQuotes(c *fiber.Ctx) error {
	criteria, err := parseListCriteria(c, s.loc)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page, err := s.quoteService.ListQuotes(c.UserContext(), criteria)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(page)
}

// CreateQuote handles POST /quotes
// @Summary Create quote
// @Description Post a quote owned by the caller
// @Tags quotes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body quoteTextRequest true "Quote text"
// @Success 201 {object} models.Quote
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /quotes [post]
func (s *Server) CreateQuote(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return nil
	}

	var req quoteTextRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	quote, err := s.quoteService.CreateQuote(c.UserContext(), service.CreateQuoteInput{
		OwnerID: identity.UserID,
		Text:    req.Text,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(quote)
}

// UpdateQuote handles PATCH /quotes/:id
// @Summary Update quote
// @Description Replace the text of a quote the caller owns
// @Tags quotes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Quote ID"
// @Param request body quoteTextRequest true "Quote text"
// @Success 200 {object} models.Quote
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /quotes/{id} [patch]
func (s *Server) UpdateQuote(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return nil
	}
	quoteID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req quoteTextRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	quote, err := s.quoteService.UpdateQuote(c.UserContext(), service.UpdateQuoteInput{
		OwnerID: identity.UserID,
		QuoteID: quoteID,
		Text:    req.Text,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(quote)
}

// DeleteQuote handles DELETE /quotes/:id
// @Summary Delete quote
// @Description Delete a quote the caller owns, together with its votes
// @Tags quotes
// @Security BearerAuth
// @Param id path string true "Quote ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /quotes/{id} [delete]
func (s *Server) DeleteQuote(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return nil
	}
	quoteID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.quoteService.DeleteQuote(c.UserContext(), service.DeleteQuoteInput{
		OwnerID: identity.UserID,
		QuoteID: quoteID,
	}); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
