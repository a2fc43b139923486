package server

import (
	"quotely/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CastVote handles PUT /votes/:quoteId
// @Summary Cast vote
// @Description Vote for a quote, moving the caller's existing vote if any
// @Tags votes
// @Produce json
// @Security BearerAuth
// @Param quoteId path string true "Quote ID"
// @Success 200 {object} models.VoteView
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /votes/{quoteId} [put]
func (s *Server) CastVote(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return nil
	}
	quoteID, err := parseUUID(c, "quoteId")
	if err != nil {
		return nil
	}

	vote, err := s.voteService.CastVote(c.UserContext(), identity.UserID, quoteID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(models.NewVoteView(vote))
}

// RetractVote handles DELETE /votes
// @Summary Retract vote
// @Description Remove the caller's vote
// @Tags votes
// @Security BearerAuth
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /votes [delete]
func (s *Server) RetractVote(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return nil
	}

	if err := s.voteService.RetractVote(c.UserContext(), identity.UserID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
