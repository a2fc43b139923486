package server

import (
	"quotely/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /users/profile
// @Summary Get profile
// @Description The caller's account and current vote
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return nil
	}

	profile, err := s.userService.Profile(c.UserContext(), identity.UserID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(profile)
}
