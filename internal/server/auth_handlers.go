package server

import (
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
// @Summary Staff login
// @Description Authenticate an editor or admin and return a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login credentials"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(res)
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the presented token for the rest of its lifetime
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), identityFrom(c)); err != nil {
		return models.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me handles GET /api/auth/me
// @Summary Current session
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{username=string,role=string,expires_at=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	id := identityFrom(c)
	return c.JSON(fiber.Map{
		"username":   id.Username,
		"role":       id.Role,
		"expires_at": id.ExpiresAt,
	})
}
