package server

import (
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// identityLocal is the Fiber locals key the gate stores the caller under.
const identityLocal = "identity"

// Gate returns middleware that requires a valid, unrevoked bearer token.
// When required is non-empty the token's role must be one of them.
func (s *Server) Gate(required ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Bearer token required"))
		}

		id, err := s.authService.Authenticate(c.UserContext(), token)
		if err != nil {
			return models.Respond(c, err)
		}

		if len(required) > 0 && !id.HasRole(required...) {
			middleware.SecurityEvent(c.UserContext(), "role check denied",
				"username", id.Username,
				"role", string(id.Role),
				"path", c.Path(),
			)
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Insufficient permissions"))
		}

		c.Locals(identityLocal, id)
		c.SetUserContext(middleware.WithUsername(c.UserContext(), id.Username))
		return c.Next()
	}
}

// AuthRequired admits any authenticated staff member.
func (s *Server) AuthRequired() fiber.Handler {
	return s.Gate()
}

// AdminRequired admits admins only.
func (s *Server) AdminRequired() fiber.Handler {
	return s.Gate(models.RoleAdmin)
}

// identityFrom returns the caller stored by Gate, or nil on ungated routes.
func identityFrom(c *fiber.Ctx) *auth.Identity {
	id, _ := c.Locals(identityLocal).(*auth.Identity)
	return id
}
