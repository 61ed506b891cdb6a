package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/slotswapper/slotswapper/models"
	"github.com/slotswapper/slotswapper/services"
	"github.com/slotswapper/slotswapper/utils"
)

// AuthRequired verifies the bearer token and stores the caller's session in
// the request context.
func AuthRequired(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			slog.Debug("Auth required: missing bearer token",
				slog.String("path", c.Path()))
			return utils.SendUnauthorized(c, "Please authenticate")
		}

		userID, err := auth.VerifyToken(token)
		if err != nil {
			slog.Debug("Auth required: invalid token",
				slog.String("error", err.Error()))
			return utils.SendUnauthorized(c, "Please authenticate")
		}

		user, err := auth.GetUser(c.Context(), userID)
		if err != nil {
			slog.Debug("Auth required: unknown user",
				slog.String("user_id", userID))
			return utils.SendUnauthorized(c, "Please authenticate")
		}

		c.Locals("user", &models.UserSession{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		})
		return c.Next()
	}
}
