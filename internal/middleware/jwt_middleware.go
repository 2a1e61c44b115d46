package middleware

import (
	"errors"
	"strings"

	"studentrecords/internal/apperrors"
	"studentrecords/internal/logger"
	"studentrecords/internal/models"
	"studentrecords/internal/services"

	"github.com/gofiber/fiber/v2"
)

const userLocalKey = "user"

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// AuthRequired is a Fiber middleware that resolves the bearer token to a user
// and stores it in the request locals.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Not authorized, no token")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "") {
			return unauthorized(c, "Not authorized, no token")
		}

		user, err := authService.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			if !errors.Is(err, apperrors.ErrTokenInvalid) {
				logger.Error().Err(err).Msg("failed to authenticate request")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": "Server Error",
				})
			}
			logger.Debug().Err(err).Str("path", c.Path()).Msg("rejected token")
			return unauthorized(c, "Not authorized, token failed")
		}

		c.Locals(userLocalKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by AuthRequired.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(userLocalKey).(*models.User)
	return user, ok && user != nil
}
