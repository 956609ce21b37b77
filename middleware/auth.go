package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"clipmaster/internal/auth"
	"clipmaster/utils"
)

const (
	userIDKey = "user_id"

	// ServiceKeyHeader carries the worker's shared secret on internal routes.
	ServiceKeyHeader = "X-Service-Key"
)

// RequireUser rejects requests without a valid session. The token is read
// from the Authorization header, or from the access_token query parameter
// for clients such as EventSource that cannot set headers.
func RequireUser(idp auth.IdentityProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			token = c.Query("access_token")
		}
		if token == "" {
			return utils.RespondWithError(c, fiber.StatusUnauthorized, "Missing bearer token")
		}

		id, err := idp.UserID(c.UserContext(), token)
		if err != nil {
			return utils.RespondWithError(c, fiber.StatusUnauthorized, "Invalid or expired session")
		}

		c.Locals(userIDKey, id)
		return c.Next()
	}
}

// UserID returns the authenticated user set by RequireUser.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(userIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// RequireServiceKey guards worker-only routes with a shared secret.
func RequireServiceKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get(ServiceKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return utils.RespondWithError(c, fiber.StatusUnauthorized, "Invalid service key")
		}
		return c.Next()
	}
}
