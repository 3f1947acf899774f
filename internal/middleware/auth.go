package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/moodsync-auth/internal/models"
	"github.com/example/moodsync-auth/internal/repository"
	"github.com/example/moodsync-auth/internal/utils"
)

const userContextKey = "currentUser"

// AuthMiddleware validates bearer access tokens and loads the authenticated
// user into the request context. Refresh tokens are rejected here: only a
// token carrying the access type authenticates a request.
func AuthMiddleware(db *gorm.DB, tokens *utils.TokenManager) fiber.Handler {
	users := repository.NewUserRepository(db)

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		email, ok := tokens.ExtractEmail(parts[1])
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "could not validate credentials")
		}

		user, err := users.GetByEmail(email)
		if err != nil {
			return err
		}
		if user == nil || !user.IsActive {
			return fiber.NewError(fiber.StatusUnauthorized, "could not validate credentials")
		}

		c.Locals(userContextKey, user)
		return c.Next()
	}
}

// GetCurrentUser extracts the authenticated user from context.
func GetCurrentUser(c *fiber.Ctx) (*models.User, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return nil, false
	}

	if user, ok := value.(*models.User); ok {
		return user, true
	}

	return nil, false
}
