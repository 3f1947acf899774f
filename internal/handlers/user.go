package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/moodsync-auth/internal/middleware"
	"github.com/example/moodsync-auth/internal/repository"
	"github.com/example/moodsync-auth/internal/utils"
)

// UserHandler serves user profile endpoints.
type UserHandler struct {
	users *repository.UserRepository
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{users: repository.NewUserRepository(db)}
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	return c.JSON(user)
}

// GetUser returns a user by ID. Only the user themselves or a superuser may
// read a profile.
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	current, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	if current.ID != uint(id) && !current.IsSuperuser {
		return fiber.NewError(fiber.StatusForbidden, "not allowed")
	}

	user, err := h.users.Get(uint(id))
	if err != nil {
		return err
	}
	if user == nil {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}

	return c.JSON(user)
}

// ListUsers returns a page of users. Superusers only.
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	current, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	if !current.IsSuperuser {
		return fiber.NewError(fiber.StatusForbidden, "not allowed")
	}

	pagination := utils.ParsePagination(c)
	users, err := h.users.List(pagination.Offset, pagination.Limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
		"page":    pagination.Page,
		"limit":   pagination.Limit,
	})
}
