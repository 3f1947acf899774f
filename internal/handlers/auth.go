package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/example/moodsync-auth/internal/config"
	"github.com/example/moodsync-auth/internal/services"
)

var validate = validator.New()

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	cfg  *config.Config
	auth *services.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(cfg *config.Config, auth *services.AuthService) *AuthHandler {
	return &AuthHandler{cfg: cfg, auth: auth}
}

type registerRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone" validate:"omitempty,e164"`
}

// Register creates a new unverified account and sends a registration OTP.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Register(services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    user,
		"message": "Registration successful. Please verify your email/phone with OTP.",
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates an existing, verified user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"token_type":    "bearer",
		"expires_in":    result.ExpiresIn,
		"user":          result.User,
	})
}

type otpRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OTPType string `json:"otp_type" validate:"required,oneof=email sms"`
	Purpose string `json:"purpose" validate:"required,oneof=registration login reset_password"`
}

// RequestOTP issues a fresh OTP for an existing account.
func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.auth.RequestOTP(req.Email, req.Purpose, req.OTPType)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"message":    "OTP sent to " + user.Email,
		"otp_type":   req.OTPType,
		"expires_in": int(h.cfg.OTPExpiry.Minutes()),
	})
}

type otpVerifyRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OTPCode string `json:"otp_code" validate:"required,len=6"`
	Purpose string `json:"purpose" validate:"required,oneof=registration login reset_password"`
}

// VerifyOTP validates a submitted code.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req otpVerifyRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.auth.VerifyOTP(req.Email, req.OTPCode, req.Purpose)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "OTP verified successfully",
		"user":    user,
	})
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken exchanges a refresh token for a new access token.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req refreshTokenRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.auth.RefreshToken(req.RefreshToken)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"access_token": result.AccessToken,
		"token_type":   "bearer",
		"expires_in":   result.ExpiresIn,
	})
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"new_password" validate:"required"`
	OTPCode     string `json:"otp_code" validate:"required,len=6"`
}

// ResetPassword verifies a reset_password OTP and replaces the password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.auth.ResetPassword(req.Email, req.OTPCode, req.NewPassword); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password reset successfully",
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req logoutRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.auth.Logout(req.RefreshToken); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

func parseAndValidate(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid field: "+fieldErrs[0].Field())
		}
		return fiber.NewError(fiber.StatusBadRequest, "invalid request")
	}

	return nil
}

func mapServiceError(err error) error {
	svcErr, ok := services.AsError(err)
	if !ok {
		return err
	}

	switch svcErr.Code {
	case services.CodeValidation:
		return fiber.NewError(fiber.StatusBadRequest, svcErr.Message)
	case services.CodeConflict:
		return fiber.NewError(fiber.StatusConflict, svcErr.Message)
	case services.CodeUnauthorized:
		return fiber.NewError(fiber.StatusUnauthorized, svcErr.Message)
	case services.CodeForbidden:
		return fiber.NewError(fiber.StatusForbidden, svcErr.Message)
	case services.CodeNotFound:
		return fiber.NewError(fiber.StatusNotFound, svcErr.Message)
	}

	return err
}
