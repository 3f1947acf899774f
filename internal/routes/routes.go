package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/moodsync-auth/internal/config"
	"github.com/example/moodsync-auth/internal/handlers"
	"github.com/example/moodsync-auth/internal/limiter"
	"github.com/example/moodsync-auth/internal/middleware"
	"github.com/example/moodsync-auth/internal/services"
	"github.com/example/moodsync-auth/internal/utils"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, tokens *utils.TokenManager, redisClient *redis.Client) {
	emailService := services.NewEmailService(cfg)
	smsService := services.NewSMSService()
	otpService := services.NewOTPService(db, cfg, emailService, smsService)

	var loginLimiter *limiter.LoginLimiter
	if redisClient != nil {
		loginLimiter = limiter.NewLoginLimiter(redisClient, cfg.MaxLoginAttempts, cfg.LoginAttemptWindow)
	}

	authService := services.NewAuthService(db, cfg, tokens, otpService, loginLimiter)

	authHandler := handlers.NewAuthHandler(cfg, authService)
	userHandler := handlers.NewUserHandler(db)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/request-otp", authHandler.RequestOTP)
	auth.Post("/verify-otp", authHandler.VerifyOTP)
	auth.Post("/refresh-token", authHandler.RefreshToken)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/logout", authHandler.Logout)

	users := api.Group("/users", middleware.AuthMiddleware(db, tokens))
	users.Get("/me", userHandler.Me)
	users.Get("/", userHandler.ListUsers)
	users.Get("/:id", userHandler.GetUser)
}
