package services

import (
	"context"
	"log"
	"strconv"
	"time"
	"unicode"

	"gorm.io/gorm"

	"github.com/example/moodsync-auth/internal/config"
	"github.com/example/moodsync-auth/internal/limiter"
	"github.com/example/moodsync-auth/internal/models"
	"github.com/example/moodsync-auth/internal/repository"
	"github.com/example/moodsync-auth/internal/utils"
)

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    *string
}

// LoginResult carries the issued token pair and the authenticated user.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	User         *models.User
}

// TokenResult carries a freshly minted access token.
type TokenResult struct {
	AccessToken string
	ExpiresIn   int
}

// AuthService orchestrates the account lifecycle: registration, login, OTP
// verification, token refresh and password reset.
type AuthService struct {
	db            *gorm.DB
	cfg           *config.Config
	users         *repository.UserRepository
	refreshTokens *repository.RefreshTokenRepository
	otpService    *OTPService
	tokens        *utils.TokenManager
	loginLimiter  *limiter.LoginLimiter
}

// NewAuthService constructs an AuthService. loginLimiter may be nil, in
// which case failed-login throttling is disabled.
func NewAuthService(db *gorm.DB, cfg *config.Config, tokens *utils.TokenManager, otpService *OTPService, loginLimiter *limiter.LoginLimiter) *AuthService {
	return &AuthService{
		db:            db,
		cfg:           cfg,
		users:         repository.NewUserRepository(db),
		refreshTokens: repository.NewRefreshTokenRepository(db),
		otpService:    otpService,
		tokens:        tokens,
		loginLimiter:  loginLimiter,
	}
}

// Register creates an unverified account and issues a registration OTP.
// The existence pre-checks are a fast path; the unique constraints settle
// concurrent registrations for the same email or phone.
func (s *AuthService) Register(in RegisterInput) (*models.User, error) {
	if err := s.checkPasswordStrength(in.Password); err != nil {
		return nil, err
	}

	if exists, err := s.users.ExistsByEmail(in.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, conflictError("email already registered")
	}

	if in.Phone != nil {
		if exists, err := s.users.ExistsByPhone(*in.Phone); err != nil {
			return nil, err
		} else if exists {
			return nil, conflictError("phone number already registered")
		}
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:          in.Email,
		Phone:          in.Phone,
		HashedPassword: hashed,
		FullName:       in.FullName,
		IsActive:       false,
		IsVerified:     false,
	}

	var code string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Create(user); err != nil {
			return err
		}

		var txErr error
		code, txErr = s.otpService.issue(tx, user.ID, models.PurposeRegistration, models.OTPTypeEmail)
		return txErr
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			return nil, conflictError("email or phone already registered")
		}
		return nil, err
	}

	s.otpService.deliver(user, code, models.PurposeRegistration, models.OTPTypeEmail)
	return user, nil
}

// Login verifies credentials and issues an access/refresh token pair. The
// error for an unknown email and a wrong password is identical so callers
// cannot probe which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if s.loginLimiter != nil {
		blocked, err := s.loginLimiter.Blocked(ctx, email)
		if err != nil {
			log.Printf("login limiter unavailable: %v", err)
		} else if blocked {
			return nil, unauthorizedError("too many failed login attempts, try again later")
		}
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}

	if user == nil || !utils.CheckPassword(user.HashedPassword, password) {
		s.recordLoginFailure(ctx, email)
		return nil, unauthorizedError("incorrect email or password")
	}

	if !user.IsVerified {
		return nil, forbiddenError("please verify your account first")
	}

	if !user.IsActive {
		return nil, forbiddenError("account is inactive")
	}

	accessToken, err := s.tokens.CreateAccessToken(user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, expiresAt, err := s.tokens.CreateRefreshToken(user.Email)
	if err != nil {
		return nil, err
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: expiresAt,
	}
	if err := s.refreshTokens.Create(record); err != nil {
		return nil, err
	}

	if s.loginLimiter != nil {
		if err := s.loginLimiter.Reset(ctx, email); err != nil {
			log.Printf("login limiter reset failed: %v", err)
		}
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
		User:         user,
	}, nil
}

func (s *AuthService) recordLoginFailure(ctx context.Context, email string) {
	if s.loginLimiter == nil {
		return
	}
	if err := s.loginLimiter.RecordFailure(ctx, email); err != nil {
		log.Printf("login limiter record failed: %v", err)
	}
}

// RequestOTP reissues an OTP for an existing account. Prior live codes for
// the purpose are invalidated, so repeated calls are safe.
func (s *AuthService) RequestOTP(email, purpose, otpType string) (*models.User, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFoundError("user not found")
	}

	if err := s.otpService.Send(user, purpose, otpType); err != nil {
		return nil, err
	}

	return user, nil
}

// VerifyOTP consumes a live code. A registration-purpose success also
// transitions the account to verified and active.
func (s *AuthService) VerifyOTP(email, code, purpose string) (*models.User, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFoundError("user not found")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		valid, txErr := s.otpService.WithTx(tx).Verify(user.ID, code, purpose)
		if txErr != nil {
			return txErr
		}
		if !valid {
			return validationError("invalid or expired OTP")
		}

		if purpose == models.PurposeRegistration {
			verified, txErr := s.users.WithTx(tx).VerifyUser(email)
			if txErr != nil {
				return txErr
			}
			if verified != nil {
				user = verified
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// RefreshToken exchanges a valid, unrevoked refresh token for a new access
// token. The refresh token itself is not rotated.
func (s *AuthService) RefreshToken(refreshToken string) (*TokenResult, error) {
	claims := s.tokens.VerifyToken(refreshToken)
	if claims == nil || claims.TokenType != utils.TokenTypeRefresh {
		return nil, unauthorizedError("invalid refresh token")
	}

	record, err := s.refreshTokens.GetByToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if record == nil || record.IsRevoked || record.ExpiresAt.Before(time.Now()) {
		return nil, unauthorizedError("invalid refresh token")
	}

	user, err := s.users.GetByEmail(claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, unauthorizedError("user not found")
	}

	accessToken, err := s.tokens.CreateAccessToken(user.Email)
	if err != nil {
		return nil, err
	}

	return &TokenResult{
		AccessToken: accessToken,
		ExpiresIn:   int(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// ResetPassword consumes a reset_password OTP, replaces the stored hash and
// revokes every outstanding refresh token for the account.
func (s *AuthService) ResetPassword(email, code, newPassword string) error {
	if err := s.checkPasswordStrength(newPassword); err != nil {
		return err
	}

	user, err := s.VerifyOTP(email, code, models.PurposeResetPassword)
	if err != nil {
		return err
	}
	if user == nil {
		return notFoundError("user not found")
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Update(user.ID, map[string]interface{}{"hashed_password": hashed}); err != nil {
			return err
		}
		return s.refreshTokens.WithTx(tx).RevokeAllForUser(user.ID)
	})
}

// Logout revokes the presented refresh token.
func (s *AuthService) Logout(refreshToken string) error {
	claims := s.tokens.VerifyToken(refreshToken)
	if claims == nil || claims.TokenType != utils.TokenTypeRefresh {
		return unauthorizedError("invalid refresh token")
	}

	record, err := s.refreshTokens.GetByToken(refreshToken)
	if err != nil {
		return err
	}
	if record == nil {
		return unauthorizedError("invalid refresh token")
	}

	return s.refreshTokens.Revoke(refreshToken)
}

// checkPasswordStrength enforces the password policy: configured minimum
// length, at least one digit and at least one uppercase letter.
func (s *AuthService) checkPasswordStrength(password string) error {
	if len(password) < s.cfg.PasswordMinLength {
		return validationError("password must be at least " + strconv.Itoa(s.cfg.PasswordMinLength) + " characters")
	}

	var hasDigit, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}

	if !hasDigit {
		return validationError("password must contain at least one digit")
	}
	if !hasUpper {
		return validationError("password must contain at least one uppercase letter")
	}

	return nil
}
