package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/moodsync-auth/internal/config"
	"github.com/example/moodsync-auth/internal/limiter"
	"github.com/example/moodsync-auth/internal/models"
	"github.com/example/moodsync-auth/internal/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		JWTAlgorithm:       "HS256",
		AccessTokenTTL:     30 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		OTPExpiry:          10 * time.Minute,
		OTPLength:          6,
		PasswordMinLength:  8,
		MaxLoginAttempts:   3,
		LoginAttemptWindow: 15 * time.Minute,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.OTP{}, &models.RefreshToken{}))
	return db
}

// newTestAuthService builds the full service stack over an in-memory
// database. SMTP is unconfigured, so email delivery runs in simulation mode.
func newTestAuthService(t *testing.T, loginLimiter *limiter.LoginLimiter) (*AuthService, *gorm.DB, *config.Config) {
	t.Helper()

	cfg := testConfig()
	db := newTestDB(t)

	tokens, err := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	require.NoError(t, err)

	otpService := NewOTPService(db, cfg, NewEmailService(cfg), NewSMSService())
	return NewAuthService(db, cfg, tokens, otpService, loginLimiter), db, cfg
}

func latestOTPCode(t *testing.T, db *gorm.DB, userID uint, purpose string) string {
	t.Helper()

	var otp models.OTP
	require.NoError(t, db.
		Where("user_id = ? AND purpose = ? AND is_used = ?", userID, purpose, false).
		Order("id desc").
		First(&otp).Error)
	return otp.Code
}

func registerTestUser(t *testing.T, auth *AuthService, email string) *models.User {
	t.Helper()

	user, err := auth.Register(RegisterInput{Email: email, Password: "Passw0rd1"})
	require.NoError(t, err)
	return user
}

func verifyTestUser(t *testing.T, auth *AuthService, db *gorm.DB, user *models.User) {
	t.Helper()

	code := latestOTPCode(t, db, user.ID, models.PurposeRegistration)
	_, err := auth.VerifyOTP(user.Email, code, models.PurposeRegistration)
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()

	require.Error(t, err)
	svcErr, ok := AsError(err)
	require.True(t, ok, "expected a classified service error, got %v", err)
	assert.Equal(t, code, svcErr.Code)
}

func TestRegisterCreatesUnverifiedUser(t *testing.T) {
	auth, db, _ := newTestAuthService(t, nil)

	user, err := auth.Register(RegisterInput{Email: "a@x.com", Password: "Passw0rd1", FullName: "A"})
	require.NoError(t, err)
	assert.False(t, user.IsVerified)
	assert.False(t, user.IsActive)
	assert.NotEqual(t, "Passw0rd1", user.HashedPassword)

	// A registration OTP was issued alongside.
	code := latestOTPCode(t, db, user.ID, models.PurposeRegistration)
	assert.Len(t, code, 6)
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	auth, _, _ := newTestAuthService(t, nil)

	registerTestUser(t, auth, "a@x.com")

	_, err := auth.Register(RegisterInput{Email: "a@x.com", Password: "Passw0rd1"})
	requireCode(t, err, CodeConflict)
}

func TestRegisterDuplicatePhoneConflict(t *testing.T) {
	auth, _, _ := newTestAuthService(t, nil)

	phone := "+15551234567"
	_, err := auth.Register(RegisterInput{Email: "a@x.com", Password: "Passw0rd1", Phone: &phone})
	require.NoError(t, err)

	_, err = auth.Register(RegisterInput{Email: "b@x.com", Password: "Passw0rd1", Phone: &phone})
	requireCode(t, err, CodeConflict)
}

func TestRegisterPasswordPolicy(t *testing.T) {
	auth, _, _ := newTestAuthService(t, nil)

	cases := []string{
		"Sh0rt",     // below minimum length
		"passw0rdd", // no uppercase
		"Passwordd", // no digit
	}
	for _, password := range cases {
		_, err := auth.Register(RegisterInput{Email: "a@x.com", Password: password})
		requireCode(t, err, CodeValidation)
	}
}

func TestLoginBeforeVerificationForbidden(t *testing.T) {
	auth, _, _ := newTestAuthService(t, nil)

	registerTestUser(t, auth, "a@x.com")

	_, err := auth.Login(context.Background(), "a@x.com", "Passw0rd1")
	requireCode(t, err, CodeForbidden)
}

func TestLoginUnknownUserAndWrongPasswordIndistinguishable(t *testing.T) {
	auth, _, _ := newTestAuthService(t, nil)

	registerTestUser(t, auth, "a@x.com")

	_, errMissing := auth.Login(context.Background(), "nobody@x.com", "Passw0rd1")
	requireCode(t, errMissing, CodeUnauthorized)

	_, errWrong := auth.Login(context.Background(), "a@x.com", "WrongPass1")
	requireCode(t, errWrong, CodeUnauthorized)

	assert.Equal(t, errMissing.Error(), errWrong.Error())
}

func TestLoginAfterVerificationIssuesTokens(t *testing.T) {
	auth, db, cfg := newTestAuthService(t, nil)

	user := registerTestUser(t, auth, "a@x.com")
	verifyTestUser(t, auth, db, user)

	result, err := auth.Login(context.Background(), "a@x.com", "Passw0rd1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, int(cfg.AccessTokenTTL.Seconds()), result.ExpiresIn)
	assert.True(t, result.User.IsVerified)
	assert.True(t, result.User.IsActive)

	// The refresh token has a backing record.
	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND token = ?", user.ID, result.RefreshToken).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestVerifyOTPUnknownUserNotFound(t *testing.T) {
	auth, _, _ := newTestAuthService(t, nil)

	_, err := auth.VerifyOTP("nobody@x.com", "123456", models.PurposeRegistration)
	requireCode(t, err, CodeNotFound)
}

func TestVerifyOTPWrongCodeLeavesUserUnverified(t *testing.T) {
	auth, db, _ := newTestAuthService(t, nil)

	user := registerTestUser(t, auth, "a@x.com")
	code := latestOTPCode(t, db, user.ID, models.PurposeRegistration)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	_, err := auth.VerifyOTP("a@x.com", wrong, models.PurposeRegistration)
	requireCode(t, err, CodeValidation)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.False(t, reloaded.IsVerified)
	assert.False(t, reloaded.IsActive)
}

func TestVerifyOTPConsumesCode(t *testing.T) {
	auth, db, _ := newTestAuthService(t, nil)

	user := registerTestUser(t, auth, "a@x.com")
	code := latestOTPCode(t, db, user.ID, models.PurposeRegistration)

	verified, err := auth.VerifyOTP("a@x.com", code, models.PurposeRegistration)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.True(t, verified.IsActive)

	// Second use of the same code fails.
	_, err = auth.VerifyOTP("a@x.com", code, models.PurposeRegistration)
	requireCode(t, err, CodeValidation)
}

func TestRequestOTPInvalidatesPriorCode(t *testing.T) {
	auth, db, _ := newTestAuthService(t, nil)

	user := registerTestUser(t, auth, "a@x.com")
	first := latestOTPCode(t, db, user.ID, models.PurposeRegistration)

	_, err := auth.RequestOTP("a@x.com", models.PurposeRegistration, models.OTPTypeEmail)
	require.NoError(t, err)
	second := latestOTPCode(t, db, user.ID, models.PurposeRegistration)

	// The first code no longer verifies, even if the digits happen to
	// repeat: only one unused row remains.
	var liveCount int64
	require.NoError(t, db.Model(&models.OTP{}).
		Where("user_id = ? AND purpose = ? AND is_used = ?", user.ID, models.PurposeRegistration, false).
		Count(&liveCount).Error)
	assert.EqualValues(t, 1, liveCount)

	if first != second {
		_, err = auth.VerifyOTP("a@x.com", first, models.PurposeRegistration)
		requireCode(t, err, CodeValidation)
	}
}

func TestRequestOTPUnknownUserNotFound(t *testing.T) {
	auth, _, _ := newTestAuthService(t, nil)

	_, err := auth.RequestOTP("nobody@x.com", models.PurposeRegistration, models.OTPTypeEmail)
	requireCode(t, err, CodeNotFound)
}

func TestRefreshTokenFlow(t *testing.T) {
	auth, db, cfg := newTestAuthService(t, nil)

	user := registerTestUser(t, auth, "a@x.com")
	verifyTestUser(t, auth, db, user)

	login, err := auth.Login(context.Background(), "a@x.com", "Passw0rd1")
	require.NoError(t, err)

	result, err := auth.RefreshToken(login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, int(cfg.AccessTokenTTL.Seconds()), result.ExpiresIn)
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	auth, db, _ := newTestAuthService(t, nil)

	user := registerTestUser(t, auth, "a@x.com")
	verifyTestUser(t, auth, db, user)

	login, err := auth.Login(context.Background(), "a@x.com", "Passw0rd1")
	require.NoError(t, err)

	_, err = auth.RefreshToken(login.AccessToken)
	requireCode(t, err, CodeUnauthorized)
}

func TestRefreshTokenRejectsGarbage(t *testing.T) {
	auth, _, _ := newTestAuthService(t, nil)

	_, err := auth.RefreshToken("not-a-token")
	requireCode(t, err, CodeUnauthorized)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	auth, db, _ := newTestAuthService(t, nil)

	user := registerTestUser(t, auth, "a@x.com")
	verifyTestUser(t, auth, db, user)

	login, err := auth.Login(context.Background(), "a@x.com", "Passw0rd1")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(login.RefreshToken))

	_, err = auth.RefreshToken(login.RefreshToken)
	requireCode(t, err, CodeUnauthorized)

	// Logging out twice is harmless; the record is simply kept revoked.
	require.NoError(t, auth.Logout(login.RefreshToken))
}

func TestResetPasswordFlow(t *testing.T) {
	auth, db, _ := newTestAuthService(t, nil)

	user := registerTestUser(t, auth, "a@x.com")
	verifyTestUser(t, auth, db, user)

	login, err := auth.Login(context.Background(), "a@x.com", "Passw0rd1")
	require.NoError(t, err)

	_, err = auth.RequestOTP("a@x.com", models.PurposeResetPassword, models.OTPTypeEmail)
	require.NoError(t, err)
	code := latestOTPCode(t, db, user.ID, models.PurposeResetPassword)

	require.NoError(t, auth.ResetPassword("a@x.com", code, "N3wPassword"))

	// Old password no longer works, the new one does.
	_, err = auth.Login(context.Background(), "a@x.com", "Passw0rd1")
	requireCode(t, err, CodeUnauthorized)

	_, err = auth.Login(context.Background(), "a@x.com", "N3wPassword")
	require.NoError(t, err)

	// Outstanding refresh tokens were revoked by the reset.
	_, err = auth.RefreshToken(login.RefreshToken)
	requireCode(t, err, CodeUnauthorized)
}

func TestResetPasswordWrongCode(t *testing.T) {
	auth, db, _ := newTestAuthService(t, nil)

	user := registerTestUser(t, auth, "a@x.com")
	verifyTestUser(t, auth, db, user)

	_, err := auth.RequestOTP("a@x.com", models.PurposeResetPassword, models.OTPTypeEmail)
	require.NoError(t, err)
	code := latestOTPCode(t, db, user.ID, models.PurposeResetPassword)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	err = auth.ResetPassword("a@x.com", wrong, "N3wPassword")
	requireCode(t, err, CodeValidation)

	_, err = auth.Login(context.Background(), "a@x.com", "Passw0rd1")
	require.NoError(t, err)
}

func TestResetPasswordWeakPassword(t *testing.T) {
	auth, _, _ := newTestAuthService(t, nil)

	err := auth.ResetPassword("a@x.com", "123456", "weak")
	requireCode(t, err, CodeValidation)
}

func TestLoginAttemptLimiting(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := testConfig()
	loginLimiter := limiter.NewLoginLimiter(client, cfg.MaxLoginAttempts, cfg.LoginAttemptWindow)

	auth, db, _ := newTestAuthService(t, loginLimiter)

	user := registerTestUser(t, auth, "a@x.com")
	verifyTestUser(t, auth, db, user)

	ctx := context.Background()
	for i := 0; i < cfg.MaxLoginAttempts; i++ {
		_, err := auth.Login(ctx, "a@x.com", "WrongPass1")
		requireCode(t, err, CodeUnauthorized)
	}

	// Even the correct password is rejected while the window lasts.
	_, err = auth.Login(ctx, "a@x.com", "Passw0rd1")
	requireCode(t, err, CodeUnauthorized)

	// The window expiring unblocks the account.
	mr.FastForward(cfg.LoginAttemptWindow + time.Second)
	result, err := auth.Login(ctx, "a@x.com", "Passw0rd1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
}
