package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"gorm.io/gorm"

	"github.com/example/moodsync-auth/internal/config"
	"github.com/example/moodsync-auth/internal/models"
	"github.com/example/moodsync-auth/internal/repository"
)

// GenerateOTP returns a uniformly random numeric code of the given width,
// zero-padded.
func GenerateOTP(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// OTPService issues, delivers and verifies one-time passcodes.
type OTPService struct {
	db    *gorm.DB
	cfg   *config.Config
	otps  *repository.OTPRepository
	email *EmailService
	sms   *SMSService
}

// NewOTPService constructs an OTPService.
func NewOTPService(db *gorm.DB, cfg *config.Config, email *EmailService, sms *SMSService) *OTPService {
	return &OTPService{
		db:    db,
		cfg:   cfg,
		otps:  repository.NewOTPRepository(db),
		email: email,
		sms:   sms,
	}
}

// WithTx returns a copy of the service whose persistence runs inside the
// given transaction.
func (s *OTPService) WithTx(tx *gorm.DB) *OTPService {
	return &OTPService{
		db:    tx,
		cfg:   s.cfg,
		otps:  s.otps.WithTx(tx),
		email: s.email,
		sms:   s.sms,
	}
}

// Send issues a fresh OTP for the user and purpose, then dispatches it over
// the requested channel. Issuance is transactional; delivery is best-effort.
func (s *OTPService) Send(user *models.User, purpose, otpType string) error {
	var code string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		code, txErr = s.issue(tx, user.ID, purpose, otpType)
		return txErr
	})
	if err != nil {
		return err
	}

	s.deliver(user, code, purpose, otpType)
	return nil
}

// issue invalidates all live codes for (user, purpose) and creates a new
// one, inside the caller's transaction. At most one valid code per purpose
// exists at any time.
func (s *OTPService) issue(tx *gorm.DB, userID uint, purpose, otpType string) (string, error) {
	otps := s.otps.WithTx(tx)

	if err := otps.Invalidate(userID, purpose); err != nil {
		return "", err
	}

	code, err := GenerateOTP(s.cfg.OTPLength)
	if err != nil {
		return "", err
	}

	otp := &models.OTP{
		UserID:    userID,
		Code:      code,
		OTPType:   otpType,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(s.cfg.OTPExpiry),
	}
	if err := otps.Create(otp); err != nil {
		return "", err
	}

	return code, nil
}

// deliver dispatches the code. Delivery failures are logged and swallowed:
// the enclosing operation must not fail because a mail hop is down.
func (s *OTPService) deliver(user *models.User, code, purpose, otpType string) {
	var err error
	if otpType == models.OTPTypeSMS && user.Phone != nil {
		err = s.sms.SendOTP(*user.Phone, code, purpose)
	} else {
		err = s.email.SendOTP(user.Email, code, purpose)
	}

	if err != nil {
		log.Printf("failed to deliver OTP to user %d: %v", user.ID, err)
	}
}

// Verify consumes the OTP matching (user, code, purpose) if one is live.
func (s *OTPService) Verify(userID uint, code, purpose string) (bool, error) {
	otp, err := s.otps.FindValid(userID, code, purpose)
	if err != nil {
		return false, err
	}
	if otp == nil {
		return false, nil
	}

	if err := s.otps.MarkUsed(otp); err != nil {
		return false, err
	}

	return true, nil
}
