package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/example/moodsync-auth/internal/models"
)

// OTPRepository provides typed queries over one-time passcodes.
type OTPRepository struct {
	db *gorm.DB
}

// NewOTPRepository constructs an OTPRepository.
func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *OTPRepository) WithTx(tx *gorm.DB) *OTPRepository {
	return &OTPRepository{db: tx}
}

// Create inserts a new OTP record.
func (r *OTPRepository) Create(otp *models.OTP) error {
	return r.db.Create(otp).Error
}

// FindValid returns the OTP matching user, code and purpose that is unused
// and not yet expired, or nil when no such code exists.
func (r *OTPRepository) FindValid(userID uint, code, purpose string) (*models.OTP, error) {
	var otp models.OTP
	err := r.db.
		Where("user_id = ? AND code = ? AND purpose = ? AND is_used = ? AND expires_at > ?",
			userID, code, purpose, false, time.Now()).
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &otp, nil
}

// Invalidate marks every unused OTP for the user and purpose as used, so at
// most one live code per (user, purpose) exists after a reissue.
func (r *OTPRepository) Invalidate(userID uint, purpose string) error {
	return r.db.Model(&models.OTP{}).
		Where("user_id = ? AND purpose = ? AND is_used = ?", userID, purpose, false).
		Update("is_used", true).Error
}

// MarkUsed consumes the OTP. A consumed code never validates again.
func (r *OTPRepository) MarkUsed(otp *models.OTP) error {
	otp.IsUsed = true
	return r.db.Model(otp).Update("is_used", true).Error
}
