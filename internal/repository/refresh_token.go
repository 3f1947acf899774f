package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/example/moodsync-auth/internal/models"
)

// RefreshTokenRepository provides typed queries over persisted refresh
// tokens.
type RefreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository constructs a RefreshTokenRepository.
func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *RefreshTokenRepository) WithTx(tx *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: tx}
}

// Create inserts a new refresh-token record.
func (r *RefreshTokenRepository) Create(token *models.RefreshToken) error {
	return r.db.Create(token).Error
}

// GetByToken returns the record for a token string, or nil when absent.
func (r *RefreshTokenRepository) GetByToken(token string) (*models.RefreshToken, error) {
	var record models.RefreshToken
	if err := r.db.Where("token = ?", token).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Revoke marks a single token as revoked.
func (r *RefreshTokenRepository) Revoke(token string) error {
	return r.db.Model(&models.RefreshToken{}).
		Where("token = ?", token).
		Update("is_revoked", true).Error
}

// RevokeAllForUser revokes every live token belonging to the user.
func (r *RefreshTokenRepository) RevokeAllForUser(userID uint) error {
	return r.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error
}

// DeleteExpired removes records whose expiry has passed.
func (r *RefreshTokenRepository) DeleteExpired() error {
	return r.db.Where("expires_at <= ?", time.Now()).Delete(&models.RefreshToken{}).Error
}
