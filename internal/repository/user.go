package repository

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/example/moodsync-auth/internal/models"
)

// UserRepository provides typed queries over user records.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Get returns the user with the given ID, or nil when absent.
func (r *UserRepository) Get(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns the user with the given email, or nil when absent.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	return r.getBy("email = ?", email)
}

// GetByPhone returns the user with the given phone, or nil when absent.
func (r *UserRepository) GetByPhone(phone string) (*models.User, error) {
	return r.getBy("phone = ?", phone)
}

func (r *UserRepository) getBy(query string, value string) (*models.User, error) {
	var user models.User
	if err := r.db.Where(query, value).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user record.
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// Update applies a partial update to the user with the given ID.
func (r *UserRepository) Update(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes the user and, through FK cascades, its OTPs and refresh
// tokens.
func (r *UserRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// ExistsByEmail reports whether a user with the email exists.
func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	return r.exists("email = ?", email)
}

// ExistsByPhone reports whether a user with the phone exists.
func (r *UserRepository) ExistsByPhone(phone string) (bool, error) {
	return r.exists("phone = ?", phone)
}

func (r *UserRepository) exists(query string, value string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where(query, value).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// VerifyUser marks the user verified and active, returning the updated
// record. Returns nil when no such user exists.
func (r *UserRepository) VerifyUser(email string) (*models.User, error) {
	user, err := r.GetByEmail(email)
	if err != nil || user == nil {
		return nil, err
	}

	updates := map[string]interface{}{"is_verified": true, "is_active": true}
	if err := r.db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// List returns a page of users ordered by ID.
func (r *UserRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Order("id").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// IsDuplicate reports whether err is a unique-constraint violation. The
// constraint, not the Exists pre-check, is the source of truth for
// uniqueness under concurrent requests.
func IsDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
