package models

import (
	"time"
)

// OTP purposes accepted across the service.
const (
	PurposeRegistration  = "registration"
	PurposeLogin         = "login"
	PurposeResetPassword = "reset_password"
)

// OTP delivery channels.
const (
	OTPTypeEmail = "email"
	OTPTypeSMS   = "sms"
)

// User represents an account record. Accounts are created inactive and
// unverified; both flags flip together after a registration OTP succeeds.
type User struct {
	BaseModel
	Email          string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone          *string        `gorm:"size:20;uniqueIndex" json:"phone"`
	HashedPassword string         `gorm:"size:255;not null" json:"-"`
	FullName       string         `gorm:"size:255" json:"full_name"`
	IsActive       bool           `json:"is_active"`
	IsVerified     bool           `json:"is_verified"`
	IsSuperuser    bool           `json:"-"`
	OTPs           []OTP          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RefreshTokens  []RefreshToken `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// OTP is a short-lived one-time passcode tied to a user and a purpose.
// A code is valid while is_used is false and expires_at is in the future.
type OTP struct {
	BaseModel
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Code      string    `gorm:"size:6;not null" json:"-"`
	OTPType   string    `gorm:"size:10" json:"otp_type"`
	Purpose   string    `gorm:"size:20" json:"purpose"`
	IsUsed    bool      `json:"is_used"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

// RefreshToken backs an issued refresh token so it can be revoked.
type RefreshToken struct {
	BaseModel
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Token     string    `gorm:"size:512;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
}
