package models

import (
	"time"
)

// OTP is a one-time password for the admin password-reset flow.
type OTP struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:120;not null;index:idx_otp_lookup" json:"email"`
	Code      string    `gorm:"size:6;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index:idx_otp_lookup" json:"expires_at"`
	Used      bool      `gorm:"not null;default:false;index:idx_otp_lookup" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}
