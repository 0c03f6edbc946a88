package models

import "time"

// PasswordResetToken stores a hashed verification code issued during the
// forgot-password flow. Codes are single use and expire.
type PasswordResetToken struct {
	BaseModel

	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`
	User   *User  `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	CodeHash  string    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`

	VerifiedAt *time.Time `json:"verified_at"`
	ConsumedAt *time.Time `json:"consumed_at"`
}

// Usable reports whether the token can still be verified at the given time.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}
