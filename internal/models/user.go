package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles. Facility receives severity-based incident notifications,
// responders act on incidents, admins may override any workflow state.
const (
	RoleUser      = "user"
	RoleSeller    = "seller"
	RoleFacility  = "facility"
	RoleResponder = "responder"
	RoleAdmin     = "admin"
)

// User describes platform users across every role-gated dashboard.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	Role string `gorm:"type:varchar(20);default:'user';index" json:"role"`

	Phone   string `json:"phone"`
	Address string `gorm:"type:text" json:"address"`
	City    string `json:"city"`

	EmergencyContact string `json:"emergency_contact"`
	EmergencyPhone   string `json:"emergency_phone"`
	BloodType        string `gorm:"type:varchar(10)" json:"blood_type"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// ValidRole reports whether the supplied role string is a known role.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleSeller, RoleFacility, RoleResponder, RoleAdmin:
		return true
	default:
		return false
	}
}
