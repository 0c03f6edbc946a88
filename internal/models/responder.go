package models

import "time"

// Responder availability states.
const (
	ResponderAvailable   = "available"
	ResponderOnDuty      = "on_duty"
	ResponderOffDuty     = "off_duty"
	ResponderUnavailable = "unavailable"
)

// Responder is the operational profile of a user with the responder role.
// A responder has at most one incident in an active status assigned at
// any time; the assignment service enforces that invariant.
type Responder struct {
	BaseModel

	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User   *User  `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`

	ResponderID    string `gorm:"type:varchar(20);uniqueIndex;not null" json:"responder_id"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization"`
	Certification  string `json:"certification"`

	Status          string `gorm:"type:varchar(20);default:'available';index" json:"status"`
	CurrentLocation string `json:"current_location"`

	Rating           float64 `gorm:"default:0" json:"rating"`
	HandledIncidents uint    `gorm:"default:0" json:"handled_incidents"`

	LastActiveAt *time.Time `json:"last_active_at"`
}

// ValidResponderStatus reports whether the status string is recognised.
func ValidResponderStatus(status string) bool {
	switch status {
	case ResponderAvailable, ResponderOnDuty, ResponderOffDuty, ResponderUnavailable:
		return true
	default:
		return false
	}
}

// ResponderStatusDescription returns the canonical availability description.
func ResponderStatusDescription(status string) string {
	switch status {
	case ResponderAvailable:
		return "Ready for new incidents"
	case ResponderUnavailable:
		return "Not accepting new incidents"
	case ResponderOnDuty:
		return "Responding to active incident"
	case ResponderOffDuty:
		return "Shift ended"
	default:
		return "Status changed to " + status
	}
}
