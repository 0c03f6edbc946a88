package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types mirror incident severities with an extra info level.
const (
	NotificationCritical = "critical"
	NotificationHigh     = "high"
	NotificationMedium   = "medium"
	NotificationLow      = "low"
	NotificationInfo     = "info"
)

// Notification categories.
const (
	CategoryIncident    = "incident"
	CategorySystem      = "system"
	CategoryMaintenance = "maintenance"
	CategoryStaff       = "staff"
	CategoryEquipment   = "equipment"
)

// Notification represents an in-app notification for a user. Created by
// the dispatcher; mutated only by the recipient marking it read.
type Notification struct {
	BaseModel

	RecipientID string `gorm:"type:uuid;index;not null" json:"recipient_id"`
	Recipient   *User  `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"-"`

	Title   string `gorm:"type:varchar(200);not null" json:"title"`
	Message string `gorm:"type:text" json:"message"`

	Type     string `gorm:"type:varchar(20);default:'info'" json:"type"`
	Category string `gorm:"type:varchar(20);default:'system'" json:"category"`

	RelatedIncidentID *string        `gorm:"type:uuid" json:"related_incident_id"`
	RelatedIncident   *Incident      `gorm:"foreignKey:RelatedIncidentID;constraint:OnDelete:SET NULL" json:"-"`
	Metadata          datatypes.JSON `json:"metadata"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}
