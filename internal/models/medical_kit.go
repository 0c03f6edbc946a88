package models

import "time"

// Medical kit types.
const (
	KitBasic     = "basic"
	KitAdvanced  = "advanced"
	KitEmergency = "emergency"
	KitTrauma    = "trauma"
	KitPediatric = "pediatric"
)

// Medical kit states.
const (
	KitAvailable   = "available"
	KitInUse       = "in_use"
	KitMaintenance = "maintenance"
	KitExpired     = "expired"
	KitLost        = "lost"
)

// MedicalKit is a trackable kit managed by facility staff.
type MedicalKit struct {
	BaseModel

	KitID   string `gorm:"type:varchar(20);uniqueIndex;not null" json:"kit_id"`
	Name    string `gorm:"type:varchar(200);not null" json:"name"`
	KitType string `gorm:"type:varchar(20);not null" json:"kit_type"`

	Status   string `gorm:"type:varchar(20);default:'available'" json:"status"`
	Location string `gorm:"type:varchar(200)" json:"location"`

	ExpiryDate *time.Time `json:"expiry_date"`

	Items []KitItem `gorm:"foreignKey:KitID;references:ID" json:"items,omitempty"`
}

// KitItem is a stocked consumable within a medical kit.
type KitItem struct {
	BaseModel

	KitID string      `gorm:"type:uuid;index;not null" json:"kit_id"`
	Kit   *MedicalKit `gorm:"foreignKey:KitID;constraint:OnDelete:CASCADE" json:"-"`

	Name        string `gorm:"type:varchar(200);not null" json:"name"`
	Quantity    uint   `gorm:"default:1" json:"quantity"`
	MinQuantity uint   `gorm:"default:1" json:"min_quantity"`
	Unit        string `gorm:"type:varchar(50);default:'pieces'" json:"unit"`

	ExpiryDate *time.Time `json:"expiry_date"`
}

// IsLowStock reports whether the item quantity is at or below its minimum.
func (i *KitItem) IsLowStock() bool {
	return i.Quantity <= i.MinQuantity
}
