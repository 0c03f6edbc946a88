package models

// Facility operating states.
const (
	FacilityActive      = "active"
	FacilityMaintenance = "maintenance"
	FacilityClosed      = "closed"
)

// Facility is the operational profile of a user with the facility role.
type Facility struct {
	BaseModel

	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User   *User  `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`

	FacilityName  string `gorm:"type:varchar(200);not null" json:"facility_name"`
	Address       string `gorm:"type:varchar(255)" json:"address"`
	ContactNumber string `gorm:"type:varchar(20)" json:"contact_number"`

	AvailableKits uint `gorm:"default:0" json:"available_kits"`
	Capacity      uint `gorm:"default:0" json:"capacity"`

	Status string `gorm:"type:varchar(20);default:'active'" json:"status"`
}
