package models

// ResponderAvailabilityHistory is the append-only audit trail of responder
// availability changes, written with the same discipline as incident
// status history.
type ResponderAvailabilityHistory struct {
	BaseModel

	ResponderID string     `gorm:"type:uuid;index;not null" json:"responder_id"`
	Responder   *Responder `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	Status      string `gorm:"type:varchar(20);not null" json:"status"`
	Description string `gorm:"type:varchar(255)" json:"description"`
}
