package models

// IncidentStatusHistory is the append-only audit trail of incident status
// changes. Rows are written once per logical status change and never
// mutated or deleted.
type IncidentStatusHistory struct {
	BaseModel

	IncidentID string    `gorm:"type:uuid;index;not null" json:"incident_id"`
	Incident   *Incident `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	Status string `gorm:"type:varchar(20);not null" json:"status"`
	Notes  string `gorm:"type:text" json:"notes"`
}
