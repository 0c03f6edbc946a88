package models

import (
	"strings"
	"time"
)

// Incident status pipeline. The responder-driven path walks the sequence
// open → en_route → on_scene → providing_aid → transporting → resolved;
// closed is an administrative terminal reachable from any state.
const (
	IncidentOpen         = "open"
	IncidentEnRoute      = "en_route"
	IncidentOnScene      = "on_scene"
	IncidentProvidingAid = "providing_aid"
	IncidentTransporting = "transporting"
	IncidentResolved     = "resolved"
	IncidentClosed       = "closed"
)

// Incident severities.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Incident types.
const (
	IncidentTypeMedical  = "medical"
	IncidentTypeFire     = "fire"
	IncidentTypeAccident = "accident"
	IncidentTypeCrime    = "crime"
	IncidentTypeNatural  = "natural"
	IncidentTypeOther    = "other"
)

// Incident is a reported emergency event tracked through the status pipeline.
type Incident struct {
	BaseModel

	ReporterID string `gorm:"type:uuid;index;not null" json:"reporter_id"`
	Reporter   *User  `gorm:"foreignKey:ReporterID;constraint:OnDelete:CASCADE" json:"reporter,omitempty"`

	AssignedResponderID *string    `gorm:"type:uuid;index" json:"assigned_responder_id"`
	AssignedResponder   *Responder `gorm:"foreignKey:AssignedResponderID;constraint:OnDelete:SET NULL" json:"assigned_responder,omitempty"`

	IncidentType string `gorm:"type:varchar(20);not null" json:"incident_type"`
	Severity     string `gorm:"type:varchar(20);not null;index" json:"severity"`

	Location        string `gorm:"type:text;not null" json:"location"`
	Description     string `gorm:"type:text;not null" json:"description"`
	ContactPhone    string `gorm:"type:varchar(20);not null" json:"contact_phone"`
	PeopleInvolved  int    `gorm:"default:1" json:"people_involved"`
	ImmediateAction string `gorm:"type:text" json:"immediate_action"`

	Status string `gorm:"type:varchar(20);default:'open';index" json:"status"`

	// ResolvedAt is non-nil iff Status == resolved. The state machine
	// enforces this as an invariant on every transition.
	ResolvedAt *time.Time `json:"resolved_at"`
}

// Reference returns the short human-facing incident reference, e.g. INC-3FA94C21.
func (i *Incident) Reference() string {
	id := strings.ReplaceAll(i.ID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return "INC-" + strings.ToUpper(id)
}

// IsTerminal reports whether the incident reached a terminal status.
func (i *Incident) IsTerminal() bool {
	return i.Status == IncidentResolved || i.Status == IncidentClosed
}

// IsActive reports whether the incident is in an active (assigned-work)
// status, i.e. anything other than open, resolved, or closed.
func (i *Incident) IsActive() bool {
	return IncidentStatusActive(i.Status)
}

// IncidentStatusActive reports whether a status counts toward a
// responder's single-active-assignment invariant.
func IncidentStatusActive(status string) bool {
	switch status {
	case IncidentEnRoute, IncidentOnScene, IncidentProvidingAid, IncidentTransporting:
		return true
	default:
		return false
	}
}

// ValidIncidentStatus reports whether the status string is recognised.
func ValidIncidentStatus(status string) bool {
	switch status {
	case IncidentOpen, IncidentEnRoute, IncidentOnScene, IncidentProvidingAid,
		IncidentTransporting, IncidentResolved, IncidentClosed:
		return true
	default:
		return false
	}
}

// ValidSeverity reports whether the severity string is recognised.
func ValidSeverity(severity string) bool {
	switch severity {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// ValidIncidentType reports whether the incident type is recognised.
func ValidIncidentType(incidentType string) bool {
	switch incidentType {
	case IncidentTypeMedical, IncidentTypeFire, IncidentTypeAccident,
		IncidentTypeCrime, IncidentTypeNatural, IncidentTypeOther:
		return true
	default:
		return false
	}
}

// IncidentStatusDescription returns the canonical description recorded in
// the status history when the caller supplies no notes.
func IncidentStatusDescription(status string) string {
	switch status {
	case IncidentOpen:
		return "Incident reported and open"
	case IncidentEnRoute:
		return "Responder is en route"
	case IncidentOnScene:
		return "Responder arrived on scene"
	case IncidentProvidingAid:
		return "Responder is providing aid"
	case IncidentTransporting:
		return "Transporting patient to hospital"
	case IncidentResolved:
		return "Incident resolved"
	case IncidentClosed:
		return "Case closed"
	default:
		return "Status updated to " + status
	}
}

// IncidentStatusDisplay returns the human readable status label.
func IncidentStatusDisplay(status string) string {
	switch status {
	case IncidentOpen:
		return "Open"
	case IncidentEnRoute:
		return "En Route"
	case IncidentOnScene:
		return "On Scene"
	case IncidentProvidingAid:
		return "Providing Aid"
	case IncidentTransporting:
		return "Transporting"
	case IncidentResolved:
		return "Resolved"
	case IncidentClosed:
		return "Closed"
	default:
		return status
	}
}

// SeverityDisplay returns the human readable severity label.
func SeverityDisplay(severity string) string {
	switch severity {
	case SeverityCritical:
		return "Critical"
	case SeverityHigh:
		return "High"
	case SeverityMedium:
		return "Medium"
	case SeverityLow:
		return "Low"
	default:
		return severity
	}
}

// IncidentTypeDisplay returns the human readable incident type label.
func IncidentTypeDisplay(incidentType string) string {
	switch incidentType {
	case IncidentTypeMedical:
		return "Medical Emergency"
	case IncidentTypeFire:
		return "Fire Hazard"
	case IncidentTypeAccident:
		return "Accident"
	case IncidentTypeCrime:
		return "Crime/Security"
	case IncidentTypeNatural:
		return "Natural Disaster"
	case IncidentTypeOther:
		return "Other"
	default:
		return incidentType
	}
}
