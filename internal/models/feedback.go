package models

import "time"

// Feedback review states.
const (
	FeedbackPending  = "pending"
	FeedbackApproved = "approved"
	FeedbackReplied  = "replied"
	FeedbackResolved = "resolved"
)

// Feedback sentiments, derived from the rating at submission time.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Feedback is a user-submitted review, optionally linked to an incident.
type Feedback struct {
	BaseModel

	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`
	User   *User  `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`

	IncidentID *string   `gorm:"type:uuid" json:"incident_id"`
	Incident   *Incident `gorm:"constraint:OnDelete:SET NULL" json:"-"`

	Rating    int    `gorm:"not null" json:"rating"`
	Message   string `gorm:"type:text;not null" json:"message"`
	Sentiment string `gorm:"type:varchar(20)" json:"sentiment"`
	Tags      string `gorm:"type:varchar(200)" json:"tags"`

	Status    string     `gorm:"type:varchar(20);default:'pending'" json:"status"`
	Reply     string     `gorm:"type:text" json:"reply"`
	RepliedAt *time.Time `json:"replied_at"`
}
