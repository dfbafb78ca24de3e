package models

import "time"

// EmailChangeStatus tracks the review state of an email change request.
type EmailChangeStatus string

const (
	EmailChangePending  EmailChangeStatus = "pending"
	EmailChangeApproved EmailChangeStatus = "approved"
	EmailChangeRejected EmailChangeStatus = "rejected"
	EmailChangeExpired  EmailChangeStatus = "expired"
)

// EmailChangeRequest is the only legal path to mutate a user's email address,
// save for the audited super-admin self-service bypass. A user holds at most
// one pending request at a time.
type EmailChangeRequest struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	NewEmail  string `gorm:"not null" json:"new_email"`
	Reason    string `gorm:"not null" json:"reason"`
	TokenHash string `gorm:"uniqueIndex;not null" json:"-"`

	Status      EmailChangeStatus `gorm:"not null;default:pending;index" json:"status"`
	RequestedAt time.Time         `gorm:"not null;index" json:"requested_at"`

	ReviewedBy *string    `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	Reviewer   *User      `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// StaleAt reports whether the request is older than the review window at the
// given time. Stale requests can no longer be approved or rejected even when
// storage still says pending.
func (r *EmailChangeRequest) StaleAt(now time.Time, window time.Duration) bool {
	return r.RequestedAt.Before(now.Add(-window))
}
