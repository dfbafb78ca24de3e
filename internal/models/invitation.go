package models

import "time"

// InvitationStatus is the stored reporting state of an invitation. Acceptance
// and resend logic always evaluate ExpiresAt directly; the expired status is
// only written by the maintenance sweep.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is a time-bounded offer that converts into a new user of the
// invited track on acceptance. The organization reference is a tagged pair of
// OrgKind + OrgID rather than a polymorphic association.
type Invitation struct {
	BaseModel

	Email     string  `gorm:"not null;index" json:"email"`
	OrgKind   OrgKind `gorm:"not null" json:"org_kind"`
	OrgID     string  `gorm:"type:uuid;not null;index" json:"org_id"`
	Role      OrgRole `gorm:"not null" json:"role"`
	TokenHash string  `gorm:"uniqueIndex;not null" json:"-"`
	InvitedBy string  `gorm:"type:uuid" json:"invited_by"`

	Status     InvitationStatus `gorm:"not null;default:pending;index" json:"status"`
	ExpiresAt  time.Time        `gorm:"index" json:"expires_at"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty"`
}

// Track returns the membership track a user created from this invitation gets.
func (i *Invitation) Track() MembershipTrack {
	if i.OrgKind == OrgKindEnterprise {
		return TrackEnterpriseMember
	}
	return TrackTeamMember
}

// ExpiredAt reports whether the invitation is past its expiry at the given time.
func (i *Invitation) ExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
