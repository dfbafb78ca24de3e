package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MembershipTrack classifies how a user account was provisioned. The track is
// assigned at creation and never changes afterwards.
type MembershipTrack string

const (
	TrackIndependent      MembershipTrack = "independent"
	TrackTeamMember       MembershipTrack = "team_member"
	TrackEnterpriseMember MembershipTrack = "enterprise_member"
)

// PrivilegeTier is the administrative rank of a user.
type PrivilegeTier string

const (
	TierStandard     PrivilegeTier = "standard"
	TierSupportAdmin PrivilegeTier = "support_admin"
	TierSuperAdmin   PrivilegeTier = "super_admin"
)

// UserStatus captures the lifecycle state of an account.
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
	StatusLocked   UserStatus = "locked"
)

// OrgRole is the role a user holds within their team or enterprise group.
type OrgRole string

const (
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// User is the identity record at the root of the tenancy model. Exactly one of
// TeamID / EnterpriseGroupID is populated, and only when MembershipTrack matches.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	MembershipTrack MembershipTrack `gorm:"not null;index" json:"membership_track"`
	PrivilegeTier   PrivilegeTier   `gorm:"not null;default:standard" json:"privilege_tier"`
	Status          UserStatus      `gorm:"not null;default:active;index" json:"status"`

	TeamID   *string `gorm:"type:uuid;index" json:"team_id,omitempty"`
	Team     *Team   `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	TeamRole OrgRole `json:"team_role,omitempty"`

	EnterpriseGroupID *string          `gorm:"type:uuid;index" json:"enterprise_group_id,omitempty"`
	EnterpriseGroup   *EnterpriseGroup `gorm:"foreignKey:EnterpriseGroupID" json:"enterprise_group,omitempty"`
	EnterpriseRole    OrgRole          `json:"enterprise_role,omitempty"`

	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedAt       *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// ErrTrackImmutable backstops the service-layer guard at the model layer.
var ErrTrackImmutable = errors.New("membership track is immutable")

// BeforeUpdate rejects any update that touches the membership track.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed("membership_track") {
		return ErrTrackImmutable
	}
	return nil
}

// OrganizationRef returns the tagged organization reference for the user, or
// false for independent accounts.
func (u *User) OrganizationRef() (OrgKind, string, bool) {
	switch u.MembershipTrack {
	case TrackTeamMember:
		if u.TeamID != nil {
			return OrgKindTeam, *u.TeamID, true
		}
	case TrackEnterpriseMember:
		if u.EnterpriseGroupID != nil {
			return OrgKindEnterprise, *u.EnterpriseGroupID, true
		}
	}
	return "", "", false
}

// OrganizationRole returns the user's role within their organization.
func (u *User) OrganizationRole() OrgRole {
	switch u.MembershipTrack {
	case TrackTeamMember:
		return u.TeamRole
	case TrackEnterpriseMember:
		return u.EnterpriseRole
	}
	return ""
}

// ValidTrack reports whether the membership track is one of the known values.
func ValidTrack(track MembershipTrack) bool {
	switch track {
	case TrackIndependent, TrackTeamMember, TrackEnterpriseMember:
		return true
	}
	return false
}

// ValidTier reports whether the privilege tier is one of the known values.
func ValidTier(tier PrivilegeTier) bool {
	switch tier {
	case TierStandard, TierSupportAdmin, TierSuperAdmin:
		return true
	}
	return false
}

// ValidStatus reports whether the lifecycle status is one of the known values.
func ValidStatus(status UserStatus) bool {
	switch status {
	case StatusActive, StatusInactive, StatusLocked:
		return true
	}
	return false
}

// AdjacentTier reports whether moving between the two privilege tiers is a
// single step on the standard <-> support_admin <-> super_admin ladder.
func AdjacentTier(from, to PrivilegeTier) bool {
	switch {
	case from == TierStandard && to == TierSupportAdmin,
		from == TierSupportAdmin && to == TierStandard,
		from == TierSupportAdmin && to == TierSuperAdmin,
		from == TierSuperAdmin && to == TierSupportAdmin:
		return true
	}
	return false
}
