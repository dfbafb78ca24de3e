package models

// OrgKind tags which organization table an invitation or reference points at.
type OrgKind string

const (
	OrgKindTeam       OrgKind = "team"
	OrgKindEnterprise OrgKind = "enterprise"
)

// OrgStatus is the billing/lifecycle state of an organization.
type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
	OrgStatusCancelled OrgStatus = "cancelled"
)

// ValidOrgKind reports whether the kind is one of the known values.
func ValidOrgKind(kind OrgKind) bool {
	return kind == OrgKindTeam || kind == OrgKindEnterprise
}

// Team groups team-track users under a single admin with a member ceiling.
type Team struct {
	BaseModel

	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	AdminID *string `gorm:"type:uuid" json:"admin_id,omitempty"`
	Admin   *User   `gorm:"foreignKey:AdminID" json:"admin,omitempty"`

	MaxMembers int       `gorm:"not null;default:5" json:"max_members"`
	Plan       string    `gorm:"default:starter" json:"plan"`
	Status     OrgStatus `gorm:"not null;default:active" json:"status"`

	Users []User `gorm:"foreignKey:TeamID" json:"users,omitempty"`
}

// EnterpriseGroup groups enterprise-track users. Unlike a team, its admin seat
// may be vacant while an admin invitation is outstanding; AdminInvitePending
// records that window explicitly.
type EnterpriseGroup struct {
	BaseModel

	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	AdminID            *string `gorm:"type:uuid" json:"admin_id,omitempty"`
	Admin              *User   `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	AdminInvitePending bool    `gorm:"default:false" json:"admin_invite_pending"`

	MaxMembers int       `gorm:"not null;default:25" json:"max_members"`
	Plan       string    `gorm:"default:enterprise" json:"plan"`
	Status     OrgStatus `gorm:"not null;default:active" json:"status"`

	Users []User `gorm:"foreignKey:EnterpriseGroupID" json:"users,omitempty"`
}
